package scheduler

import (
	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/scheduleable"
)

// tickQuantum is the per-tick container holding an ordered sequence of
// firing groups, each a growable slice of pending Scheduleables. Slot 0 is
// reserved for scheduler-internal entries (like the num_ticks self-stop
// event) that do not participate in the DAG's group numbering; slots
// [1, N-1] hold DAG groups 1..N-1 in order; slot N holds DAG group 0,
// the bucket for vertices with no predecessors at all, fired last so a
// genuinely unconstrained Scheduleable never jumps ahead of one with a
// real precedence edge; the final slot is reserved headroom.
type tickQuantum struct {
	tick     clock.Tick
	groups   [][]*scheduleable.Scheduleable
	firstIdx int
	next     *tickQuantum
}

func (q *tickQuantum) reset(tick clock.Tick, firingGroupCount int) {
	q.tick = tick
	q.next = nil
	q.firstIdx = firingGroupCount
	if cap(q.groups) >= firingGroupCount {
		q.groups = q.groups[:firingGroupCount]
		for i := range q.groups {
			q.groups[i] = q.groups[i][:0]
		}
	} else {
		q.groups = make([][]*scheduleable.Scheduleable, firingGroupCount)
	}
}

// quantumPool is the free-list allocator backing tickQuantum: a create
// dequeues from the free list or allocates a fresh quantum; a free pushes
// onto the list without destroying the quantum's backing slices, so
// steady-state scheduling never allocates.
type quantumPool struct {
	free []*tickQuantum
}

func (p *quantumPool) get(tick clock.Tick, firingGroupCount int) *tickQuantum {
	var q *tickQuantum
	if n := len(p.free); n > 0 {
		q = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		q = &tickQuantum{}
	}
	q.reset(tick, firingGroupCount)
	return q
}

func (p *quantumPool) put(q *tickQuantum) {
	p.free = append(p.free, q)
}

// firingGroupIndex maps a finalized DAG group to its slot in a quantum's
// groups slice, per scheduleEvent's firing_group computation. dagGroupCount
// is the N returned by DAG.Finalize. DAG group 0 is pushed to slot
// dagGroupCount (after every real group), matching the original scheduler's
// "put zero-grouped objects at the end of the group list" convention.
func firingGroupIndex(dagGroup, dagGroupCount int) int {
	if dagGroup == 0 {
		return dagGroupCount
	}
	return dagGroup
}
