package scheduleable

import (
	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
)

// SingleCycleUniqueEvent may only be scheduled 0 or 1 cycle in the future
// and at most once per tick. It memoizes the last and previous scheduled
// target ticks so a second Schedule call for the same tick is a no-op; this
// is the fast path for "fire next cycle or this cycle, idempotently".
type SingleCycleUniqueEvent struct {
	*Scheduleable

	lastTarget clock.Tick
	hasLast    bool
	prevTarget clock.Tick
	hasPrev    bool
}

// NewSingleCycleUniqueEvent constructs a SingleCycleUniqueEvent bound to d.
func NewSingleCycleUniqueEvent(d *dag.DAG, label string, h handler.Handler, phase dag.Phase) (*SingleCycleUniqueEvent, error) {
	base, err := New(d, label, h, 0, phase)
	if err != nil {
		return nil, err
	}
	return &SingleCycleUniqueEvent{Scheduleable: base}, nil
}

// Schedule schedules the event delayCycles (0 or 1) cycles in the future of
// clk (or the attached clock). A call that resolves to the same absolute
// target tick as either of the two previous calls is a no-op.
func (e *SingleCycleUniqueEvent) Schedule(delayCycles int64, clk *clock.Clock) error {
	useClk := clk
	if useClk == nil {
		useClk = e.clk
	}
	if useClk == nil {
		return ErrNoClock
	}
	target := useClk.CurrentCycle() + uint64(delayCycles)
	targetTick := useClk.GetTick(target)
	if (e.hasLast && e.lastTarget == targetTick) || (e.hasPrev && e.prevTarget == targetTick) {
		return nil
	}
	e.prevTarget, e.hasPrev = e.lastTarget, e.hasLast
	e.lastTarget = targetTick
	e.hasLast = true
	return e.Scheduleable.Schedule(delayCycles, clk)
}

// UniqueEvent is phase-enforced like Scheduleable but guarantees
// at-most-once-per-tick firing for any delay by tracking the last tick it
// was scheduled for, regardless of relative delay used to reach it.
type UniqueEvent struct {
	*Scheduleable

	lastTick clock.Tick
	hasLast  bool
}

// NewUniqueEvent constructs a UniqueEvent bound to d.
func NewUniqueEvent(d *dag.DAG, label string, h handler.Handler, delayCycles clock.Tick, phase dag.Phase) (*UniqueEvent, error) {
	base, err := New(d, label, h, delayCycles, phase)
	if err != nil {
		return nil, err
	}
	return &UniqueEvent{Scheduleable: base}, nil
}

// Schedule schedules the event, silently skipping re-scheduling if it has
// already been scheduled for the resulting absolute tick.
func (e *UniqueEvent) Schedule(delayCycles int64, clk *clock.Clock) error {
	useClk := clk
	if useClk == nil {
		useClk = e.clk
	}
	if useClk == nil {
		return ErrNoClock
	}
	var cur clock.Tick
	if e.sched != nil {
		cur = e.sched.CurrentTick()
	}
	cycles := e.delay
	if delayCycles >= 0 {
		cycles = clock.Tick(delayCycles)
	}
	target := cur + useClk.Period()*cycles
	if e.hasLast && e.lastTick == target {
		return nil
	}
	e.lastTick = target
	e.hasLast = true
	return e.Scheduleable.Schedule(delayCycles, clk)
}

// StartupEvent enqueues a zero-argument handler to be invoked exactly once,
// in FIFO order, at the start of the first run after finalization. It
// carries no clock and is never rescheduled.
type StartupEvent struct {
	*Scheduleable
}

// NewStartupEvent constructs a StartupEvent bound to d, in phase
// PhaseTrigger (startup events fire before anything else in the first
// tick).
func NewStartupEvent(d *dag.DAG, label string, h handler.Handler) (*StartupEvent, error) {
	base, err := New(d, label, h, 0, dag.PhaseTrigger)
	if err != nil {
		return nil, err
	}
	return &StartupEvent{Scheduleable: base}, nil
}
