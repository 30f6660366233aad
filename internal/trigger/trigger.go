// Package trigger implements per-tick predicate evaluation (counter and
// time/cycle based) that fires a user callback and deactivates itself. A
// Manager holds one ClockHandler per clock with at least one active
// trigger; the ClockHandler owns a self-rescheduling event that polls its
// borrowed triggers once per cycle, in phase Trigger.
package trigger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/scheduleable"
)

var (
	// ErrCounterVanished is returned (or, per check(), silently absorbed)
	// when a CounterTrigger's bound Counter has been destroyed.
	ErrCounterVanished = errors.New("trigger: counter reference vanished")
	// ErrUnknownAggregateFunc is returned when a named aggregate function
	// has not been registered.
	ErrUnknownAggregateFunc = errors.New("trigger: unknown aggregate function")
)

// Scheduler is the subset of scheduler behavior the trigger subsystem
// needs: Scheduleable's view plus startup-event registration and a
// BUILDING-phase check. Kept local to avoid an import cycle; implemented
// by *scheduler.Scheduler.
type Scheduler interface {
	scheduleable.Scheduler
	AddStartupEvent(e *scheduleable.StartupEvent) error
	IsBuilding() bool
}

// Trigger is the common behavior the Manager and ClockHandler operate on.
// check is unexported: it is only ever invoked by the owning ClockHandler
// during its per-cycle poll.
type Trigger interface {
	Name() string
	Clock() *clock.Clock
	Active() bool
	check()
}

// ManagedTrigger is the shared base every concrete trigger embeds: a name,
// a clock, an active flag, and the Manager it registers itself with on
// activation. Triggers are owned by their creators; the Manager only
// borrows pointers, matching the spec's ownership note.
type ManagedTrigger struct {
	name   string
	clk    *clock.Clock
	active bool
	mgr    *Manager
}

func newManagedTrigger(mgr *Manager, name string, clk *clock.Clock) ManagedTrigger {
	if name == "" {
		name = uuid.NewString()
	}
	return ManagedTrigger{name: name, clk: clk, mgr: mgr}
}

// Name returns the trigger's debug name.
func (m *ManagedTrigger) Name() string { return m.name }

// Clock returns the clock this trigger is polled against.
func (m *ManagedTrigger) Clock() *clock.Clock { return m.clk }

// Active reports whether the trigger is currently registered with its
// Manager's ClockHandler.
func (m *ManagedTrigger) Active() bool { return m.active }

func (m *ManagedTrigger) activate(self Trigger) error {
	if m.active {
		return nil
	}
	if err := m.mgr.registerTrigger(self); err != nil {
		return err
	}
	m.active = true
	return nil
}

func (m *ManagedTrigger) deactivate(self Trigger) {
	if !m.active {
		return
	}
	m.active = false
	m.mgr.deregisterTrigger(self)
}

// Manager is the explicit, non-global owner of one ClockHandler per clock
// that has at least one active trigger. Constructed alongside a Scheduler
// and threaded through trigger constructors; never a package-level
// singleton.
type Manager struct {
	d        *dag.DAG
	sched    Scheduler
	handlers map[*clock.Clock]*clockHandler
}

// NewManager constructs a Manager bound to d and sched.
func NewManager(d *dag.DAG, sched Scheduler) *Manager {
	return &Manager{d: d, sched: sched, handlers: make(map[*clock.Clock]*clockHandler)}
}

func (m *Manager) registerTrigger(t Trigger) error {
	ch, ok := m.handlers[t.Clock()]
	if !ok {
		var err error
		ch, err = newClockHandler(m, t.Clock())
		if err != nil {
			return err
		}
		m.handlers[t.Clock()] = ch
	}
	ch.add(t)
	return nil
}

func (m *Manager) deregisterTrigger(t Trigger) {
	if ch, ok := m.handlers[t.Clock()]; ok {
		ch.remove(t)
	}
}

// clockHandler owns the self-rescheduling poll event for one clock and the
// set of triggers currently borrowed against it, plus the deferred
// add/remove lists drained after each poll so callbacks that mutate the
// trigger set mid-iteration see consistent state on the next cycle.
type clockHandler struct {
	mgr *Manager
	clk *clock.Clock

	active        []Trigger
	pendingAdd    []Trigger
	pendingRemove []Trigger
	inTick        bool

	ev *scheduleable.Scheduleable
}

func newClockHandler(mgr *Manager, clk *clock.Clock) (*clockHandler, error) {
	ch := &clockHandler{mgr: mgr, clk: clk}
	es := scheduleable.NewEventSet(mgr.d, clk, mgr.sched)
	label := fmt.Sprintf("trigger-poll:%s", clk.Name())
	ev, err := es.Event(label, ch.tick, 1, dag.PhaseTrigger)
	if err != nil {
		return nil, err
	}
	ch.ev = ev

	if mgr.sched.IsBuilding() {
		se, err := es.StartupEvent(label+":start", func() { _ = ev.Schedule(0, nil) })
		if err != nil {
			return nil, err
		}
		if err := mgr.sched.AddStartupEvent(se); err != nil {
			return nil, err
		}
	} else if err := ev.Schedule(0, nil); err != nil {
		return nil, err
	}
	return ch, nil
}

func (ch *clockHandler) add(t Trigger) {
	if ch.inTick {
		ch.pendingAdd = append(ch.pendingAdd, t)
		return
	}
	ch.active = append(ch.active, t)
}

func (ch *clockHandler) remove(t Trigger) {
	if ch.inTick {
		ch.pendingRemove = append(ch.pendingRemove, t)
		return
	}
	ch.removeNow(t)
}

func (ch *clockHandler) removeNow(t Trigger) {
	ch.active = lo.Filter(ch.active, func(x Trigger, _ int) bool { return x != t })
}

// tick is the per-cycle poll body: set in-tick, check every borrowed
// trigger, drain deferred removals then additions, and reschedule for +1
// cycle.
func (ch *clockHandler) tick() {
	ch.inTick = true
	for _, t := range ch.active {
		t.check()
	}
	ch.inTick = false

	for _, t := range ch.pendingRemove {
		ch.removeNow(t)
	}
	ch.pendingRemove = ch.pendingRemove[:0]

	if len(ch.pendingAdd) > 0 {
		ch.active = append(ch.active, ch.pendingAdd...)
		ch.pendingAdd = ch.pendingAdd[:0]
	}

	_ = ch.ev.Schedule(-1, nil)
}
