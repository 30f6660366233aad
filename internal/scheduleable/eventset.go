package scheduleable

import (
	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
)

// EventSet is the authoring-time boundary a Unit uses to create events
// against a shared DAG and clock/scheduler pair, without needing to thread
// those references through every constructor call by hand.
type EventSet struct {
	d     *dag.DAG
	clk   *clock.Clock
	sched Scheduler
}

// NewEventSet binds a new EventSet to d, clk, and sched. Every event
// created against this set is automatically wired to the same clock and
// scheduler.
func NewEventSet(d *dag.DAG, clk *clock.Clock, sched Scheduler) *EventSet {
	return &EventSet{d: d, clk: clk, sched: sched}
}

// Event creates a plain Scheduleable wrapping a zero-argument handler.
func (es *EventSet) Event(label string, fn func(), delayCycles clock.Tick, phase dag.Phase) (*Scheduleable, error) {
	s, err := New(es.d, label, handler.New0(label, fn), delayCycles, phase)
	if err != nil {
		return nil, err
	}
	s.SetClock(es.clk, es.sched)
	return s, nil
}

// UniqueEvent creates a UniqueEvent wrapping a zero-argument handler.
func (es *EventSet) UniqueEvent(label string, fn func(), delayCycles clock.Tick, phase dag.Phase) (*UniqueEvent, error) {
	e, err := NewUniqueEvent(es.d, label, handler.New0(label, fn), delayCycles, phase)
	if err != nil {
		return nil, err
	}
	e.SetClock(es.clk, es.sched)
	return e, nil
}

// SingleCycleUniqueEvent creates a SingleCycleUniqueEvent wrapping a
// zero-argument handler.
func (es *EventSet) SingleCycleUniqueEvent(label string, fn func(), phase dag.Phase) (*SingleCycleUniqueEvent, error) {
	e, err := NewSingleCycleUniqueEvent(es.d, label, handler.New0(label, fn), phase)
	if err != nil {
		return nil, err
	}
	e.SetClock(es.clk, es.sched)
	return e, nil
}

// PayloadEvent creates a PayloadEvent[T] wrapping a one-argument delivery
// function.
func PayloadEvent[T any](es *EventSet, label string, deliver func(T), delayCycles clock.Tick, phase dag.Phase) (*PayloadEvent[T], error) {
	p, err := NewPayloadEvent(es.d, label, deliver, delayCycles, phase)
	if err != nil {
		return nil, err
	}
	p.SetClock(es.clk, es.sched)
	return p, nil
}

// StartupEvent creates a StartupEvent wrapping a zero-argument handler, to
// be fired once at the start of the first run.
func (es *EventSet) StartupEvent(label string, fn func()) (*StartupEvent, error) {
	e, err := NewStartupEvent(es.d, label, handler.New0(label, fn))
	if err != nil {
		return nil, err
	}
	e.SetClock(es.clk, es.sched)
	return e, nil
}
