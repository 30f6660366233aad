// Package scheduleable implements the minimal schedulable unit (handler +
// phase + group + delay + DAG vertex) and its specializations: the
// once-per-tick UniqueEvent/SingleCycleUniqueEvent fast paths, the pooled
// PayloadEvent[T], and the run-once StartupEvent.
package scheduleable

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
)

// Scheduler is the subset of scheduler behavior a Scheduleable needs to
// enqueue, cancel, or query itself. Implemented by *scheduler.Scheduler;
// kept local to avoid an import cycle (scheduler imports this package, not
// the other way around).
type Scheduler interface {
	CurrentTick() clock.Tick
	CurrentGroup() int
	ScheduleEvent(s *Scheduleable, relTick clock.Tick, group int, continuing bool) error
	CancelEvent(s *Scheduleable, relCycle *clock.Tick) error
	IsScheduled(s *Scheduleable, relCycle *clock.Tick) bool
}

var (
	// ErrPhaseMismatch is returned by Precedes when the two Scheduleables
	// are not in the same phase.
	ErrPhaseMismatch = errors.New("scheduleable: precedes requires matching phases")
	// ErrAlreadyFinalized is returned by Precedes when called after the
	// owning DAG has been finalized.
	ErrAlreadyFinalized = errors.New("scheduleable: precedes called after finalize")
	// ErrNoClock is returned by Schedule when no clock has been attached
	// via SetClock.
	ErrNoClock = errors.New("scheduleable: schedule called with no clock attached")
)

// PhaseMismatchError names the two phases that did not match in a rejected
// Precedes call.
type PhaseMismatchError struct {
	A, B dag.Phase
}

func (e *PhaseMismatchError) Error() string {
	return fmt.Sprintf("scheduleable: phase mismatch: %s vs %s", e.A, e.B)
}

func (e *PhaseMismatchError) Unwrap() error { return ErrPhaseMismatch }

// Scheduleable is the minimal unit of scheduling: a handler, a phase, a
// preset delay (in cycles of a preset clock), a continuing flag, a DAG
// vertex, a label, and a handle reference-count used by pooled
// specializations (PayloadEvent proxies) to know when they may be recycled.
type Scheduleable struct {
	label      string
	h          handler.Handler
	phase      dag.Phase
	delay      clock.Tick
	continuing bool

	clk   *clock.Clock
	sched Scheduler
	vtx   *dag.Vertex
	d     *dag.DAG

	handleRefs int32
}

// New constructs a Scheduleable bound to d and the given handler, preset
// delay (in cycles), and immutable phase. The backing Vertex is allocated
// immediately against d, labeled for diagnostics, and linked between the
// GOP of phase and the GOP of the next phase so cross-phase precedence is
// automatic: no caller needs to touch the DAG's phase chain directly.
func New(d *dag.DAG, label string, h handler.Handler, delayCycles clock.Tick, phase dag.Phase) (*Scheduleable, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("scheduleable: invalid phase %d", int(phase))
	}
	v, err := d.NewVertex(label, nil, false)
	if err != nil {
		return nil, fmt.Errorf("scheduleable: allocating vertex: %w", err)
	}
	gops, err := d.PhaseChain()
	if err != nil {
		return nil, fmt.Errorf("scheduleable: building phase chain: %w", err)
	}
	if err := d.LinkIntoPhase(v, phase, gops); err != nil {
		return nil, fmt.Errorf("scheduleable: linking into phase chain: %w", err)
	}
	s := &Scheduleable{
		label: label,
		h:     h,
		phase: phase,
		delay: delayCycles,
		d:     d,
		vtx:   v,
	}
	v.Owner = s
	return s, nil
}

// Label returns the Scheduleable's debug label.
func (s *Scheduleable) Label() string { return s.label }

// Handler returns the bound callback delegate.
func (s *Scheduleable) Handler() handler.Handler { return s.h }

// Phase returns the immutable scheduling phase.
func (s *Scheduleable) Phase() dag.Phase { return s.phase }

// Vertex returns the backing DAG vertex.
func (s *Scheduleable) Vertex() *dag.Vertex { return s.vtx }

// Group returns the vertex's finalized group ID (invalid before finalize).
func (s *Scheduleable) Group() int { return s.vtx.Group() }

// SetContinuing marks whether scheduling this Scheduleable should be
// treated as "continuing" (keeps the run loop alive even with no other
// pending work), per the Scheduler.scheduleEvent contract.
func (s *Scheduleable) SetContinuing(continuing bool) { s.continuing = continuing }

// Continuing reports the continuing flag set via SetContinuing.
func (s *Scheduleable) Continuing() bool { return s.continuing }

// SetClock attaches the clock (and its owning Scheduler) this Scheduleable
// will compute delays against. The first call is what makes Schedule usable
// without an explicit clock argument.
func (s *Scheduleable) SetClock(clk *clock.Clock, sched Scheduler) {
	s.clk = clk
	s.sched = sched
}

// Clock returns the attached clock, or nil if SetClock was never called.
func (s *Scheduleable) Clock() *clock.Clock { return s.clk }

// Precedes declares a precedence edge from s to other: other may not fire
// in the same tick before s does. Both Scheduleables must share a phase and
// the owning DAG must not yet be finalized.
func (s *Scheduleable) Precedes(other *Scheduleable, reason string) error {
	if s.phase != other.phase {
		return &PhaseMismatchError{A: s.phase, B: other.phase}
	}
	if err := s.d.Link(s.vtx, other.vtx, reason); err != nil {
		if errors.Is(err, dag.ErrFinalized) {
			return ErrAlreadyFinalized
		}
		return err
	}
	return nil
}

// Schedule translates delay (in cycles of clk, or the attached clock if
// clk is nil) into an absolute relative-tick count and hands it to the
// Scheduler. delayCycles overrides the Scheduleable's preset delay when
// non-negative; pass -1 to use the preset.
func (s *Scheduleable) Schedule(delayCycles int64, clk *clock.Clock) error {
	useClk := clk
	if useClk == nil {
		useClk = s.clk
	}
	if useClk == nil {
		return ErrNoClock
	}
	cycles := s.delay
	if delayCycles >= 0 {
		cycles = clock.Tick(delayCycles)
	}
	relTick := useClk.Period() * cycles
	return s.ScheduleRelativeTick(relTick, s.sched)
}

// ScheduleRelativeTick is the low-level entry point used directly by
// derived events (PayloadEvent proxies, StartupEvent) that already know the
// exact relative tick and scheduler to target.
func (s *Scheduleable) ScheduleRelativeTick(relTick clock.Tick, sched Scheduler) error {
	if sched == nil {
		sched = s.sched
	}
	if sched == nil {
		return ErrNoClock
	}
	return sched.ScheduleEvent(s, relTick, s.Group(), s.continuing)
}

// Cancel removes every pending instance of s from the Scheduler, or just
// the instance at the given relative cycle if relCycle is non-nil.
func (s *Scheduleable) Cancel(relCycle *clock.Tick) error {
	if s.sched == nil {
		return nil
	}
	return s.sched.CancelEvent(s, relCycle)
}

// IsScheduled reports whether s has a pending instance anywhere in the
// Scheduler's queues, or specifically at relCycle if non-nil.
func (s *Scheduleable) IsScheduled(relCycle *clock.Tick) bool {
	if s.sched == nil {
		return false
	}
	return s.sched.IsScheduled(s, relCycle)
}

// AddRef increments the handle reference count, used by pooled
// specializations to know when a proxy is safe to recycle.
func (s *Scheduleable) AddRef() int32 { return atomic.AddInt32(&s.handleRefs, 1) }

// Release decrements the handle reference count and returns the new value.
func (s *Scheduleable) Release() int32 { return atomic.AddInt32(&s.handleRefs, -1) }

// RefCount returns the current handle reference count.
func (s *Scheduleable) RefCount() int32 { return atomic.LoadInt32(&s.handleRefs) }

func (s *Scheduleable) String() string {
	return fmt.Sprintf("Scheduleable(%s, phase=%s, group=%d)", s.label, s.phase, s.Group())
}
