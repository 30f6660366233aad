// Package scheduler implements the tick-quantum event queue, run loop,
// phase dispatch, and asynchronous ingress at the center of the simulation
// kernel: a single-threaded cooperative scheduler driven by a linked list
// of per-tick firing-group buckets.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/scheduleable"
	wd "github.com/latticesim/kernel/internal/watchdog"
)

// Indefinite is the sentinel value for Run's numTicks parameter meaning
// "run until the queue and all continuing events are exhausted".
const Indefinite uint64 = 0

// invalidTick marks "no next event" for NextEventTick/GetNextContinuingEventTime.
const invalidTick clock.Tick = ^clock.Tick(0)

// State is one of the scheduler's five lifecycle states.
type State int

const (
	StateBuilding State = iota
	StateFinalizing
	StateIdle
	StateRunning
	StateTeardown
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "BUILDING"
	case StateFinalizing:
		return "FINALIZING"
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateTeardown:
		return "TEARDOWN"
	default:
		return "UNKNOWN"
	}
}

// StopReason describes why the most recent Run call returned.
type StopReason int

const (
	StopReasonNotYetRun StopReason = iota
	StopReasonTickBudgetReached
	StopReasonQueueExhausted
	StopReasonStopRunningCalled
	StopReasonWatchdogTripped
)

func (r StopReason) String() string {
	switch r {
	case StopReasonNotYetRun:
		return "not yet run"
	case StopReasonTickBudgetReached:
		return "tick budget reached"
	case StopReasonQueueExhausted:
		return "queue and continuing events exhausted"
	case StopReasonStopRunningCalled:
		return "stopRunning called"
	case StopReasonWatchdogTripped:
		return "watchdog tripped"
	default:
		return "unknown"
	}
}

type asyncEntry struct {
	s     *scheduleable.Scheduleable
	delay clock.Tick
}

// Scheduler is the tick-quantum run loop. It implements clock.Scheduler and
// scheduleable.Scheduler, letting Clock and Scheduleable values reach back
// into it without those packages importing this one.
type Scheduler struct {
	log *slog.Logger

	dag    *dag.DAG
	clocks []*clock.Clock

	state State

	firingGroupCount int
	dagGroupCount    int
	head             *tickQuantum
	pool             quantumPool
	// currentTick is written only from the run loop but read from the
	// watchdog goroutine as an advisory liveness sample; atomic so that
	// cross-thread read is race-detector-clean without a mutex.
	currentTick      atomic.Uint64
	elapsedTicks     clock.Tick
	latestContinuing clock.Tick
	hasContinuing    bool
	finished         bool
	currentGroup     int

	running        atomic.Bool
	stopReq        atomic.Bool
	lastStopReason StopReason

	eventsFired uint64

	startupEvents  []*scheduleable.StartupEvent
	startupDrained bool

	asyncMu        sync.Mutex
	asyncQueue     []asyncEntry
	asyncEmptyHint atomic.Bool

	watchdog wd.Watchdog

	runWall time.Duration
}

// New constructs a Scheduler in the BUILDING state, backed by its own DAG.
func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		log: log,
		dag: dag.New(false),
	}
	s.asyncEmptyHint.Store(true)
	return s
}

// DAG returns the scheduler's precedence graph, for Scheduleable
// construction during BUILDING.
func (s *Scheduler) DAG() *dag.DAG { return s.dag }

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// IsBuilding reports whether the scheduler is still in BUILDING, i.e.
// before the first Finalize call. Triggers installed during BUILDING defer
// their first scheduling to a StartupEvent; triggers installed afterward
// schedule directly against the live tick.
func (s *Scheduler) IsBuilding() bool { return s.state == StateBuilding }

// StopReason returns why the most recent Run call returned, or
// StopReasonNotYetRun before the first call.
func (s *Scheduler) StopReason() StopReason { return s.lastStopReason }

// RunReason renders a short diagnostic describing why the scheduler
// currently considers itself not finished — a continuing event, pending
// startup events, or an empty queue — in the spirit of
// sparta::TemporaryRunController's stack of "why are we still running"
// reasons. For logging only; never consulted for control flow.
func (s *Scheduler) RunReason() string {
	if !s.startupDrained && len(s.startupEvents) > 0 {
		return fmt.Sprintf("%d startup events pending", len(s.startupEvents))
	}
	if s.hasContinuing && s.latestContinuing >= s.CurrentTick() {
		return fmt.Sprintf("continuing event at tick %d", s.latestContinuing)
	}
	if s.head != nil {
		return fmt.Sprintf("next event at tick %d", s.head.tick)
	}
	return "queue empty, no continuing events"
}

// --- clock.Scheduler ---

// CurrentTick implements clock.Scheduler and scheduleable.Scheduler.
func (s *Scheduler) CurrentTick() clock.Tick { return clock.Tick(s.currentTick.Load()) }

// setCurrentTick stores t, the one write path the run loop and RestartAt
// use.
func (s *Scheduler) setCurrentTick(t clock.Tick) { s.currentTick.Store(uint64(t)) }

// RegisterClock implements clock.Scheduler.
func (s *Scheduler) RegisterClock(c *clock.Clock) {
	s.clocks = append(s.clocks, c)
}

// DeregisterClock implements clock.Scheduler.
func (s *Scheduler) DeregisterClock(c *clock.Clock) {
	for i, x := range s.clocks {
		if x == c {
			s.clocks = append(s.clocks[:i], s.clocks[i+1:]...)
			return
		}
	}
}

// --- scheduleable.Scheduler ---

// CurrentGroup implements scheduleable.Scheduler: the firing group
// currently being dispatched by the run loop (only meaningful while
// RUNNING).
func (s *Scheduler) CurrentGroup() int { return s.currentGroup }

// AddStartupEvent registers a StartupEvent to fire, in FIFO order, at the
// start of the first Run after Finalize. Valid only during BUILDING.
func (s *Scheduler) AddStartupEvent(e *scheduleable.StartupEvent) error {
	if s.state != StateBuilding {
		return fmt.Errorf("scheduler: AddStartupEvent called outside BUILDING (state=%s)", s.state)
	}
	s.startupEvents = append(s.startupEvents, e)
	return nil
}

// Finalize finalizes the DAG, fixes the firing-group count, and
// transitions BUILDING -> IDLE. Idempotent.
func (s *Scheduler) Finalize() error {
	if s.state == StateIdle {
		return nil
	}
	if s.state != StateBuilding {
		return fmt.Errorf("scheduler: Finalize called in state %s", s.state)
	}
	s.state = StateFinalizing
	n, err := s.dag.Finalize()
	if err != nil {
		return err
	}
	s.dagGroupCount = n
	s.firingGroupCount = n + 2
	s.state = StateIdle
	s.log.Debug("scheduler finalized", "groups", n, "firingGroupCount", s.firingGroupCount)
	return nil
}

func (s *Scheduler) quantumFor(target clock.Tick) *tickQuantum {
	if s.head == nil {
		q := s.pool.get(target, s.firingGroupCount)
		s.head = q
		return q
	}
	var prev *tickQuantum
	cur := s.head
	for cur != nil && cur.tick < target {
		prev, cur = cur, cur.next
	}
	if cur != nil && cur.tick == target {
		return cur
	}
	q := s.pool.get(target, s.firingGroupCount)
	q.next = cur
	if prev == nil {
		s.head = q
	} else {
		prev.next = q
	}
	return q
}

// ScheduleEvent implements scheduleable.Scheduler: enqueues sched to fire
// relTick ticks from now, in the firing group derived from dagGroup.
func (s *Scheduler) ScheduleEvent(sched *scheduleable.Scheduleable, relTick clock.Tick, dagGroup int, continuing bool) error {
	target := s.CurrentTick() + relTick
	if s.state == StateRunning && relTick == 0 {
		fg := firingGroupIndex(dagGroup, s.dagGroupCount)
		if fg < s.currentGroup {
			return &PrecedenceError{
				Scheduling:   sched,
				Target:       sched,
				CurrentGroup: s.currentGroup,
				TargetGroup:  fg,
			}
		}
	}
	q := s.quantumFor(target)
	fg := firingGroupIndex(dagGroup, s.dagGroupCount)
	q.groups[fg] = append(q.groups[fg], sched)
	if fg < q.firstIdx {
		q.firstIdx = fg
	}
	if continuing {
		if !s.hasContinuing || target > s.latestContinuing {
			s.latestContinuing = target
		}
		s.hasContinuing = true
		s.finished = false
	}
	return nil
}

// ScheduleAsyncEvent implements the async ingress contract: takes the
// internal lock, appends a pending entry, and clears the empty hint. Safe
// to call from any goroutine at any time.
func (s *Scheduler) ScheduleAsyncEvent(sched *scheduleable.Scheduleable, delay clock.Tick) error {
	s.asyncMu.Lock()
	s.asyncQueue = append(s.asyncQueue, asyncEntry{s: sched, delay: delay})
	s.asyncMu.Unlock()
	s.asyncEmptyHint.Store(false)
	return nil
}

// CancelAsyncEvent removes sched from the pending async queue and from any
// quantum it has already been drained into.
func (s *Scheduler) CancelAsyncEvent(sched *scheduleable.Scheduleable) error {
	s.asyncMu.Lock()
	kept := s.asyncQueue[:0]
	for _, e := range s.asyncQueue {
		if e.s != sched {
			kept = append(kept, e)
		}
	}
	s.asyncQueue = kept
	s.asyncEmptyHint.Store(len(s.asyncQueue) == 0)
	s.asyncMu.Unlock()
	return s.CancelEvent(sched, nil)
}

func (s *Scheduler) drainAsync() {
	if s.asyncEmptyHint.Load() {
		return
	}
	s.asyncMu.Lock()
	pending := s.asyncQueue
	s.asyncQueue = nil
	s.asyncEmptyHint.Store(true)
	s.asyncMu.Unlock()

	for _, e := range pending {
		target := s.CurrentTick() + e.delay
		q := s.quantumFor(target)
		fg := firingGroupIndex(e.s.Group(), s.dagGroupCount)
		q.groups[fg] = append(q.groups[fg], e.s)
		if fg < q.firstIdx {
			q.firstIdx = fg
		}
	}
}

// IsScheduled implements scheduleable.Scheduler: a linear scan for pointer
// equality across the relevant quanta.
func (s *Scheduler) IsScheduled(sched *scheduleable.Scheduleable, relCycle *clock.Tick) bool {
	check := func(q *tickQuantum) bool {
		for _, grp := range q.groups {
			for _, e := range grp {
				if e == sched {
					return true
				}
			}
		}
		return false
	}
	if relCycle != nil {
		target := s.CurrentTick() + *relCycle
		for q := s.head; q != nil; q = q.next {
			if q.tick == target {
				return check(q)
			}
			if q.tick > target {
				break
			}
		}
		return false
	}
	for q := s.head; q != nil; q = q.next {
		if check(q) {
			return true
		}
	}
	return false
}

// CancelEvent implements scheduleable.Scheduler: replaces every matching
// queue slot with the shared no-op sentinel, preserving slice indices so
// in-progress iteration over a group remains valid.
func (s *Scheduler) CancelEvent(sched *scheduleable.Scheduleable, relCycle *clock.Tick) error {
	noop := noopScheduleable()
	replace := func(q *tickQuantum) {
		for gi, grp := range q.groups {
			for i, e := range grp {
				if e == sched {
					q.groups[gi][i] = noop
				}
			}
		}
	}
	if relCycle != nil {
		target := s.CurrentTick() + *relCycle
		for q := s.head; q != nil; q = q.next {
			if q.tick == target {
				replace(q)
				return nil
			}
		}
		return nil
	}
	for q := s.head; q != nil; q = q.next {
		replace(q)
	}
	return nil
}

// GetNextContinuingEventTime returns the latest tick at which a continuing
// event is pending, or invalidTick (the maximum Tick value) if none.
func (s *Scheduler) GetNextContinuingEventTime() clock.Tick {
	if !s.hasContinuing {
		return invalidTick
	}
	return s.latestContinuing
}

// NextEventTick returns the tick of the head quantum, or invalidTick (the
// maximum Tick value) if the queue is empty.
func (s *Scheduler) NextEventTick() clock.Tick {
	if s.head == nil {
		return invalidTick
	}
	return s.head.tick
}

// GetElapsedTicks returns the scheduler's elapsed-ticks counter.
func (s *Scheduler) GetElapsedTicks() clock.Tick { return s.elapsedTicks }

// EventsFired returns the total number of handler invocations across the
// scheduler's lifetime, for statistics and tests.
func (s *Scheduler) EventsFired() uint64 { return s.eventsFired }

// IsFinished reports whether the scheduler considers itself drained: no
// pending quanta and no outstanding continuing event.
func (s *Scheduler) IsFinished() bool {
	return s.head == nil && (!s.hasContinuing || s.latestContinuing < s.CurrentTick())
}

// ClearEvents drops every pending quantum and continuing-event bookkeeping
// without touching currentTick.
func (s *Scheduler) ClearEvents() {
	for q := s.head; q != nil; {
		next := q.next
		s.pool.put(q)
		q = next
	}
	s.head = nil
	s.hasContinuing = false
	s.latestContinuing = 0
	s.finished = true
	s.asyncMu.Lock()
	s.asyncQueue = nil
	s.asyncMu.Unlock()
	s.asyncEmptyHint.Store(true)
}

// RestartAt clears all queues and resets current_tick to t (elapsed_ticks
// to t, or t+1 if t != 0, matching the "restart at a nonzero tick resumes
// as if that tick had just completed" semantics). Illegal while running.
func (s *Scheduler) RestartAt(t clock.Tick) error {
	if s.running.Load() {
		return ErrRestartWhileRunning
	}
	s.ClearEvents()
	s.setCurrentTick(t)
	if t == 0 {
		s.elapsedTicks = 0
	} else {
		s.elapsedTicks = t + 1
	}
	return nil
}

// StopRunning records a stop request. The run loop checks it only after
// every group of the current tick's quantum has been dispatched, so the
// events still queued for that tick fire before Run returns; the loop does
// not exit right after the handler that called StopRunning. No handler is
// ever interrupted.
func (s *Scheduler) StopRunning() {
	s.stopReq.Store(true)
}
