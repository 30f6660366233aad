package scheduler

import (
	"time"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
)

// Run executes the main loop until the queue and every continuing event
// are exhausted, numTicks ticks have been consumed (when numTicks !=
// Indefinite), or StopRunning is called. exacting controls whether the
// self-stop event injected for a bounded run counts as continuing: an
// exacting run guarantees exactly numTicks ticks are visited even if
// nothing else is scheduled; a non-exacting run may finish earlier once
// real work is drained.
func (s *Scheduler) Run(numTicks uint64, exacting bool, measureTime bool) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}
	if s.state != StateIdle {
		return ErrNotFinalized
	}

	s.running.Store(true)
	s.stopReq.Store(false)
	s.state = StateRunning
	defer func() {
		s.running.Store(false)
		s.state = StateIdle
	}()

	var startWall time.Time
	if measureTime {
		startWall = time.Now()
	}

	if !s.startupDrained {
		for _, e := range s.startupEvents {
			e.Handler().Invoke()
			s.eventsFired++
		}
		s.startupDrained = true
	}

	if numTicks != Indefinite {
		stopEvent, err := scheduleable.New(dag.New(false), "<self-stop>", handler.New0("<self-stop>", func() {
			s.lastStopReason = StopReasonTickBudgetReached
			s.StopRunning()
		}), 0, dag.PhaseTrigger)
		if err == nil {
			target := s.CurrentTick() + clock.Tick(numTicks) - 1
			q := s.quantumFor(target)
			q.groups[0] = append(q.groups[0], stopEvent)
			if q.firstIdx > 0 {
				q.firstIdx = 0
			}
			if exacting {
				s.hasContinuing = true
				if target > s.latestContinuing || !s.hasContinuing {
					s.latestContinuing = target
				}
			}
		}
	}

	s.lastStopReason = StopReasonNotYetRun
	s.drainAsync() // pick up anything enqueued before Run was entered
	running := s.head != nil

	for running {
		q := s.head
		s.setCurrentTick(q.tick)
		if s.CurrentTick() > s.elapsedTicks {
			s.elapsedTicks = s.CurrentTick()
		}
		for _, c := range s.clocks {
			c.UpdateElapsedCycles(s.elapsedTicks)
		}

		s.drainAsync()

		for g := q.firstIdx; g < s.firingGroupCount; g++ {
			s.currentGroup = g
			i := 0
			for i < len(q.groups[g]) {
				sched := q.groups[g][i]
				sched.Handler().Invoke()
				s.eventsFired++
				i++
			}
			q.groups[g] = q.groups[g][:0]
		}

		s.head = q.next
		s.pool.put(q)

		s.KickTheDog()

		if s.stopReq.Load() {
			if s.lastStopReason == StopReasonNotYetRun {
				s.lastStopReason = StopReasonStopRunningCalled
			}
			running = false
			break
		}

		s.finished = s.head == nil || s.latestContinuing < s.head.tick
		if s.finished {
			if numTicks != Indefinite {
				s.lastStopReason = StopReasonTickBudgetReached
			} else {
				s.lastStopReason = StopReasonQueueExhausted
			}
			running = false
		}
	}

	if s.CurrentTick() > s.elapsedTicks {
		s.elapsedTicks = s.CurrentTick()
	}
	s.setCurrentTick(s.CurrentTick() + 1)

	if measureTime {
		s.runWall += time.Since(startWall)
	}

	if s.lastStopReason == StopReasonNotYetRun {
		s.lastStopReason = StopReasonQueueExhausted
	}
	if s.lastStopReason == StopReasonWatchdogTripped {
		return ErrWatchdogTripped
	}
	return nil
}

// RunWallTime returns the cumulative wall-clock time spent inside Run calls
// made with measureTime=true.
func (s *Scheduler) RunWallTime() time.Duration { return s.runWall }
