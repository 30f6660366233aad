package scheduler

import (
	"time"

	"github.com/latticesim/kernel/internal/clock"
	wd "github.com/latticesim/kernel/internal/watchdog"
)

// EnableWatchDog arms the scheduler's liveness check: w polls the
// scheduler's tick counter on pollInterval, and if budgetTicks consecutive
// polls observe no progress, calls StopRunning and records
// StopReasonWatchdogTripped. Exactly one watchdog is active per Scheduler;
// calling this again stops the previous one first. Pass watchdog.Null{} to
// disable (the default).
func (s *Scheduler) EnableWatchDog(w wd.Watchdog, budgetTicks clock.Tick, pollInterval time.Duration) {
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	s.watchdog = w
	w.Start(pollInterval, uint64(budgetTicks), func() uint64 { return uint64(s.CurrentTick()) }, func() {
		s.lastStopReason = StopReasonWatchdogTripped
		s.StopRunning()
	})
}

// KickTheDog acknowledges scheduler progress to the armed watchdog, if
// any. Called automatically once per tick by Run.
func (s *Scheduler) KickTheDog() {
	if s.watchdog != nil {
		s.watchdog.Kick()
	}
}

// DisableWatchDog stops and releases the armed watchdog, if any.
func (s *Scheduler) DisableWatchDog() {
	if s.watchdog == nil {
		return
	}
	s.watchdog.Stop()
	s.watchdog = nil
}
