// Package watchdog implements the scheduler's optional liveness check: a
// single helper goroutine, process-wide, that watches simulated-tick
// progress against wall-clock time and can abort a stalled run.
package watchdog

import "time"

// Watchdog is the liveness-check contract the Scheduler drives. Start is
// called at most once per armed period; currentTick is polled on each
// tick of pollInterval, and onExpire is invoked at most once, from the
// watchdog's own goroutine, if budgetTicks consecutive polls see no
// progress.
type Watchdog interface {
	Start(pollInterval time.Duration, budgetTicks uint64, currentTick func() uint64, onExpire func())
	// Kick acknowledges that the scheduler made progress, resetting the
	// staleness counter. Safe to call even if Start was never called.
	Kick()
	// Stop releases any goroutine started by Start. Idempotent.
	Stop()
}

// Null is a Watchdog that does nothing: the zero-cost default so
// single-threaded and test builds never spin a goroutine.
type Null struct{}

func (Null) Start(time.Duration, uint64, func() uint64, func()) {}
func (Null) Kick()                                              {}
func (Null) Stop()                                              {}

var _ Watchdog = Null{}
