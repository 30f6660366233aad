package scheduler

import (
	"errors"
	"fmt"

	"github.com/latticesim/kernel/internal/scheduleable"
)

var (
	// ErrNotFinalized is returned by Run when called before Finalize.
	ErrNotFinalized = errors.New("scheduler: run called before finalize")
	// ErrAlreadyRunning is returned by Run when it is re-entered while
	// already running.
	ErrAlreadyRunning = errors.New("scheduler: run re-entered")
	// ErrRestartWhileRunning is returned by RestartAt when called during a
	// run.
	ErrRestartWhileRunning = errors.New("scheduler: restartAt called while running")
	// ErrWatchdogTripped is returned by Run when the liveness watchdog
	// observed no tick progress within its configured budget.
	ErrWatchdogTripped = errors.New("scheduler: watchdog detected a simulated-time stall")
)

// PrecedenceError is raised when a handler schedules into a prior firing
// group of the tick currently executing: the primary safety net for a
// missed precedence edge.
type PrecedenceError struct {
	Scheduling, Target        *scheduleable.Scheduleable
	CurrentGroup, TargetGroup int
}

func (e *PrecedenceError) Error() string {
	return fmt.Sprintf(
		"scheduler: precedence violation: %q (group %d) scheduled %q into prior group %d of the current tick",
		e.Scheduling.Label(), e.CurrentGroup, e.Target.Label(), e.TargetGroup,
	)
}
