package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
	"github.com/latticesim/kernel/internal/scheduler"
)

// newTestScheduler returns a fresh, un-finalized *scheduler.Scheduler and
// its root clock, for tests that need real ScheduleEvent/AddStartupEvent
// plumbing rather than a hand-rolled double.
func newTestScheduler(t *testing.T) (*scheduler.Scheduler, *clock.Clock) {
	t.Helper()
	s := scheduler.New(nil)
	root, err := clock.New("root", s)
	require.NoError(t, err)
	require.NoError(t, clock.Normalize([]*clock.Clock{root}))
	return s, root
}

// TestCounterTriggerStopsSchedulerAtThreshold checks S4: bind a
// CounterTrigger with threshold 2500 and callback stopRunning, drive a
// counter up by one every tick, and confirm the scheduler eventually stops
// with the counter having reached the threshold.
func TestCounterTriggerStopsSchedulerAtThreshold(t *testing.T) {
	s, clk := newTestScheduler(t)
	mgr := NewManager(s.DAG(), s)
	counter := NewCounter("instructions-retired")

	_, err := NewCounterTrigger(mgr, "retire-trigger", clk, counter, 2500, func() { s.StopRunning() })
	require.NoError(t, err)

	var bumpEv *scheduleable.UniqueEvent
	bumpEv, err = scheduleable.NewUniqueEvent(s.DAG(), "bump", handler.New0("bump", func() {
		counter.Add(1)
		_ = bumpEv.Schedule(-1, nil)
	}), 1, dag.PhaseTick)
	require.NoError(t, err)
	bumpEv.SetClock(clk, s)
	bumpEv.SetContinuing(true)

	require.NoError(t, s.Finalize())
	require.NoError(t, bumpEv.Schedule(-1, nil))

	require.NoError(t, s.Run(10000, false, false))
	require.GreaterOrEqual(t, counter.Get(), int64(2500))
	require.Equal(t, scheduler.StopReasonStopRunningCalled, s.StopReason())
}

// TestCounterTriggerComparatorOverride checks that SetComparator changes
// which relation fires the callback.
func TestCounterTriggerComparatorOverride(t *testing.T) {
	s, clk := newTestScheduler(t)
	mgr := NewManager(s.DAG(), s)
	counter := NewCounter("c")
	counter.Set(5)

	fired := false
	ct, err := NewCounterTrigger(mgr, "eq-trigger", clk, counter, 5, func() { fired = true })
	require.NoError(t, err)
	ct.SetComparator(CmpEQ)

	ct.check()
	require.True(t, fired)
	require.False(t, ct.Active())
}

// TestCycleTriggerFiresOnceAtAbsoluteTick checks the one-shot contract:
// installed before finalize, it fires exactly once, at the configured
// cycle, and never again even if the scheduler keeps running.
func TestCycleTriggerFiresOnceAtAbsoluteTick(t *testing.T) {
	s, clk := newTestScheduler(t)
	var fireCount int
	ct, err := NewCycleTrigger(s.DAG(), s, "fire-at-3", clk, 3, func() { fireCount++ })
	require.NoError(t, err)

	require.NoError(t, s.Finalize())
	require.NoError(t, s.Run(10, false, false))

	require.Equal(t, 1, fireCount)
	require.True(t, ct.Fired())
	require.Equal(t, clock.Tick(3), ct.AbsoluteTick())
}

// TestTimeTriggerValidatesFrequency checks that an incommensurate
// ticks-per-second is rejected before any scheduling happens.
func TestTimeTriggerValidatesFrequency(t *testing.T) {
	s, clk := newTestScheduler(t)
	_, err := NewTimeTrigger(s.DAG(), s, "bad-freq", clk, 1000, 7, func() {})
	require.ErrorIs(t, err, ErrFrequencyNotCommensurate)
}

func TestValidateFrequencyAcceptsMultiplesAndDivisors(t *testing.T) {
	require.NoError(t, ValidateFrequency(1_000_000_000)) // 1 GHz: divides 1e12 evenly
	require.NoError(t, ValidateFrequency(1))
	require.Error(t, ValidateFrequency(0))
	require.Error(t, ValidateFrequency(7))
}

// TestClockHandlerDeferredRemoveDuringCheck checks that a trigger
// deactivating itself from inside check() (the common case: threshold
// reached) does not corrupt the active slice mid-iteration, and that a
// second trigger registered during the same poll only takes effect on the
// next cycle.
func TestClockHandlerDeferredRemoveDuringCheck(t *testing.T) {
	s, clk := newTestScheduler(t)
	mgr := NewManager(s.DAG(), s)

	counterA := NewCounter("a")
	counterA.Set(10)
	counterB := NewCounter("b")
	counterB.Set(10)

	var secondFired bool
	_, err := NewCounterTrigger(mgr, "a-trigger", clk, counterA, 10, func() {
		// registering a second trigger from inside a callback must not
		// fire on this same poll.
		_, regErr := NewCounterTrigger(mgr, "b-trigger", clk, counterB, 10, func() { secondFired = true })
		require.NoError(t, regErr)
	})
	require.NoError(t, err)

	require.NoError(t, s.Finalize())
	require.NoError(t, s.Run(1, false, false))
	require.False(t, secondFired, "trigger added mid-poll must not fire until the next cycle")

	require.NoError(t, s.Run(1, false, false))
	require.True(t, secondFired)
}
