package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
)

func newNormalizedSched(t *testing.T) (*Scheduler, *clock.Clock) {
	t.Helper()
	s := New(nil)
	root, err := clock.New("root", s)
	require.NoError(t, err)
	require.NoError(t, clock.Normalize([]*clock.Clock{root}))
	return s, root
}

// TestPhaseOrderingAtSingleTick checks S1/P4: one event per phase, created
// and scheduled in reverse phase order, must fire in fixed phase order.
func TestPhaseOrderingAtSingleTick(t *testing.T) {
	s, clk := newNormalizedSched(t)

	var order []string
	makeEvent := func(phase dag.Phase) *scheduleable.Scheduleable {
		h := handler.New0(phase.String(), func() { order = append(order, phase.String()) })
		ev, err := scheduleable.New(s.DAG(), phase.String(), h, 0, phase)
		require.NoError(t, err)
		ev.SetClock(clk, s)
		return ev
	}

	events := make(map[dag.Phase]*scheduleable.Scheduleable)
	for _, p := range dag.Phases() {
		events[p] = makeEvent(p)
	}
	require.NoError(t, s.Finalize())

	// schedule in reverse order: PostTick first, Trigger last.
	phasesReverse := dag.Phases()
	for i, j := 0, len(phasesReverse)-1; i < j; i, j = i+1, j-1 {
		phasesReverse[i], phasesReverse[j] = phasesReverse[j], phasesReverse[i]
	}
	for _, p := range phasesReverse {
		require.NoError(t, events[p].Schedule(0, nil))
	}

	require.NoError(t, s.Run(1, true, false))

	expected := []string{"Trigger", "Update", "PortUpdate", "Flush", "Collection", "Tick", "PostTick"}
	require.Equal(t, expected, order)
}

// TestPrecedenceCatch checks S2: create A and B in phase Tick with no edge
// between them; A sits in a higher group than B (via an unrelated
// predecessor). From inside A's handler, scheduling B at rel=0 targets a
// group lower than the one currently firing and must raise a precedence
// error naming both events.
func TestPrecedenceCatch(t *testing.T) {
	s, clk := newNormalizedSched(t)

	b, err := scheduleable.New(s.DAG(), "b", handler.New0("b", func() {}), 0, dag.PhaseTick)
	require.NoError(t, err)
	b.SetClock(clk, s)

	var precErr error
	predecessor, err := scheduleable.New(s.DAG(), "predecessor-of-a", handler.Handler{}, 0, dag.PhaseTick)
	require.NoError(t, err)

	aHandler := handler.New0("a", func() {
		precErr = b.ScheduleRelativeTick(0, s)
	})
	aImpl, err := scheduleable.New(s.DAG(), "a-impl", aHandler, 0, dag.PhaseTick)
	require.NoError(t, err)
	require.NoError(t, predecessor.Precedes(aImpl, "gives a a higher group than b"))
	aImpl.SetClock(clk, s)

	require.NoError(t, s.Finalize())
	require.Greater(t, aImpl.Group(), b.Group())

	require.NoError(t, b.Schedule(0, nil))
	require.NoError(t, aImpl.Schedule(0, nil))

	require.NoError(t, s.Run(1, false, false))
	var pe *PrecedenceError
	require.ErrorAs(t, precErr, &pe)
}

// TestSingleCycleUniqueEventFiresOncePerTick checks P5.
func TestSingleCycleUniqueEventFiresOncePerTick(t *testing.T) {
	s, clk := newNormalizedSched(t)
	count := 0
	ev, err := scheduleable.NewSingleCycleUniqueEvent(s.DAG(), "sc", handler.New0("sc", func() { count++ }), dag.PhaseTick)
	require.NoError(t, err)
	ev.SetClock(clk, s)
	require.NoError(t, s.Finalize())

	require.NoError(t, ev.Schedule(0, nil))
	require.NoError(t, ev.Schedule(0, nil))
	require.NoError(t, ev.Schedule(0, nil))

	require.NoError(t, s.Run(1, false, false))
	require.Equal(t, 1, count)
}

// TestCancelEventPreventsFiring checks P6.
func TestCancelEventPreventsFiring(t *testing.T) {
	s, clk := newNormalizedSched(t)
	fired := false
	ev, err := scheduleable.New(s.DAG(), "e", handler.New0("e", func() { fired = true }), 0, dag.PhaseTick)
	require.NoError(t, err)
	ev.SetClock(clk, s)
	require.NoError(t, s.Finalize())

	require.NoError(t, ev.Schedule(0, nil))
	require.NoError(t, ev.Cancel(nil))
	require.NoError(t, s.Run(1, false, false))
	require.False(t, fired)
}

// TestClearEventsResetsFinishedState checks P7.
func TestClearEventsResetsFinishedState(t *testing.T) {
	s, clk := newNormalizedSched(t)
	ev, err := scheduleable.New(s.DAG(), "e", handler.New0("e", func() {}), 0, dag.PhaseTick)
	require.NoError(t, err)
	ev.SetClock(clk, s)
	require.NoError(t, s.Finalize())
	require.NoError(t, ev.Schedule(5, nil))

	s.ClearEvents()
	require.Equal(t, invalidTick, s.NextEventTick())
	require.True(t, s.IsFinished())
}

// TestRestartSemantics checks S5.
func TestRestartSemantics(t *testing.T) {
	s, clk := newNormalizedSched(t)
	ev, err := scheduleable.NewUniqueEvent(s.DAG(), "e", handler.New0("e", func() {}), 1, dag.PhaseTick)
	require.NoError(t, err)
	ev.SetClock(clk, s)
	ev.SetContinuing(true)
	require.NoError(t, s.Finalize())

	require.NoError(t, ev.Schedule(-1, nil))
	require.NoError(t, s.Run(10, false, false))

	require.NoError(t, s.RestartAt(0))
	require.Equal(t, clock.Tick(0), s.CurrentTick())
	require.Equal(t, clock.Tick(0), s.GetElapsedTicks())
	require.Equal(t, invalidTick, s.NextEventTick())

	require.NoError(t, s.Run(1, false, false))
}

// TestAsyncIngress checks S6: 1000 async schedules from outside the run
// loop are all eventually drained and fired.
func TestAsyncIngress(t *testing.T) {
	s, clk := newNormalizedSched(t)
	var fired atomic.Int64
	h := handler.New0("e", func() { fired.Add(1) })
	ev, err := scheduleable.New(s.DAG(), "e", h, 0, dag.PhaseTick)
	require.NoError(t, err)
	ev.SetClock(clk, s)
	require.NoError(t, s.Finalize())

	for i := 0; i < 1000; i++ {
		require.NoError(t, s.ScheduleAsyncEvent(ev, 3))
	}

	done := make(chan struct{})
	go func() {
		_ = s.Run(Indefinite, false, false)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fired.Load() == 1000
	}, 2*time.Second, time.Millisecond)
	s.StopRunning()
	<-done
}

func TestFinalizeIsIdempotent(t *testing.T) {
	s, _ := newNormalizedSched(t)
	require.NoError(t, s.Finalize())
	require.NoError(t, s.Finalize())
	require.Equal(t, StateIdle, s.State())
}

func TestRunBeforeFinalizeFails(t *testing.T) {
	s := New(nil)
	err := s.Run(1, false, false)
	require.ErrorIs(t, err, ErrNotFinalized)
}
