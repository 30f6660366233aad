package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setupCrossing(t *testing.T) (*fakeScheduler, *Clock, *Clock) {
	t.Helper()
	sched := &fakeScheduler{}
	root, err := New("root", sched)
	require.NoError(t, err)
	src, err := NewChild("src", root, 1, 2) // period half of root's
	require.NoError(t, err)
	dst, err := NewChild("dst", root, 1, 3) // period a third of root's
	require.NoError(t, err)
	require.NoError(t, Normalize([]*Clock{root}))
	return sched, src, dst
}

// TestCrossingDelayLaw checks law L2: calculateClockCrossingDelay always
// returns v such that (current+v) mod period(dst) == 0 and v >= srcDelay+dstDelay.
func TestCrossingDelayLaw(t *testing.T) {
	sched, src, dst := setupCrossing(t)

	for current := Tick(0); current < Tick(src.Period())*20; current += src.Period() {
		sched.tick = current
		for srcDelay := Tick(0); srcDelay < 3; srcDelay++ {
			for dstDelay := Tick(0); dstDelay < 3; dstDelay++ {
				v, err := CrossingDelay(src, dst, current, srcDelay, dstDelay)
				require.NoError(t, err)
				require.Zero(t, uint64(current+v)%uint64(dst.Period()))
				require.GreaterOrEqual(t, v, srcDelay+dstDelay)
			}
		}
	}
}

func TestCrossingDelayRequiresPosedge(t *testing.T) {
	_, src, dst := setupCrossing(t)
	_, err := CrossingDelay(src, dst, src.Period()+1, 0, 0)
	require.ErrorIs(t, err, ErrNotOnPosedge)
}

func TestCrossingDelayRequiresSameScheduler(t *testing.T) {
	schedA := &fakeScheduler{}
	schedB := &fakeScheduler{}
	a, _ := New("a", schedA)
	b, _ := New("b", schedB)
	require.NoError(t, Normalize([]*Clock{a}))
	require.NoError(t, Normalize([]*Clock{b}))
	_, err := CrossingDelay(a, b, 0, 0, 0)
	require.ErrorIs(t, err, ErrCrossSchedulerCrossing)
}

func TestReverseCrossingDelay(t *testing.T) {
	sched, src, dst := setupCrossing(t)
	sched.tick = 0
	fwd, err := CrossingDelay(src, dst, 0, 1, 1)
	require.NoError(t, err)
	arrival := Tick(0) + fwd

	back, err := ReverseCrossingDelay(src, dst, arrival, 1, 1)
	require.NoError(t, err)
	require.True(t, src.IsPosedge(back))
	require.LessOrEqual(t, back, arrival)
}
