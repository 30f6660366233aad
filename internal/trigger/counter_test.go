package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComparatorCompare(t *testing.T) {
	cases := []struct {
		op        Comparator
		value, th int64
		want      bool
	}{
		{CmpEQ, 5, 5, true},
		{CmpEQ, 5, 6, false},
		{CmpNE, 5, 6, true},
		{CmpGE, 5, 5, true},
		{CmpGE, 4, 5, false},
		{CmpLE, 5, 5, true},
		{CmpLE, 6, 5, false},
		{CmpGT, 6, 5, true},
		{CmpGT, 5, 5, false},
		{CmpLT, 4, 5, true},
		{CmpLT, 5, 5, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.op.Compare(c.value, c.th), "%s(%d,%d)", c.op, c.value, c.th)
	}
}

func TestAggregateRegistryDefaultSum(t *testing.T) {
	reg, err := NewAggregateRegistry(8)
	require.NoError(t, err)
	fn, ok := reg.LookupGlobal("sum")
	require.True(t, ok)
	require.Equal(t, int64(6), fn([]int64{1, 2, 3}))
}

func TestAggregateRegistryLocalLookup(t *testing.T) {
	reg, err := NewAggregateRegistry(8)
	require.NoError(t, err)
	max := func(values []int64) int64 {
		var m int64
		for _, v := range values {
			if v > m {
				m = v
			}
		}
		return m
	}
	reg.RegisterLocal("core0", "max", max)
	fn, ok := reg.LookupLocal("core0", "max")
	require.True(t, ok)
	require.Equal(t, int64(9), fn([]int64{2, 9, 4}))

	_, ok = reg.LookupLocal("core1", "max")
	require.False(t, ok)
}

func TestContextCounterAggregatesLeaves(t *testing.T) {
	reg, err := NewAggregateRegistry(8)
	require.NoError(t, err)
	a := NewCounter("a")
	b := NewCounter("b")
	a.Add(3)
	b.Add(4)

	cc, err := NewContextCounter("sum-of-a-b", reg, "sum", "", a, b)
	require.NoError(t, err)
	require.Equal(t, int64(7), cc.Get())

	a.Add(1)
	require.Equal(t, int64(8), cc.Get())
}

func TestContextCounterUnknownAggregateFails(t *testing.T) {
	reg, err := NewAggregateRegistry(8)
	require.NoError(t, err)
	_, err = NewContextCounter("x", reg, "median", "", NewCounter("a"))
	require.ErrorIs(t, err, ErrUnknownAggregateFunc)
}

func TestCounterDestroyDeactivatesBoundTrigger(t *testing.T) {
	s, clk := newTestScheduler(t)
	mgr := NewManager(s.DAG(), s)
	counter := NewCounter("x")

	ct, err := NewCounterTrigger(mgr, "ct", clk, counter, 100, func() {})
	require.NoError(t, err)
	require.True(t, ct.Active())

	counter.Destroy()
	require.False(t, ct.Active())
	require.True(t, ct.vanished)

	// check() after vanished must be a safe no-op, never touching the
	// destroyed counter again.
	require.NotPanics(t, func() { ct.check() })
}

func TestCounterBindAfterDestroyFails(t *testing.T) {
	counter := NewCounter("x")
	counter.Destroy()
	s, clk := newTestScheduler(t)
	mgr := NewManager(s.DAG(), s)
	_, err := NewCounterTrigger(mgr, "ct", clk, counter, 1, func() {})
	require.ErrorIs(t, err, ErrCounterVanished)
}
