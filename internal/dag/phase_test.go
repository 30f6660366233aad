package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhaseChainFixedOrder(t *testing.T) {
	d := New(true)
	gops, err := d.PhaseChain()
	require.NoError(t, err)

	for i := 0; i < numPhases; i++ {
		require.True(t, gops[i].IsGOP())
	}
	n, err := d.Finalize()
	require.NoError(t, err)
	require.Equal(t, numPhases, n)
	for i := 0; i < numPhases; i++ {
		require.Equal(t, i, gops[i].Group())
	}
}

func TestLinkIntoPhaseOrdersAcrossPhases(t *testing.T) {
	d := New(true)
	gops, err := d.PhaseChain()
	require.NoError(t, err)

	tickEv, _ := d.NewVertex("tick-event", nil, false)
	require.NoError(t, d.LinkIntoPhase(tickEv, PhaseTick, gops))

	postTickEv, _ := d.NewVertex("posttick-event", nil, false)
	require.NoError(t, d.LinkIntoPhase(postTickEv, PhasePostTick, gops))

	n, err := d.Finalize()
	require.NoError(t, err)
	require.Equal(t, n-1, postTickEv.Group())
	require.Less(t, tickEv.Group(), postTickEv.Group())
}

func TestPhaseStringAndValid(t *testing.T) {
	require.Equal(t, "Trigger", PhaseTrigger.String())
	require.Equal(t, "PostTick", PhasePostTick.String())
	require.True(t, PhaseTick.Valid())
	require.False(t, Phase(99).Valid())
}
