package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tv-consensus-bot/internal/types"
)

func TestPassThroughWhenComplete(t *testing.T) {
	chosen := &types.Opinion{
		SourceID:   "xai",
		Decision:   types.OpinionBuy,
		Entry:      types.Float(2651),
		TakeProfit: types.Float(2658),
		StopLoss:   types.Float(2647),
	}
	// ATR is ignored when the opinion carries all three levels.
	plan, ok := Fill(types.VerdictBuy, chosen, 2650, 0, false)
	require.True(t, ok)
	assert.Equal(t, 2651.0, plan.Entry)
	assert.Equal(t, 2658.0, plan.TakeProfit)
	assert.Equal(t, 2647.0, plan.StopLoss)
}

func TestATRFallbackBuy(t *testing.T) {
	plan, ok := Fill(types.VerdictBuy, &types.Opinion{Decision: types.OpinionBuy}, 2650, 2.0, true)
	require.True(t, ok)
	assert.Equal(t, 2650.0, plan.Entry)
	assert.InDelta(t, 2653.0, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 2648.4, plan.StopLoss, 1e-9)
}

func TestATRFallbackSell(t *testing.T) {
	plan, ok := Fill(types.VerdictSell, nil, 2650, 2.0, true)
	require.True(t, ok)
	assert.Equal(t, 2650.0, plan.Entry)
	assert.InDelta(t, 2647.0, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 2651.6, plan.StopLoss, 1e-9)
}

func TestPartialLevelsStillFallBack(t *testing.T) {
	// Two of three prices is not enough; the fallback replaces all of them.
	chosen := &types.Opinion{
		Decision:   types.OpinionBuy,
		Entry:      types.Float(2651),
		TakeProfit: types.Float(2658),
	}
	plan, ok := Fill(types.VerdictBuy, chosen, 2650, 2.0, true)
	require.True(t, ok)
	assert.Equal(t, 2650.0, plan.Entry)
}

func TestMissingVolatility(t *testing.T) {
	_, ok := Fill(types.VerdictBuy, nil, 2650, 0, false)
	assert.False(t, ok)

	_, ok = Fill(types.VerdictSell, nil, 2650, -1, true)
	assert.False(t, ok)
}
