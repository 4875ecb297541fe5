package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tv-consensus-bot/internal/types"
)

func defaultLimits() Limits {
	return Limits{
		RSIMin:            35,
		RSIMax:            75,
		MomentumFloor:     -3.0,
		MaxReversalPoints: 30,
		MinRiskReward:     1.5,
	}
}

func snap(indicators map[string]float64) *types.AlertSnapshot {
	return &types.AlertSnapshot{Symbol: "XAUUSD", Timeframe: types.TF1H, Indicators: indicators}
}

func TestOverboughtRSIVetoes(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(map[string]float64{"RSI": 82}), types.VerdictBuy, 2650, 2656, 2647)
	assert.False(t, passed)
	assert.Contains(t, reason, "RSI 82.0 above upper bound 75.0")
}

func TestOversoldRSIVetoes(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(map[string]float64{"RSI": 21}), types.VerdictSell, 2650, 2644, 2653)
	assert.False(t, passed)
	assert.Contains(t, reason, "below lower bound")
}

func TestMissingIndicatorsPass(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(nil), types.VerdictBuy, 2650, 2656, 2647)
	assert.True(t, passed)
	assert.Empty(t, reason)
}

func TestMomentumFloor(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(map[string]float64{"RSI": 50, "MACD_HIST": -4.2}), types.VerdictBuy, 2650, 2656, 2647)
	assert.False(t, passed)
	assert.Contains(t, reason, "MACD_HIST -4.20 below momentum floor -3.00")

	// MACD_HIST takes precedence; a healthy histogram passes even when
	// the raw MACD line is deep negative.
	passed, _ = f.Check(snap(map[string]float64{"MACD_HIST": -1.0, "MACD": -9.0}), types.VerdictBuy, 2650, 2656, 2647)
	assert.True(t, passed)
}

func TestReversalDistance(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(nil), types.VerdictBuy, 2650, 2720, 2610)
	assert.False(t, passed)
	assert.Contains(t, reason, "reversal distance 40.0 exceeds maximum 30.0 points")
}

func TestRiskRewardFloor(t *testing.T) {
	f := New(defaultLimits())
	// reward 3, risk 3 → rr 1.0 < 1.5
	passed, reason := f.Check(snap(nil), types.VerdictBuy, 2650, 2653, 2647)
	assert.False(t, passed)
	assert.Contains(t, reason, "risk/reward 1.00 below minimum 1.50")

	// reward 6, risk 3 → rr 2.0
	passed, _ = f.Check(snap(nil), types.VerdictBuy, 2650, 2656, 2647)
	assert.True(t, passed)
}

func TestIllFormedLevels(t *testing.T) {
	f := New(defaultLimits())
	// A buy with TP below entry has no defined reward.
	passed, reason := f.Check(snap(nil), types.VerdictBuy, 2650, 2640, 2647)
	assert.False(t, passed)
	assert.Contains(t, reason, "risk/reward undefined")
}

func TestViolationsConcatenated(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(map[string]float64{"RSI": 82}), types.VerdictBuy, 2650, 2653, 2647)
	assert.False(t, passed)
	assert.Equal(t, 2, len(strings.Split(reason, "; ")))
}

func TestNoTradePassesTrivially(t *testing.T) {
	f := New(defaultLimits())
	passed, reason := f.Check(snap(map[string]float64{"RSI": 99}), types.VerdictNoTrade, 0, 0, 0)
	assert.True(t, passed)
	assert.Empty(t, reason)
}
