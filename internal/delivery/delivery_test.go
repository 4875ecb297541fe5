package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tv-consensus-bot/internal/types"
)

func snap() *types.AlertSnapshot {
	return &types.AlertSnapshot{Symbol: "XAUUSD", Timeframe: types.TF1H, Close: 2650}
}

func TestRenderActionable(t *testing.T) {
	v := &types.Verdict{
		Decision:       types.VerdictBuy,
		Entry:          types.Float(2650),
		TakeProfit:     types.Float(2653),
		StopLoss:       types.Float(2648.4),
		ConsensusLabel: "majority (2/3)",
		SafetyPassed:   true,
		Sources:        []string{"xai", "openai"},
	}
	msg := Render(snap(), v)

	assert.Contains(t, msg, "<b>XAUUSD 1H</b>")
	assert.Contains(t, msg, "شراء")
	assert.Contains(t, msg, "majority (2/3)")
	assert.Contains(t, msg, "2650")
	assert.Contains(t, msg, "2648.4")
	assert.Contains(t, msg, "xai, openai")
}

func TestRenderSafetyVeto(t *testing.T) {
	v := &types.Verdict{
		Decision:       types.VerdictBuy,
		ConsensusLabel: "unanimous",
		SafetyPassed:   false,
		SafetyReason:   "RSI 82.0 above upper bound 75.0",
		Sources:        []string{"xai", "openai"},
	}
	msg := Render(snap(), v)

	// The veto leads; the agreed direction stays visible for audit.
	assert.Contains(t, msg, "لا صفقة")
	assert.Contains(t, msg, "شراء")
	assert.Contains(t, msg, "RSI 82.0 above upper bound 75.0")
	assert.NotContains(t, msg, "الدخول")
}

func TestRenderNoTrade(t *testing.T) {
	v := &types.Verdict{
		Decision:       types.VerdictNoTrade,
		ConsensusLabel: "conflict",
		SafetyPassed:   true,
	}
	msg := Render(snap(), v)

	assert.Contains(t, msg, "لا صفقة")
	assert.Contains(t, msg, "conflict")
	assert.NotContains(t, msg, "الهدف")
}
