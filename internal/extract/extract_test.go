package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tv-consensus-bot/internal/types"
)

func TestDirectionEnglish(t *testing.T) {
	op := Parse("xai", "Trade: Buy")
	assert.Equal(t, types.OpinionBuy, op.Decision)

	op = Parse("xai", "Decision: SELL")
	assert.Equal(t, types.OpinionSell, op.Decision)

	op = Parse("xai", "Signal: no trade today, market is choppy")
	assert.Equal(t, types.OpinionWait, op.Decision)
}

func TestDirectionArabic(t *testing.T) {
	op := Parse("xai", "الصفقة: شراء")
	assert.Equal(t, types.OpinionBuy, op.Decision)

	op = Parse("openai", "التوصية: بيع")
	assert.Equal(t, types.OpinionSell, op.Decision)

	op = Parse("openai", "الصفقة: انتظار")
	assert.Equal(t, types.OpinionWait, op.Decision)
}

func TestFullRecommendationLine(t *testing.T) {
	// The recommendation often arrives as one packed line with Arabic
	// comma separators, mirroring the prompt's requested format.
	text := "تحليل ICT/SMC ...\nالتوصية النهائية: الصفقة: شراء، الدخول: 2650.5، الهدف: 2655، الستوب: 2646.2، السبب: كسر هيكلي صاعد"
	op := Parse("xai", text)

	assert.Equal(t, types.OpinionBuy, op.Decision)
	require.NotNil(t, op.Entry)
	assert.Equal(t, 2650.5, *op.Entry)
	require.NotNil(t, op.TakeProfit)
	assert.Equal(t, 2655.0, *op.TakeProfit)
	require.NotNil(t, op.StopLoss)
	assert.Equal(t, 2646.2, *op.StopLoss)
	assert.Equal(t, "كسر هيكلي صاعد", op.Reason)
}

func TestEnglishMultiline(t *testing.T) {
	text := `Analysis of XAUUSD on the 1H chart:
- Liquidity sweep above Asian high, bearish CHoCH confirmed.

Trade: Sell
Entry: 2,650.50
Take Profit: 2640 (FVG CE)
Stop Loss: 2655.75
Reason: bearish order block rejection after liquidity grab`

	op := Parse("openai", text)
	assert.Equal(t, types.OpinionSell, op.Decision)
	require.NotNil(t, op.Entry)
	assert.Equal(t, 2650.50, *op.Entry)
	require.NotNil(t, op.TakeProfit)
	assert.Equal(t, 2640.0, *op.TakeProfit)
	require.NotNil(t, op.StopLoss)
	assert.Equal(t, 2655.75, *op.StopLoss)
	assert.Equal(t, "bearish order block rejection after liquidity grab", op.Reason)
}

func TestFirstLabelWins(t *testing.T) {
	text := "Trade: Buy\nTrade: Sell\nEntry: 2650\nEntry: 9999"
	op := Parse("xai", text)
	assert.Equal(t, types.OpinionBuy, op.Decision)
	require.NotNil(t, op.Entry)
	assert.Equal(t, 2650.0, *op.Entry)
}

func TestNoDirectionDefaultsToWait(t *testing.T) {
	op := Parse("xai", "The market looks indecisive. Watch the London open.")
	assert.Equal(t, types.OpinionWait, op.Decision)
	assert.Nil(t, op.Entry)
}

func TestNonNumericLevelsDropped(t *testing.T) {
	text := "Trade: Buy\nEntry: around the FVG zone\nTP: see chart\nSL: 2646"
	op := Parse("xai", text)
	assert.Equal(t, types.OpinionBuy, op.Decision)
	assert.Nil(t, op.Entry)
	assert.Nil(t, op.TakeProfit)
	require.NotNil(t, op.StopLoss)
	assert.Equal(t, 2646.0, *op.StopLoss)
}

func TestReasonTruncated(t *testing.T) {
	long := make([]rune, 0, 400)
	for i := 0; i < 400; i++ {
		long = append(long, 'x')
	}
	op := Parse("xai", "Trade: Buy\nReason: "+string(long))
	assert.Len(t, []rune(op.Reason), 250)
}

func TestFailureOutcomes(t *testing.T) {
	op := Extract("xai", "", OutcomeMissingCredentials, "XAI_API_KEY missing")
	assert.Equal(t, types.OpinionUnavailable, op.Decision)
	assert.Equal(t, "XAI_API_KEY missing", op.Reason)
	assert.Nil(t, op.Entry)

	op = Extract("openai", "", OutcomeTimeout, "context deadline exceeded")
	assert.Equal(t, types.OpinionError, op.Decision)

	op = Extract("openai", "", OutcomeTransportError, "connection refused")
	assert.Equal(t, types.OpinionError, op.Decision)

	op = Extract("xai", "الصفقة: شراء", OutcomeOK, "")
	assert.Equal(t, types.OpinionBuy, op.Decision)
}
