package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tv-consensus-bot/internal/api"
	"tv-consensus-bot/internal/extract"
	"tv-consensus-bot/internal/types"
)

func TestBuildPrompt(t *testing.T) {
	snap := &types.AlertSnapshot{
		Symbol:    "XAUUSD",
		Timeframe: types.TF1H,
		Close:     2650.5,
		Open:      types.Float(2648),
		Indicators: map[string]float64{
			"RSI":  55.2,
			"MACD": 1.3,
		},
		Flags: map[string]string{"CSD": "UP"},
	}

	prompt := BuildPrompt(snap, nil)
	assert.Contains(t, prompt, "XAUUSD")
	assert.Contains(t, prompt, "1H")
	assert.Contains(t, prompt, "C=2650.5")
	assert.Contains(t, prompt, "O=2648")
	// High was never supplied; the prompt says so instead of inventing it.
	assert.Contains(t, prompt, "H=غير متوفر")
	assert.Contains(t, prompt, "RSI=55.2")
	assert.Contains(t, prompt, "CSD=UP")
	// The final line pins the labeled format the extractor parses.
	assert.Contains(t, prompt, "الصفقة (شراء/بيع/انتظار)")
}

func TestBuildPromptHeadlines(t *testing.T) {
	snap := &types.AlertSnapshot{Symbol: "BTCUSD", Timeframe: types.TF4H, Close: 64000}
	prompt := BuildPrompt(snap, []string{"Fed holds rates steady"})
	assert.Contains(t, prompt, "عناوين السوق")
	assert.Contains(t, prompt, "- Fed holds rates steady")
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, extract.OutcomeMissingCredentials,
		ClassifyFailure(errors.Join(errors.New("XAI_API_KEY"), ErrMissingCredentials)))
	assert.Equal(t, extract.OutcomeTimeout, ClassifyFailure(context.DeadlineExceeded))
	assert.Equal(t, extract.OutcomeMalformed, ClassifyFailure(ErrMalformedResponse))
	assert.Equal(t, extract.OutcomeTransportError, ClassifyFailure(errors.New("connection refused")))
	assert.Equal(t, extract.OutcomeTransportError,
		ClassifyFailure(&api.StatusError{StatusCode: 502, Body: "bad gateway"}))
}
