package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tv-consensus-bot/internal/types"
)

func op(id string, d types.OpinionDecision) types.Opinion {
	return types.Opinion{SourceID: id, Decision: d}
}

func TestMajority(t *testing.T) {
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionBuy),
		op("openai", types.OpinionBuy),
		op("claude", types.OpinionSell),
	})
	assert.Equal(t, types.VerdictBuy, r.Decision)
	assert.Equal(t, "majority (2/3)", r.Label)
	assert.Equal(t, []string{"xai", "openai"}, r.Sources)
}

func TestConflict(t *testing.T) {
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionBuy),
		op("openai", types.OpinionSell),
		op("claude", types.OpinionWait),
	})
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelConflict, r.Label)
	assert.Nil(t, r.Chosen)

	// 1-1 out of 2 is also a conflict; no source-priority tie-break.
	r = Resolve([]types.Opinion{
		op("xai", types.OpinionBuy),
		op("openai", types.OpinionSell),
	})
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelConflict, r.Label)
}

func TestUnanimous(t *testing.T) {
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionBuy),
		op("openai", types.OpinionBuy),
		op("claude", types.OpinionBuy),
	})
	assert.Equal(t, types.VerdictBuy, r.Decision)
	assert.Equal(t, LabelUnanimous, r.Label)

	r = Resolve([]types.Opinion{
		op("xai", types.OpinionSell),
		op("openai", types.OpinionSell),
	})
	assert.Equal(t, types.VerdictSell, r.Decision)
	assert.Equal(t, LabelUnanimous, r.Label)
}

func TestSingleSourceQuorum(t *testing.T) {
	// Unavailable sources never count toward quorum; a lone Buy is
	// adopted but flagged as single-source.
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionUnavailable),
		op("openai", types.OpinionUnavailable),
		op("claude", types.OpinionBuy),
	})
	assert.Equal(t, types.VerdictBuy, r.Decision)
	assert.Equal(t, LabelSingleSource, r.Label)
	require.NotNil(t, r.Chosen)
	assert.Equal(t, "claude", r.Chosen.SourceID)

	// A lone Wait yields no trade.
	r = Resolve([]types.Opinion{
		op("xai", types.OpinionError),
		op("openai", types.OpinionWait),
	})
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelSingleSource, r.Label)
}

func TestAllUnavailable(t *testing.T) {
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionUnavailable),
		op("openai", types.OpinionError),
	})
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelAllUnavailable, r.Label)

	r = Resolve(nil)
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelAllUnavailable, r.Label)
}

func TestWaitDilutesMajority(t *testing.T) {
	// 1 Buy + 1 Wait out of quorum 2: no strict majority for a side.
	r := Resolve([]types.Opinion{
		op("xai", types.OpinionBuy),
		op("openai", types.OpinionWait),
	})
	assert.Equal(t, types.VerdictNoTrade, r.Decision)
	assert.Equal(t, LabelConflict, r.Label)
}

func TestChosenPrefersCompleteLevels(t *testing.T) {
	partial := types.Opinion{SourceID: "xai", Decision: types.OpinionBuy, Entry: types.Float(2650)}
	complete := types.Opinion{
		SourceID:   "openai",
		Decision:   types.OpinionBuy,
		Entry:      types.Float(2651),
		TakeProfit: types.Float(2656),
		StopLoss:   types.Float(2647),
	}

	r := Resolve([]types.Opinion{partial, complete})
	require.NotNil(t, r.Chosen)
	assert.Equal(t, "openai", r.Chosen.SourceID)

	// Equal completeness: first in input order wins, deterministically.
	other := complete
	other.SourceID = "claude"
	r = Resolve([]types.Opinion{complete, other, partial})
	require.NotNil(t, r.Chosen)
	assert.Equal(t, "openai", r.Chosen.SourceID)
}
