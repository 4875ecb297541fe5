// Package consensus reconciles 1–N advisory opinions into one decision.
// Resolve is a pure function of its inputs: no I/O, no hidden state.
package consensus

import (
	"fmt"

	"tv-consensus-bot/internal/types"
)

// Consensus labels exposed on the verdict for auditability.
const (
	LabelAllUnavailable = "all sources unavailable"
	LabelSingleSource   = "single-source"
	LabelUnanimous      = "unanimous"
	LabelConflict       = "conflict"
)

// Result is the resolver's output. Chosen is nil unless Decision is a
// trade direction.
type Result struct {
	Decision types.VerdictDecision
	Chosen   *types.Opinion
	Label    string
	Sources  []string
}

// Resolve applies the quorum and majority rules over the opinions.
// Unavailable and Error opinions never count toward quorum; ties always
// resolve to conflict — there is no priority-based tie-break.
func Resolve(opinions []types.Opinion) Result {
	valid := make([]types.Opinion, 0, len(opinions))
	for _, op := range opinions {
		if op.Decision.Valid() {
			valid = append(valid, op)
		}
	}

	quorum := len(valid)
	if quorum == 0 {
		return Result{Decision: types.VerdictNoTrade, Label: LabelAllUnavailable}
	}

	if quorum == 1 {
		only := valid[0]
		sources := []string{only.SourceID}
		switch only.Decision {
		case types.OpinionBuy:
			return Result{Decision: types.VerdictBuy, Chosen: &only, Label: LabelSingleSource, Sources: sources}
		case types.OpinionSell:
			return Result{Decision: types.VerdictSell, Chosen: &only, Label: LabelSingleSource, Sources: sources}
		default:
			return Result{Decision: types.VerdictNoTrade, Label: LabelSingleSource, Sources: sources}
		}
	}

	buyCount, sellCount := 0, 0
	for _, op := range valid {
		switch op.Decision {
		case types.OpinionBuy:
			buyCount++
		case types.OpinionSell:
			sellCount++
		}
	}

	var side types.OpinionDecision
	var decision types.VerdictDecision
	var label string
	switch {
	case buyCount == quorum:
		side, decision, label = types.OpinionBuy, types.VerdictBuy, LabelUnanimous
	case sellCount == quorum:
		side, decision, label = types.OpinionSell, types.VerdictSell, LabelUnanimous
	case buyCount*2 > quorum:
		side, decision = types.OpinionBuy, types.VerdictBuy
		label = fmt.Sprintf("majority (%d/%d)", buyCount, quorum)
	case sellCount*2 > quorum:
		side, decision = types.OpinionSell, types.VerdictSell
		label = fmt.Sprintf("majority (%d/%d)", sellCount, quorum)
	default:
		return Result{Decision: types.VerdictNoTrade, Label: LabelConflict, Sources: sourceIDs(valid)}
	}

	chosen := pickChosen(valid, side)
	return Result{Decision: decision, Chosen: chosen, Label: label, Sources: agreeingIDs(valid, side)}
}

// pickChosen selects the agreeing opinion with the most complete numeric
// fields; on a tie, input order decides, keeping selection deterministic.
func pickChosen(valid []types.Opinion, side types.OpinionDecision) *types.Opinion {
	var best *types.Opinion
	bestLevels := -1
	for i := range valid {
		op := &valid[i]
		if op.Decision != side {
			continue
		}
		if n := op.LevelCount(); n > bestLevels {
			best, bestLevels = op, n
		}
	}
	return best
}

func agreeingIDs(valid []types.Opinion, side types.OpinionDecision) []string {
	ids := make([]string, 0, len(valid))
	for _, op := range valid {
		if op.Decision == side {
			ids = append(ids, op.SourceID)
		}
	}
	return ids
}

func sourceIDs(valid []types.Opinion) []string {
	ids := make([]string, 0, len(valid))
	for _, op := range valid {
		ids = append(ids, op.SourceID)
	}
	return ids
}
