// Package safety gates an agreed trade behind indicator bounds and a
// risk/reward floor. It runs after consensus and is independent of it:
// the filter can veto, never upgrade. Missing indicators are non-vetoing
// since alert payloads vary by chart setup.
package safety

import (
	"fmt"
	"math"
	"strings"

	"tv-consensus-bot/internal/types"
)

// Limits holds the configured bounds. Zero values are not meaningful;
// callers build this from config defaults.
type Limits struct {
	RSIMin            float64
	RSIMax            float64
	MomentumFloor     float64
	MaxReversalPoints float64
	MinRiskReward     float64
}

// Filter applies the limits to candidate trades.
type Filter struct {
	limits Limits
}

func New(limits Limits) *Filter {
	return &Filter{limits: limits}
}

// Momentum indicator names checked against the floor, in lookup order.
var momentumKeys = []string{"MACD_HIST", "MACD"}

// Check evaluates every rule and reports all violations joined into one
// reason for auditability. A NoTrade decision passes trivially; the
// filter has nothing to veto.
func (f *Filter) Check(snap *types.AlertSnapshot, decision types.VerdictDecision, entry, tp, sl float64) (bool, string) {
	if decision == types.VerdictNoTrade {
		return true, ""
	}

	var violations []string

	if rsi, ok := snap.Indicator("RSI"); ok {
		if rsi < f.limits.RSIMin {
			violations = append(violations, fmt.Sprintf("RSI %.1f below lower bound %.1f", rsi, f.limits.RSIMin))
		} else if rsi > f.limits.RSIMax {
			violations = append(violations, fmt.Sprintf("RSI %.1f above upper bound %.1f", rsi, f.limits.RSIMax))
		}
	}

	for _, key := range momentumKeys {
		if m, ok := snap.Indicator(key); ok {
			if m < f.limits.MomentumFloor {
				violations = append(violations, fmt.Sprintf("%s %.2f below momentum floor %.2f", key, m, f.limits.MomentumFloor))
			}
			break
		}
	}

	if reversal := math.Abs(entry - sl); reversal > f.limits.MaxReversalPoints {
		violations = append(violations, fmt.Sprintf("reversal distance %.1f exceeds maximum %.1f points", reversal, f.limits.MaxReversalPoints))
	}

	if rr, ok := riskReward(decision, entry, tp, sl); !ok {
		violations = append(violations, "risk/reward undefined for the given levels")
	} else if rr < f.limits.MinRiskReward {
		violations = append(violations, fmt.Sprintf("risk/reward %.2f below minimum %.2f", rr, f.limits.MinRiskReward))
	}

	if len(violations) > 0 {
		return false, strings.Join(violations, "; ")
	}
	return true, ""
}

// riskReward computes reward/risk per direction. Levels on the wrong
// side of entry make the trade ill-formed rather than merely risky.
func riskReward(decision types.VerdictDecision, entry, tp, sl float64) (float64, bool) {
	var reward, risk float64
	switch decision {
	case types.VerdictBuy:
		reward, risk = tp-entry, entry-sl
	case types.VerdictSell:
		reward, risk = entry-tp, sl-entry
	default:
		return 0, false
	}
	if reward <= 0 || risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}
