// Package levels fills missing entry/TP/SL prices from a volatility
// fallback when the chosen opinion doesn't supply them.
package levels

import "tv-consensus-bot/internal/types"

// Fallback multipliers. Documented constants, not fitted parameters:
// they encode a reward-skewed risk/reward of 1.5/0.8 ≈ 1.875, above the
// safety filter's default 1.5 minimum. Any replacement must keep
// reward/risk at or above that minimum.
const (
	TakeProfitATRMult = 1.5
	StopLossATRMult   = 0.8
)

// ReasonNoVolatility explains a NoTrade degradation when the ATR needed
// for the fallback is absent or non-positive.
const ReasonNoVolatility = "insufficient volatility data"

// Plan is a fully populated set of trade levels.
type Plan struct {
	Entry      float64
	TakeProfit float64
	StopLoss   float64
}

// Fill returns the levels for a trade decision. Opinions that supply all
// three prices pass through untouched; otherwise the ATR fallback is
// anchored at the close. ok is false when no fallback can be computed.
func Fill(decision types.VerdictDecision, chosen *types.Opinion, close float64, atr float64, atrPresent bool) (Plan, bool) {
	if chosen != nil && chosen.Entry != nil && chosen.TakeProfit != nil && chosen.StopLoss != nil {
		return Plan{
			Entry:      *chosen.Entry,
			TakeProfit: *chosen.TakeProfit,
			StopLoss:   *chosen.StopLoss,
		}, true
	}

	if !atrPresent || atr <= 0 {
		return Plan{}, false
	}

	plan := Plan{Entry: close}
	switch decision {
	case types.VerdictBuy:
		plan.TakeProfit = close + TakeProfitATRMult*atr
		plan.StopLoss = close - StopLossATRMult*atr
	case types.VerdictSell:
		plan.TakeProfit = close - TakeProfitATRMult*atr
		plan.StopLoss = close + StopLossATRMult*atr
	default:
		return Plan{}, false
	}
	return plan, true
}
