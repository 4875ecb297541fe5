package types

import "time"

// Timeframe is one of the six canonical chart buckets. Raw exchange
// syntax ("60", "240", "D") is mapped before it reaches the engine.
type Timeframe string

const (
	TF5  Timeframe = "5"
	TF15 Timeframe = "15"
	TF30 Timeframe = "30"
	TF1H Timeframe = "1H"
	TF4H Timeframe = "4H"
	TF1D Timeframe = "1D"
)

// AlertSnapshot is one parsed webhook event.
type AlertSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	BarTime   time.Time `json:"bar_time"`

	Open   *float64 `json:"open,omitempty"`
	High   *float64 `json:"high,omitempty"`
	Low    *float64 `json:"low,omitempty"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume,omitempty"`

	// Indicators carries every numeric field the alert supplied beyond
	// OHLCV (RSI, EMA, MACD, ATR, FVG CE prices...). Unknown keys are
	// preserved and passed through to advisors and the safety filter.
	Indicators map[string]float64 `json:"indicators,omitempty"`
	// Flags carries non-numeric indicator values (CSD_UP, BOS direction,
	// premium/discount zone labels) verbatim.
	Flags map[string]string `json:"flags,omitempty"`
}

// Indicator returns a named numeric indicator and whether it was present.
func (s *AlertSnapshot) Indicator(name string) (float64, bool) {
	v, ok := s.Indicators[name]
	return v, ok
}

// ATR returns the volatility proxy used for fallback level calculation.
func (s *AlertSnapshot) ATR() (float64, bool) {
	return s.Indicator("ATR")
}

// OpinionDecision is one advisor's call on the alert.
type OpinionDecision string

const (
	OpinionBuy         OpinionDecision = "BUY"
	OpinionSell        OpinionDecision = "SELL"
	OpinionWait        OpinionDecision = "WAIT"
	OpinionUnavailable OpinionDecision = "UNAVAILABLE"
	OpinionError       OpinionDecision = "ERROR"
)

// Valid reports whether the opinion counts toward quorum.
func (d OpinionDecision) Valid() bool {
	return d == OpinionBuy || d == OpinionSell || d == OpinionWait
}

// Opinion is one advisor's structured answer. Every advisory call
// completion produces exactly one Opinion; parse failures, timeouts and
// transport errors are absorbed here, never raised.
type Opinion struct {
	SourceID   string          `json:"source_id"`
	Decision   OpinionDecision `json:"decision"`
	Entry      *float64        `json:"entry,omitempty"`
	TakeProfit *float64        `json:"take_profit,omitempty"`
	StopLoss   *float64        `json:"stop_loss,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// LevelCount is the number of price fields the opinion supplies.
func (o *Opinion) LevelCount() int {
	n := 0
	for _, p := range []*float64{o.Entry, o.TakeProfit, o.StopLoss} {
		if p != nil {
			n++
		}
	}
	return n
}

// VerdictDecision is the engine's final call.
type VerdictDecision string

const (
	VerdictBuy     VerdictDecision = "BUY"
	VerdictSell    VerdictDecision = "SELL"
	VerdictNoTrade VerdictDecision = "NO_TRADE"
)

// Verdict is the engine's single structured output per alert. Immutable
// once constructed; price fields are non-nil iff Decision != NO_TRADE.
// A safety veto keeps the agreed direction in Decision and marks it
// non-actionable via SafetyPassed, so both pieces of information survive.
type Verdict struct {
	Decision       VerdictDecision `json:"decision"`
	Entry          *float64        `json:"entry,omitempty"`
	TakeProfit     *float64        `json:"take_profit,omitempty"`
	StopLoss       *float64        `json:"stop_loss,omitempty"`
	ConsensusLabel string          `json:"consensus_label"`
	SafetyPassed   bool            `json:"safety_passed"`
	SafetyReason   string          `json:"safety_reason,omitempty"`
	Sources        []string        `json:"contributing_sources,omitempty"`
}

// Actionable reports whether the verdict is a trade that cleared safety.
func (v *Verdict) Actionable() bool {
	return v.Decision != VerdictNoTrade && v.SafetyPassed
}

// ProcessStatus classifies the outcome of handling one raw alert.
type ProcessStatus string

const (
	StatusOK        ProcessStatus = "ok"
	StatusIgnored   ProcessStatus = "ignored"
	StatusDuplicate ProcessStatus = "duplicate"
)

// ProcessResult is what the engine hands back for every inbound payload.
// Rejections and duplicates are data, not errors.
type ProcessResult struct {
	Status   ProcessStatus  `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Snapshot *AlertSnapshot `json:"snapshot,omitempty"`
	Opinions []Opinion      `json:"opinions,omitempty"`
	Verdict  *Verdict       `json:"verdict,omitempty"`
}

// Float returns a pointer to v. Helper for optional price fields.
func Float(v float64) *float64 { return &v }
