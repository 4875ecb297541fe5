// Package extract turns free-text advisory responses into structured
// opinions. The responses are LLM prose with inconsistent formatting and
// mixed Arabic/English labels, so extraction is an ordered list of
// (label, field) rules evaluated per line rather than one brittle regex.
// Price fields only ever come from purely numeric tokens; expressions
// are never evaluated.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"tv-consensus-bot/internal/types"
)

// Outcome classifies how the advisory call itself ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeMissingCredentials
	OutcomeTimeout
	OutcomeTransportError
	OutcomeMalformed
)

const reasonMaxLen = 250

// Extract converts one advisory response into an Opinion. A failed call
// still yields an Opinion; nothing in this package returns an error.
func Extract(sourceID, text string, outcome Outcome, detail string) types.Opinion {
	switch outcome {
	case OutcomeMissingCredentials:
		return types.Opinion{SourceID: sourceID, Decision: types.OpinionUnavailable, Reason: truncate(detail)}
	case OutcomeTimeout, OutcomeTransportError, OutcomeMalformed:
		return types.Opinion{SourceID: sourceID, Decision: types.OpinionError, Reason: truncate(detail)}
	}
	return Parse(sourceID, text)
}

// labelRule binds a set of bilingual labels to a field setter.
type labelRule struct {
	field  string
	labels []string
}

// Rules are ordered; within one opinion the first match per field wins.
var rules = []labelRule{
	{"decision", []string{"الصفقة", "التوصية", "الاتجاه", "trade", "decision", "signal", "direction", "recommendation", "action"}},
	{"entry", []string{"الدخول", "دخول", "entry"}},
	{"take_profit", []string{"الهدف", "هدف", "take profit", "take-profit", "target", "tp"}},
	{"stop_loss", []string{"وقف الخسارة", "الستوب", "ستوب", "stop loss", "stop-loss", "stop", "sl"}},
	{"reason", []string{"السبب", "سبب", "reason", "rationale"}},
}

var (
	buyWords  = []string{"شراء", "buy", "long"}
	sellWords = []string{"بيع", "sell", "short"}
	waitWords = []string{"انتظار", "لا صفقة", "لا توجد صفقة", "wait", "no trade", "no-trade", "hold", "neutral"}
)

// Parse scans the text line by line for labeled fields. An advisor that
// never calls a direction produced a valid Wait, not an error.
func Parse(sourceID, text string) types.Opinion {
	op := types.Opinion{SourceID: sourceID, Decision: types.OpinionWait}
	decided := false

	for _, line := range strings.Split(text, "\n") {
		// The recommendation line often packs several labeled fields
		// separated by Arabic commas or semicolons.
		for _, segment := range splitSegments(line) {
			field, value, ok := matchRule(segment)
			if !ok {
				continue
			}
			switch field {
			case "decision":
				if decided {
					continue
				}
				if d, ok := classifyDirection(value); ok {
					op.Decision = d
					decided = true
				}
			case "entry":
				if op.Entry == nil {
					op.Entry = firstNumericToken(value)
				}
			case "take_profit":
				if op.TakeProfit == nil {
					op.TakeProfit = firstNumericToken(value)
				}
			case "stop_loss":
				if op.StopLoss == nil {
					op.StopLoss = firstNumericToken(value)
				}
			case "reason":
				if op.Reason == "" {
					op.Reason = truncate(strings.TrimSpace(value))
				}
			}
		}
	}

	return op
}

var segmentSeparator = regexp.MustCompile(`[،;|]+`)

func splitSegments(line string) []string {
	return segmentSeparator.Split(line, -1)
}

var bulletTrim = regexp.MustCompile(`^[\s\-*•#>0-9.)]+`)

// matchRule finds the first rule whose label prefixes the segment and
// returns the text after the label (colon spacing tolerated).
func matchRule(segment string) (field, value string, ok bool) {
	s := bulletTrim.ReplaceAllString(segment, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	lower := strings.ToLower(s)

	for _, rule := range rules {
		for _, label := range rule.labels {
			if !strings.HasPrefix(lower, label) {
				continue
			}
			rest := s[len(label):]
			trimmed := strings.TrimLeft(rest, " \t:：=．.-")
			// Guard against label words swallowed inside longer words
			// ("slow" must not match "sl").
			if rest != "" && rest == trimmed && isWordByte(rest[0]) {
				continue
			}
			return rule.field, trimmed, true
		}
	}
	return "", "", false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func classifyDirection(value string) (types.OpinionDecision, bool) {
	v := strings.ToLower(value)
	for _, w := range waitWords {
		if strings.Contains(v, w) {
			return types.OpinionWait, true
		}
	}
	for _, w := range buyWords {
		if strings.Contains(v, w) {
			return types.OpinionBuy, true
		}
	}
	for _, w := range sellWords {
		if strings.Contains(v, w) {
			return types.OpinionSell, true
		}
	}
	return "", false
}

var pureNumber = regexp.MustCompile(`^[-+]?\d[\d,]*(?:\.\d+)?$`)

// firstNumericToken returns the first purely numeric token in the value,
// with thousands separators stripped; trailing prose is dropped.
func firstNumericToken(value string) *float64 {
	for _, token := range strings.Fields(value) {
		token = strings.Trim(token, "()[]{}.,:؛")
		if !pureNumber.MatchString(token) {
			continue
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64); err == nil {
			return types.Float(f)
		}
	}
	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= reasonMaxLen {
		return s
	}
	return string(runes[:reasonMaxLen])
}
