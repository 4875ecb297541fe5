package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tv-consensus-bot/internal/types"
)

// Rejection reasons surfaced as data, never as errors.
const (
	ReasonEmptyPayload         = "empty payload"
	ReasonMissingEssential     = "missing essential fields"
	ReasonUnsupportedTimeframe = "unsupported timeframe"
)

// Rejection explains why a payload was ignored.
type Rejection struct {
	Reason string
}

// Synonym sets per logical field, first present wins. Keys are compared
// upper-cased, so "close", "Close" and "CLOSE" all resolve.
var fieldSynonyms = map[string][]string{
	"symbol":    {"SYMB", "SYMBOL", "TICKER"},
	"timeframe": {"TF", "INTERVAL", "TIMEFRAME"},
	"open":      {"O", "OPEN"},
	"high":      {"H", "HIGH"},
	"low":       {"L", "LOW"},
	"close":     {"C", "CLOSE"},
	"volume":    {"V", "VOL", "VOLUME"},
	"bar_time":  {"BAR_TIME", "TIME", "TIMESTAMP"},
}

// timeframeTable maps raw exchange syntax onto the six canonical buckets.
// Anything outside the table is a hard rejection, never a guess.
var timeframeTable = map[string]types.Timeframe{
	"5":   types.TF5,
	"15":  types.TF15,
	"30":  types.TF30,
	"60":  types.TF1H,
	"1H":  types.TF1H,
	"240": types.TF4H,
	"4H":  types.TF4H,
	"D":   types.TF1D,
	"1D":  types.TF1D,
}

// Parse turns a raw webhook body (JSON object or key=value text) into an
// AlertSnapshot, or a typed rejection. now supplies the bar time when the
// payload carries none.
func Parse(raw []byte, now time.Time) (*types.AlertSnapshot, *Rejection) {
	fields := decodePayload(raw)
	if len(fields) == 0 {
		return nil, &Rejection{Reason: ReasonEmptyPayload}
	}

	consumed := map[string]bool{}
	get := func(logical string) (string, bool) {
		for _, k := range fieldSynonyms[logical] {
			if v, ok := fields[k]; ok {
				consumed[k] = true
				return v, true
			}
		}
		return "", false
	}

	symbol, _ := get("symbol")
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	tfRaw, _ := get("timeframe")
	tf, tfOK := NormalizeTimeframe(tfRaw)
	if !tfOK {
		return nil, &Rejection{Reason: ReasonUnsupportedTimeframe}
	}

	closeRaw, _ := get("close")
	closeVal, closeOK := Coerce(closeRaw)
	if symbol == "" || !closeOK {
		return nil, &Rejection{Reason: ReasonMissingEssential}
	}

	snap := &types.AlertSnapshot{
		Symbol:    symbol,
		Timeframe: tf,
		Close:     closeVal,
	}

	if v, ok := get("open"); ok {
		if f, ok := Coerce(v); ok {
			snap.Open = types.Float(f)
		}
	}
	if v, ok := get("high"); ok {
		if f, ok := Coerce(v); ok {
			snap.High = types.Float(f)
		}
	}
	if v, ok := get("low"); ok {
		if f, ok := Coerce(v); ok {
			snap.Low = types.Float(f)
		}
	}
	if v, ok := get("volume"); ok {
		if f, ok := Coerce(v); ok {
			snap.Volume = types.Float(f)
		}
	}

	if v, ok := get("bar_time"); ok {
		if t, ok := ParseTimestamp(v); ok {
			snap.BarTime = t
		}
	}
	if snap.BarTime.IsZero() {
		// Floored to the minute so duplicate deliveries within the same
		// minute produce identical dedup keys.
		snap.BarTime = now.UTC().Truncate(time.Minute)
	}

	// Everything left over is an open-ended indicator bag: numeric values
	// are coerced, non-numeric values survive verbatim as flags.
	for k, v := range fields {
		if consumed[k] {
			continue
		}
		if f, ok := Coerce(v); ok {
			if snap.Indicators == nil {
				snap.Indicators = map[string]float64{}
			}
			snap.Indicators[k] = f
		} else if s := strings.TrimSpace(v); s != "" && !isPlaceholder(s) {
			if snap.Flags == nil {
				snap.Flags = map[string]string{}
			}
			snap.Flags[k] = s
		}
	}

	return snap, nil
}

// decodePayload tries JSON first, then falls back to comma/newline
// separated key=value pairs. Keys are upper-cased for synonym lookup.
func decodePayload(raw []byte) map[string]string {
	out := map[string]string{}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k, v := range obj {
			out[strings.ToUpper(strings.TrimSpace(k))] = stringify(v)
		}
		return out
	}

	for _, token := range splitKV(string(raw)) {
		idx := strings.Index(token, "=")
		if idx <= 0 {
			continue
		}
		k := strings.ToUpper(strings.TrimSpace(token[:idx]))
		v := strings.TrimSpace(token[idx+1:])
		if k != "" {
			out[k] = v
		}
	}
	return out
}

var kvSeparator = regexp.MustCompile(`[,\n]+`)

func splitKV(raw string) []string {
	return kvSeparator.Split(strings.TrimSpace(raw), -1)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// NormalizeTimeframe maps a raw timeframe value onto the canonical set.
func NormalizeTimeframe(raw string) (types.Timeframe, bool) {
	tf, ok := timeframeTable[strings.ToUpper(strings.TrimSpace(raw))]
	return tf, ok
}

var firstNumber = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// Coerce parses a loosely-formatted numeric value. Thousands separators
// and non-numeric residue are stripped; placeholder tokens ({{rsi}},
// NaN, null, empty) become absent, never zero.
func Coerce(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isPlaceholder(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if m := firstNumber.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func isPlaceholder(s string) bool {
	if strings.Contains(s, "{{") {
		return true
	}
	switch strings.ToLower(s) {
	case "null", "nan", "none", "na", "undefined":
		return true
	}
	return false
}

// ParseTimestamp accepts unix seconds, unix millis (magnitude > 1e12) or
// ISO-8601 with a trailing Z normalized to +00:00.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		if n > 1e12 { // millis
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Unix(int64(n), 0).UTC(), true
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
