package advisor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tv-consensus-bot/internal/types"
)

// BuildPrompt renders the analysis request sent to every source for one
// alert. The prompt is Arabic, asks for an ICT/SMC read over the supplied
// indicator values, and pins the final line to the labeled format the
// extractor recognizes. Missing OHLCV fields are sent as "غير متوفر" so
// the model knows the gap is in the data, not the question.
func BuildPrompt(snap *types.AlertSnapshot, headlines []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "حلّل %s فريم %s بأسلوب ICT/SMC (Liquidity/BOS/CHoCH/FVG/OB) مع مؤشرات RSI/EMA/MACD.\n",
		snap.Symbol, snap.Timeframe)

	fmt.Fprintf(&b, "قيم TradingView (قد تكون ناقصة): O=%s H=%s L=%s C=%s V=%s\n",
		optFloat(snap.Open), optFloat(snap.High), optFloat(snap.Low),
		trimFloat(snap.Close), optFloat(snap.Volume))

	if len(snap.Indicators) > 0 {
		names := make([]string, 0, len(snap.Indicators))
		for name := range snap.Indicators {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, trimFloat(snap.Indicators[name])))
		}
		fmt.Fprintf(&b, "المؤشرات: %s\n", strings.Join(parts, " "))
	}

	if len(snap.Flags) > 0 {
		names := make([]string, 0, len(snap.Flags))
		for name := range snap.Flags {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, snap.Flags[name]))
		}
		fmt.Fprintf(&b, "إشارات إضافية: %s\n", strings.Join(parts, " "))
	}

	if len(headlines) > 0 {
		b.WriteString("عناوين السوق الأخيرة:\n")
		for _, h := range headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString("أعطني النتيجة بصيغة نقاط مختصرة، وأنهِ بسطر توصية نهائية يتضمن: ")
	b.WriteString("الصفقة (شراء/بيع/انتظار)، الدخول، الهدف، الستوب، السبب.")
	return b.String()
}

func optFloat(v *float64) string {
	if v == nil {
		return "غير متوفر"
	}
	return trimFloat(*v)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
