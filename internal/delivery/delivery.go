// Package delivery renders verdicts and hands them to the configured
// channel. The delivery contract is "always say something": every
// processed alert produces a message, even when the answer is no trade.
package delivery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/types"
)

// Notifier sends one rendered verdict message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Render formats a verdict for delivery. HTML tags match Telegram's
// parse_mode=HTML subset.
func Render(snap *types.AlertSnapshot, verdict *types.Verdict) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s %s</b>\n", snap.Symbol, snap.Timeframe)

	if verdict.Actionable() {
		fmt.Fprintf(&b, "القرار: <b>%s</b> (%s)\n", directionArabic(verdict.Decision), verdict.ConsensusLabel)
		fmt.Fprintf(&b, "الدخول: %s\n", optLevel(verdict.Entry))
		fmt.Fprintf(&b, "الهدف: %s\n", optLevel(verdict.TakeProfit))
		fmt.Fprintf(&b, "الستوب: %s\n", optLevel(verdict.StopLoss))
	} else if verdict.Decision != types.VerdictNoTrade && !verdict.SafetyPassed {
		// The agreed direction stays visible; the veto is the headline.
		fmt.Fprintf(&b, "القرار: <b>لا صفقة</b> (اتفاق على %s لكن مرفوض أمنياً)\n", directionArabic(verdict.Decision))
		fmt.Fprintf(&b, "سبب الرفض: %s\n", verdict.SafetyReason)
	} else {
		fmt.Fprintf(&b, "القرار: <b>لا صفقة</b> (%s)\n", verdict.ConsensusLabel)
	}

	if len(verdict.Sources) > 0 {
		fmt.Fprintf(&b, "المصادر: %s\n", strings.Join(verdict.Sources, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func optLevel(v *float64) string {
	if v == nil {
		return "غير متوفر"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func directionArabic(d types.VerdictDecision) string {
	switch d {
	case types.VerdictBuy:
		return "شراء"
	case types.VerdictSell:
		return "بيع"
	default:
		return "لا صفقة"
	}
}

// LogNotifier is the fallback channel used when no messenger is
// configured. It writes the rendered verdict to the application log.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, text string) error {
	logger.Info(ctx, "Verdict (log delivery)", "message", text)
	return nil
}
