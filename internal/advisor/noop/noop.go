// Package noop provides a fallback advisory source used when no real
// model is configured. Useful for smoke-testing the webhook path.
package noop

import (
	"context"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/logger"
)

// Source always recommends waiting.
type Source struct{}

var _ advisor.Advisor = (*Source)(nil)

func New() *Source {
	return &Source{}
}

func (s *Source) ID() string { return "noop" }

func (s *Source) Analyze(ctx context.Context, prompt string) (string, error) {
	logger.Debug(ctx, "Noop advisor called - always recommends waiting")
	return "الصفقة: انتظار، السبب: لا يوجد مصدر تحليل مهيأ", nil
}
