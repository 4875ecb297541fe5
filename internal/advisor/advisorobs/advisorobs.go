// Package advisorobs wraps an advisory source with logging and tracing
// middleware so the sources themselves stay free of observability code.
package advisorobs

import (
	"context"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/logger"
	"tv-consensus-bot/internal/trace"
)

type observableAdvisor struct {
	source advisor.Advisor
}

// Compile-time interface check
var _ advisor.Advisor = (*observableAdvisor)(nil)

// Wrap wraps an advisory source with observability middleware.
func Wrap(source advisor.Advisor) advisor.Advisor {
	return &observableAdvisor{source: source}
}

func (oa *observableAdvisor) ID() string {
	return oa.source.ID()
}

func (oa *observableAdvisor) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Analyze")
	defer span.End()

	// Skip(1) so log lines report the actual caller, not this wrapper.
	logger.DebugSkip(ctx, 1, "Requesting advisory analysis",
		"source", oa.source.ID(),
		"promptChars", len(prompt),
	)

	text, err := oa.source.Analyze(ctx, prompt)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Advisory analysis failed", err,
			"source", oa.source.ID(),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Advisory analysis received",
		"source", oa.source.ID(),
		"responseChars", len(text),
	)
	return text, nil
}
