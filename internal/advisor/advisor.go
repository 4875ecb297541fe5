// Package advisor defines the advisory source abstraction. Each source
// takes an analysis prompt and returns free-form text; turning that text
// into a structured opinion is the extractor's job, not the advisor's.
package advisor

import (
	"context"
	"errors"

	"tv-consensus-bot/internal/api"
	"tv-consensus-bot/internal/extract"
)

// Advisor is one opinion source.
type Advisor interface {
	ID() string
	Analyze(ctx context.Context, prompt string) (string, error)
}

// ErrMissingCredentials marks a source that cannot run at all in this
// deployment. It maps to an Unavailable opinion rather than an Error.
var ErrMissingCredentials = errors.New("missing credentials")

// ErrMalformedResponse marks a response the provider could not decode.
var ErrMalformedResponse = errors.New("malformed response")

// ClassifyFailure maps an Analyze error onto an extraction outcome so
// the caller can build the corresponding opinion.
func ClassifyFailure(err error) extract.Outcome {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return extract.OutcomeMissingCredentials
	case api.IsTimeout(err):
		return extract.OutcomeTimeout
	case errors.Is(err, ErrMalformedResponse):
		return extract.OutcomeMalformed
	default:
		return extract.OutcomeTransportError
	}
}
