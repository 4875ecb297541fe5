// Package xai implements the advisory source backed by the xAI chat
// completions API.
package xai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tv-consensus-bot/internal/advisor"
	"tv-consensus-bot/internal/api"
	"tv-consensus-bot/internal/trace"
)

const endpoint = "https://api.x.ai/v1/chat/completions"

type Source struct {
	client      *api.Client
	model       string
	temperature float64
}

var _ advisor.Advisor = (*Source)(nil)

func New(client *api.Client, model string, temperature float64) *Source {
	return &Source{client: client, model: model, temperature: temperature}
}

func (s *Source) ID() string { return "xai" }

func (s *Source) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "xai-api-call")
	defer span.End()

	apiKey := os.Getenv("XAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("XAI_API_KEY: %w", advisor.ErrMissingCredentials)
	}

	body := map[string]any{
		"model":       s.model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": s.temperature,
	}

	resp, err := s.client.POST(ctx, endpoint, body, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("xai request: %w", err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", fmt.Errorf("xai response: %w", advisor.ErrMalformedResponse)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("xai response has no choices: %w", advisor.ErrMalformedResponse)
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
