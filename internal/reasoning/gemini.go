package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	genai "google.golang.org/genai"

	"marathon/internal/models"
)

// ErrEmptyResponse indicates the model returned no usable candidates.
var ErrEmptyResponse = errors.New("reasoning: empty response from model")

// maxAttempts bounds retries against transient API errors.
const maxAttempts = 3

// Gemini is a thin wrapper around the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini creates a Gemini-backed provider. The API key is taken at
// construction; callers pass it once instead of threading credentials
// through every call.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{cli: cli, model: model}, nil
}

// Name returns the provider identifier.
func (g *Gemini) Name() string {
	return "gemini:" + g.model
}

// thinkingBudget maps a reasoning effort level to a token budget.
func thinkingBudget(level models.ThinkingLevel) int32 {
	switch level {
	case models.ThinkingLow:
		return 512
	case models.ThinkingMedium:
		return 2048
	case models.ThinkingHigh:
		return 8192
	case models.ThinkingMax:
		return 24576
	default:
		return 2048
	}
}

// Generate sends the prompt with the mapped thinking budget and returns
// the first candidate's text. Transient errors are retried with backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string, level models.ThinkingLevel) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(thinkingBudget(level)),
		},
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			cfg,
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyResponse
		} else {
			return resp.Candidates[0].Content.Parts[0].Text, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return "", lastErr
}
