// Package reasoning defines the reasoning provider consumed by the
// planner and the executor's recovery path.
package reasoning

import (
	"context"

	"marathon/internal/models"
)

// Provider generates free-form text at a requested reasoning effort.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Generate sends a prompt and returns the model's text response.
	Generate(ctx context.Context, prompt string, level models.ThinkingLevel) (string, error)
}
