// Package agent defines the collaborator that performs a milestone's
// actual work (tool calls plus reasoning).
package agent

import (
	"context"

	"marathon/internal/models"
)

// Result holds the outcome of one milestone execution attempt.
type Result struct {
	// Output is the agent's free-text report of what it did.
	Output string

	// Artifacts lists produced files that exist on disk.
	Artifacts []string

	// NeedsApproval is set when the agent cannot proceed without a
	// human decision; Question carries what it needs to know.
	NeedsApproval bool
	Question      string
}

// Agent executes a milestone's work and reports the result.
type Agent interface {
	// Name returns the agent identifier.
	Name() string

	// ExecuteMilestone performs one attempt at the milestone. guidance
	// carries recovery hints from loop detection and must change the
	// approach, not repeat the failing action verbatim.
	ExecuteMilestone(ctx context.Context, m models.Milestone, goal, guidance string, level models.ThinkingLevel) (*Result, error)
}
