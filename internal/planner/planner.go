// Package planner turns a goal into a validated milestone plan and
// provides the pure plan operations used by the executor.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marathon/internal/models"
	"marathon/internal/reasoning"
)

// PlanParseError indicates the reasoning provider's output could not be
// turned into a plan. Fatal to plan creation; never retried here.
type PlanParseError struct {
	Reason string
}

func (e *PlanParseError) Error() string {
	return "plan parse: " + e.Reason
}

// Planner creates plans by prompting the reasoning provider.
type Planner struct {
	provider reasoning.Provider
}

// New creates a new planner.
func New(provider reasoning.Provider) *Planner {
	return &Planner{provider: provider}
}

// CreatePlan decomposes a goal into a dependency-ordered milestone plan.
// The decomposition prompt is sent at the strategy's planning effort
// (maximum by default).
func (p *Planner) CreatePlan(ctx context.Context, goal, contextInfo string, strategy models.ThinkingStrategy) (*models.MarathonPlan, error) {
	prompt := buildPlanPrompt(goal, contextInfo)

	response, err := p.provider.Generate(ctx, prompt, strategy.Planning)
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	milestones, totalMinutes, err := parsePlanResponse(response)
	if err != nil {
		return nil, err
	}

	plan := &models.MarathonPlan{
		ID:                    uuid.New().String(),
		Goal:                  goal,
		Context:               contextInfo,
		Milestones:            milestones,
		Thinking:              strategy,
		CurrentMilestoneIndex: 0,
		CreatedAt:             time.Now().UTC(),
		EstimatedTotalMinutes: totalMinutes,
	}

	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ValidatePlan checks that milestone ids are unique, every dependency
// resolves, and the dependency relation forms a DAG.
func ValidatePlan(plan *models.MarathonPlan) error {
	if len(plan.Milestones) == 0 {
		return &PlanParseError{Reason: "plan has no milestones"}
	}

	ids := make(map[string]bool, len(plan.Milestones))
	for _, m := range plan.Milestones {
		if ids[m.ID] {
			return fmt.Errorf("invalid plan: duplicate milestone id %q", m.ID)
		}
		ids[m.ID] = true
	}

	for _, m := range plan.Milestones {
		for _, dep := range m.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("invalid plan: milestone %q depends on unknown milestone %q", m.ID, dep)
			}
		}
	}

	// Kahn's algorithm: if not every milestone can be scheduled, the
	// dependency relation contains a cycle.
	inDegree := make(map[string]int, len(plan.Milestones))
	for _, m := range plan.Milestones {
		inDegree[m.ID] = len(m.Dependencies)
	}

	scheduled := 0
	done := make(map[string]bool, len(plan.Milestones))
	for {
		progressed := false
		for _, m := range plan.Milestones {
			if done[m.ID] || inDegree[m.ID] != 0 {
				continue
			}
			done[m.ID] = true
			scheduled++
			progressed = true
			for _, other := range plan.Milestones {
				for _, dep := range other.Dependencies {
					if dep == m.ID {
						inDegree[other.ID]--
					}
				}
			}
		}
		if !progressed {
			break
		}
	}
	if scheduled < len(plan.Milestones) {
		return fmt.Errorf("invalid plan: dependency cycle detected, only %d of %d milestones can be scheduled",
			scheduled, len(plan.Milestones))
	}
	return nil
}
