package planner

import (
	"math"

	"marathon/internal/models"
)

// NextMilestone scans milestones in declared order and returns the first
// pending one whose every dependency is completed. Declared order is the
// deliberate tie-break among equally eligible milestones. Returns nil
// when nothing is eligible.
func NextMilestone(plan *models.MarathonPlan) *models.Milestone {
	for i := range plan.Milestones {
		m := &plan.Milestones[i]
		if m.Status != models.MilestonePending {
			continue
		}
		if dependenciesMet(plan, m) {
			return m
		}
	}
	return nil
}

func dependenciesMet(plan *models.MarathonPlan, m *models.Milestone) bool {
	for _, dep := range m.Dependencies {
		d := plan.GetMilestone(dep)
		if d == nil || d.Status != models.MilestoneCompleted {
			return false
		}
	}
	return true
}

// BlockedMilestones returns the ids of pending milestones whose
// dependencies are not all completed. Used for stall diagnostics.
func BlockedMilestones(plan *models.MarathonPlan) []string {
	var blocked []string
	for i := range plan.Milestones {
		m := &plan.Milestones[i]
		if m.Status == models.MilestonePending && !dependenciesMet(plan, m) {
			blocked = append(blocked, m.ID)
		}
	}
	return blocked
}

// AllDone returns true if every milestone reached completed or skipped.
func AllDone(plan *models.MarathonPlan) bool {
	for i := range plan.Milestones {
		s := plan.Milestones[i].Status
		if s != models.MilestoneCompleted && s != models.MilestoneSkipped {
			return false
		}
	}
	return true
}

// MilestonePatch carries optional field updates applied together with a
// status change.
type MilestonePatch struct {
	RetryCount *int
	Artifacts  []string
}

// UpdateMilestoneStatus returns a new plan with only the targeted
// milestone replaced. The input plan is never mutated.
func UpdateMilestoneStatus(plan models.MarathonPlan, id string, status models.MilestoneStatus, patch *MilestonePatch) models.MarathonPlan {
	next := plan
	next.Milestones = make([]models.Milestone, len(plan.Milestones))
	copy(next.Milestones, plan.Milestones)

	for i := range next.Milestones {
		if next.Milestones[i].ID != id {
			continue
		}
		next.Milestones[i].Status = status
		if patch != nil {
			if patch.RetryCount != nil {
				next.Milestones[i].RetryCount = *patch.RetryCount
			}
			if patch.Artifacts != nil {
				next.Milestones[i].Artifacts = patch.Artifacts
			}
		}
		break
	}
	return next
}

// Progress reports completed/total counts, a rounded percentage, and the
// estimated minutes left in non-terminal milestones.
func Progress(plan *models.MarathonPlan) models.PlanProgress {
	p := models.PlanProgress{Total: len(plan.Milestones)}
	for i := range plan.Milestones {
		m := &plan.Milestones[i]
		switch m.Status {
		case models.MilestoneCompleted:
			p.Completed++
		case models.MilestonePending, models.MilestoneInProgress:
			p.EstimatedRemainingMinutes += m.EstimatedMinutes
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}
