package planner

import (
	"encoding/json"
	"fmt"

	"marathon/internal/models"
)

// Defaults applied to milestones the model left underspecified.
const (
	defaultEstimatedMinutes = 30
	defaultMaxRetries       = 3
)

// rawMilestone mirrors the milestone shape the model is asked to emit.
type rawMilestone struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Dependencies      []string `json:"dependencies"`
	EstimatedMinutes  int      `json:"estimated_minutes"`
	Artifacts         []string `json:"artifacts"`
	VerificationSteps []string `json:"verification_steps"`
	MaxRetries        int      `json:"max_retries"`
}

// rawPlan mirrors the top-level JSON object embedded in the response.
type rawPlan struct {
	Milestones            []rawMilestone `json:"milestones"`
	EstimatedTotalMinutes int            `json:"estimated_total_minutes"`
	CriticalPath          []string       `json:"critical_path"`
	Parallelizable        [][]string     `json:"parallelizable"`
	RiskAssessment        string         `json:"risk_assessment"`
}

// parsePlanResponse extracts the first balanced JSON object from the
// model's response and normalizes it into milestones.
func parsePlanResponse(response string) ([]models.Milestone, int, error) {
	jsonStr, ok := extractJSONObject(response)
	if !ok {
		return nil, 0, &PlanParseError{Reason: "no JSON object found in response"}
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, 0, &PlanParseError{Reason: fmt.Sprintf("invalid plan JSON: %v", err)}
	}
	if len(raw.Milestones) == 0 {
		return nil, 0, &PlanParseError{Reason: "plan contains no milestones"}
	}

	milestones := make([]models.Milestone, len(raw.Milestones))
	for i, rm := range raw.Milestones {
		if rm.ID == "" {
			return nil, 0, &PlanParseError{Reason: fmt.Sprintf("milestone %d missing id", i)}
		}
		if rm.Title == "" {
			return nil, 0, &PlanParseError{Reason: fmt.Sprintf("milestone %q missing title", rm.ID)}
		}

		deps := rm.Dependencies
		if deps == nil {
			deps = []string{}
		}
		est := rm.EstimatedMinutes
		if est <= 0 {
			est = defaultEstimatedMinutes
		}
		maxRetries := rm.MaxRetries
		if maxRetries <= 0 {
			maxRetries = defaultMaxRetries
		}

		milestones[i] = models.Milestone{
			ID:                rm.ID,
			Title:             rm.Title,
			Description:       rm.Description,
			Status:            models.MilestonePending,
			Dependencies:      deps,
			EstimatedMinutes:  est,
			Artifacts:         rm.Artifacts,
			VerificationSteps: rm.VerificationSteps,
			RetryCount:        0,
			MaxRetries:        maxRetries,
		}
	}

	total := raw.EstimatedTotalMinutes
	if total <= 0 {
		for _, m := range milestones {
			total += m.EstimatedMinutes
		}
	}
	return milestones, total, nil
}

// extractJSONObject returns the first balanced {...} span in s, honoring
// string literals and escapes so braces inside strings do not count.
func extractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
