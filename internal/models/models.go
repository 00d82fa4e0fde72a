// Package models defines the core domain types for Marathon.
package models

import "time"

// MilestoneStatus represents the current state of a milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneFailed     MilestoneStatus = "failed"
	MilestoneSkipped    MilestoneStatus = "skipped"
)

// IsValid returns true if this is a recognized milestone status.
func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneFailed, MilestoneSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the milestone can no longer change state.
func (s MilestoneStatus) IsTerminal() bool {
	return s == MilestoneCompleted || s == MilestoneFailed || s == MilestoneSkipped
}

// MarathonStatus represents the current state of a marathon.
type MarathonStatus string

const (
	MarathonPlanning     MarathonStatus = "planning"
	MarathonExecuting    MarathonStatus = "executing"
	MarathonVerifying    MarathonStatus = "verifying"
	MarathonPaused       MarathonStatus = "paused"
	MarathonWaitingHuman MarathonStatus = "waiting_human"
	MarathonCompleted    MarathonStatus = "completed"
	MarathonFailed       MarathonStatus = "failed"
)

// IsValid returns true if this is a recognized marathon status.
func (s MarathonStatus) IsValid() bool {
	switch s {
	case MarathonPlanning, MarathonExecuting, MarathonVerifying, MarathonPaused,
		MarathonWaitingHuman, MarathonCompleted, MarathonFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the marathon has finished for good.
func (s MarathonStatus) IsTerminal() bool {
	return s == MarathonCompleted || s == MarathonFailed
}

// ThinkingLevel is the reasoning effort passed to the reasoning provider.
type ThinkingLevel string

const (
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
	ThinkingMax    ThinkingLevel = "max"
)

// ThinkingStrategy holds the per-phase reasoning effort for one marathon.
type ThinkingStrategy struct {
	Planning     ThinkingLevel `json:"planning"`
	Execution    ThinkingLevel `json:"execution"`
	Verification ThinkingLevel `json:"verification"`
	Recovery     ThinkingLevel `json:"recovery"`
}

// DefaultThinkingStrategy returns the strategy used when none is configured:
// maximum effort for planning and recovery, less for routine work.
func DefaultThinkingStrategy() ThinkingStrategy {
	return ThinkingStrategy{
		Planning:     ThinkingMax,
		Execution:    ThinkingMedium,
		Verification: ThinkingLow,
		Recovery:     ThinkingHigh,
	}
}

// Milestone is an atomic, independently verifiable unit of work.
//
// A milestone may enter in_progress only once every dependency id has
// status completed. RetryCount never decreases and is bounded by
// MaxRetries; exceeding the bound forces the status to failed.
type Milestone struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Status            MilestoneStatus `json:"status"`
	Dependencies      []string        `json:"dependencies"`
	EstimatedMinutes  int             `json:"estimated_minutes"`
	Artifacts         []string        `json:"artifacts,omitempty"`
	VerificationSteps []string        `json:"verification_steps,omitempty"`
	RetryCount        int             `json:"retry_count"`
	MaxRetries        int             `json:"max_retries"`
}

// MarathonPlan is the decomposition of a goal into milestones.
//
// Updates are functional: operations that change a milestone return a new
// plan value so intermediate states can be checkpointed safely.
type MarathonPlan struct {
	ID                    string           `json:"id"`
	Goal                  string           `json:"goal"`
	Context               string           `json:"context,omitempty"`
	Milestones            []Milestone      `json:"milestones"`
	Thinking              ThinkingStrategy `json:"thinking_strategy"`
	CurrentMilestoneIndex int              `json:"current_milestone_index"`
	CreatedAt             time.Time        `json:"created_at"`
	EstimatedTotalMinutes int              `json:"estimated_total_minutes"`
}

// GetMilestone returns the milestone with the given id, or nil.
func (p *MarathonPlan) GetMilestone(id string) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the plan.
func (p *MarathonPlan) Clone() MarathonPlan {
	out := *p
	out.Milestones = make([]Milestone, len(p.Milestones))
	copy(out.Milestones, p.Milestones)
	for i := range out.Milestones {
		m := &out.Milestones[i]
		m.Dependencies = append([]string(nil), m.Dependencies...)
		m.Artifacts = append([]string(nil), m.Artifacts...)
		m.VerificationSteps = append([]string(nil), m.VerificationSteps...)
	}
	return out
}

// PlanProgress summarizes how far through a plan execution has advanced.
type PlanProgress struct {
	Completed                 int `json:"completed"`
	Total                     int `json:"total"`
	Percentage                int `json:"percentage"`
	EstimatedRemainingMinutes int `json:"estimated_remaining_minutes"`
}

// LogEntry is one append-only log line attached to a marathon.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// MarathonState is the durable record of one marathon execution.
//
// It is persisted on every externally visible transition so that a
// paused or crashed marathon can be reloaded by resume.
type MarathonState struct {
	ID          string         `json:"id"`
	Plan        MarathonPlan   `json:"plan"`
	Status      MarathonStatus `json:"status"`
	Logs        []LogEntry     `json:"logs"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// AppendLog records a log line on the state.
func (s *MarathonState) AppendLog(level, message string) {
	s.Logs = append(s.Logs, LogEntry{Time: time.Now().UTC(), Level: level, Message: message})
}

// Clone returns a deep copy, detached from every slice and pointer of
// the original. The executor owns its state exclusively; anything read
// by another goroutine goes through a clone.
func (s *MarathonState) Clone() *MarathonState {
	if s == nil {
		return nil
	}
	out := *s
	out.Plan = s.Plan.Clone()
	out.Logs = append([]LogEntry(nil), s.Logs...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// ActionHistoryEntry is one hashed agent action inside the loop-detection
// window. Entries are scoped to a marathon instance and never persisted
// beyond the window.
type ActionHistoryEntry struct {
	MilestoneID string    `json:"milestone_id"`
	ContentHash string    `json:"content_hash"`
	Timestamp   time.Time `json:"timestamp"`
}

// Checkpoint is a restorable snapshot taken after a milestone step.
type Checkpoint struct {
	ID               string            `json:"id"`
	MarathonID       string            `json:"marathon_id"`
	MilestoneID      string            `json:"milestone_id"`
	CreatedAt        time.Time         `json:"created_at"`
	ThoughtSignature string            `json:"thought_signature"`
	FilesSnapshot    map[string]string `json:"files_snapshot"`
	CanRestore       bool              `json:"can_restore"`
}

// Result is the derived summary of a finished (or inspected) marathon.
type Result struct {
	Success             bool          `json:"success"`
	CompletedMilestones int           `json:"completed_milestones"`
	TotalMilestones     int           `json:"total_milestones"`
	TotalTime           time.Duration `json:"total_time"`
	Artifacts           []string      `json:"artifacts"`
}
