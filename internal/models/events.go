package models

import "time"

// EventType identifies a marathon lifecycle event.
type EventType string

const (
	EventStarted               EventType = "started"
	EventMilestoneStarted      EventType = "milestone_started"
	EventToolExecuting         EventType = "tool_executing"
	EventToolCompleted         EventType = "tool_completed"
	EventThinking              EventType = "thinking"
	EventVerificationStarted   EventType = "verification_started"
	EventVerificationCompleted EventType = "verification_completed"
	EventMilestoneCompleted    EventType = "milestone_completed"
	EventMilestoneFailed       EventType = "milestone_failed"
	EventRecovering            EventType = "recovering"
	EventApprovalNeeded        EventType = "approval_needed"
	EventCompleted             EventType = "completed"
	EventFailed                EventType = "failed"
	EventPaused                EventType = "paused"
	EventResumed               EventType = "resumed"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// EventProgress carries completed/total milestone counts on an event.
type EventProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// MarathonEvent is emitted on every externally visible transition and
// fanned out to notification channels. Renderers subscribe read-only;
// control always goes through the service.
type MarathonEvent struct {
	Type       EventType         `json:"type"`
	MarathonID string            `json:"marathon_id"`
	Progress   EventProgress     `json:"progress"`
	Message    string            `json:"message,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
