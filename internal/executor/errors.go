package executor

import (
	"fmt"
	"strings"
)

// MilestoneExecutionError wraps a tool or reasoning failure that
// happened mid-milestone. Retried up to the milestone's MaxRetries.
type MilestoneExecutionError struct {
	MilestoneID string
	Err         error
}

func (e *MilestoneExecutionError) Error() string {
	return fmt.Sprintf("milestone %s execution: %v", e.MilestoneID, e.Err)
}

func (e *MilestoneExecutionError) Unwrap() error {
	return e.Err
}

// VerificationFailure reports an explicit failure from a milestone's
// verification steps. Same retry policy as execution errors.
type VerificationFailure struct {
	MilestoneID string
	Step        string
	Output      string
}

func (e *VerificationFailure) Error() string {
	return fmt.Sprintf("milestone %s verification failed at %q", e.MilestoneID, e.Step)
}

// StalledError reports that no milestone is eligible while work
// remains: a dependency cycle or failed dependency blocks progress.
type StalledError struct {
	Blocked []string
}

func (e *StalledError) Error() string {
	return fmt.Sprintf("marathon stalled: no eligible milestone, blocked: %s", strings.Join(e.Blocked, ", "))
}
