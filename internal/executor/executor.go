// Package executor drives the per-milestone control loop: select the
// next eligible milestone, run it via the agent, detect loops, verify,
// retry or advance, and checkpoint.
package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"marathon/internal/agent"
	"marathon/internal/checkpoint"
	"marathon/internal/loopdetect"
	"marathon/internal/models"
	"marathon/internal/notify"
	"marathon/internal/planner"
	"marathon/internal/reasoning"
	"marathon/internal/store"
	"marathon/internal/verify"
)

// Signals carries the cooperative control flags the service owns.
// Pause and abort are inspected only at milestone boundaries; a slow
// tool call is never preempted.
type Signals struct {
	Paused  func() bool
	Aborted func() bool

	// WaitApproval blocks until a human approves continuing, or the
	// context is cancelled.
	WaitApproval func(ctx context.Context) error

	// Publish hands the state to the service after each persisted
	// transition. Called synchronously from the executor goroutine, so
	// the service can snapshot it race-free for concurrent readers.
	Publish func(st *models.MarathonState)
}

// Config holds executor tuning knobs.
type Config struct {
	MaxIdenticalActions int
	HistoryWindow       int
}

// Executor runs one marathon to a terminal or suspended state.
type Executor struct {
	agent       agent.Agent
	provider    reasoning.Provider
	verifier    verify.Runner
	checkpoints *checkpoint.Store
	db          *store.Store
	dispatcher  *notify.Dispatcher
	cfg         Config
	signals     Signals

	// Action-history window, private to one marathon instance.
	history []models.ActionHistoryEntry
}

// New creates an executor for a single marathon run.
func New(a agent.Agent, p reasoning.Provider, v verify.Runner, cps *checkpoint.Store, db *store.Store, d *notify.Dispatcher, cfg Config, sig Signals) *Executor {
	if cfg.MaxIdenticalActions <= 0 {
		cfg.MaxIdenticalActions = loopdetect.DefaultMaxIdentical
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = loopdetect.DefaultWindow
	}
	return &Executor{
		agent:       a,
		provider:    p,
		verifier:    v,
		checkpoints: cps,
		db:          db,
		dispatcher:  d,
		cfg:         cfg,
		signals:     sig,
	}
}

// Run executes milestones until the marathon completes, fails, or is
// suspended by pause. The returned error reflects marathon-level
// failure; a paused marathon returns nil with Status == paused.
func (e *Executor) Run(ctx context.Context, st *models.MarathonState) error {
	for {
		if e.signals.Aborted != nil && e.signals.Aborted() {
			return e.fail(st, "aborted by operator")
		}
		if e.signals.Paused != nil && e.signals.Paused() {
			st.Status = models.MarathonPaused
			st.AppendLog("info", "paused at milestone boundary")
			e.persist(st)
			e.emit(st, models.EventPaused, "paused", nil)
			return nil
		}

		next := planner.NextMilestone(&st.Plan)
		if next == nil {
			if planner.AllDone(&st.Plan) {
				return e.complete(st)
			}
			stalled := &StalledError{Blocked: planner.BlockedMilestones(&st.Plan)}
			if err := e.fail(st, stalled.Error()); err != nil {
				return err
			}
			return stalled
		}

		if err := e.runMilestone(ctx, st, next.ID); err != nil {
			// Halt policy: a milestone that exhausts its retries fails
			// the marathon, since downstream milestones may depend on
			// its artifacts.
			if ferr := e.fail(st, err.Error()); ferr != nil {
				return ferr
			}
			return err
		}
	}
}

// runMilestone drives one milestone through its attempts until it
// completes or exhausts retries.
func (e *Executor) runMilestone(ctx context.Context, st *models.MarathonState, id string) error {
	for i := range st.Plan.Milestones {
		if st.Plan.Milestones[i].ID == id {
			st.Plan.CurrentMilestoneIndex = i
			break
		}
	}

	st.Plan = planner.UpdateMilestoneStatus(st.Plan, id, models.MilestoneInProgress, nil)
	st.Status = models.MarathonExecuting
	e.persist(st)
	m := st.Plan.GetMilestone(id)
	e.emit(st, models.EventMilestoneStarted, m.Title, map[string]string{"milestone": id})

	guidance := ""
	for {
		m = st.Plan.GetMilestone(id)

		e.emit(st, models.EventToolExecuting, m.Title, map[string]string{"milestone": id})
		result, err := e.agent.ExecuteMilestone(ctx, *m, st.Plan.Goal, guidance, st.Plan.Thinking.Execution)
		if err != nil {
			// Collaborator failures never crash the loop; they count
			// against the milestone's retry budget.
			execErr := &MilestoneExecutionError{MilestoneID: id, Err: err}
			if done := e.handleAttemptFailure(st, id, execErr.Error()); done {
				return execErr
			}
			continue
		}
		e.emit(st, models.EventToolCompleted, m.Title, map[string]string{"milestone": id})

		if result.NeedsApproval {
			if err := e.awaitApproval(ctx, st, id, result.Question); err != nil {
				return &MilestoneExecutionError{MilestoneID: id, Err: err}
			}
			guidance = fmt.Sprintf("A human approved continuing past: %s", result.Question)
			continue
		}

		det := loopdetect.Detect(e.history, id, result.Output, e.cfg.MaxIdenticalActions, e.cfg.HistoryWindow)
		e.history = det.NewHistory
		if det.IsLoop {
			guidance = e.recover(ctx, st, id, result.Output)
			if done := e.handleAttemptFailure(st, id, "repeating identical actions"); done {
				return &MilestoneExecutionError{MilestoneID: id, Err: fmt.Errorf("loop detected after %d identical actions", det.Count)}
			}
			continue
		}

		st.Status = models.MarathonVerifying
		e.persist(st)
		e.emit(st, models.EventVerificationStarted, m.Title, map[string]string{"milestone": id})

		results, err := e.verifier.Run(ctx, m.VerificationSteps)
		if err != nil {
			execErr := &MilestoneExecutionError{MilestoneID: id, Err: err}
			if done := e.handleAttemptFailure(st, id, execErr.Error()); done {
				return execErr
			}
			continue
		}

		if verify.AllPassed(results) {
			e.emit(st, models.EventVerificationCompleted, "all steps passed", map[string]string{"milestone": id})
			return e.completeMilestone(st, id, result)
		}

		failure := verify.FirstFailure(results)
		vf := &VerificationFailure{MilestoneID: id, Step: failure.Step, Output: failure.Output}
		e.emit(st, models.EventVerificationCompleted, vf.Error(), map[string]string{"milestone": id, "step": failure.Step})
		guidance = fmt.Sprintf("Verification failed at %q:\n%s\nFix the cause before re-running.", failure.Step, truncate(failure.Output, 2000))
		if done := e.handleAttemptFailure(st, id, vf.Error()); done {
			return vf
		}
	}
}

// handleAttemptFailure increments the retry count and reports whether
// the milestone is out of attempts. The retry count is monotonically
// non-decreasing and bounded by MaxRetries.
func (e *Executor) handleAttemptFailure(st *models.MarathonState, id, reason string) bool {
	m := st.Plan.GetMilestone(id)
	rc := m.RetryCount + 1
	st.AppendLog("warn", fmt.Sprintf("milestone %s attempt %d/%d failed: %s", id, rc, m.MaxRetries, reason))

	if rc >= m.MaxRetries {
		st.Plan = planner.UpdateMilestoneStatus(st.Plan, id, models.MilestoneFailed, &planner.MilestonePatch{RetryCount: &rc})
		st.Status = models.MarathonExecuting
		e.persist(st)
		e.emit(st, models.EventMilestoneFailed, reason, map[string]string{"milestone": id})
		return true
	}

	st.Plan = planner.UpdateMilestoneStatus(st.Plan, id, models.MilestoneInProgress, &planner.MilestonePatch{RetryCount: &rc})
	st.Status = models.MarathonExecuting
	e.persist(st)
	return false
}

// recover asks the reasoning provider for a strategy change at recovery
// effort. The returned guidance is fed to the next attempt so the agent
// does not retry the failing action unchanged.
func (e *Executor) recover(ctx context.Context, st *models.MarathonState, id, lastOutput string) string {
	m := st.Plan.GetMilestone(id)
	e.emit(st, models.EventRecovering, "loop detected, changing strategy", map[string]string{"milestone": id})
	e.emit(st, models.EventThinking, "escalating reasoning effort", map[string]string{"milestone": id})

	prompt := fmt.Sprintf(`An autonomous agent is stuck repeating the same action on this milestone:

Milestone: %s
%s

Its last output was:
%s

Suggest a concretely different approach in a short paragraph. Do not repeat the failing action.`,
		m.Title, m.Description, truncate(lastOutput, 2000))

	hint, err := e.provider.Generate(ctx, prompt, st.Plan.Thinking.Recovery)
	if err != nil {
		log.Printf("executor: recovery generation failed: %v", err)
		return "Take a different approach than the previous attempts; the last action was repeated without progress."
	}
	return hint
}

// awaitApproval suspends the marathon into waiting_human until the
// external approval signal arrives.
func (e *Executor) awaitApproval(ctx context.Context, st *models.MarathonState, id, question string) error {
	st.Status = models.MarathonWaitingHuman
	st.AppendLog("info", "waiting for human input: "+question)
	e.persist(st)
	e.emit(st, models.EventApprovalNeeded, question, map[string]string{"milestone": id})

	if e.signals.WaitApproval == nil {
		return fmt.Errorf("approval required but no approval signal is wired")
	}
	if err := e.signals.WaitApproval(ctx); err != nil {
		return err
	}

	st.Status = models.MarathonExecuting
	e.persist(st)
	e.emit(st, models.EventResumed, "human input received", map[string]string{"milestone": id})
	return nil
}

// completeMilestone checkpoints the milestone and marks it completed.
func (e *Executor) completeMilestone(st *models.MarathonState, id string, result *agent.Result) error {
	m := st.Plan.GetMilestone(id)

	if e.checkpoints != nil {
		if _, err := e.checkpoints.Create(st.ID, id, result.Output, m.Artifacts); err != nil {
			// A failed checkpoint loses rollback granularity, not
			// correctness; the milestone result stands.
			log.Printf("executor: checkpoint for %s failed: %v", id, err)
			st.AppendLog("warn", "checkpoint failed: "+err.Error())
		}
	}

	patch := &planner.MilestonePatch{}
	if len(result.Artifacts) > 0 {
		patch.Artifacts = result.Artifacts
	}
	st.Plan = planner.UpdateMilestoneStatus(st.Plan, id, models.MilestoneCompleted, patch)
	st.Status = models.MarathonExecuting
	e.persist(st)
	e.emit(st, models.EventMilestoneCompleted, m.Title, map[string]string{"milestone": id})
	return nil
}

func (e *Executor) complete(st *models.MarathonState) error {
	now := time.Now().UTC()
	st.Status = models.MarathonCompleted
	st.CompletedAt = &now
	e.persist(st)
	e.emit(st, models.EventCompleted, "all milestones completed", nil)
	return nil
}

func (e *Executor) fail(st *models.MarathonState, reason string) error {
	now := time.Now().UTC()
	st.Status = models.MarathonFailed
	st.CompletedAt = &now
	st.Error = reason
	e.persist(st)
	e.emit(st, models.EventFailed, reason, nil)
	return nil
}

func (e *Executor) persist(st *models.MarathonState) {
	if e.db != nil {
		if err := e.db.SaveMarathon(st); err != nil {
			log.Printf("executor: persist marathon %s: %v", st.ID, err)
		}
	}
	if e.signals.Publish != nil {
		e.signals.Publish(st)
	}
}

func (e *Executor) emit(st *models.MarathonState, t models.EventType, message string, data map[string]string) {
	if e.dispatcher == nil {
		return
	}
	p := planner.Progress(&st.Plan)
	e.dispatcher.Dispatch(models.MarathonEvent{
		Type:       t,
		MarathonID: st.ID,
		Progress:   models.EventProgress{Completed: p.Completed, Total: p.Total},
		Message:    message,
		Data:       data,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
