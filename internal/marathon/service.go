// Package marathon provides the lifecycle coordinator for autonomous
// multi-milestone executions: start, pause, resume, abort, status,
// result.
package marathon

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"marathon/internal/agent"
	"marathon/internal/checkpoint"
	"marathon/internal/executor"
	"marathon/internal/models"
	"marathon/internal/notify"
	"marathon/internal/planner"
	"marathon/internal/reasoning"
	"marathon/internal/store"
	"marathon/internal/verify"
)

// Service coordinates one marathon at a time over injected
// collaborators. It is an explicit object owned by the process, not a
// package-level singleton, so multiple services can coexist if a
// multi-marathon deployment ever needs them.
type Service struct {
	db          *store.Store
	checkpoints *checkpoint.Store
	provider    reasoning.Provider
	agent       agent.Agent
	verifier    verify.Runner
	dispatcher  *notify.Dispatcher
	cfg         executor.Config

	mu     sync.Mutex
	active *activeRun
}

// activeRun holds the cooperative control flags for the running
// marathon. Flags are honored at milestone boundaries only.
//
// state belongs to the run goroutine alone; snapshot is a deep copy
// guarded by the service mutex, replaced on every published transition
// and never written after that, so Status readers share no memory with
// the executor.
type activeRun struct {
	state     *models.MarathonState
	snapshot  *models.MarathonState
	paused    atomic.Bool
	aborted   atomic.Bool
	approvals chan struct{}
}

// NewService creates a marathon service.
func NewService(db *store.Store, cps *checkpoint.Store, provider reasoning.Provider, ag agent.Agent, verifier verify.Runner, dispatcher *notify.Dispatcher, cfg executor.Config) *Service {
	return &Service{
		db:          db,
		checkpoints: cps,
		provider:    provider,
		agent:       ag,
		verifier:    verifier,
		dispatcher:  dispatcher,
		cfg:         cfg,
	}
}

// Start plans and executes a marathon for the goal, returning once it
// reaches a terminal state (or is paused). State is persisted after
// every transition so a paused or crashed marathon can be resumed.
func (s *Service) Start(ctx context.Context, goal, contextInfo string, strategy models.ThinkingStrategy) (*models.MarathonState, error) {
	st := &models.MarathonState{
		ID:        uuid.New().String(),
		Status:    models.MarathonPlanning,
		StartedAt: time.Now().UTC(),
	}

	run, err := s.activate(st)
	if err != nil {
		return nil, err
	}
	defer s.deactivate()

	if err := s.db.SaveMarathon(st); err != nil {
		return nil, fmt.Errorf("persist marathon: %w", err)
	}
	s.publish(run, st)
	s.dispatcher.Dispatch(models.MarathonEvent{
		Type: models.EventStarted, MarathonID: st.ID, Message: goal,
	})

	plan, err := planner.New(s.provider).CreatePlan(ctx, goal, contextInfo, strategy)
	if err != nil {
		now := time.Now().UTC()
		st.Status = models.MarathonFailed
		st.CompletedAt = &now
		st.Error = err.Error()
		if serr := s.db.SaveMarathon(st); serr != nil {
			log.Printf("marathon: persist failed state: %v", serr)
		}
		s.dispatcher.Dispatch(models.MarathonEvent{
			Type: models.EventFailed, MarathonID: st.ID, Message: err.Error(),
		})
		return st, err
	}

	st.Plan = *plan
	st.Status = models.MarathonExecuting
	st.AppendLog("info", fmt.Sprintf("plan created with %d milestones", len(plan.Milestones)))
	if err := s.db.SaveMarathon(st); err != nil {
		return nil, fmt.Errorf("persist marathon: %w", err)
	}
	s.publish(run, st)

	return st, s.execute(ctx, run)
}

// Resume reloads a persisted marathon and restarts the executor loop at
// the current milestone index.
func (s *Service) Resume(ctx context.Context, id string) (*models.MarathonState, error) {
	st, err := s.db.LoadMarathon(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrUnknownMarathon
	}
	if st.Status != models.MarathonPaused && st.Status != models.MarathonWaitingHuman {
		return nil, fmt.Errorf("%w: status is %s", ErrNotResumable, st.Status)
	}

	run, err := s.activate(st)
	if err != nil {
		return nil, err
	}
	defer s.deactivate()

	// A milestone interrupted mid-flight goes back to pending; the
	// last checkpoint bounds the rework.
	for i := range st.Plan.Milestones {
		if st.Plan.Milestones[i].Status == models.MilestoneInProgress {
			st.Plan.Milestones[i].Status = models.MilestonePending
		}
	}

	st.Status = models.MarathonExecuting
	st.AppendLog("info", "resumed")
	if err := s.db.SaveMarathon(st); err != nil {
		return nil, fmt.Errorf("persist marathon: %w", err)
	}
	s.publish(run, st)
	s.dispatcher.Dispatch(models.MarathonEvent{
		Type: models.EventResumed, MarathonID: st.ID,
	})

	return st, s.execute(ctx, run)
}

func (s *Service) execute(ctx context.Context, run *activeRun) error {
	sig := executor.Signals{
		Paused:  run.paused.Load,
		Aborted: run.aborted.Load,
		WaitApproval: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-run.approvals:
				return nil
			}
		},
		Publish: func(st *models.MarathonState) { s.publish(run, st) },
	}
	exec := executor.New(s.agent, s.provider, s.verifier, s.checkpoints, s.db, s.dispatcher, s.cfg, sig)
	return exec.Run(ctx, run.state)
}

func (s *Service) activate(st *models.MarathonState) (*activeRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrMarathonActive
	}
	run := &activeRun{state: st, snapshot: st.Clone(), approvals: make(chan struct{}, 1)}
	s.active = run
	return run, nil
}

// publish replaces the run's read snapshot. Called synchronously from
// the goroutine that owns st, which makes the clone race-free.
func (s *Service) publish(run *activeRun, st *models.MarathonState) {
	snap := st.Clone()
	s.mu.Lock()
	run.snapshot = snap
	s.mu.Unlock()
}

func (s *Service) deactivate() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// Pause requests suspension at the next milestone boundary. The current
// in-flight tool call is never interrupted.
func (s *Service) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveMarathon
	}
	s.active.paused.Store(true)
	return nil
}

// Abort requests terminal failure at the next milestone boundary.
func (s *Service) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveMarathon
	}
	s.active.aborted.Store(true)
	return nil
}

// Approve delivers the human approval signal a waiting marathon needs.
func (s *Service) Approve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveMarathon
	}
	select {
	case s.active.approvals <- struct{}{}:
	default:
	}
	return nil
}

// Status returns a point-in-time snapshot of the active marathon, or
// nil. The snapshot shares no memory with the executor or with other
// callers, so it may be read or modified from any goroutine while the
// run proceeds.
func (s *Service) Status() *models.MarathonState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	return s.active.snapshot.Clone()
}

// ListMarathons enumerates all persisted marathons, newest first.
func (s *Service) ListMarathons() ([]models.MarathonState, error) {
	return s.db.ListMarathons()
}

// Result derives the summary for a marathon. It is computed, never
// stored separately.
func (s *Service) Result(id string) (*models.Result, error) {
	st, err := s.db.LoadMarathon(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrUnknownMarathon
	}
	return DeriveResult(st), nil
}

// DeriveResult computes the outcome summary from persisted state.
func DeriveResult(st *models.MarathonState) *models.Result {
	res := &models.Result{
		Success:         st.Status == models.MarathonCompleted,
		TotalMilestones: len(st.Plan.Milestones),
	}

	seen := make(map[string]bool)
	for i := range st.Plan.Milestones {
		m := &st.Plan.Milestones[i]
		if m.Status != models.MilestoneCompleted {
			continue
		}
		res.CompletedMilestones++
		for _, a := range m.Artifacts {
			if !seen[a] {
				seen[a] = true
				res.Artifacts = append(res.Artifacts, a)
			}
		}
	}
	sort.Strings(res.Artifacts)

	end := time.Now().UTC()
	if st.CompletedAt != nil {
		end = *st.CompletedAt
	}
	res.TotalTime = end.Sub(st.StartedAt)
	return res
}
