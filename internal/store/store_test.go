package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"marathon/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testState(id string) *models.MarathonState {
	return &models.MarathonState{
		ID:     id,
		Status: models.MarathonExecuting,
		Plan: models.MarathonPlan{
			ID:   "plan-" + id,
			Goal: "test goal",
			Milestones: []models.Milestone{
				{ID: "m1", Title: "First", Status: models.MilestoneCompleted, Artifacts: []string{"a.txt"}},
				{ID: "m2", Title: "Second", Status: models.MilestonePending, Dependencies: []string{"m1"}},
			},
		},
		StartedAt: time.Now().UTC(),
	}
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping on an open store failed: %v", err)
	}

	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping on a closed store should fail")
	}
}

func TestSaveLoadMarathon(t *testing.T) {
	s := newTestStore(t)

	st := testState("mar-1")
	st.AppendLog("info", "hello")
	if err := s.SaveMarathon(st); err != nil {
		t.Fatalf("SaveMarathon failed: %v", err)
	}

	got, err := s.LoadMarathon("mar-1")
	if err != nil {
		t.Fatalf("LoadMarathon failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected state, got nil")
	}
	if got.Status != models.MarathonExecuting {
		t.Errorf("Expected executing, got %s", got.Status)
	}
	if len(got.Plan.Milestones) != 2 {
		t.Errorf("Expected 2 milestones, got %d", len(got.Plan.Milestones))
	}
	if got.Plan.Milestones[0].Status != models.MilestoneCompleted {
		t.Errorf("Milestone status lost in roundtrip: %s", got.Plan.Milestones[0].Status)
	}
	if len(got.Logs) != 1 || got.Logs[0].Message != "hello" {
		t.Errorf("Logs lost in roundtrip: %+v", got.Logs)
	}
}

func TestSaveMarathonUpsert(t *testing.T) {
	s := newTestStore(t)

	st := testState("mar-1")
	if err := s.SaveMarathon(st); err != nil {
		t.Fatal(err)
	}

	st.Status = models.MarathonCompleted
	now := time.Now().UTC()
	st.CompletedAt = &now
	if err := s.SaveMarathon(st); err != nil {
		t.Fatalf("Second save should upsert: %v", err)
	}

	got, err := s.LoadMarathon("mar-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.MarathonCompleted {
		t.Errorf("Expected completed after upsert, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt lost in roundtrip")
	}
}

func TestLoadMarathonNotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.LoadMarathon("nope")
	if err != nil {
		t.Fatalf("Missing marathon should not error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}
}

func TestListMarathons(t *testing.T) {
	s := newTestStore(t)

	first := testState("mar-1")
	first.StartedAt = time.Now().UTC().Add(-time.Hour)
	if err := s.SaveMarathon(first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMarathon(testState("mar-2")); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListMarathons()
	if err != nil {
		t.Fatalf("ListMarathons failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 marathons, got %d", len(list))
	}
	if list[0].ID != "mar-2" {
		t.Errorf("Expected newest first, got %s", list[0].ID)
	}
}

func TestCheckpointRoundtrip(t *testing.T) {
	s := newTestStore(t)

	cp := &models.Checkpoint{
		ID:               "cp-1",
		MarathonID:       "mar-1",
		MilestoneID:      "m1",
		CreatedAt:        time.Now().UTC(),
		ThoughtSignature: "finished the setup",
		FilesSnapshot:    map[string]string{"a.txt": "abc123"},
		CanRestore:       true,
	}
	if err := s.SaveCheckpoint(cp); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	got, err := s.GetCheckpoint("cp-1")
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected checkpoint, got nil")
	}
	if got.ThoughtSignature != "finished the setup" {
		t.Errorf("Thought signature lost: %q", got.ThoughtSignature)
	}
	if got.FilesSnapshot["a.txt"] != "abc123" {
		t.Errorf("Files snapshot lost: %v", got.FilesSnapshot)
	}
	if !got.CanRestore {
		t.Error("CanRestore lost in roundtrip")
	}
}

func TestCheckpointsForMilestone(t *testing.T) {
	s := newTestStore(t)

	older := &models.Checkpoint{ID: "cp-1", MarathonID: "mar-1", MilestoneID: "m1", CreatedAt: time.Now().UTC().Add(-time.Minute)}
	newer := &models.Checkpoint{ID: "cp-2", MarathonID: "mar-1", MilestoneID: "m1", CreatedAt: time.Now().UTC()}
	other := &models.Checkpoint{ID: "cp-3", MarathonID: "mar-1", MilestoneID: "m2", CreatedAt: time.Now().UTC()}
	for _, cp := range []*models.Checkpoint{older, newer, other} {
		if err := s.SaveCheckpoint(cp); err != nil {
			t.Fatal(err)
		}
	}

	cps, err := s.CheckpointsForMilestone("mar-1", "m1")
	if err != nil {
		t.Fatalf("CheckpointsForMilestone failed: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("Expected 2 checkpoints, got %d", len(cps))
	}
	if cps[0].ID != "cp-2" {
		t.Errorf("Expected newest first, got %s", cps[0].ID)
	}
}

func TestEventLog(t *testing.T) {
	s := newTestStore(t)

	events := []models.MarathonEvent{
		{Type: models.EventStarted, MarathonID: "mar-1", Message: "go", Timestamp: time.Now().UTC().Add(-2 * time.Second)},
		{Type: models.EventMilestoneStarted, MarathonID: "mar-1", Message: "m1", Progress: models.EventProgress{Total: 2}, Timestamp: time.Now().UTC().Add(-time.Second)},
		{Type: models.EventMilestoneCompleted, MarathonID: "mar-1", Message: "m1", Progress: models.EventProgress{Completed: 1, Total: 2}, Data: map[string]string{"milestone": "m1"}, Timestamp: time.Now().UTC()},
	}
	for _, ev := range events {
		if err := s.AppendEvent(ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	got, err := s.RecentEvents("mar-1", 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	if got[0].Type != models.EventStarted {
		t.Errorf("Expected oldest first, got %s", got[0].Type)
	}
	last := got[2]
	if last.Progress.Completed != 1 || last.Progress.Total != 2 {
		t.Errorf("Progress lost in roundtrip: %+v", last.Progress)
	}
	if last.Data["milestone"] != "m1" {
		t.Errorf("Data lost in roundtrip: %v", last.Data)
	}

	got, err = s.RecentEvents("mar-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Type != models.EventMilestoneStarted {
		t.Errorf("Limit should keep the most recent events, got %+v", got)
	}
}
