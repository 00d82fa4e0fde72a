// Package checkpoint captures restartable snapshots of reasoning context
// and file state so execution can roll back or resume.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"marathon/internal/models"
	"marathon/internal/snapshot"
	"marathon/internal/store"
)

// Store creates and restores checkpoints, indexing them in SQLite and
// delegating file content to the snapshot store.
type Store struct {
	db    *store.Store
	snaps *snapshot.Store
}

// New creates a checkpoint store.
func New(db *store.Store, snaps *snapshot.Store) *Store {
	return &Store{db: db, snaps: snaps}
}

// Create snapshots the given paths and stores a restorable checkpoint
// for the milestone.
func (c *Store) Create(marathonID, milestoneID, thoughtSignature string, paths []string) (*models.Checkpoint, error) {
	files, err := c.snaps.Snapshot(paths)
	if err != nil {
		return nil, fmt.Errorf("snapshot files: %w", err)
	}

	cp := &models.Checkpoint{
		ID:               uuid.New().String(),
		MarathonID:       marathonID,
		MilestoneID:      milestoneID,
		CreatedAt:        time.Now().UTC(),
		ThoughtSignature: thoughtSignature,
		FilesSnapshot:    files,
		CanRestore:       true,
	}

	if err := c.db.SaveCheckpoint(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Restore reverts tracked files to the checkpoint's snapshotted content.
// Returns false if the checkpoint is not restorable or its snapshot no
// longer exists.
func (c *Store) Restore(cp *models.Checkpoint) (bool, error) {
	if cp == nil || !cp.CanRestore {
		return false, nil
	}
	return c.snaps.Restore(cp.FilesSnapshot)
}

// Latest returns the most recent checkpoint for a milestone, or nil.
func (c *Store) Latest(marathonID, milestoneID string) (*models.Checkpoint, error) {
	cps, err := c.db.CheckpointsForMilestone(marathonID, milestoneID)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, nil
	}
	return &cps[0], nil
}

// ForMilestone returns all checkpoints for a milestone, newest first.
func (c *Store) ForMilestone(marathonID, milestoneID string) ([]models.Checkpoint, error) {
	return c.db.CheckpointsForMilestone(marathonID, milestoneID)
}
