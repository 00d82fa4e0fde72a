package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"marathon/internal/models"
)

// SaveCheckpoint inserts a checkpoint record.
func (s *Store) SaveCheckpoint(cp *models.Checkpoint) error {
	snapshotJSON, err := json.Marshal(cp.FilesSnapshot)
	if err != nil {
		return fmt.Errorf("marshal files snapshot: %w", err)
	}

	canRestore := 0
	if cp.CanRestore {
		canRestore = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO checkpoints (id, marathon_id, milestone_id, thought_signature, files_snapshot, can_restore, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.MarathonID, cp.MilestoneID, cp.ThoughtSignature, string(snapshotJSON), canRestore, cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint retrieves a checkpoint by id. Returns nil if not found.
func (s *Store) GetCheckpoint(id string) (*models.Checkpoint, error) {
	row := s.db.QueryRow(
		`SELECT id, marathon_id, milestone_id, thought_signature, files_snapshot, can_restore, created_at
		 FROM checkpoints WHERE id = ?`, id)
	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

// CheckpointsForMilestone returns all checkpoints for one milestone,
// newest first, so callers can roll back to the last good state.
func (s *Store) CheckpointsForMilestone(marathonID, milestoneID string) ([]models.Checkpoint, error) {
	rows, err := s.db.Query(
		`SELECT id, marathon_id, milestone_id, thought_signature, files_snapshot, can_restore, created_at
		 FROM checkpoints WHERE marathon_id = ? AND milestone_id = ? ORDER BY created_at DESC`,
		marathonID, milestoneID,
	)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		cps = append(cps, *cp)
	}
	return cps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckpoint(row rowScanner) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var snapshotJSON sql.NullString
	var signature sql.NullString
	var canRestore int

	err := row.Scan(&cp.ID, &cp.MarathonID, &cp.MilestoneID, &signature, &snapshotJSON, &canRestore, &cp.CreatedAt)
	if err != nil {
		return nil, err
	}

	cp.CanRestore = canRestore != 0
	if signature.Valid {
		cp.ThoughtSignature = signature.String
	}
	if snapshotJSON.Valid && snapshotJSON.String != "" {
		if err := json.Unmarshal([]byte(snapshotJSON.String), &cp.FilesSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal files snapshot: %w", err)
		}
	}
	return &cp, nil
}
