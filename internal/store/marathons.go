package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"marathon/internal/models"
)

// SaveMarathon upserts the full marathon state. Called on every
// externally visible transition; this row is the durability boundary
// for pause/resume across process restarts.
func (s *Store) SaveMarathon(state *models.MarathonState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal marathon state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO marathons (id, status, goal, state, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, state = excluded.state, updated_at = excluded.updated_at`,
		state.ID, state.Status, state.Plan.Goal, string(blob), state.StartedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save marathon: %w", err)
	}
	return nil
}

// LoadMarathon retrieves a marathon state by id. Returns nil if the id
// is unknown.
func (s *Store) LoadMarathon(id string) (*models.MarathonState, error) {
	var blob string
	err := s.db.QueryRow(`SELECT state FROM marathons WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query marathon: %w", err)
	}

	var state models.MarathonState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("unmarshal marathon state: %w", err)
	}
	return &state, nil
}

// ListMarathons returns all known marathon states, newest first.
func (s *Store) ListMarathons() ([]models.MarathonState, error) {
	rows, err := s.db.Query(`SELECT state FROM marathons ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query marathons: %w", err)
	}
	defer rows.Close()

	var states []models.MarathonState
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan marathon: %w", err)
		}
		var state models.MarathonState
		if err := json.Unmarshal([]byte(blob), &state); err != nil {
			return nil, fmt.Errorf("unmarshal marathon state: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}
