package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"marathon/internal/models"
)

// AppendEvent records a marathon event in the append-only event log.
func (s *Store) AppendEvent(ev models.MarathonEvent) error {
	var dataJSON string
	if len(ev.Data) > 0 {
		blob, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		dataJSON = string(blob)
	}

	_, err := s.db.Exec(
		`INSERT INTO events (id, marathon_id, type, message, completed, total, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.MarathonID, ev.Type, ev.Message,
		ev.Progress.Completed, ev.Progress.Total, dataJSON, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent events for a marathon, oldest
// first, capped at limit.
func (s *Store) RecentEvents(marathonID string, limit int) ([]models.MarathonEvent, error) {
	rows, err := s.db.Query(
		`SELECT type, marathon_id, message, completed, total, data, created_at FROM
		 (SELECT * FROM events WHERE marathon_id = ? ORDER BY created_at DESC LIMIT ?)
		 ORDER BY created_at ASC`,
		marathonID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.MarathonEvent
	for rows.Next() {
		var ev models.MarathonEvent
		var dataJSON sql.NullString
		if err := rows.Scan(&ev.Type, &ev.MarathonID, &ev.Message, &ev.Progress.Completed, &ev.Progress.Total, &dataJSON, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if dataJSON.Valid && dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &ev.Data); err != nil {
				return nil, fmt.Errorf("unmarshal event data: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
