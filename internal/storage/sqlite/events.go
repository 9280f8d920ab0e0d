package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexusmap/nexus/internal/events"
)

// StoreEvent stores a new activity event
func (s *Storage) StoreEvent(ctx context.Context, event *events.Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, ts, project_id, source, severity, message, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		string(event.Type),
		event.Timestamp.UnixNano(),
		event.ProjectID,
		event.Source,
		string(event.Severity),
		event.Message,
		string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store event (type=%s, project=%s): %w", event.Type, event.ProjectID, err)
	}
	return nil
}

// GetEvents retrieves events matching the given filter, most recent first
func (s *Storage) GetEvents(ctx context.Context, filter events.EventFilter) ([]*events.Event, error) {
	query := `
		SELECT id, type, ts, project_id, source, severity, message, data
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(filter.Severity))
	}
	if !filter.AfterTime.IsZero() {
		query += " AND ts > ?"
		args = append(args, filter.AfterTime.UnixNano())
	}

	query += " ORDER BY ts DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// scanEvents is a helper function to scan rows into Event structs
func scanEvents(rows *sql.Rows) ([]*events.Event, error) {
	var result []*events.Event

	for rows.Next() {
		var (
			event     events.Event
			eventType string
			severity  string
			ts        int64
			dataJSON  string
		)
		err := rows.Scan(
			&event.ID,
			&eventType,
			&ts,
			&event.ProjectID,
			&event.Source,
			&severity,
			&event.Message,
			&dataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Type = events.EventType(eventType)
		event.Severity = events.EventSeverity(severity)
		event.Timestamp = time.Unix(0, ts)

		event.Data = make(map[string]interface{})
		if dataJSON != "" && dataJSON != "{}" && dataJSON != "null" {
			if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
			}
		}

		result = append(result, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return result, nil
}
