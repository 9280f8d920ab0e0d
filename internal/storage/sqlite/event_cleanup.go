package sqlite

import (
	"context"
	"fmt"
	"time"
)

// EventCounts holds event count statistics
type EventCounts struct {
	TotalEvents     int
	EventsByProject map[string]int
	EventsByType    map[string]int
}

// CleanupEventsByAge deletes events older than retentionDays. Deletions are batched
// (batchSize events per statement).
func (s *Storage) CleanupEventsByAge(ctx context.Context, retentionDays, batchSize int) (int, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention days cannot be negative")
	}
	if batchSize < 1 {
		return 0, fmt.Errorf("batch size must be at least 1")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixNano()
	totalDeleted := 0
	for {
		select {
		case <-ctx.Done():
			return totalDeleted, ctx.Err()
		default:
		}

		result, err := s.db.ExecContext(ctx, `
			DELETE FROM events
			WHERE id IN (
				SELECT id FROM events
				WHERE ts < ?
				ORDER BY ts ASC
				LIMIT ?
			)
		`, cutoff, batchSize)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to delete old events: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		totalDeleted += int(rowsAffected)

		if rowsAffected < int64(batchSize) {
			return totalDeleted, nil
		}
	}
}

// CleanupEventsByProjectLimit keeps at most perProjectLimit events per project, deleting
// the oldest first. A limit of 0 means unlimited.
func (s *Storage) CleanupEventsByProjectLimit(ctx context.Context, perProjectLimit int) (int, error) {
	if perProjectLimit < 0 {
		return 0, fmt.Errorf("per-project limit cannot be negative")
	}
	if perProjectLimit == 0 {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, COUNT(*) AS event_count
		FROM events
		GROUP BY project_id
		HAVING event_count > ?
	`, perProjectLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to query project event counts: %w", err)
	}

	type overflow struct {
		projectID string
		excess    int
	}
	var over []overflow
	for rows.Next() {
		var projectID string
		var count int
		if err := rows.Scan(&projectID, &count); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan project count: %w", err)
		}
		over = append(over, overflow{projectID, count - perProjectLimit})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("error iterating project counts: %w", err)
	}
	_ = rows.Close()

	totalDeleted := 0
	for _, o := range over {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM events
			WHERE id IN (
				SELECT id FROM events
				WHERE project_id = ?
				ORDER BY ts ASC, rowid ASC
				LIMIT ?
			)
		`, o.projectID, o.excess)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to trim events of project %s: %w", o.projectID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		totalDeleted += int(n)
	}
	return totalDeleted, nil
}

// GetEventCounts returns event counts for monitoring
func (s *Storage) GetEventCounts(ctx context.Context) (*EventCounts, error) {
	counts := &EventCounts{
		EventsByProject: make(map[string]int),
		EventsByType:    make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&counts.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	group := func(column string, dest map[string]int) error {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("SELECT %s, COUNT(*) FROM events GROUP BY %s", column, column))
		if err != nil {
			return fmt.Errorf("failed to group events by %s: %w", column, err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				return fmt.Errorf("failed to scan %s count: %w", column, err)
			}
			dest[key] = n
		}
		return rows.Err()
	}

	if err := group("project_id", counts.EventsByProject); err != nil {
		return nil, err
	}
	if err := group("type", counts.EventsByType); err != nil {
		return nil, err
	}
	return counts, nil
}
