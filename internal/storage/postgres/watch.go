package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nexusmap/nexus/internal/types"
)

// parsePayload splits a change payload into project id and table.
func parsePayload(payload string) (projectID, table string) {
	i := strings.LastIndex(payload, ":")
	if i < 0 {
		return payload, ""
	}
	return payload[:i], payload[i+1:]
}

// Watch subscribes to changes of one project. It holds a dedicated pooled connection
// listening on ChangeChannel until ctx is cancelled, then closes the returned channel.
// Notifications are coalesced: while one is waiting to be received, newer ones are dropped.
func (s *Storage) Watch(ctx context.Context, projectID string) (<-chan types.Change, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err)
	}

	ch := make(chan types.Change, 1)
	go func() {
		defer close(ch)
		defer func() {
			if !conn.Conn().IsClosed() {
				unlistenCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+ChangeChannel)
				cancel()
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("change feed stopped", "project_id", projectID, "error", err)
				}
				return
			}
			pid, table := parsePayload(n.Payload)
			if pid != projectID {
				continue
			}
			select {
			case ch <- types.Change{ProjectID: pid, Table: table, ReceivedAt: time.Now()}:
			default:
			}
		}
	}()
	return ch, nil
}
