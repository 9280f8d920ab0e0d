package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Emitter mirrors events to a structured log and, when configured, to an EventStore.
// A nil *Emitter discards everything.
type Emitter struct {
	store  EventStore
	logger *slog.Logger
}

// NewEmitter returns an Emitter. store may be nil; logger defaults to slog.Default().
func NewEmitter(store EventStore, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{store: store, logger: logger}
}

// Emit logs the event and stores it. Store failures are logged, never returned: activity
// records must not fail the operation they describe.
func (e *Emitter) Emit(ctx context.Context, event *Event) {
	if e == nil || event == nil {
		return
	}

	attrs := []any{
		"event_type", event.Type,
		"project_id", event.ProjectID,
		"source", event.Source,
	}
	for _, k := range sortedKeys(event.Data) {
		attrs = append(attrs, k, event.Data[k])
	}
	e.logger.Log(ctx, levelFor(event.Severity), event.Message, attrs...)

	if e.store == nil {
		return
	}
	if err := e.store.StoreEvent(ctx, event); err != nil {
		e.logger.Warn("failed to store event", "event_type", event.Type, "error", err)
	}
}

func levelFor(s EventSeverity) slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MemoryStore is an in-process EventStore.
type MemoryStore struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// StoreEvent appends event.
func (m *MemoryStore) StoreEvent(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// GetEvents returns matching events, newest first.
func (m *MemoryStore) GetEvents(_ context.Context, filter EventFilter) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if !filter.Matches(m.events[i]) {
			continue
		}
		out = append(out, m.events[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Types returns the type of every stored event in emission order.
func (m *MemoryStore) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
