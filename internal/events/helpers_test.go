package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDataRoundTrip(t *testing.T) {
	event, err := NewSaveEvent(EventTypeSaveCompleted, "p1", SeverityInfo, "saved", SaveData{
		Nodes:      5,
		Edges:      4,
		Details:    3,
		DurationMs: 12,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "sync", event.Source)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, float64(5), event.Data["nodes"])
	_, hasError := event.Data["error"]
	assert.False(t, hasError, "empty error must be omitted")

	data, err := event.GetSaveData()
	require.NoError(t, err)
	assert.Equal(t, 4, data.Edges)
	assert.Equal(t, int64(12), data.DurationMs)
}

func TestMigrationData(t *testing.T) {
	event, err := NewMigrationEvent(EventTypeMigrationStageCompleted, "p1", SeverityInfo, "nodes copied", MigrationData{
		GuestProjectID:  "guest",
		RemoteProjectID: "p1",
		Stage:           "nodes",
		Rows:            7,
	})
	require.NoError(t, err)
	assert.Equal(t, "migration", event.Source)

	data, err := event.GetMigrationData()
	require.NoError(t, err)
	assert.Equal(t, "nodes", data.Stage)
	assert.Equal(t, 7, data.Rows)
}

func TestNewEventInitializesData(t *testing.T) {
	event := NewEvent(EventTypePlanApplied, "p1", "planner", SeverityInfo, "plan applied", nil)
	assert.NotNil(t, event.Data)

	other := NewEvent(EventTypePlanApplied, "p1", "planner", SeverityInfo, "plan applied", nil)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestEmitterLogsAndStores(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := NewMemoryStore()
	emitter := NewEmitter(store, logger)

	event, err := NewReloadEvent(EventTypeReloadFailed, "p1", SeverityError, "reload failed", ReloadData{Reason: "remote", Error: "boom"})
	require.NoError(t, err)
	emitter.Emit(context.Background(), event)

	assert.Equal(t, []EventType{EventTypeReloadFailed}, store.Types())
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "reason=remote")
	assert.Contains(t, out, "project_id=p1")
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), NewEvent(EventTypeSaveCompleted, "p1", "sync", SeverityInfo, "saved", nil))
	})
}

func TestMemoryStoreGetEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, typ := range []EventType{EventTypeSaveCompleted, EventTypeSaveFailed, EventTypeSaveCompleted} {
		require.NoError(t, store.StoreEvent(ctx, NewEvent(typ, "p1", "sync", SeverityInfo, "", nil)))
	}
	require.NoError(t, store.StoreEvent(ctx, NewEvent(EventTypeSaveCompleted, "p2", "sync", SeverityInfo, "", nil)))

	got, err := store.GetEvents(ctx, EventFilter{ProjectID: "p1", Type: EventTypeSaveCompleted})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetEvents(ctx, EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ProjectID)
}
