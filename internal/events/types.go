package events

import (
	"context"
	"time"
)

// EventType represents the type of event emitted by the sync and migration layers.
type EventType string

const (
	// EventTypeProjectCreated indicates a project record was created
	EventTypeProjectCreated EventType = "project_created"
	// EventTypeProjectDeleted indicates a project and all its graph rows were removed
	EventTypeProjectDeleted EventType = "project_deleted"

	// Sync controller events
	// EventTypeSaveCompleted indicates the graph snapshot was persisted
	EventTypeSaveCompleted EventType = "save_completed"
	// EventTypeSaveFailed indicates persisting the graph snapshot failed; the store keeps the edits
	EventTypeSaveFailed EventType = "save_failed"
	// EventTypeReloadCompleted indicates the store was replaced with the persisted graph
	EventTypeReloadCompleted EventType = "reload_completed"
	// EventTypeReloadFailed indicates loading the persisted graph failed
	EventTypeReloadFailed EventType = "reload_failed"
	// EventTypeEchoSuppressed indicates a change notification was attributed to our own save
	EventTypeEchoSuppressed EventType = "echo_suppressed"
	// EventTypeBootstrapped indicates an empty project received its root node
	EventTypeBootstrapped EventType = "bootstrapped"
	// EventTypeRootRenamed indicates the root label was re-synced to the project name
	EventTypeRootRenamed EventType = "root_renamed"

	// Migration events
	// EventTypeMigrationStarted indicates a guest project migration started
	EventTypeMigrationStarted EventType = "migration_started"
	// EventTypeMigrationStageCompleted indicates one migration stage finished
	EventTypeMigrationStageCompleted EventType = "migration_stage_completed"
	// EventTypeMigrationFailed indicates a migration stage failed and local data was kept
	EventTypeMigrationFailed EventType = "migration_failed"
	// EventTypeMigrationCompleted indicates all stages succeeded
	EventTypeMigrationCompleted EventType = "migration_completed"

	// Document events
	// EventTypeImportCompleted indicates an exported document was installed
	EventTypeImportCompleted EventType = "import_completed"
	// EventTypeImportRejected indicates an import failed validation
	EventTypeImportRejected EventType = "import_rejected"
	// EventTypePlanApplied indicates a generated plan was added to a project
	EventTypePlanApplied EventType = "plan_applied"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error events
	SeverityError EventSeverity = "error"
)

// Event is a single activity record for a project.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// ProjectID is the project the event concerns
	ProjectID string `json:"project_id"`
	// Source names the component that emitted the event (sync, migration, exchange, planner)
	Source string `json:"source"`
	// Severity is info, warning or error
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data"`
}

// SaveData contains structured data for save events.
type SaveData struct {
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Details    int    `json:"details"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ReloadData contains structured data for reload and echo events.
type ReloadData struct {
	// Reason is one of "initial", "remote", "force"
	Reason string `json:"reason"`
	Nodes  int    `json:"nodes"`
	Error  string `json:"error,omitempty"`
}

// MigrationData contains structured data for migration events.
type MigrationData struct {
	GuestProjectID  string `json:"guest_project_id"`
	RemoteProjectID string `json:"remote_project_id,omitempty"`
	Stage           string `json:"stage,omitempty"`
	// Rows is the number of rows written by the stage
	Rows  int    `json:"rows,omitempty"`
	Error string `json:"error,omitempty"`
}

// EventStore defines the interface for storing and retrieving events.
type EventStore interface {
	// StoreEvent stores a new event in the event store
	StoreEvent(ctx context.Context, event *Event) error

	// GetEvents retrieves events matching the given filter, newest first
	GetEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
}

// EventFilter defines criteria for filtering events.
type EventFilter struct {
	ProjectID string
	Type      EventType
	Severity  EventSeverity
	// AfterTime filters events that occurred after this time
	AfterTime time.Time
	// Limit limits the number of events returned
	Limit int
}

// Matches reports whether e passes every criterion set on f. Limit is ignored.
func (f EventFilter) Matches(e *Event) bool {
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if !f.AfterTime.IsZero() && !e.Timestamp.After(f.AfterTime) {
		return false
	}
	return true
}
