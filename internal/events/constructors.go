package events

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates an Event with free-form data.
func NewEvent(eventType EventType, projectID, source string, severity EventSeverity, message string, data map[string]interface{}) *Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		ProjectID: projectID,
		Source:    source,
		Severity:  severity,
		Message:   message,
		Data:      data,
	}
}

// NewSaveEvent creates a save event with type-safe data.
func NewSaveEvent(eventType EventType, projectID string, severity EventSeverity, message string, data SaveData) (*Event, error) {
	event := NewEvent(eventType, projectID, "sync", severity, message, nil)
	if err := event.SetSaveData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewReloadEvent creates a reload event with type-safe data.
func NewReloadEvent(eventType EventType, projectID string, severity EventSeverity, message string, data ReloadData) (*Event, error) {
	event := NewEvent(eventType, projectID, "sync", severity, message, nil)
	if err := event.SetReloadData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewMigrationEvent creates a migration event with type-safe data.
func NewMigrationEvent(eventType EventType, projectID string, severity EventSeverity, message string, data MigrationData) (*Event, error) {
	event := NewEvent(eventType, projectID, "migration", severity, message, nil)
	if err := event.SetMigrationData(data); err != nil {
		return nil, err
	}
	return event, nil
}
