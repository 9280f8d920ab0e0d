// Package ids mints node, edge and project identifiers.
//
// Root and phase identifiers are plain UUIDs. Task identifiers are composites that embed the
// owning phase: task:<phaseID>:<uuid>. Moving a task to another phase therefore requires a new
// identifier; identifiers are never edited in place.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

const (
	taskMarker = "task"
	separator  = ":"

	// legacyTaskPrefix is the form written by earlier exports: task-<phaseID>-<uuid>.
	legacyTaskPrefix = "task-"
	uuidLen          = 36
)

// NewRootID returns an identifier for a project root node.
func NewRootID() string { return uuid.New().String() }

// NewPhaseID returns an identifier for a phase node.
func NewPhaseID() string { return uuid.New().String() }

// NewEdgeID returns an identifier for an edge.
func NewEdgeID() string { return uuid.New().String() }

// NewProjectID returns an identifier for a project.
func NewProjectID() string { return uuid.New().String() }

// NewTaskID returns a composite task identifier owned by phaseID.
func NewTaskID(phaseID string) string {
	return taskMarker + separator + phaseID + separator + uuid.New().String()
}

// OwningPhase returns the phase identifier embedded in taskID. The boolean is false when
// taskID is not a task identifier.
func OwningPhase(taskID string) (string, bool) {
	if rest, ok := strings.CutPrefix(taskID, taskMarker+separator); ok {
		i := strings.LastIndex(rest, separator)
		if i <= 0 || i == len(rest)-1 {
			return "", false
		}
		return rest[:i], true
	}
	return legacyOwningPhase(taskID)
}

// legacyOwningPhase parses task-<phaseID>-<uuid>. The suffix is fixed-width, so phase
// identifiers containing hyphens (UUIDs) still split unambiguously.
func legacyOwningPhase(taskID string) (string, bool) {
	rest, ok := strings.CutPrefix(taskID, legacyTaskPrefix)
	if !ok || len(rest) < uuidLen+2 {
		return "", false
	}
	suffix := rest[len(rest)-uuidLen:]
	if _, err := uuid.Parse(suffix); err != nil {
		return "", false
	}
	if rest[len(rest)-uuidLen-1] != '-' {
		return "", false
	}
	return rest[:len(rest)-uuidLen-1], true
}

// IsTaskID reports whether id has the shape of a task identifier.
func IsTaskID(id string) bool {
	_, ok := OwningPhase(id)
	return ok
}

// BelongsTo reports whether taskID embeds phaseID.
func BelongsTo(taskID, phaseID string) bool {
	owner, ok := OwningPhase(taskID)
	return ok && owner == phaseID
}
