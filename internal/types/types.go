package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrProjectNotFound is returned by backends when a project id does not resolve.
var ErrProjectNotFound = errors.New("project not found")

// NodeKind identifies the variant of a node. The values match the node type names used
// in exported documents.
type NodeKind string

const (
	KindRoot  NodeKind = "rootNode"
	KindPhase NodeKind = "phaseNode"
	KindTask  NodeKind = "taskNode"
)

// IsValid checks if the kind value is valid
func (k NodeKind) IsValid() bool {
	switch k {
	case KindRoot, KindPhase, KindTask:
		return true
	}
	return false
}

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not-started"
	StatusInProgress TaskStatus = "in-progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in board order.
var TaskStatuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusBlocked, StatusDone}

// IsValid checks if the status value is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// ParseTaskStatus normalises a status string. Besides the canonical values it accepts the
// spellings found in older documents ("todo", "To Do", "In Progress", "Done", ...).
func ParseTaskStatus(s string) (TaskStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)
	switch normalized {
	case "not-started", "todo", "to-do", "":
		return StatusNotStarted, nil
	case "in-progress", "doing":
		return StatusInProgress, nil
	case "blocked":
		return StatusBlocked, nil
	case "done", "complete", "completed":
		return StatusDone, nil
	}
	return "", fmt.Errorf("invalid task status: %q", s)
}

// Position is the top-left corner of a node in graph coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the variant-specific payload of a node. Fields that do not apply to a
// node's kind are left zero and omitted from JSON.
type NodeData struct {
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Expanded    bool       `json:"isExpanded,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	PhaseID     string     `json:"phaseId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`
}

// Node is a graph vertex: the project root, a phase, or a task.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// EdgeStyle is presentation metadata carried by an edge. It has no bearing on graph logic.
type EdgeStyle struct {
	Type        string  `json:"type,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Marker      string  `json:"marker,omitempty"`
}

// DefaultEdgeStyle is applied to edges created by mutations.
var DefaultEdgeStyle = EdgeStyle{
	Type:        "simplebezier",
	Stroke:      "#64748b",
	StrokeWidth: 2.5,
	Marker:      "arrowclosed",
}

// Edge is a directed arc from Source to Target. Edges are the source of truth for the
// parent/child structure.
type Edge struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Target string    `json:"target"`
	Style  EdgeStyle `json:"style,omitzero"`
}

// Touches reports whether the edge has id as either endpoint.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// TaskDetail duplicates a task node's title, description and status for consumers that
// read tasks without walking the node list (the status board).
type TaskDetail struct {
	NodeID      string     `json:"nodeId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// DetailFor builds the detail record mirroring a task node.
func DetailFor(n Node) TaskDetail {
	return TaskDetail{
		NodeID:      n.ID,
		Title:       n.Data.Label,
		Description: n.Data.Description,
		Status:      n.Data.Status,
	}
}

// Change is a single out-of-band change notification from a remote backend.
type Change struct {
	ProjectID  string    `json:"project_id"`
	Table      string    `json:"table,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
