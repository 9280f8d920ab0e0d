package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// Placement constants for nodes created by mutations. New nodes are offset from their
// siblings so interactive edits do not rearrange the existing layout.
const (
	PhaseX       = 400.0
	PhaseStartY  = 100.0
	PhaseSpacing = 120.0
	TaskOffsetX  = 250.0
	TaskSpacing  = 60.0

	DefaultPhaseLabel = "New Phase"
	DefaultTaskLabel  = "New Task"
)

// RootPosition is where a bootstrapped root node is placed.
var RootPosition = types.Position{X: 100, Y: 300}

// now is swapped in tests that need stable timestamps.
var now = func() time.Time { return time.Now().UTC() }

// TaskUpdate carries the task fields to change. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *types.TaskStatus
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}

// PhaseUpdate carries the phase fields to change. Nil fields are left unchanged.
type PhaseUpdate struct {
	Title       *string
	Description *string
}

// IsEmpty reports whether the update changes nothing.
func (u PhaseUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil
}

// NewRoot returns a root node labeled with the project name.
func NewRoot(label string) types.Node {
	return types.Node{
		ID:       ids.NewRootID(),
		Kind:     types.KindRoot,
		Position: RootPosition,
		Data:     types.NodeData{Label: label},
	}
}

func newEdge(source, target string) types.Edge {
	return types.Edge{
		ID:     ids.NewEdgeID(),
		Source: source,
		Target: target,
		Style:  types.DefaultEdgeStyle,
	}
}

// tasksOf returns the task nodes owned by phaseID in collection order.
func tasksOf(g types.Graph, phaseID string) []types.Node {
	var out []types.Node
	for _, n := range g.Nodes {
		if n.Kind == types.KindTask && ids.BelongsTo(n.ID, phaseID) {
			out = append(out, n)
		}
	}
	return out
}

func phaseNode(g types.Graph, id string) (int, bool) {
	i := g.NodeIndex(id)
	if i < 0 || g.Nodes[i].Kind != types.KindPhase {
		return -1, false
	}
	return i, true
}

func taskNode(g types.Graph, id string) (int, bool) {
	i := g.NodeIndex(id)
	if i < 0 || g.Nodes[i].Kind != types.KindTask {
		return -1, false
	}
	return i, true
}

// AddPhase appends a phase below the existing phases and connects it to the root.
func AddPhase(g types.Graph, label string) (types.Graph, types.Node, error) {
	root, ok := g.Root()
	if !ok {
		return g, types.Node{}, ErrMissingRoot
	}
	if strings.TrimSpace(label) == "" {
		label = DefaultPhaseLabel
	}

	ts := now()
	phase := types.Node{
		ID:   ids.NewPhaseID(),
		Kind: types.KindPhase,
		Position: types.Position{
			X: PhaseX,
			Y: PhaseStartY + float64(len(g.Phases()))*PhaseSpacing,
		},
		Data: types.NodeData{
			Label:     label,
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}

	out := g.Clone()
	out.Nodes = append(out.Nodes, phase)
	out.Edges = append(out.Edges, newEdge(root.ID, phase.ID))
	return out, phase, nil
}

// taskPosition places the next task of a phase to the right of it, below its siblings.
func taskPosition(g types.Graph, phase types.Node) types.Position {
	return types.Position{
		X: phase.Position.X + TaskOffsetX,
		Y: phase.Position.Y + float64(len(tasksOf(g, phase.ID)))*TaskSpacing,
	}
}

// AddTask creates a task under phaseID together with its edge and detail record.
func AddTask(g types.Graph, phaseID, label string) (types.Graph, types.Node, error) {
	pi, ok := phaseNode(g, phaseID)
	if !ok {
		return g, types.Node{}, fmt.Errorf("%w: %s", ErrUnknownPhase, phaseID)
	}
	if strings.TrimSpace(label) == "" {
		label = DefaultTaskLabel
	}

	ts := now()
	task := types.Node{
		ID:       ids.NewTaskID(phaseID),
		Kind:     types.KindTask,
		Position: taskPosition(g, g.Nodes[pi]),
		Data: types.NodeData{
			Label:     label,
			Status:    types.StatusNotStarted,
			PhaseID:   phaseID,
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}

	out := g.Clone()
	out.Nodes = append(out.Nodes, task)
	out.Edges = append(out.Edges, newEdge(phaseID, task.ID))
	out.Details[task.ID] = types.DetailFor(task)
	return out, task, nil
}

// UpdateTask merges u into the task node and its detail record.
func UpdateTask(g types.Graph, taskID string, u TaskUpdate) (types.Graph, error) {
	ti, ok := taskNode(g, taskID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if u.Status != nil && !u.Status.IsValid() {
		return g, fmt.Errorf("invalid task status: %q", *u.Status)
	}
	if u.IsEmpty() {
		return g, nil
	}

	out := g.Clone()
	data := &out.Nodes[ti].Data
	if u.Title != nil {
		data.Label = *u.Title
	}
	if u.Description != nil {
		data.Description = *u.Description
	}
	if u.Status != nil {
		data.Status = *u.Status
	}
	data.UpdatedAt = now()

	// The detail record always mirrors the node after an update, which also repairs a
	// record that had gone missing.
	out.Details[taskID] = types.DetailFor(out.Nodes[ti])
	return out, nil
}

// UpdatePhase merges u into the phase node payload.
func UpdatePhase(g types.Graph, phaseID string, u PhaseUpdate) (types.Graph, error) {
	pi, ok := phaseNode(g, phaseID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrUnknownPhase, phaseID)
	}
	if u.IsEmpty() {
		return g, nil
	}

	out := g.Clone()
	data := &out.Nodes[pi].Data
	if u.Title != nil {
		data.Label = *u.Title
	}
	if u.Description != nil {
		data.Description = *u.Description
	}
	data.UpdatedAt = now()
	return out, nil
}

// MoveTask reassigns a task to targetPhaseID. The task gets a new identifier embedding the
// target phase; its node, edges and detail record are migrated to the new identifier in the
// same step so nothing is left referencing the old one.
func MoveTask(g types.Graph, taskID, targetPhaseID string) (types.Graph, string, error) {
	ti, ok := taskNode(g, taskID)
	if !ok {
		return g, "", fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	target, ok := phaseNode(g, targetPhaseID)
	if !ok {
		return g, "", fmt.Errorf("%w: %s", ErrUnknownTargetPhase, targetPhaseID)
	}
	if owner, _ := ids.OwningPhase(taskID); owner == targetPhaseID {
		return g, "", fmt.Errorf("%w: %s already in %s", ErrSamePhase, taskID, targetPhaseID)
	}

	newID := ids.NewTaskID(targetPhaseID)
	moved := g.Nodes[ti]
	moved.ID = newID
	moved.Position = taskPosition(g, g.Nodes[target])
	moved.Data.PhaseID = targetPhaseID
	moved.Data.UpdatedAt = now()

	out := g.Clone()
	out.Nodes = append(out.Nodes[:ti:ti], out.Nodes[ti+1:]...)
	out.Nodes = append(out.Nodes, moved)

	rewired := false
	for i := range out.Edges {
		e := &out.Edges[i]
		if e.Source == taskID {
			e.Source = newID
		}
		if e.Target == taskID {
			e.Target = newID
			e.Source = targetPhaseID
			rewired = true
		}
	}
	if !rewired {
		out.Edges = append(out.Edges, newEdge(targetPhaseID, newID))
	}

	detail, ok := out.Details[taskID]
	if !ok {
		detail = types.DetailFor(moved)
	}
	delete(out.Details, taskID)
	detail.NodeID = newID
	out.Details[newID] = detail

	return out, newID, nil
}

// removeNodes drops every node in doomed, every edge touching one of them and their
// detail records.
func removeNodes(g types.Graph, doomed map[string]bool) types.Graph {
	out := types.Graph{
		Nodes:   make([]types.Node, 0, len(g.Nodes)),
		Edges:   make([]types.Edge, 0, len(g.Edges)),
		Details: make(map[string]types.TaskDetail, len(g.Details)),
	}
	for _, n := range g.Nodes {
		if !doomed[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if !doomed[e.Source] && !doomed[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	for id, d := range g.Details {
		if !doomed[id] {
			out.Details[id] = d
		}
	}
	return out
}

// DeletePhase removes a phase, every task it owns, their edges and detail records.
// Unknown ids are a no-op.
func DeletePhase(g types.Graph, phaseID string) types.Graph {
	if _, ok := phaseNode(g, phaseID); !ok {
		return g
	}

	doomed := map[string]bool{phaseID: true}
	for _, n := range g.Nodes {
		if n.Kind == types.KindTask && ids.BelongsTo(n.ID, phaseID) {
			doomed[n.ID] = true
		}
	}
	// Tasks hanging off the phase by edge are removed too, so a task whose id and edge
	// disagree cannot survive as an orphan.
	for _, child := range g.Children(phaseID) {
		if _, ok := taskNode(g, child); ok {
			doomed[child] = true
		}
	}
	for id := range g.Details {
		if ids.BelongsTo(id, phaseID) {
			doomed[id] = true
		}
	}
	return removeNodes(g, doomed)
}

// DeleteTask removes a task, its edges and its detail record. Unknown ids are a no-op.
func DeleteTask(g types.Graph, taskID string) types.Graph {
	if _, ok := taskNode(g, taskID); !ok {
		return g
	}
	return removeNodes(g, map[string]bool{taskID: true})
}

// SetPosition moves a node, typically after a drag.
func SetPosition(g types.Graph, id string, pos types.Position) (types.Graph, error) {
	i := g.NodeIndex(id)
	if i < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	out := g.Clone()
	out.Nodes[i].Position = pos
	return out, nil
}

// ApplyPositions sets the position of every node present in positions.
func ApplyPositions(g types.Graph, positions map[string]types.Position) types.Graph {
	out := g.Clone()
	for i := range out.Nodes {
		if p, ok := positions[out.Nodes[i].ID]; ok {
			out.Nodes[i].Position = p
		}
	}
	return out
}

// SetExpanded toggles the expanded flag of a phase.
func SetExpanded(g types.Graph, phaseID string, expanded bool) (types.Graph, error) {
	pi, ok := phaseNode(g, phaseID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrUnknownPhase, phaseID)
	}
	out := g.Clone()
	out.Nodes[pi].Data.Expanded = expanded
	return out, nil
}

// RenameRoot sets the root label, which follows the project name.
func RenameRoot(g types.Graph, label string) (types.Graph, error) {
	root, ok := g.Root()
	if !ok {
		return g, ErrMissingRoot
	}
	out := g.Clone()
	out.Nodes[out.NodeIndex(root.ID)].Data.Label = label
	return out, nil
}
