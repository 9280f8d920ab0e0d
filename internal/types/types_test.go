package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{"not-started", StatusNotStarted, false},
		{"todo", StatusNotStarted, false},
		{"To Do", StatusNotStarted, false},
		{"in-progress", StatusInProgress, false},
		{"In Progress", StatusInProgress, false},
		{"in_progress", StatusInProgress, false},
		{"Blocked", StatusBlocked, false},
		{"Done", StatusDone, false},
		{"done", StatusDone, false},
		{"finished-ish", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestGraphCloneIsDeep(t *testing.T) {
	g := NewGraph()
	g.Nodes = append(g.Nodes, Node{ID: "r", Kind: KindRoot, Data: NodeData{Label: "P"}})
	g.Edges = append(g.Edges, Edge{ID: "e", Source: "r", Target: "p"})
	g.Details["t"] = TaskDetail{NodeID: "t", Title: "T"}

	c := g.Clone()
	c.Nodes[0].Data.Label = "changed"
	c.Edges[0].Target = "x"
	c.Details["t"] = TaskDetail{NodeID: "t", Title: "changed"}
	delete(c.Details, "t")

	assert.Equal(t, "P", g.Nodes[0].Data.Label)
	assert.Equal(t, "p", g.Edges[0].Target)
	assert.Equal(t, "T", g.Details["t"].Title)
}

func TestGraphLookups(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "r", Kind: KindRoot},
			{ID: "p1", Kind: KindPhase},
			{ID: "p2", Kind: KindPhase},
			{ID: "t1", Kind: KindTask},
		},
		Edges: []Edge{
			{ID: "e1", Source: "r", Target: "p1"},
			{ID: "e2", Source: "r", Target: "p2"},
			{ID: "e3", Source: "p1", Target: "t1"},
		},
	}

	root, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, "r", root.ID)
	assert.Len(t, g.Phases(), 2)
	assert.Len(t, g.Tasks(), 1)
	assert.Equal(t, []string{"p1", "p2"}, g.Children("r"))
	assert.Equal(t, []string{"p1"}, g.Parents("t1"))
	assert.Equal(t, -1, g.NodeIndex("missing"))
}

func TestProjectRecount(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []TaskStatus
		phases    int
		want      ProjectStatus
		completed int
	}{
		{"no tasks is planning", nil, 2, ProjectPlanning, 0},
		{"open tasks is in progress", []TaskStatus{StatusNotStarted, StatusBlocked}, 1, ProjectInProgress, 0},
		{"some done is in progress", []TaskStatus{StatusDone, StatusInProgress}, 1, ProjectInProgress, 1},
		{"all done is completed", []TaskStatus{StatusDone, StatusDone}, 1, ProjectCompleted, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Graph{Nodes: []Node{{ID: "r", Kind: KindRoot}}}
			for i := 0; i < tt.phases; i++ {
				g.Nodes = append(g.Nodes, Node{ID: "p", Kind: KindPhase})
			}
			for _, s := range tt.statuses {
				g.Nodes = append(g.Nodes, Node{ID: "t", Kind: KindTask, Data: NodeData{Status: s}})
			}

			p := NewProject("id", "P", "", "")
			p.Recount(g)
			assert.Equal(t, tt.want, p.Status)
			assert.Equal(t, tt.phases, p.PhaseCount)
			assert.Equal(t, len(tt.statuses), p.TaskCount)
			assert.Equal(t, tt.completed, p.CompletedTasks)
		})
	}
}

func TestProjectUpdateApply(t *testing.T) {
	p := NewProject("id", "Old", "desc", "")
	assert.Equal(t, DefaultColor, p.Color)

	name := "New"
	ProjectUpdate{Name: &name}.Apply(p)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, "desc", p.Description)
}

func TestProjectValidate(t *testing.T) {
	p := NewProject("id", "", "", "")
	assert.Error(t, p.Validate())
	p.Name = "ok"
	assert.NoError(t, p.Validate())
}
