package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
)

func newRootedStore(t *testing.T) *graph.Store {
	t.Helper()
	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Launch"))
	return graph.NewStore(g)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *Plan
		wantErr bool
	}{
		{"nil", nil, true},
		{"no phases", &Plan{}, true},
		{"unnamed phase", &Plan{Phases: []PlannedPhase{{Name: " "}}}, true},
		{"blank task", &Plan{Phases: []PlannedPhase{{Name: "A", Tasks: []string{""}}}}, true},
		{"phase without tasks", &Plan{Phases: []PlannedPhase{{Name: "A"}}}, false},
		{"valid", &Plan{Phases: []PlannedPhase{{Name: "A", Tasks: []string{"x", "y"}}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyAddsPhasesAndTasksInOneCommit(t *testing.T) {
	store := newRootedStore(t)
	commits := 0
	unsubscribe := store.Subscribe(func(graph.Change) { commits++ })
	defer unsubscribe()

	plan := &Plan{Phases: []PlannedPhase{
		{Name: "Research", Tasks: []string{"Interview users", "Survey market"}},
		{Name: "Build", Tasks: []string{"Prototype"}},
	}}
	res, err := Apply(store, plan, ApplyOptions{})
	require.NoError(t, err)
	assert.Len(t, res.PhaseIDs, 2)
	assert.Equal(t, 3, res.Tasks)
	assert.Equal(t, 1, commits)

	g := store.Snapshot()
	require.NoError(t, graph.Validate(g))
	phases := g.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "Research", phases[0].Data.Label)
	assert.Len(t, g.Children(phases[0].ID), 2)
	assert.Len(t, g.Details, 3)
	for _, d := range g.Details {
		assert.Equal(t, types.StatusNotStarted, d.Status)
	}
}

func TestApplyReplaceKeepsRoot(t *testing.T) {
	store := newRootedStore(t)
	old, err := store.AddPhase("Old")
	require.NoError(t, err)
	_, err = store.AddTask(old.ID, "Old task")
	require.NoError(t, err)
	root, _ := store.Snapshot().Root()

	res, err := Apply(store, &Plan{Phases: []PlannedPhase{{Name: "New", Tasks: []string{"Fresh"}}}}, ApplyOptions{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	g := store.Snapshot()
	newRoot, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, root.ID, newRoot.ID)
	require.Len(t, g.Phases(), 1)
	assert.Equal(t, "New", g.Phases()[0].Data.Label)
	assert.Len(t, g.Tasks(), 1)
	assert.NoError(t, graph.Validate(g))
}

func TestApplyWithoutRootCommitsNothing(t *testing.T) {
	store := graph.NewStore(types.NewGraph())
	_, err := Apply(store, &Plan{Phases: []PlannedPhase{{Name: "A"}}}, ApplyOptions{})
	require.ErrorIs(t, err, graph.ErrMissingRoot)
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestPromptMentionsDescription(t *testing.T) {
	p := Prompt("  a bakery website ")
	assert.Contains(t, p, `"a bakery website"`)
	assert.Contains(t, p, `"phases"`)
}
