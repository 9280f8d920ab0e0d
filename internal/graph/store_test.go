package graph

import (
	"sync"
	"testing"

	"github.com/nexusmap/nexus/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreApplyCommitsAndNotifies(t *testing.T) {
	s := NewStore(newGraph("P"))

	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) { changes = append(changes, c) })

	phase, err := s.AddPhase("Design")
	require.NoError(t, err)
	task, err := s.AddTask(phase.ID, "Wireframe")
	require.NoError(t, err)

	require.Len(t, changes, 2)
	assert.Equal(t, OriginLocal, changes[1].Origin)
	assert.Len(t, changes[1].Graph.Nodes, 3)
	assert.Equal(t, []string{task.ID}, s.TasksOf(phase.ID))

	unsubscribe()
	unsubscribe()
	_, err = s.AddPhase("Build")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestStoreFailedMutationLeavesStateUntouched(t *testing.T) {
	s := NewStore(newGraph("P"))
	before := s.Snapshot()

	notified := false
	s.Subscribe(func(Change) { notified = true })

	_, err := s.AddTask("missing", "x")
	assert.ErrorIs(t, err, ErrUnknownPhase)
	assert.Equal(t, before, s.Snapshot())
	assert.False(t, notified)
}

func TestStoreDeleteUnknownDoesNotNotify(t *testing.T) {
	s := NewStore(newGraph("P"))
	notified := 0
	s.Subscribe(func(Change) { notified++ })

	s.DeletePhase("missing")
	s.DeleteTask("missing")
	assert.Equal(t, 0, notified)
}

func TestStoreEmptyUpdateDoesNotNotify(t *testing.T) {
	g, phase := mustAddPhase(t, newGraph("P"), "A")
	g, task := mustAddTask(t, g, phase.ID, "T")
	s := NewStore(g)
	notified := 0
	s.Subscribe(func(Change) { notified++ })

	require.NoError(t, s.UpdateTask(task.ID, TaskUpdate{}))
	require.NoError(t, s.UpdatePhase(phase.ID, PhaseUpdate{}))
	assert.Equal(t, 0, notified)
	assert.Equal(t, g, s.Snapshot())

	assert.ErrorIs(t, s.UpdateTask("missing", TaskUpdate{}), ErrUnknownTask)
	assert.ErrorIs(t, s.UpdatePhase("missing", PhaseUpdate{}), ErrUnknownPhase)

	title := "A2"
	require.NoError(t, s.UpdatePhase(phase.ID, PhaseUpdate{Title: &title}))
	assert.Equal(t, 1, notified)
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewStore(types.NewGraph())

	var got Change
	s.Subscribe(func(c Change) { got = c })

	g := newGraph("P")
	g, phase := mustAddPhase(t, g, "A")
	g, task := mustAddTask(t, g, phase.ID, "T")
	s.ReplaceAll(g, OriginRemote)

	assert.Equal(t, OriginRemote, got.Origin)
	assert.Equal(t, g, s.Snapshot())
	assert.Equal(t, []string{task.ID}, s.TasksOf(phase.ID))
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	s := NewStore(newGraph("P"))
	snap := s.Snapshot()
	snap.Nodes[0].Data.Label = "changed"

	root, _ := s.Snapshot().Root()
	assert.Equal(t, "P", root.Data.Label)
}

func TestStoreMoveTaskUpdatesIndex(t *testing.T) {
	s := NewStore(newGraph("P"))
	a, _ := s.AddPhase("A")
	b, _ := s.AddPhase("B")
	task, _ := s.AddTask(a.ID, "T")

	newID, err := s.MoveTask(task.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, s.TasksOf(a.ID))
	assert.Equal(t, []string{newID}, s.TasksOf(b.ID))

	s.DeletePhase(b.ID)
	assert.Empty(t, s.TasksOf(b.ID))
	require.NoError(t, Validate(s.Snapshot()))
}

func TestStoreSerializesConcurrentMutations(t *testing.T) {
	s := NewStore(newGraph("P"))
	phase, err := s.AddPhase("A")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddTask(phase.ID, "T")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.TasksOf(phase.ID), 20)
	require.NoError(t, Validate(s.Snapshot()))
}

func TestStoreConvenienceWrappers(t *testing.T) {
	s := NewStore(newGraph("P"))
	phase, _ := s.AddPhase("A")
	task, _ := s.AddTask(phase.ID, "T")

	require.NoError(t, s.UpdatePhase(phase.ID, PhaseUpdate{Title: ptr("Alpha")}))
	require.NoError(t, s.UpdateTask(task.ID, TaskUpdate{Status: ptr(types.StatusBlocked)}))
	require.NoError(t, s.SetExpanded(phase.ID, true))
	require.NoError(t, s.SetPosition(task.ID, types.Position{X: 9, Y: 9}))
	require.NoError(t, s.RenameRoot("Q"))
	s.ApplyPositions(map[string]types.Position{phase.ID: {X: 5, Y: 6}})

	g := s.Snapshot()
	p, _ := g.Node(phase.ID)
	assert.Equal(t, "Alpha", p.Data.Label)
	assert.True(t, p.Data.Expanded)
	assert.Equal(t, types.Position{X: 5, Y: 6}, p.Position)
	assert.Equal(t, types.StatusBlocked, g.Details[task.ID].Status)
	root, _ := g.Root()
	assert.Equal(t, "Q", root.Data.Label)

	s.DeleteTask(task.ID)
	assert.Empty(t, s.TasksOf(phase.ID))
}
