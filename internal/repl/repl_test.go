package repl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/layout"
	"github.com/nexusmap/nexus/internal/planner"
	"github.com/nexusmap/nexus/internal/syncctl"
	"github.com/nexusmap/nexus/internal/types"
)

type fakeSync struct {
	flushes   int
	refreshes int
	flushErr  error
}

func (f *fakeSync) Flush(context.Context) error {
	f.flushes++
	return f.flushErr
}

func (f *fakeSync) ForceRefresh(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeSync) Status() syncctl.Status {
	return syncctl.Status{Pending: true}
}

type fakeGenerator struct {
	plan *planner.Plan
}

func (f fakeGenerator) Generate(context.Context, string) (*planner.Plan, error) {
	return f.plan, nil
}

func newTestREPL(t *testing.T, sync Syncer, gen planner.Generator) (*REPL, *graph.Store, *bytes.Buffer) {
	t.Helper()
	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Launch"))
	store := graph.NewStore(g)
	out := &bytes.Buffer{}
	r, err := New(&Config{
		Project:   *types.NewProject("p1", "Launch", "", ""),
		Store:     store,
		Sync:      sync,
		Generator: gen,
		Layout:    layout.DefaultOptions(),
		Out:       out,
	})
	require.NoError(t, err)
	return r, store, out
}

func run(t *testing.T, r *REPL, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, r.processInput(line), line)
	}
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestPhaseAndTaskCommands(t *testing.T) {
	r, store, out := newTestREPL(t, nil, nil)

	run(t, r,
		"phase add Design",
		"phase add Build",
		"task add design Wireframes",
		"task add build Coding",
		"task status wireframes done",
		"task status coding in progress",
		"phase expand build",
	)

	g := store.Snapshot()
	require.NoError(t, graph.Validate(g))
	require.Len(t, g.Phases(), 2)
	assert.Equal(t, "Design", g.Phases()[0].Data.Label)

	wire, err := resolve(g, types.KindTask, "Wireframes")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, wire.Data.Status)
	code, err := resolve(g, types.KindTask, "CODING")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, code.Data.Status)

	out.Reset()
	run(t, r, "tree")
	assert.Contains(t, out.String(), "Launch")
	assert.Contains(t, out.String(), "Coding")
	assert.Contains(t, out.String(), "1 tasks hidden")

	out.Reset()
	run(t, r, "board")
	assert.Contains(t, out.String(), "Wireframes")
}

func TestTaskMoveAndDelete(t *testing.T) {
	r, store, _ := newTestREPL(t, nil, nil)
	run(t, r, "phase add A", "phase add B", "task add A Thing")

	run(t, r, "task move thing B")
	g := store.Snapshot()
	b, err := resolve(g, types.KindPhase, "B")
	require.NoError(t, err)
	assert.Len(t, store.TasksOf(b.ID), 1)
	require.NoError(t, graph.Validate(g))

	run(t, r, "task rm thing")
	assert.Empty(t, store.Snapshot().Tasks())

	run(t, r, "phase rm A")
	assert.Len(t, store.Snapshot().Phases(), 1)
}

func TestCommandErrors(t *testing.T) {
	r, _, _ := newTestREPL(t, nil, nil)
	run(t, r, "phase add Alpha", "phase add alpha")

	assert.ErrorContains(t, r.processInput("task add alpha Thing"), "ambiguous")
	assert.ErrorContains(t, r.processInput("task add nowhere Thing"), "no phase matches")
	assert.ErrorContains(t, r.processInput("task status ghost done"), "no task matches")
	assert.ErrorContains(t, r.processInput("phase add"), "usage")
	assert.ErrorContains(t, r.processInput("save"), "no backend")
	assert.ErrorContains(t, r.processInput("generate something"), "not configured")
	assert.ErrorIs(t, r.processInput("exit"), errExit)
}

func TestResolveByIDPrefix(t *testing.T) {
	r, store, _ := newTestREPL(t, nil, nil)
	run(t, r, "phase add Alpha")
	phase := store.Snapshot().Phases()[0]

	got, err := resolve(store.Snapshot(), types.KindPhase, ShortID(phase.ID))
	require.NoError(t, err)
	assert.Equal(t, phase.ID, got.ID)
}

func TestRenameRootAndLayout(t *testing.T) {
	r, store, _ := newTestREPL(t, nil, nil)
	run(t, r, "rename New name", "phase add A", "layout")

	g := store.Snapshot()
	root, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, "New name", root.Data.Label)
	want := layout.Layout(g, layout.DefaultOptions())
	for _, n := range g.Nodes {
		assert.Equal(t, want[n.ID], n.Position)
	}
}

func TestSyncCommands(t *testing.T) {
	sync := &fakeSync{}
	r, _, out := newTestREPL(t, sync, nil)

	run(t, r, "save", "refresh", "status")
	assert.Equal(t, 1, sync.flushes)
	assert.Equal(t, 1, sync.refreshes)
	assert.Contains(t, out.String(), "pending")

	sync.flushErr = errors.New("offline")
	assert.ErrorContains(t, r.processInput("save"), "offline")
}

func TestGenerateReplacesPlan(t *testing.T) {
	gen := fakeGenerator{plan: &planner.Plan{Phases: []planner.PlannedPhase{
		{Name: "Research", Tasks: []string{"Read", "Write"}},
	}}}
	r, store, out := newTestREPL(t, nil, gen)
	run(t, r, "phase add Old", "generate a research project")

	g := store.Snapshot()
	require.Len(t, g.Phases(), 1)
	assert.Equal(t, "Research", g.Phases()[0].Data.Label)
	assert.Len(t, g.Tasks(), 2)
	assert.Contains(t, out.String(), "Generated 1 phases with 2 tasks")
}

func TestUnknownCommandIsNotAnError(t *testing.T) {
	r, _, out := newTestREPL(t, nil, nil)
	require.NoError(t, r.processInput("frobnicate"))
	assert.Contains(t, out.String(), "unknown command")
}

func TestExecRunsPreSplitArguments(t *testing.T) {
	r, store, _ := newTestREPL(t, nil, nil)

	require.NoError(t, r.Exec(context.Background(), []string{"phase", "add", "Website design"}))
	require.NoError(t, r.Exec(context.Background(), []string{"task", "add", "Website design", "Draft wireframes"}))

	g := store.Snapshot()
	require.Len(t, g.Phases(), 1)
	assert.Equal(t, "Website design", g.Phases()[0].Data.Label)
	require.Len(t, g.Tasks(), 1)
	assert.Equal(t, "Draft wireframes", g.Tasks()[0].Data.Label)

	err := r.Exec(context.Background(), []string{"bogus"})
	assert.ErrorContains(t, err, "unknown command")
	assert.NoError(t, r.Exec(context.Background(), []string{"exit"}))
	assert.NoError(t, r.Exec(context.Background(), nil))
}
