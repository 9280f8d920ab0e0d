package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmap/nexus/internal/config"
	"github.com/nexusmap/nexus/internal/exchange"
	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
)

// setupLocal points the command globals at a fresh local database.
func setupLocal(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	cfg.Storage.LocalPath = filepath.Join(t.TempDir(), "nexus.db")
	cfg.Sync.DebounceWait = 10 * time.Millisecond
	cfg.Sync.MaxWait = 50 * time.Millisecond
	logger = cfg.Log.NewLogger()
	require.NoError(t, openStores(context.Background()))
	t.Cleanup(closeStores)
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{999999, "999,999"},
		{1234567, "1,234,567"},
		{2147483647, "2,147,483,647"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatNumber(tt.input), "formatNumber(%d)", tt.input)
	}
}

func TestCreateProjectBootstrapsRootOnOpen(t *testing.T) {
	setupLocal(t)
	ctx := context.Background()

	p, err := createProject(ctx, "Launch", "Q3 release", "")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultColor, p.Color)

	s, err := openSession(ctx, p.ID, nil)
	require.NoError(t, err)
	root, ok := s.store.Snapshot().Root()
	require.True(t, ok)
	assert.Equal(t, "Launch", root.Data.Label)
	require.NoError(t, s.close())

	g, err := backend.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
}

func TestCreateProjectRequiresName(t *testing.T) {
	setupLocal(t)
	_, err := createProject(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestFindProject(t *testing.T) {
	setupLocal(t)
	ctx := context.Background()

	_, err := findProject(ctx, "")
	assert.Error(t, err, "no projects yet")

	website, err := createProject(ctx, "Website", "", "")
	require.NoError(t, err)
	mobile, err := createProject(ctx, "Mobile", "", "")
	require.NoError(t, err)

	got, err := findProject(ctx, "website")
	require.NoError(t, err)
	assert.Equal(t, website.ID, got.ID)

	got, err = findProject(ctx, mobile.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, mobile.ID, got.ID)

	got, err = findProject(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, mobile.ID, got.ID, "empty ref selects the most recently updated project")

	_, err = findProject(ctx, "Nope")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestImportDocumentInstallsGraph(t *testing.T) {
	setupLocal(t)
	ctx := context.Background()

	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Launch"))
	g, phase, err := graph.AddPhase(g, "Build")
	require.NoError(t, err)
	g, _, err = graph.AddTask(g, phase.ID, "Compile")
	require.NoError(t, err)

	data, err := exchange.Export(*types.NewProject("old", "Launch", "desc", ""), g)
	require.NoError(t, err)
	doc, err := exchange.Import(data)
	require.NoError(t, err)

	p, err := importDocument(ctx, doc)
	require.NoError(t, err)
	assert.NotEqual(t, "old", p.ID)
	assert.Equal(t, 1, p.PhaseCount)
	assert.Equal(t, 1, p.TaskCount)

	stored, err := backend.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 3)
	assert.Len(t, stored.Edges, 2)
	assert.NoError(t, graph.Validate(*stored))
}
