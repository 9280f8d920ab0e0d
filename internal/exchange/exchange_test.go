package exchange

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
)

func sampleProject(t *testing.T) (types.Project, types.Graph) {
	t.Helper()
	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Launch"))
	g, phase, err := graph.AddPhase(g, "Build")
	require.NoError(t, err)
	g, task, err := graph.AddTask(g, phase.ID, "Write code")
	require.NoError(t, err)
	status := types.StatusInProgress
	g, err = graph.UpdateTask(g, task.ID, graph.TaskUpdate{Status: &status})
	require.NoError(t, err)

	p := types.NewProject("p1", "Launch", "Ship it", "from-green-500 to-green-600")
	return *p, g
}

func TestExportImportRoundTrip(t *testing.T) {
	p, g := sampleProject(t)

	data, err := Export(p, g)
	require.NoError(t, err)

	doc, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.Project.ID)
	assert.Equal(t, "Launch", doc.Project.Name)
	assert.Equal(t, "Ship it", doc.Project.Description)
	assert.Equal(t, "from-green-500 to-green-600", doc.Project.Color)
	assert.Equal(t, 1, doc.Project.TaskCount)

	require.Len(t, doc.Graph.Nodes, len(g.Nodes))
	for i, n := range g.Nodes {
		got := doc.Graph.Nodes[i]
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, n.Kind, got.Kind)
		assert.Equal(t, n.Position, got.Position)
		assert.Equal(t, n.Data.Label, got.Data.Label)
		assert.Equal(t, n.Data.Status, got.Data.Status)
		assert.Equal(t, n.Data.PhaseID, got.Data.PhaseID)
	}
	assert.Equal(t, g.Edges, doc.Graph.Edges)
	assert.Equal(t, g.Details, doc.Graph.Details)
	assert.NoError(t, graph.Validate(doc.Graph))
}

func TestExportImportTaskWithoutDescription(t *testing.T) {
	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Site"))
	g, phase, err := graph.AddPhase(g, "Design")
	require.NoError(t, err)
	g, task, err := graph.AddTask(g, phase.ID, "Wireframe")
	require.NoError(t, err)
	p := types.NewProject("p2", "Site", "", "")

	data, err := Export(*p, g)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"description":""`)

	doc, err := Import(data)
	require.NoError(t, err)
	got, ok := doc.Graph.Node(task.ID)
	require.True(t, ok)
	assert.Empty(t, got.Data.Description)
	assert.Equal(t, types.StatusNotStarted, got.Data.Status)
	assert.Equal(t, g.Details, doc.Graph.Details)
	assert.NoError(t, graph.Validate(doc.Graph))
}

func TestExportWritesVersionAndEmptyArrays(t *testing.T) {
	p := types.NewProject("p1", "Empty", "", "")
	data, err := Export(*p, types.NewGraph())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, FormatVersion, raw["version"])
	assert.Equal(t, []any{}, raw["nodes"])
	assert.Equal(t, []any{}, raw["edges"])
	assert.Contains(t, raw, "exportDate")
}

func TestImportNormalisesStatusesAndRebuildsDetails(t *testing.T) {
	data := []byte(`{
		"name": "Legacy",
		"nodes": [
			{"id": "r", "type": "rootNode", "position": {"x": 0, "y": 0}, "data": {"label": "Legacy"}},
			{"id": "ph", "type": "phaseNode", "position": {"x": 1, "y": 2}, "data": {"label": "Phase", "isExpanded": true}},
			{"id": "ph-task-1", "type": "taskNode", "position": {"x": 3, "y": 4},
			 "data": {"label": "Old task", "status": "In Progress", "description": "from v0"}}
		],
		"edges": [
			{"id": "e1", "source": "r", "target": "ph"},
			{"id": "e2", "source": "ph", "target": "ph-task-1"}
		]
	}`)

	doc, err := Import(data)
	require.NoError(t, err)

	task, ok := doc.Graph.Node("ph-task-1")
	require.True(t, ok)
	assert.Equal(t, types.StatusInProgress, task.Data.Status)
	assert.Equal(t, "ph", task.Data.PhaseID)
	assert.Equal(t, types.TaskDetail{
		NodeID:      "ph-task-1",
		Title:       "Old task",
		Description: "from v0",
		Status:      types.StatusInProgress,
	}, doc.Graph.Details["ph-task-1"])
	assert.Equal(t, types.DefaultColor, doc.Project.Color)
}

func TestImportRejects(t *testing.T) {
	root := `{"id": "r", "type": "rootNode", "position": {"x": 0, "y": 0}, "data": {"label": "R"}}`

	tests := []struct {
		name     string
		data     string
		wantPath string
	}{
		{"malformed json", `{"name": "x", "nodes": [`, ""},
		{"not an object", `[]`, ""},
		{"missing name", `{"nodes": [], "edges": []}`, "name"},
		{"nodes not array", `{"name": "x", "nodes": {}, "edges": []}`, "nodes"},
		{"edges missing", `{"name": "x", "nodes": [` + root + `]}`, "edges"},
		{"no root", `{"name": "x", "nodes": [], "edges": []}`, "nodes"},
		{"node id not string",
			`{"name": "x", "nodes": [{"id": 7, "type": "rootNode", "position": {"x": 0, "y": 0}, "data": {"label": "R"}}], "edges": []}`,
			"nodes[0].id"},
		{"unknown node type",
			`{"name": "x", "nodes": [{"id": "a", "type": "default", "position": {"x": 0, "y": 0}, "data": {"label": "R"}}], "edges": []}`,
			"nodes[0].type"},
		{"position not numeric",
			`{"name": "x", "nodes": [{"id": "r", "type": "rootNode", "position": {"x": "0", "y": 0}, "data": {"label": "R"}}], "edges": []}`,
			"nodes[0].position.x"},
		{"task description not string",
			`{"name": "x", "nodes": [` + root + `, {"id": "t", "type": "taskNode", "position": {"x": 0, "y": 0}, "data": {"label": "T", "status": "done", "description": 5}}], "edges": []}`,
			"nodes[1].data.description"},
		{"label missing",
			`{"name": "x", "nodes": [{"id": "r", "type": "rootNode", "position": {"x": 0, "y": 0}, "data": {}}], "edges": []}`,
			"nodes[0].data.label"},
		{"task without status",
			`{"name": "x", "nodes": [` + root + `, {"id": "t", "type": "taskNode", "position": {"x": 0, "y": 0}, "data": {"label": "T", "description": ""}}], "edges": []}`,
			"nodes[1].data.status"},
		{"task with unknown status",
			`{"name": "x", "nodes": [` + root + `, {"id": "t", "type": "taskNode", "position": {"x": 0, "y": 0}, "data": {"label": "T", "status": "someday", "description": ""}}], "edges": []}`,
			"nodes[1].data.status"},
		{"phase expanded not bool",
			`{"name": "x", "nodes": [` + root + `, {"id": "p", "type": "phaseNode", "position": {"x": 0, "y": 0}, "data": {"label": "P", "isExpanded": "yes"}}], "edges": []}`,
			"nodes[1].data.isExpanded"},
		{"duplicate node id",
			`{"name": "x", "nodes": [` + root + `, ` + root + `], "edges": []}`,
			"nodes[1].id"},
		{"dangling edge",
			`{"name": "x", "nodes": [` + root + `], "edges": [{"id": "e", "source": "r", "target": "ghost"}]}`,
			"edges[0].target"},
		{"edge without id",
			`{"name": "x", "nodes": [` + root + `], "edges": [{"source": "r", "target": "r"}]}`,
			"edges[0].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Import([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, doc)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantPath, vErr.Path)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "my_big_launch_.json", FileName("My Big Launch!"))
	assert.Equal(t, "project.json", FileName(""))
}
