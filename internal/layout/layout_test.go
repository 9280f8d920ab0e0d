package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectGraph builds a root with one phase per entry of taskCounts, each holding the
// given number of tasks.
func projectGraph(t *testing.T, taskCounts ...int) types.Graph {
	t.Helper()
	g := types.NewGraph()
	g.Nodes = append(g.Nodes, graph.NewRoot("Project"))
	for i, n := range taskCounts {
		next, phase, err := graph.AddPhase(g, fmt.Sprintf("Phase %d", i+1))
		require.NoError(t, err)
		g = next
		for j := 0; j < n; j++ {
			g, _, err = graph.AddTask(g, phase.ID, fmt.Sprintf("Task %d.%d", i+1, j+1))
			require.NoError(t, err)
		}
	}
	return g
}

func centerY(g types.Graph, pos map[string]types.Position, id string) float64 {
	n, _ := g.Node(id)
	return pos[id].Y + SizeOf(n.Kind).Height/2
}

func assertCentered(t *testing.T, g types.Graph, pos map[string]types.Position) {
	t.Helper()
	for _, n := range g.Nodes {
		children := g.Children(n.ID)
		if len(children) == 0 {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range children {
			y := centerY(g, pos, c)
			lo = math.Min(lo, y)
			hi = math.Max(hi, y)
		}
		assert.InDelta(t, (lo+hi)/2, centerY(g, pos, n.ID), 1e-6, "node %s is not centered over its children", n.Data.Label)
	}
}

func assertNoOverlap(t *testing.T, g types.Graph, pos map[string]types.Position) {
	t.Helper()
	for i, a := range g.Nodes {
		sa := SizeOf(a.Kind)
		pa := pos[a.ID]
		for _, b := range g.Nodes[i+1:] {
			sb := SizeOf(b.Kind)
			pb := pos[b.ID]
			overlapX := pa.X < pb.X+sb.Width && pb.X < pa.X+sa.Width
			overlapY := pa.Y < pb.Y+sb.Height && pb.Y < pa.Y+sa.Height
			assert.False(t, overlapX && overlapY, "%s overlaps %s", a.Data.Label, b.Data.Label)
		}
	}
}

func TestLayoutEmptyGraph(t *testing.T) {
	assert.Empty(t, Layout(types.NewGraph(), DefaultOptions()))
}

func TestLayoutLoneRoot(t *testing.T) {
	g := projectGraph(t)
	pos := Layout(g, DefaultOptions())

	require.Len(t, pos, 1)
	assert.Equal(t, types.Position{X: 80, Y: 60}, pos[g.Nodes[0].ID])
}

func TestLayoutRanksRunLeftToRight(t *testing.T) {
	g := projectGraph(t, 2, 1)
	pos := Layout(g, DefaultOptions())
	require.Len(t, pos, len(g.Nodes))

	for _, n := range g.Nodes {
		switch n.Kind {
		case types.KindRoot:
			assert.Equal(t, 80.0, pos[n.ID].X)
		case types.KindPhase:
			assert.Equal(t, 80.0+200+300, pos[n.ID].X)
		case types.KindTask:
			assert.Equal(t, 80.0+200+300+180+300, pos[n.ID].X)
		}
	}
}

func TestLayoutCentersParents(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{"single phase", []int{3}},
		{"uneven phases", []int{1, 4, 0, 2}},
		{"empty phases", []int{0, 0, 0}},
		{"many tasks", []int{7, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := projectGraph(t, tt.counts...)
			for _, mode := range []CenterMode{CenterChildrenFirst, CenterSinglePass} {
				opts := DefaultOptions()
				opts.Center = mode
				pos := Layout(g, opts)
				assertCentered(t, g, pos)
				assertNoOverlap(t, g, pos)
			}
		})
	}
}

func TestLayoutCentersOnNodeCentres(t *testing.T) {
	g := projectGraph(t, 3)
	phase := g.Phases()[0]
	pos := Layout(g, DefaultOptions())

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range g.Children(phase.ID) {
		lo = math.Min(lo, pos[c].Y)
		hi = math.Max(hi, pos[c].Y)
	}
	// Top-left corners are offset by half the height difference between phase and task.
	offset := (PhaseSize.Height - TaskSize.Height) / 2
	assert.InDelta(t, (lo+hi)/2-offset, pos[phase.ID].Y, 1e-6)
}

func TestLayoutKeepsMinimumGap(t *testing.T) {
	g := projectGraph(t, 2)
	pos := Layout(g, DefaultOptions())

	tasks := g.Tasks()
	require.Len(t, tasks, 2)
	first, second := pos[tasks[0].ID], pos[tasks[1].ID]
	assert.GreaterOrEqual(t, second.Y-first.Y, TaskSize.Height+MinNodeSep)
}

func TestLayoutIsDeterministic(t *testing.T) {
	g := projectGraph(t, 3, 0, 5, 1)
	first := Layout(g, DefaultOptions())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Layout(g, DefaultOptions()))
	}
}

func TestApply(t *testing.T) {
	g := projectGraph(t, 2, 2)
	before := g.Clone()

	out := Apply(g, DefaultOptions())
	pos := Layout(g, DefaultOptions())

	assert.Equal(t, before, g)
	for _, n := range out.Nodes {
		assert.Equal(t, pos[n.ID], n.Position)
	}
	assert.Equal(t, g.Edges, out.Edges)
	assert.Equal(t, g.Details, out.Details)
}

func TestLayoutIgnoresDanglingEdges(t *testing.T) {
	g := projectGraph(t, 1)
	g.Edges = append(g.Edges, types.Edge{ID: "dangling", Source: g.Nodes[0].ID, Target: "missing"})

	pos := Layout(g, DefaultOptions())
	assert.Len(t, pos, len(g.Nodes))
	assert.NotContains(t, pos, "missing")
}

func TestLayoutUnreachableNodesStartAtRankZero(t *testing.T) {
	g := projectGraph(t, 1)
	// A two node cycle has no source and must still be placed.
	g.Nodes = append(g.Nodes,
		types.Node{ID: "a", Kind: types.KindPhase, Data: types.NodeData{Label: "a"}},
		types.Node{ID: "b", Kind: types.KindPhase, Data: types.NodeData{Label: "b"}},
	)
	g.Edges = append(g.Edges,
		types.Edge{ID: "ab", Source: "a", Target: "b"},
		types.Edge{ID: "ba", Source: "b", Target: "a"},
	)

	l := newLayered(g)
	l.assignRanks()
	assert.Equal(t, 0, l.rank[l.indexOf("a")])
	assert.Equal(t, 1, l.rank[l.indexOf("b")])

	pos := Layout(g, DefaultOptions())
	assert.Len(t, pos, len(g.Nodes))
}

func TestReduceCrossings(t *testing.T) {
	// a -> x, a -> y, b -> x discovers x before y, which crosses b -> x with a -> y.
	g := types.Graph{
		Nodes: []types.Node{
			{ID: "a", Kind: types.KindPhase},
			{ID: "b", Kind: types.KindPhase},
			{ID: "x", Kind: types.KindTask},
			{ID: "y", Kind: types.KindTask},
		},
		Edges: []types.Edge{
			{ID: "ax", Source: "a", Target: "x"},
			{ID: "ay", Source: "a", Target: "y"},
			{ID: "bx", Source: "b", Target: "x"},
		},
	}

	l := newLayered(g)
	l.assignRanks()
	l.initialOrder()
	require.Equal(t, 1, l.crossings())

	l.reduceCrossings(DefaultOptions().Iterations)
	assert.Equal(t, 0, l.crossings())
	assert.Equal(t, []int{l.indexOf("y"), l.indexOf("x")}, l.ranks[1])
}

func (l *layered) indexOf(id string) int {
	for i, v := range l.ids {
		if v == id {
			return i
		}
	}
	return -1
}
