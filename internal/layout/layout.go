// Package layout positions the nodes of a project graph for the mind map view.
//
// The algorithm is layered: nodes are ranked by their distance from the root, ranks run
// left to right, nodes inside a rank are ordered by barycentric crossing reduction, and
// vertical coordinates are assigned by packing each node's subtree into a block so that
// rectangles of different sizes never overlap. A final centering pass puts every parent at
// the vertical midpoint of its direct children. Output depends only on the input order of
// nodes and edges.
package layout

import (
	"sort"

	"github.com/nexusmap/nexus/internal/types"
)

// Size is the footprint of a node.
type Size struct {
	Width  float64
	Height float64
}

// Node footprints by kind. Unknown kinds use the root footprint.
var (
	RootSize  = Size{Width: 200, Height: 80}
	PhaseSize = Size{Width: 180, Height: 70}
	TaskSize  = Size{Width: 140, Height: 60}
)

// SizeOf returns the footprint for a node kind.
func SizeOf(kind types.NodeKind) Size {
	switch kind {
	case types.KindPhase:
		return PhaseSize
	case types.KindTask:
		return TaskSize
	}
	return RootSize
}

// CenterMode selects how the centering pass orders its work.
type CenterMode int

const (
	// CenterChildrenFirst centers deeper parents first, so a parent is centered over
	// children that were already centered themselves.
	CenterChildrenFirst CenterMode = iota
	// CenterSinglePass computes every parent's target from the positions produced by
	// coordinate assignment and applies them in one sweep.
	CenterSinglePass
)

// MinNodeSep is the smallest vertical gap kept between nodes of one rank.
const MinNodeSep = 10

// Options controls spacing.
type Options struct {
	// NodeSep is the vertical gap between nodes of the same rank. Values below
	// MinNodeSep are raised to it.
	NodeSep float64
	// RankSep is the horizontal gap between the widest nodes of adjacent ranks.
	RankSep float64
	// MarginX and MarginY offset the whole drawing from the origin.
	MarginX float64
	MarginY float64
	// Iterations is the number of down/up barycenter sweeps.
	Iterations int
	Center     CenterMode
}

// DefaultOptions returns the spacing used by the mind map view.
func DefaultOptions() Options {
	return Options{
		NodeSep:    0,
		RankSep:    300,
		MarginX:    80,
		MarginY:    60,
		Iterations: 8,
		Center:     CenterChildrenFirst,
	}
}

func (o Options) normalized() Options {
	if o.NodeSep < MinNodeSep {
		o.NodeSep = MinNodeSep
	}
	if o.RankSep < 0 {
		o.RankSep = 0
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultOptions().Iterations
	}
	return o
}

// Layout computes top-left positions for every node of g. Ranks, spacing and centering
// work on node centres: a parent's centre sits midway between its highest and lowest
// child centres. Since a parent and its children differ in height, their top-left Y
// values differ from that midpoint by half the height difference.
func Layout(g types.Graph, opts Options) map[string]types.Position {
	opts = opts.normalized()
	out := make(map[string]types.Position, len(g.Nodes))
	if len(g.Nodes) == 0 {
		return out
	}

	l := newLayered(g)
	l.assignRanks()
	l.initialOrder()
	l.reduceCrossings(opts.Iterations)
	cx := l.horizontal(opts)
	cy := l.vertical(opts)
	l.center(cy, opts.Center)

	for i, id := range l.ids {
		s := l.sizes[i]
		out[id] = types.Position{X: cx[i] - s.Width/2, Y: cy[i] - s.Height/2}
	}
	return out
}

// Apply returns a copy of g with every node moved to its computed position.
func Apply(g types.Graph, opts Options) types.Graph {
	positions := Layout(g, opts)
	out := g.Clone()
	for i := range out.Nodes {
		if p, ok := positions[out.Nodes[i].ID]; ok {
			out.Nodes[i].Position = p
		}
	}
	return out
}

// layered is the working state of one layout run. Nodes are addressed by their index in the
// de-duplicated input node list.
type layered struct {
	ids      []string
	kinds    []types.NodeKind
	sizes    []Size
	children [][]int
	parents  [][]int

	rank   []int
	ranks  [][]int // node indexes per rank, in order
	pos    []int   // index of a node within its rank
	treeUp []int   // layout parent of each node, -1 for forest roots
}

func newLayered(g types.Graph) *layered {
	l := &layered{}
	index := make(map[string]int, len(g.Nodes))
	for _, node := range g.Nodes {
		if _, dup := index[node.ID]; dup {
			continue
		}
		index[node.ID] = len(l.ids)
		l.ids = append(l.ids, node.ID)
		l.kinds = append(l.kinds, node.Kind)
		l.sizes = append(l.sizes, SizeOf(node.Kind))
	}
	l.children = make([][]int, len(l.ids))
	l.parents = make([][]int, len(l.ids))

	seen := make(map[[2]int]bool, len(g.Edges))
	for _, e := range g.Edges {
		s, ok1 := index[e.Source]
		t, ok2 := index[e.Target]
		if !ok1 || !ok2 || s == t || seen[[2]int{s, t}] {
			continue
		}
		seen[[2]int{s, t}] = true
		l.children[s] = append(l.children[s], t)
		l.parents[t] = append(l.parents[t], s)
	}
	return l
}

// sources returns BFS start nodes: roots first, then other nodes without parents, in
// input order.
func (l *layered) sources() []int {
	var roots, others []int
	for i := range l.ids {
		if len(l.parents[i]) != 0 {
			continue
		}
		if l.kinds[i] == types.KindRoot {
			roots = append(roots, i)
		} else {
			others = append(others, i)
		}
	}
	return append(roots, others...)
}

// assignRanks sets rank to the BFS distance from the sources and records the BFS tree
// parent of each node. Nodes unreachable from any source start a new BFS at rank 0.
func (l *layered) assignRanks() {
	n := len(l.ids)
	l.rank = make([]int, n)
	l.treeUp = make([]int, n)
	for i := range l.rank {
		l.rank[i] = -1
		l.treeUp[i] = -1
	}

	bfs := func(start int) {
		l.rank[start] = 0
		queue := []int{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range l.children[u] {
				if l.rank[v] >= 0 {
					continue
				}
				l.rank[v] = l.rank[u] + 1
				l.treeUp[v] = u
				queue = append(queue, v)
			}
		}
	}

	for _, s := range l.sources() {
		if l.rank[s] < 0 {
			bfs(s)
		}
	}
	for i := range l.ids {
		if l.rank[i] < 0 {
			bfs(i)
		}
	}

	maxRank := 0
	for _, r := range l.rank {
		if r > maxRank {
			maxRank = r
		}
	}
	l.ranks = make([][]int, maxRank+1)
}

// initialOrder fills each rank in depth-first discovery order, which keeps the children of
// one parent together.
func (l *layered) initialOrder() {
	visited := make([]bool, len(l.ids))
	var visit func(int)
	visit = func(u int) {
		if visited[u] {
			return
		}
		visited[u] = true
		l.ranks[l.rank[u]] = append(l.ranks[l.rank[u]], u)
		for _, v := range l.children[u] {
			if l.rank[v] == l.rank[u]+1 {
				visit(v)
			}
		}
	}
	for _, s := range l.sources() {
		visit(s)
	}
	for i := range l.ids {
		visit(i)
	}
	l.reposition()
}

func (l *layered) reposition() {
	l.pos = make([]int, len(l.ids))
	for _, nodes := range l.ranks {
		for i, u := range nodes {
			l.pos[u] = i
		}
	}
}

// adjacent returns the neighbours of u one rank above (up) or below (!up).
func (l *layered) adjacent(u int, up bool) []int {
	var out []int
	if up {
		for _, p := range l.parents[u] {
			if l.rank[p] == l.rank[u]-1 {
				out = append(out, p)
			}
		}
		return out
	}
	for _, c := range l.children[u] {
		if l.rank[c] == l.rank[u]+1 {
			out = append(out, c)
		}
	}
	return out
}

// sweep reorders rank r by the mean position of each node's neighbours in the fixed rank.
// Nodes without neighbours keep their current position as their key.
func (l *layered) sweep(r int, up bool) {
	nodes := l.ranks[r]
	keys := make(map[int]float64, len(nodes))
	for _, u := range nodes {
		adj := l.adjacent(u, up)
		if len(adj) == 0 {
			keys[u] = float64(l.pos[u])
			continue
		}
		sum := 0.0
		for _, v := range adj {
			sum += float64(l.pos[v])
		}
		keys[u] = sum / float64(len(adj))
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return keys[nodes[i]] < keys[nodes[j]]
	})
	for i, u := range nodes {
		l.pos[u] = i
	}
}

// crossings counts edge crossings between every pair of adjacent ranks.
func (l *layered) crossings() int {
	total := 0
	for r := 0; r+1 < len(l.ranks); r++ {
		type seg struct{ a, b int }
		var segs []seg
		for _, u := range l.ranks[r] {
			for _, v := range l.adjacent(u, false) {
				segs = append(segs, seg{l.pos[u], l.pos[v]})
			}
		}
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				if (segs[i].a-segs[j].a)*(segs[i].b-segs[j].b) < 0 {
					total++
				}
			}
		}
	}
	return total
}

func (l *layered) snapshotOrder() [][]int {
	out := make([][]int, len(l.ranks))
	for r, nodes := range l.ranks {
		out[r] = append([]int(nil), nodes...)
	}
	return out
}

// reduceCrossings alternates downward and upward barycenter sweeps and keeps the ordering
// with the fewest crossings seen.
func (l *layered) reduceCrossings(iterations int) {
	best := l.snapshotOrder()
	bestCrossings := l.crossings()

	for it := 0; it < iterations && bestCrossings > 0; it++ {
		for r := 1; r < len(l.ranks); r++ {
			l.sweep(r, true)
		}
		for r := len(l.ranks) - 2; r >= 0; r-- {
			l.sweep(r, false)
		}
		if c := l.crossings(); c < bestCrossings {
			bestCrossings = c
			best = l.snapshotOrder()
		}
	}

	l.ranks = best
	l.reposition()
}

// horizontal returns the center x of every node: ranks run left to right, each as wide as
// its widest node, separated by RankSep. Nodes are centered in their rank column.
func (l *layered) horizontal(opts Options) []float64 {
	cx := make([]float64, len(l.ids))
	left := opts.MarginX
	for _, nodes := range l.ranks {
		width := 0.0
		for _, u := range nodes {
			if w := l.sizes[u].Width; w > width {
				width = w
			}
		}
		for _, u := range nodes {
			cx[u] = left + width/2
		}
		left += width + opts.RankSep
	}
	return cx
}

// treeChildren returns the BFS-tree children of u in rank order.
func (l *layered) treeChildren(u int) []int {
	var out []int
	for _, c := range l.children[u] {
		if l.treeUp[c] == u {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return l.pos[out[i]] < l.pos[out[j]] })
	return out
}

// block is the vertical extent reserved for a subtree, measured from its top edge.
type block struct {
	height float64
	anchor float64 // center y of the subtree root, relative to the block top
}

// vertical returns the center y of every node. Each subtree of the BFS forest is packed
// into a block: children blocks are stacked with NodeSep between them, the parent sits at
// the midpoint of its first and last child, and the block grows to contain the parent.
// Blocks of one rank never overlap, so neither do the nodes inside them. Forest roots are
// stacked the same way starting at MarginY.
func (l *layered) vertical(opts Options) []float64 {
	n := len(l.ids)
	blocks := make([]block, n)
	offsets := make([][]float64, n)

	var measure func(u int) block
	measure = func(u int) block {
		h := l.sizes[u].Height
		kids := l.treeChildren(u)
		if len(kids) == 0 {
			blocks[u] = block{height: h, anchor: h / 2}
			return blocks[u]
		}

		offs := make([]float64, len(kids))
		span := 0.0
		for i, c := range kids {
			if i > 0 {
				span += opts.NodeSep
			}
			offs[i] = span
			span += measure(c).height
		}
		first := offs[0] + blocks[kids[0]].anchor
		last := offs[len(kids)-1] + blocks[kids[len(kids)-1]].anchor
		center := (first + last) / 2

		top := min(0, center-h/2)
		bottom := max(span, center+h/2)
		for i := range offs {
			offs[i] -= top
		}
		offsets[u] = offs
		blocks[u] = block{height: bottom - top, anchor: center - top}
		return blocks[u]
	}

	cy := make([]float64, n)
	var place func(u int, top float64)
	place = func(u int, top float64) {
		cy[u] = top + blocks[u].anchor
		for i, c := range l.treeChildren(u) {
			place(c, top+offsets[u][i])
		}
	}

	top := opts.MarginY
	for _, u := range l.forestRoots() {
		measure(u)
		place(u, top)
		top += blocks[u].height + opts.NodeSep
	}
	return cy
}

// forestRoots returns the nodes without a BFS-tree parent, ordered by rank then position.
func (l *layered) forestRoots() []int {
	var out []int
	for _, nodes := range l.ranks {
		for _, u := range nodes {
			if l.treeUp[u] < 0 {
				out = append(out, u)
			}
		}
	}
	return out
}

// center moves every node with children to the vertical midpoint of the highest and
// lowest of its direct children. Leaves never move.
func (l *layered) center(cy []float64, mode CenterMode) {
	var parents []int
	for r := len(l.ranks) - 1; r >= 0; r-- {
		for _, u := range l.ranks[r] {
			if len(l.children[u]) > 0 {
				parents = append(parents, u)
			}
		}
	}

	midpoint := func(u int, ys []float64) float64 {
		lo, hi := ys[l.children[u][0]], ys[l.children[u][0]]
		for _, c := range l.children[u][1:] {
			lo = min(lo, ys[c])
			hi = max(hi, ys[c])
		}
		return (lo + hi) / 2
	}

	if mode == CenterSinglePass {
		base := append([]float64(nil), cy...)
		for _, u := range parents {
			cy[u] = midpoint(u, base)
		}
		return
	}
	for _, u := range parents {
		cy[u] = midpoint(u, cy)
	}
}
