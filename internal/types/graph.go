package types

// Graph is the triple of nodes, edges and task detail records that makes up a project plan.
type Graph struct {
	Nodes   []Node                `json:"nodes"`
	Edges   []Edge                `json:"edges"`
	Details map[string]TaskDetail `json:"taskDetails"`
}

// NewGraph returns an empty graph with an initialized detail map.
func NewGraph() Graph {
	return Graph{Details: make(map[string]TaskDetail)}
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:   make([]Node, len(g.Nodes)),
		Edges:   make([]Edge, len(g.Edges)),
		Details: make(map[string]TaskDetail, len(g.Details)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	for k, v := range g.Details {
		out.Details[k] = v
	}
	return out
}

// IsEmpty reports whether the graph has no nodes.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// NodeIndex returns the index of the node with id, or -1.
func (g Graph) NodeIndex(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with id.
func (g Graph) Node(id string) (Node, bool) {
	if i := g.NodeIndex(id); i >= 0 {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// Root returns the first root node.
func (g Graph) Root() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == KindRoot {
			return n, true
		}
	}
	return Node{}, false
}

// OfKind returns the nodes of the given kind in collection order.
func (g Graph) OfKind(kind NodeKind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Phases returns the phase nodes in collection order.
func (g Graph) Phases() []Node { return g.OfKind(KindPhase) }

// Tasks returns the task nodes in collection order.
func (g Graph) Tasks() []Node { return g.OfKind(KindTask) }

// Children returns the targets of edges leaving id, in edge order.
func (g Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// Parents returns the sources of edges entering id, in edge order.
func (g Graph) Parents(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e.Source)
		}
	}
	return out
}
