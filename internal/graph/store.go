// Package graph holds a project plan in memory and implements the structural edits on it.
//
// The plan is a types.Graph triple (nodes, edges, task detail records). Every mutation is a
// pure function from one consistent triple to the next; Store serializes mutations, commits
// only successful results and notifies subscribers of each commit.
package graph

import (
	"errors"
	"sort"
	"sync"

	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// Origin tells subscribers where a commit came from.
type Origin int

const (
	// OriginLocal marks edits made by this client.
	OriginLocal Origin = iota
	// OriginRemote marks full reloads from a backend.
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Change is delivered to subscribers after every commit.
type Change struct {
	Graph  types.Graph
	Origin Origin
}

// Mutation transforms a graph. It receives a private copy and returns the next graph or an
// error; on error nothing is committed.
type Mutation func(types.Graph) (types.Graph, error)

// Store is the single-writer holder of a project graph.
type Store struct {
	mu      sync.Mutex
	graph   types.Graph
	byPhase map[string][]string

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// NewStore returns a store holding g.
func NewStore(g types.Graph) *Store {
	if g.Details == nil {
		g.Details = make(map[string]types.TaskDetail)
	}
	s := &Store{
		graph: g.Clone(),
		subs:  make(map[int]func(Change)),
	}
	s.reindex()
	return s
}

// Snapshot returns a copy of the current graph.
func (s *Store) Snapshot() types.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// ReplaceAll swaps in a whole new graph, used for loads and reloads.
func (s *Store) ReplaceAll(g types.Graph, origin Origin) {
	if g.Details == nil {
		g.Details = make(map[string]types.TaskDetail)
	}
	s.mu.Lock()
	s.graph = g.Clone()
	s.reindex()
	snap := s.graph.Clone()
	s.mu.Unlock()

	s.notify(Change{Graph: snap, Origin: origin})
}

// Apply runs m against the current graph and commits the result.
func (s *Store) Apply(m Mutation) error {
	s.mu.Lock()
	next, err := m(s.graph.Clone())
	if errors.Is(err, errUnchanged) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next.Details == nil {
		next.Details = make(map[string]types.TaskDetail)
	}
	s.graph = next
	s.reindex()
	snap := s.graph.Clone()
	s.mu.Unlock()

	s.notify(Change{Graph: snap, Origin: OriginLocal})
	return nil
}

// Subscribe registers fn for commit notifications. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(Change), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.subs[k])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// reindex rebuilds the phase -> tasks index. Callers hold s.mu.
func (s *Store) reindex() {
	s.byPhase = make(map[string][]string)
	for _, n := range s.graph.Nodes {
		if n.Kind != types.KindTask {
			continue
		}
		if phase, ok := ids.OwningPhase(n.ID); ok {
			s.byPhase[phase] = append(s.byPhase[phase], n.ID)
		}
	}
}

// TasksOf returns the ids of the tasks owned by phaseID.
func (s *Store) TasksOf(phaseID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.byPhase[phaseID]...)
}

// AddPhase adds a phase and returns it.
func (s *Store) AddPhase(label string) (types.Node, error) {
	var created types.Node
	err := s.Apply(func(g types.Graph) (types.Graph, error) {
		next, n, err := AddPhase(g, label)
		created = n
		return next, err
	})
	return created, err
}

// AddTask adds a task under phaseID and returns it.
func (s *Store) AddTask(phaseID, label string) (types.Node, error) {
	var created types.Node
	err := s.Apply(func(g types.Graph) (types.Graph, error) {
		next, n, err := AddTask(g, phaseID, label)
		created = n
		return next, err
	})
	return created, err
}

// UpdateTask merges u into a task. An empty update is checked but not committed.
func (s *Store) UpdateTask(taskID string, u TaskUpdate) error {
	return s.Apply(func(g types.Graph) (types.Graph, error) {
		next, err := UpdateTask(g, taskID, u)
		if err == nil && u.IsEmpty() {
			return g, errUnchanged
		}
		return next, err
	})
}

// UpdatePhase merges u into a phase. An empty update is checked but not committed.
func (s *Store) UpdatePhase(phaseID string, u PhaseUpdate) error {
	return s.Apply(func(g types.Graph) (types.Graph, error) {
		next, err := UpdatePhase(g, phaseID, u)
		if err == nil && u.IsEmpty() {
			return g, errUnchanged
		}
		return next, err
	})
}

// MoveTask moves a task to another phase and returns its new id.
func (s *Store) MoveTask(taskID, targetPhaseID string) (string, error) {
	var newID string
	err := s.Apply(func(g types.Graph) (types.Graph, error) {
		next, id, err := MoveTask(g, taskID, targetPhaseID)
		newID = id
		return next, err
	})
	return newID, err
}

// DeletePhase removes a phase and everything it owns.
func (s *Store) DeletePhase(phaseID string) {
	_ = s.Apply(func(g types.Graph) (types.Graph, error) {
		if _, ok := phaseNode(g, phaseID); !ok {
			return g, errUnchanged
		}
		return DeletePhase(g, phaseID), nil
	})
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(taskID string) {
	_ = s.Apply(func(g types.Graph) (types.Graph, error) {
		if _, ok := taskNode(g, taskID); !ok {
			return g, errUnchanged
		}
		return DeleteTask(g, taskID), nil
	})
}

// SetPosition moves a node.
func (s *Store) SetPosition(id string, pos types.Position) error {
	return s.Apply(func(g types.Graph) (types.Graph, error) {
		return SetPosition(g, id, pos)
	})
}

// SetExpanded toggles a phase's expanded flag.
func (s *Store) SetExpanded(phaseID string, expanded bool) error {
	return s.Apply(func(g types.Graph) (types.Graph, error) {
		return SetExpanded(g, phaseID, expanded)
	})
}

// RenameRoot relabels the root node.
func (s *Store) RenameRoot(label string) error {
	return s.Apply(func(g types.Graph) (types.Graph, error) {
		return RenameRoot(g, label)
	})
}

// ApplyPositions commits positions computed elsewhere, typically by the layout engine.
func (s *Store) ApplyPositions(positions map[string]types.Position) {
	_ = s.Apply(func(g types.Graph) (types.Graph, error) {
		return ApplyPositions(g, positions), nil
	})
}
