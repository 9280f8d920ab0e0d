package graph

import (
	"errors"
	"fmt"

	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// Validate checks the structural invariants of g and returns every violation found.
//
//   - exactly one root, with no inbound edge
//   - every phase has exactly one inbound edge, from the root
//   - every task has exactly one inbound edge, from the phase its identifier embeds
//   - task nodes and detail records are in one-to-one correspondence and agree on content
//   - every edge references existing nodes
func Validate(g types.Graph) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	kinds := make(map[string]types.NodeKind, len(g.Nodes))
	roots := 0
	for _, n := range g.Nodes {
		if _, dup := kinds[n.ID]; dup {
			fail("duplicate node id %s", n.ID)
		}
		if !n.Kind.IsValid() {
			fail("node %s has invalid type %q", n.ID, n.Kind)
		}
		kinds[n.ID] = n.Kind
		if n.Kind == types.KindRoot {
			roots++
		}
	}
	if roots != 1 {
		fail("expected exactly one root node, found %d", roots)
	}

	inbound := make(map[string][]string)
	for _, e := range g.Edges {
		if _, ok := kinds[e.Source]; !ok {
			fail("edge %s references missing source %s", e.ID, e.Source)
			continue
		}
		if _, ok := kinds[e.Target]; !ok {
			fail("edge %s references missing target %s", e.ID, e.Target)
			continue
		}
		inbound[e.Target] = append(inbound[e.Target], e.Source)
	}

	for _, n := range g.Nodes {
		parents := inbound[n.ID]
		switch n.Kind {
		case types.KindRoot:
			if len(parents) != 0 {
				fail("root %s has %d inbound edges", n.ID, len(parents))
			}
		case types.KindPhase:
			if len(parents) != 1 || kinds[parents[0]] != types.KindRoot {
				fail("phase %s must have exactly one inbound edge from the root (has %v)", n.ID, parents)
			}
		case types.KindTask:
			owner, ok := ids.OwningPhase(n.ID)
			if !ok {
				fail("task %s does not embed a phase id", n.ID)
			}
			if len(parents) != 1 || kinds[parents[0]] != types.KindPhase {
				fail("task %s must have exactly one inbound edge from a phase (has %v)", n.ID, parents)
			} else if ok && parents[0] != owner {
				fail("task %s embeds phase %s but hangs off %s", n.ID, owner, parents[0])
			}
			if n.Data.PhaseID != "" && n.Data.PhaseID != owner {
				fail("task %s records phase %s but embeds %s", n.ID, n.Data.PhaseID, owner)
			}

			d, ok := g.Details[n.ID]
			if !ok {
				fail("task %s has no detail record", n.ID)
			} else if d != types.DetailFor(n) {
				fail("detail record for task %s is out of sync with its node", n.ID)
			}
		}
	}

	for id, d := range g.Details {
		if kinds[id] != types.KindTask {
			fail("detail record %s has no task node", id)
		}
		if d.NodeID != id {
			fail("detail record keyed %s names node %s", id, d.NodeID)
		}
	}

	return errors.Join(errs...)
}
