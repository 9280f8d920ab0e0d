package graph

import (
	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// Column is one status lane of the status board.
type Column struct {
	Status types.TaskStatus
	Cards  []types.TaskDetail
}

// Board groups the detail records of g by status. Columns follow types.TaskStatuses and
// cards follow node order, so the board is stable across calls.
func Board(g types.Graph) []Column {
	cols := make([]Column, len(types.TaskStatuses))
	index := make(map[types.TaskStatus]int, len(types.TaskStatuses))
	for i, s := range types.TaskStatuses {
		cols[i].Status = s
		index[s] = i
	}

	for _, n := range g.Nodes {
		if n.Kind != types.KindTask {
			continue
		}
		d, ok := g.Details[n.ID]
		if !ok {
			continue
		}
		i, ok := index[d.Status]
		if !ok {
			i = index[types.StatusNotStarted]
		}
		cols[i].Cards = append(cols[i].Cards, d)
	}
	return cols
}

// PhaseStats summarizes one phase.
type PhaseStats struct {
	PhaseID   string
	Label     string
	Tasks     int
	Completed int
}

// Stats returns per-phase task counts in phase order. Ownership is derived from task ids.
func Stats(g types.Graph) []PhaseStats {
	phases := g.Phases()
	out := make([]PhaseStats, len(phases))
	index := make(map[string]int, len(phases))
	for i, p := range phases {
		out[i] = PhaseStats{PhaseID: p.ID, Label: p.Data.Label}
		index[p.ID] = i
	}
	for _, t := range g.Tasks() {
		owner, ok := ids.OwningPhase(t.ID)
		if !ok {
			continue
		}
		i, ok := index[owner]
		if !ok {
			continue
		}
		out[i].Tasks++
		if t.Data.Status == types.StatusDone {
			out[i].Completed++
		}
	}
	return out
}

// TaskCount returns the number of tasks owned by phaseID.
func TaskCount(g types.Graph, phaseID string) int {
	return len(tasksOf(g, phaseID))
}
