package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
)

// ShortID is the prefix of an identifier shown to users. Commands accept any unique prefix.
func ShortID(id string) string {
	if ids := strings.Split(id, ":"); len(ids) > 1 {
		id = ids[len(ids)-1]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// statusMark renders a task status as a short colored tag.
func statusMark(s types.TaskStatus) string {
	switch s {
	case types.StatusDone:
		return color.GreenString("[done]")
	case types.StatusInProgress:
		return color.CyanString("[doing]")
	case types.StatusBlocked:
		return color.RedString("[blocked]")
	default:
		return color.New(color.Faint).Sprint("[todo]")
	}
}

// PrintTree writes the root, its phases and their tasks as an indented outline.
// Collapsed phases show their task count instead of their tasks.
func PrintTree(w io.Writer, g types.Graph) {
	root, ok := g.Root()
	if !ok {
		fmt.Fprintln(w, color.YellowString("(empty project: no root node)"))
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s\n", bold(root.Data.Label))

	stats := make(map[string]graph.PhaseStats)
	for _, s := range graph.Stats(g) {
		stats[s.PhaseID] = s
	}

	phases := g.Children(root.ID)
	for i, pid := range phases {
		phase, ok := g.Node(pid)
		if !ok || phase.Kind != types.KindPhase {
			continue
		}
		branch, indent := "├── ", "│   "
		if i == len(phases)-1 {
			branch, indent = "└── ", "    "
		}
		s := stats[pid]
		fmt.Fprintf(w, "%s%s %s %s\n", branch, color.CyanString(phase.Data.Label),
			color.New(color.Faint).Sprintf("(%s)", ShortID(pid)),
			fmt.Sprintf("%d/%d", s.Completed, s.Tasks))

		if !phase.Data.Expanded && s.Tasks > 0 {
			fmt.Fprintf(w, "%s└── %s\n", indent, color.New(color.Faint).Sprintf("%d tasks hidden", s.Tasks))
			continue
		}
		tasks := g.Children(pid)
		for j, tid := range tasks {
			task, ok := g.Node(tid)
			if !ok {
				continue
			}
			tb := "├── "
			if j == len(tasks)-1 {
				tb = "└── "
			}
			fmt.Fprintf(w, "%s%s%s %s %s\n", indent, tb, statusMark(task.Data.Status), task.Data.Label,
				color.New(color.Faint).Sprintf("(%s)", ShortID(tid)))
		}
	}
}

// PrintBoard writes the status board, one column per status.
func PrintBoard(w io.Writer, g types.Graph) {
	for _, col := range graph.Board(g) {
		fmt.Fprintf(w, "\n%s %s\n", statusMark(col.Status), color.New(color.Bold).Sprintf("%d", len(col.Cards)))
		if len(col.Cards) == 0 {
			fmt.Fprintln(w, color.New(color.Faint).Sprint("  (none)"))
			continue
		}
		for _, card := range col.Cards {
			fmt.Fprintf(w, "  • %s %s\n", card.Title, color.New(color.Faint).Sprintf("(%s)", ShortID(card.NodeID)))
		}
	}
	fmt.Fprintln(w)
}

// PrintProject writes a one-line project summary with a progress bar.
func PrintProject(w io.Writer, p types.Project) {
	const width = 20
	filled := int(p.Progress() * width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Fprintf(w, "%s  %s  %s %3.0f%%  %d phases, %d/%d tasks  %s\n",
		color.New(color.Faint).Sprint(ShortID(p.ID)),
		color.New(color.Bold).Sprint(p.Name),
		bar, p.Progress()*100, p.PhaseCount, p.CompletedTasks, p.TaskCount,
		color.New(color.Faint).Sprint(p.Status))
}
