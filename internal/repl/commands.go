package repl

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/layout"
	"github.com/nexusmap/nexus/internal/planner"
	"github.com/nexusmap/nexus/internal/types"
)

// resolve finds the node of kind referred to by ref: an id, an id prefix (of the whole id
// or of its last segment) or a case-insensitive label. Ambiguous references are errors.
func resolve(g types.Graph, kind types.NodeKind, ref string) (types.Node, error) {
	var byID, byLabel []types.Node
	for _, n := range g.OfKind(kind) {
		if n.ID == ref {
			return n, nil
		}
		segs := strings.Split(n.ID, ":")
		if strings.HasPrefix(n.ID, ref) || strings.HasPrefix(segs[len(segs)-1], ref) {
			byID = append(byID, n)
		}
		if strings.EqualFold(n.Data.Label, ref) {
			byLabel = append(byLabel, n)
		}
	}

	what := strings.TrimSuffix(string(kind), "Node")
	switch {
	case len(byID) == 1:
		return byID[0], nil
	case len(byID) > 1:
		return types.Node{}, fmt.Errorf("%s reference %q is ambiguous (%d matches)", what, ref, len(byID))
	case len(byLabel) == 1:
		return byLabel[0], nil
	case len(byLabel) > 1:
		return types.Node{}, fmt.Errorf("%s name %q is ambiguous (%d matches)", what, ref, len(byLabel))
	}
	return types.Node{}, fmt.Errorf("no %s matches %q", what, ref)
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (r *REPL) ok(format string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

func (r *REPL) cmdTree(args []string) error {
	PrintTree(r.out, r.store.Snapshot())
	return nil
}

func (r *REPL) cmdBoard(args []string) error {
	PrintBoard(r.out, r.store.Snapshot())
	return nil
}

func (r *REPL) cmdRename(args []string) error {
	if err := need(args, 1, "rename <name>"); err != nil {
		return err
	}
	label := strings.Join(args, " ")
	if err := r.store.RenameRoot(label); err != nil {
		return err
	}
	r.ok("Root renamed to %q", label)
	return nil
}

func (r *REPL) cmdPhase(args []string) error {
	if err := need(args, 1, "phase add|rename|describe|rm|expand|collapse ..."); err != nil {
		return err
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	if sub == "add" {
		if err := need(rest, 1, "phase add <name>"); err != nil {
			return err
		}
		phase, err := r.store.AddPhase(strings.Join(rest, " "))
		if err != nil {
			return err
		}
		r.ok("Added phase %s (%s)", phase.Data.Label, ShortID(phase.ID))
		return nil
	}

	if err := need(rest, 1, "phase "+sub+" <phase> ..."); err != nil {
		return err
	}
	phase, err := resolve(r.store.Snapshot(), types.KindPhase, rest[0])
	if err != nil {
		return err
	}
	text := strings.Join(rest[1:], " ")

	switch sub {
	case "rename":
		if text == "" {
			return fmt.Errorf("usage: phase rename <phase> <name>")
		}
		if err := r.store.UpdatePhase(phase.ID, graph.PhaseUpdate{Title: &text}); err != nil {
			return err
		}
		r.ok("Renamed phase to %q", text)
	case "describe":
		if err := r.store.UpdatePhase(phase.ID, graph.PhaseUpdate{Description: &text}); err != nil {
			return err
		}
		r.ok("Updated description of %s", phase.Data.Label)
	case "rm", "delete":
		tasks := len(r.store.TasksOf(phase.ID))
		r.store.DeletePhase(phase.ID)
		r.ok("Deleted phase %s and %d tasks", phase.Data.Label, tasks)
	case "expand", "collapse":
		if err := r.store.SetExpanded(phase.ID, sub == "expand"); err != nil {
			return err
		}
		r.ok("Phase %s %sed", phase.Data.Label, strings.TrimSuffix(sub, "e"))
	default:
		return fmt.Errorf("unknown phase command %q", sub)
	}
	return nil
}

func (r *REPL) cmdTask(args []string) error {
	if err := need(args, 2, "task add|rename|describe|status|move|rm ..."); err != nil {
		return err
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	g := r.store.Snapshot()

	if sub == "add" {
		if err := need(rest, 2, "task add <phase> <title>"); err != nil {
			return err
		}
		phase, err := resolve(g, types.KindPhase, rest[0])
		if err != nil {
			return err
		}
		task, err := r.store.AddTask(phase.ID, strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		r.ok("Added task %s to %s (%s)", task.Data.Label, phase.Data.Label, ShortID(task.ID))
		return nil
	}

	task, err := resolve(g, types.KindTask, rest[0])
	if err != nil {
		return err
	}
	text := strings.Join(rest[1:], " ")

	switch sub {
	case "rename":
		if text == "" {
			return fmt.Errorf("usage: task rename <task> <title>")
		}
		if err := r.store.UpdateTask(task.ID, graph.TaskUpdate{Title: &text}); err != nil {
			return err
		}
		r.ok("Renamed task to %q", text)
	case "describe":
		if err := r.store.UpdateTask(task.ID, graph.TaskUpdate{Description: &text}); err != nil {
			return err
		}
		r.ok("Updated description of %s", task.Data.Label)
	case "status":
		status, err := types.ParseTaskStatus(text)
		if err != nil || text == "" {
			return fmt.Errorf("usage: task status <task> todo|doing|blocked|done")
		}
		if err := r.store.UpdateTask(task.ID, graph.TaskUpdate{Status: &status}); err != nil {
			return err
		}
		r.ok("%s is now %s", task.Data.Label, status)
	case "move":
		if err := need(rest, 2, "task move <task> <phase>"); err != nil {
			return err
		}
		target, err := resolve(g, types.KindPhase, text)
		if err != nil {
			return err
		}
		newID, err := r.store.MoveTask(task.ID, target.ID)
		if err != nil {
			return err
		}
		r.ok("Moved %s to %s (%s)", task.Data.Label, target.Data.Label, ShortID(newID))
	case "rm", "delete":
		r.store.DeleteTask(task.ID)
		r.ok("Deleted task %s", task.Data.Label)
	default:
		return fmt.Errorf("unknown task command %q", sub)
	}
	return nil
}

func (r *REPL) cmdLayout(args []string) error {
	r.store.ApplyPositions(layout.Layout(r.store.Snapshot(), r.layout))
	r.ok("Layout updated")
	return nil
}

func (r *REPL) cmdGenerate(args []string) error {
	if r.generator == nil {
		return fmt.Errorf("plan generation is not configured (set ANTHROPIC_API_KEY)")
	}
	if err := need(args, 1, "generate <description>"); err != nil {
		return err
	}
	fmt.Fprintln(r.out, color.New(color.Faint).Sprint("Generating plan..."))
	plan, err := r.generator.Generate(r.ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	res, err := planner.Apply(r.store, plan, planner.ApplyOptions{Replace: true})
	if err != nil {
		return err
	}
	r.store.ApplyPositions(layout.Layout(r.store.Snapshot(), r.layout))
	r.ok("Generated %d phases with %d tasks", len(res.PhaseIDs), res.Tasks)
	return nil
}

func (r *REPL) cmdSave(args []string) error {
	if r.sync == nil {
		return fmt.Errorf("no backend attached")
	}
	if err := r.sync.Flush(r.ctx); err != nil {
		return err
	}
	r.ok("Saved")
	return nil
}

func (r *REPL) cmdRefresh(args []string) error {
	if r.sync == nil {
		return fmt.Errorf("no backend attached")
	}
	if err := r.sync.ForceRefresh(r.ctx); err != nil {
		return err
	}
	r.ok("Reloaded from backend")
	return nil
}

func (r *REPL) cmdStatus(args []string) error {
	g := r.store.Snapshot()
	p := r.project
	p.Recount(g)
	PrintProject(r.out, p)

	if r.sync == nil {
		return nil
	}
	st := r.sync.Status()
	yellow := color.New(color.FgYellow).SprintFunc()
	state := color.GreenString("saved")
	switch {
	case st.Saving:
		state = yellow("saving")
	case st.Pending:
		state = yellow("pending")
	case st.Dirty:
		state = color.RedString("unsaved (last save failed)")
	}
	last := "never"
	if !st.LastSave.IsZero() {
		last = st.LastSave.Format("15:04:05")
	}
	fmt.Fprintf(r.out, "  sync: %s, last save %s\n", state, last)
	return nil
}
