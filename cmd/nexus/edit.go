package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/repl"
)

// runShellCommand opens the selected project, runs one shell command against it and saves
// the result before returning.
func runShellCommand(args []string) {
	ctx := context.Background()
	s, err := openSession(ctx, projectRef, nil)
	exitOnErr("opening project", err)

	r, err := repl.New(&repl.Config{
		Project: *s.project,
		Store:   s.store,
		Sync:    s.ctl,
		Layout:  layoutOptions(),
	})
	exitOnErr("starting shell", err)

	runErr := r.Exec(ctx, args)
	closeErr := s.close()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		closeStores()
		os.Exit(1)
	}
	exitOnErr("saving project", closeErr)
}

// shellCommand builds a subcommand that forwards its arguments to the shell command of the
// same name.
func shellCommand(use, short, long string, minArgs int) *cobra.Command {
	name := strings.Fields(use)[0]
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(minArgs),
		Run: func(cmd *cobra.Command, args []string) {
			runShellCommand(append([]string{name}, args...))
		},
	}
}

func init() {
	rootCmd.AddCommand(
		shellCommand("phase <add|rename|describe|rm|expand|collapse> ...", "Edit phases", `Edit the phases of a project.

Phases can be referred to by id prefix or by name.

Examples:
  nexus phase add Design
  nexus phase rename Design "UX design"
  nexus phase describe Design "Wireframes and visual design"
  nexus phase expand Design
  nexus -p Website phase rm Design`, 1),
		shellCommand("task <add|rename|describe|status|move|rm> ...", "Edit tasks", `Edit the tasks of a project.

Statuses are not-started, in-progress, blocked and done ("todo", "doing" and
"complete" are accepted too). Moving a task gives it a new id.

Examples:
  nexus task add Design "Draft wireframes"
  nexus task status "Draft wireframes" done
  nexus task move "Draft wireframes" Build
  nexus task rm 4be1`, 2),
		shellCommand("rename <label>", "Rename the root node", "", 1),
		shellCommand("tree", "Show phases and tasks", "", 0),
		shellCommand("board", "Show tasks grouped by status", "", 0),
		shellCommand("layout", "Recompute node positions", "", 0),
		shellCommand("status", "Show project progress", "", 0),
	)
}
