package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/planner"
	"github.com/nexusmap/nexus/internal/repl"
)

var shellCmd = &cobra.Command{
	Use:     "shell",
	Aliases: []string{"repl"},
	Short:   "Start an interactive editing shell",
	Long: `Open a project in an interactive shell.

Edits are saved in the background shortly after you stop typing, and changes made
by other clients are picked up as they arrive (remote mode). Use 'save' to write
pending edits immediately and 'refresh' to discard them and reload.

Type 'help' in the shell for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		s, err := openSession(ctx, projectRef, nil)
		exitOnErr("opening project", err)

		var gen planner.Generator
		if g, err := newGenerator(); err == nil {
			gen = g
		} else {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Println(gray(fmt.Sprintf("Plan generation disabled: %v", err)))
		}

		r, err := repl.New(&repl.Config{
			Project:   *s.project,
			Store:     s.store,
			Sync:      s.ctl,
			Generator: gen,
			Layout:    layoutOptions(),
		})
		if err != nil {
			_ = s.close()
			exitOnErr("failed to create shell", err)
		}

		runErr := r.Run(ctx)
		if err := s.close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save on exit: %v\n", err)
			closeStores()
			os.Exit(1)
		}
		exitOnErr("shell", runErr)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
