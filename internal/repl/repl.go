// Package repl implements the interactive editing shell for one project.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/layout"
	"github.com/nexusmap/nexus/internal/planner"
	"github.com/nexusmap/nexus/internal/syncctl"
	"github.com/nexusmap/nexus/internal/types"
)

// Syncer is the part of the sync controller the shell drives.
type Syncer interface {
	Flush(ctx context.Context) error
	ForceRefresh(ctx context.Context) error
	Status() syncctl.Status
}

// REPL represents the interactive shell
type REPL struct {
	project   types.Project
	store     *graph.Store
	sync      Syncer
	generator planner.Generator
	layout    layout.Options
	out       io.Writer
	ctx       context.Context
	rl        *readline.Instance
	commands  map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Project   types.Project
	Store     *graph.Store
	Sync      Syncer            // Optional; without it save and refresh are unavailable
	Generator planner.Generator // Optional; without it generate is unavailable
	Layout    layout.Options
	Out       io.Writer // Defaults to os.Stdout
}

// errExit ends the loop.
var errExit = errors.New("exit")

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		project:   cfg.Project,
		store:     cfg.Store,
		sync:      cfg.Sync,
		generator: cfg.Generator,
		layout:    cfg.Layout,
		out:       out,
		ctx:       context.Background(),
		commands:  make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("nexus> "),
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            r.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// Exec runs a single command given as pre-split arguments, as the one-shot CLI
// subcommands do. Unknown commands are errors.
func (r *REPL) Exec(ctx context.Context, args []string) error {
	r.ctx = ctx
	if len(args) == 0 {
		return nil
	}
	handler, ok := r.commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := handler(args[1:]); err != nil && !errors.Is(err, errExit) {
		return err
	}
	return nil
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]
	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit

	r.commands["tree"] = r.cmdTree
	r.commands["ls"] = r.cmdTree
	r.commands["board"] = r.cmdBoard
	r.commands["phase"] = r.cmdPhase
	r.commands["task"] = r.cmdTask
	r.commands["rename"] = r.cmdRename
	r.commands["layout"] = r.cmdLayout
	r.commands["generate"] = r.cmdGenerate
	r.commands["save"] = r.cmdSave
	r.commands["refresh"] = r.cmdRefresh
	r.commands["status"] = r.cmdStatus
}

func (r *REPL) completer() *readline.PrefixCompleter {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	sub := map[string][]string{
		"phase": {"add", "rename", "describe", "rm", "expand", "collapse"},
		"task":  {"add", "rename", "describe", "status", "move", "rm"},
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		var children []readline.PrefixCompleterInterface
		for _, s := range sub[name] {
			children = append(children, readline.PcItem(s))
		}
		items = append(items, readline.PcItem(name, children...))
	}
	return readline.NewPrefixCompleter(items...)
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("Nexus: "+r.project.Name))
	if r.project.Description != "" {
		fmt.Fprintln(r.out, r.project.Description)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"tree, ls", "Show phases and tasks"},
		{"board", "Show tasks grouped by status"},
		{"phase add <name>", "Add a phase under the root"},
		{"phase rename <phase> <name>", "Rename a phase"},
		{"phase describe <phase> <text>", "Set a phase description"},
		{"phase rm <phase>", "Delete a phase and its tasks"},
		{"phase expand|collapse <phase>", "Show or hide a phase's tasks"},
		{"task add <phase> <title>", "Add a task to a phase"},
		{"task rename <task> <title>", "Rename a task"},
		{"task describe <task> <text>", "Set a task description"},
		{"task status <task> <status>", "Set status: todo, doing, blocked, done"},
		{"task move <task> <phase>", "Move a task to another phase"},
		{"task rm <task>", "Delete a task"},
		{"rename <name>", "Rename the root node"},
		{"layout", "Recompute node positions"},
		{"generate <description>", "Replace the plan with an AI-generated one"},
		{"save", "Save pending edits now"},
		{"refresh", "Discard pending edits and reload"},
		{"status", "Show sync status"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-32s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Phases and tasks can be referred to by id prefix or by name.")
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	return errExit
}
