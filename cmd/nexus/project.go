package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/repl"
	"github.com/nexusmap/nexus/internal/types"
)

// findProject resolves ref by exact id, id prefix or case-insensitive name. An empty ref
// selects the most recently updated project.
func findProject(ctx context.Context, ref string) (*types.Project, error) {
	projects, err := backend.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects yet (create one with 'nexus project create <name>')")
	}
	if ref == "" {
		return projects[0], nil
	}

	var matches []*types.Project
	for _, p := range projects {
		if p.ID == ref {
			return p, nil
		}
		if strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", types.ErrProjectNotFound, ref)
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, repl.ShortID(p.ID)))
	}
	return nil, fmt.Errorf("%q matches several projects: %s", ref, strings.Join(names, ", "))
}

// createProject stores a new project record. Its graph starts empty and receives a root on
// first open.
func createProject(ctx context.Context, name, description, colorTag string) (*types.Project, error) {
	p := types.NewProject(uuid.NewString(), name, description, colorTag)
	p.Owner = cfg.Storage.Owner
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := backend.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	emitter.Emit(ctx, events.NewEvent(events.EventTypeProjectCreated, p.ID, "cli",
		events.SeverityInfo, fmt.Sprintf("Created project %q", p.Name), nil))
	return p, nil
}

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Create, list and manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Long: `Create a project with an empty plan. The root node is added, labelled with the
project name, the first time the project is opened.

Examples:
  nexus project create "Website relaunch"
  nexus project create Mobile -d "iOS and Android apps" --color "from-green-500 to-green-600"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")
		colorTag, _ := cmd.Flags().GetString("color")
		ctx := context.Background()

		p, err := createProject(ctx, strings.Join(args, " "), description, colorTag)
		exitOnErr("creating project", err)

		// Open once so the root exists before anything else reads the project.
		s, err := openSession(ctx, p.ID, nil)
		exitOnErr("initializing project", err)
		exitOnErr("saving project", s.close())

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created project %s (%s)\n", green("✓"), p.Name, p.ID)
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects, most recently updated first",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		projects, err := backend.ListProjects(ctx)
		exitOnErr("listing projects", err)

		if len(projects) == 0 {
			fmt.Println("No projects yet. Create one with 'nexus project create <name>'.")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("Projects (%s)", cfg.Storage.Mode)))
		for _, p := range projects {
			fmt.Printf("  %s  %-32s %3.0f%%  %d phases, %d tasks  %s\n",
				gray(repl.ShortID(p.ID)), p.Name, p.Progress()*100,
				p.PhaseCount, p.TaskCount, gray(p.UpdatedAt.Local().Format("2006-01-02 15:04")))
		}
		fmt.Println()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show a project's details and progress",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p, err := findProject(ctx, argOr(args, 0))
		exitOnErr("finding project", err)

		g, err := backend.Load(ctx, p.ID)
		exitOnErr("loading plan", err)

		p.Recount(*g)
		repl.PrintProject(os.Stdout, *p)
		fmt.Println()
		for _, st := range graph.Stats(*g) {
			fmt.Printf("  %-32s %d/%d done\n", st.Label, st.Completed, st.Tasks)
		}
		fmt.Println()
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:     "update <project>",
	Aliases: []string{"rename"},
	Short:   "Change a project's name, description or color",
	Long: `Change project metadata. Renaming a project also relabels its root node the next
time the plan is opened.

Examples:
  nexus project update Website --name "Website v2"
  nexus project update 3fa8 --description "Q3 scope"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p, err := findProject(ctx, args[0])
		exitOnErr("finding project", err)

		var u types.ProjectUpdate
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			u.Name = &name
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			u.Description = &description
		}
		if cmd.Flags().Changed("color") {
			colorTag, _ := cmd.Flags().GetString("color")
			u.Color = &colorTag
		}
		if u == (types.ProjectUpdate{}) {
			fmt.Fprintf(os.Stderr, "Error: nothing to update (use --name, --description or --color)\n")
			os.Exit(1)
		}

		updated, err := backend.UpdateProject(ctx, p.ID, u)
		exitOnErr("updating project", err)

		if u.Name != nil {
			// Opening the project re-syncs the root label to the new name.
			s, err := openSession(ctx, updated.ID, nil)
			exitOnErr("relabelling root", err)
			exitOnErr("saving project", s.close())
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Updated project %s\n", green("✓"), updated.Name)
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete <project>",
	Aliases: []string{"rm"},
	Short:   "Delete a project and its whole plan",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		ctx := context.Background()
		p, err := findProject(ctx, args[0])
		exitOnErr("finding project", err)

		if !force {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s This deletes %q with %d phases and %d tasks. Re-run with --force to confirm.\n",
				yellow("⚠"), p.Name, p.PhaseCount, p.TaskCount)
			return
		}

		exitOnErr("deleting project", backend.DeleteProject(ctx, p.ID))
		emitter.Emit(ctx, events.NewEvent(events.EventTypeProjectDeleted, p.ID, "cli",
			events.SeverityInfo, fmt.Sprintf("Deleted project %q", p.Name), nil))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted project %s\n", green("✓"), p.Name)
	},
}

func argOr(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func init() {
	projectCreateCmd.Flags().StringP("description", "d", "", "Project description")
	projectCreateCmd.Flags().String("color", types.DefaultColor, "Color tag")

	projectUpdateCmd.Flags().String("name", "", "New name")
	projectUpdateCmd.Flags().StringP("description", "d", "", "New description")
	projectUpdateCmd.Flags().String("color", "", "New color tag")

	projectDeleteCmd.Flags().BoolP("force", "f", false, "Delete without asking")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectUpdateCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
