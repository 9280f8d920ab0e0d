package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/cost"
	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/layout"
	"github.com/nexusmap/nexus/internal/planner"
)

// newGenerator builds the plan generator from the planner config section.
// Token usage is charged to a budget persisted next to the local database.
func newGenerator() (planner.Generator, error) {
	budgetCfg := cost.DefaultConfig()
	budgetCfg.MaxTokensPerHour = cfg.Planner.HourlyTokenBudget
	budgetCfg.MaxCostPerHour = cfg.Planner.HourlyCostBudget
	budgetCfg.PersistStatePath = filepath.Join(filepath.Dir(cfg.Storage.LocalPath), "planner-budget.json")
	tracker, err := cost.NewTracker(budgetCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create budget tracker: %w", err)
	}

	retry := planner.DefaultRetryConfig()
	retry.Timeout = cfg.Planner.Timeout
	return planner.NewAnthropicGenerator(&planner.Config{
		Model:     cfg.Planner.Model,
		MaxTokens: cfg.Planner.MaxTokens,
		Retry:     retry,
		Budget:    tracker,
		Logger:    logger,
	})
}

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Draft a project plan with AI",
	Long: `Ask the plan generator for phases and tasks matching a description and add them
to a project. By default the generated phases replace the existing ones; use
--append to keep them.

A plan can also be read from a JSON file ({"phases":[{"name":..., "tasks":[...]}]})
with --from-file, which needs no API key.

Requires ANTHROPIC_API_KEY unless --from-file is used.

Examples:
  nexus generate "A mobile app for booking climbing gym sessions"
  nexus -p Website generate --append "Add an accessibility audit"
  nexus generate --from-file plan.json`,
	Run: func(cmd *cobra.Command, args []string) {
		appendPlan, _ := cmd.Flags().GetBool("append")
		fromFile, _ := cmd.Flags().GetString("from-file")
		description := strings.TrimSpace(strings.Join(args, " "))
		ctx := context.Background()

		var plan *planner.Plan
		if fromFile != "" {
			data, err := os.ReadFile(fromFile)
			exitOnErr("reading plan", err)
			plan, err = planner.ParsePlan(string(data))
			exitOnErr("parsing plan", err)
		} else {
			if description == "" {
				exitOnErr("generating plan", planner.ErrEmptyDescription)
			}
			gen, err := newGenerator()
			exitOnErr("configuring plan generator", err)

			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Println(gray("Generating plan..."))
			plan, err = gen.Generate(ctx, description)
			exitOnErr("generating plan", err)
		}

		s, err := openSession(ctx, projectRef, nil)
		exitOnErr("opening project", err)

		res, err := planner.Apply(s.store, plan, planner.ApplyOptions{Replace: !appendPlan})
		if err != nil {
			_ = s.close()
			exitOnErr("applying plan", err)
		}
		s.store.ApplyPositions(layout.Layout(s.store.Snapshot(), layoutOptions()))

		// Persist now and read back what the backend holds.
		if err := s.ctl.Flush(ctx); err != nil {
			_ = s.close()
			exitOnErr("saving plan", err)
		}
		if err := s.ctl.ForceRefresh(ctx); err != nil {
			logger.Warn("failed to reload after generating", "project_id", s.project.ID, "error", err)
		}
		exitOnErr("saving plan", s.close())

		emitter.Emit(ctx, events.NewEvent(events.EventTypePlanApplied, s.project.ID, "planner",
			events.SeverityInfo, fmt.Sprintf("Applied plan with %d phases", len(res.PhaseIDs)),
			map[string]interface{}{"phases": len(res.PhaseIDs), "tasks": res.Tasks, "removed": res.Removed}))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added %d phases with %d tasks to %s", green("✓"), len(res.PhaseIDs), res.Tasks, s.project.Name)
		if res.Removed > 0 {
			fmt.Printf(" (replaced %d phases)", res.Removed)
		}
		fmt.Println()
		for _, ph := range plan.Phases {
			fmt.Printf("  • %s (%d tasks)\n", ph.Name, len(ph.Tasks))
		}
	},
}

func init() {
	generateCmd.Flags().Bool("append", false, "Keep existing phases and add the generated ones")
	generateCmd.Flags().String("from-file", "", "Read the plan from a JSON file instead of generating it")
	rootCmd.AddCommand(generateCmd)
}
