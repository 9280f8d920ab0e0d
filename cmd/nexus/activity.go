package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/events"
)

// showEchoes makes the activity feed include echo_suppressed events.
var showEchoes bool

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent sync, migration and import events",
	Long: `Display recent activity recorded in the local database.

Shows events including:
- Project creation and deletion
- Saves and reloads (with the reason: initial, remote, force)
- Root bootstrap and relabelling
- Migration stages
- Imports and generated plans

Notifications discarded as echoes of our own saves are hidden unless --echoes is set.

Examples:
  nexus activity                       # Show last 20 events
  nexus activity -n 50                 # Show last 50 events
  nexus activity -p Website            # Events for one project
  nexus activity --type save_failed    # Only failed saves
  nexus activity --severity error      # Only errors`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		eventType, _ := cmd.Flags().GetString("type")
		severity, _ := cmd.Flags().GetString("severity")
		ctx := context.Background()

		filter := events.EventFilter{
			Limit:    limit,
			Type:     events.EventType(eventType),
			Severity: events.EventSeverity(severity),
		}
		if projectRef != "" {
			p, err := findProject(ctx, projectRef)
			exitOnErr("finding project", err)
			filter.ProjectID = p.ID
		}

		eventList, err := local.GetEvents(ctx, filter)
		exitOnErr("fetching events", err)

		if len(eventList) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No events found matching the criteria\n\n", yellow("✨"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Recent Activity (%d events):\n\n", cyan("📋"), len(eventList))

		// Events come newest first; print oldest first so the feed reads top to bottom.
		for i := len(eventList) - 1; i >= 0; i-- {
			displayActivityEvent(eventList[i])
		}
		fmt.Println()
	},
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	activityCmd.Flags().StringP("type", "t", "", "Filter by event type (e.g. save_failed, migration_failed)")
	activityCmd.Flags().StringP("severity", "s", "", "Filter by severity (info, warning, error)")
	activityCmd.Flags().BoolVar(&showEchoes, "echoes", false, "Include suppressed echo notifications")
	rootCmd.AddCommand(activityCmd)
}
