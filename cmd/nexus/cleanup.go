package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// cleanupBatchSize is the number of events removed per statement.
const cleanupBatchSize = 1000

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Cleanup and maintenance commands",
	Long:  `Commands for cleaning up old data in the local database.`,
}

var cleanupEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Clean up old activity events",
	Long: `Delete old activity events according to the retention policy.

Runs two cleanup strategies in sequence:
  1. Time-based: delete events older than events.retention_days
  2. Per-project: keep at most events.per_project_limit events per project

Examples:
  nexus cleanup events                      # Run cleanup with configured limits
  nexus cleanup events --retention-days 7   # Keep one week
  nexus cleanup events --dry-run            # Show counts without deleting`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retentionDays := cfg.Events.RetentionDays
		if cmd.Flags().Changed("retention-days") {
			retentionDays, _ = cmd.Flags().GetInt("retention-days")
		}
		perProjectLimit := cfg.Events.PerProjectLimit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		fmt.Printf("Event Retention Configuration:\n")
		fmt.Printf("  Retention: %d days\n", retentionDays)
		if perProjectLimit > 0 {
			fmt.Printf("  Per-project limit: %d events\n", perProjectLimit)
		} else {
			fmt.Printf("  Per-project limit: unlimited\n")
		}
		fmt.Println()

		beforeCounts, err := local.GetEventCounts(ctx)
		exitOnErr("failed to get event counts", err)

		fmt.Printf("Current state:\n")
		fmt.Printf("  Total events: %s\n", formatNumber(beforeCounts.TotalEvents))
		fmt.Printf("  Projects with events: %s\n", formatNumber(len(beforeCounts.EventsByProject)))
		fmt.Println()

		if dryRun {
			fmt.Printf("%s\n", color.YellowString("DRY RUN MODE - No events were deleted"))
			return
		}

		startTime := time.Now()
		totalDeleted := 0

		fmt.Printf("Running time-based cleanup (>%d days)...\n", retentionDays)
		ageDeleted, err := local.CleanupEventsByAge(ctx, retentionDays, cleanupBatchSize)
		exitOnErr("time-based cleanup failed", err)
		fmt.Printf("  Deleted %s events\n", formatNumber(ageDeleted))
		totalDeleted += ageDeleted

		if perProjectLimit > 0 {
			fmt.Printf("\nRunning per-project cleanup (limit: %d events/project)...\n", perProjectLimit)
			projectDeleted, err := local.CleanupEventsByProjectLimit(ctx, perProjectLimit)
			exitOnErr("per-project cleanup failed", err)
			fmt.Printf("  Deleted %s events\n", formatNumber(projectDeleted))
			totalDeleted += projectDeleted
		} else {
			fmt.Printf("\nSkipping per-project cleanup (unlimited)\n")
		}

		afterCounts, err := local.GetEventCounts(ctx)

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s Cleanup complete\n", green("✓"))
		fmt.Printf("  Events deleted: %s\n", formatNumber(totalDeleted))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to get final event counts: %v\n", err)
			fmt.Printf("  Events remaining: ~%s (estimated)\n", formatNumber(max(beforeCounts.TotalEvents-totalDeleted, 0)))
		} else {
			fmt.Printf("  Events remaining: %s\n", formatNumber(afterCounts.TotalEvents))
		}
		fmt.Printf("  Time taken: %s\n", time.Since(startTime).Round(time.Millisecond))
	},
}

func init() {
	cleanupEventsCmd.Flags().Bool("dry-run", false, "Show counts without deleting")
	cleanupEventsCmd.Flags().Int("retention-days", 0, "Delete events older than N days (default: events.retention_days)")

	cleanupCmd.AddCommand(cleanupEventsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// formatNumber formats a number with thousand separators
func formatNumber(n int) string {
	if n < 0 {
		return fmt.Sprintf("-%s", formatNumber(-n))
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d,%03d", n/1000000000, (n/1000000)%1000, (n/1000)%1000, n%1000)
}
