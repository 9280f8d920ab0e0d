package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/nexusmap/nexus/internal/events"
)

// displayActivityEvent prints one event in the two-line activity format
func displayActivityEvent(event *events.Event) {
	if shouldSkipEvent(event) {
		return
	}

	emoji := getEventEmoji(event)
	severityColor := getSeverityColor(event.Severity)
	timestamp := event.Timestamp.Local().Format("01-02 15:04:05")

	project := color.New(color.FgGreen).Sprint(shortProjectID(event.ProjectID))
	eventType := color.New(color.FgMagenta).Sprint(event.Type)

	// Line 1: emoji + [timestamp] + project + event_type: message
	maxMessageLen := 60 - len(string(event.Type))
	message := truncateString(event.Message, maxMessageLen)
	fmt.Printf("%s [%s] %s %s: %s\n", emoji, timestamp, project, eventType, severityColor.Sprint(message))

	// Line 2: key metadata fields
	if metadata := extractEventMetadata(event); metadata != "" {
		gray := color.New(color.FgHiBlack)
		fmt.Printf("  %s\n", gray.Sprint(metadata))
	} else {
		fmt.Println()
	}
}

func shortProjectID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// getEventEmoji returns the emoji for an event type, falling back to its severity
func getEventEmoji(event *events.Event) string {
	switch event.Type {
	case events.EventTypeProjectCreated:
		return "✨"
	case events.EventTypeProjectDeleted:
		return "🗑️"
	case events.EventTypeSaveCompleted:
		return "💾"
	case events.EventTypeReloadCompleted:
		return "🔄"
	case events.EventTypeEchoSuppressed:
		return "🔇"
	case events.EventTypeBootstrapped:
		return "🌱"
	case events.EventTypeRootRenamed:
		return "🏷️"
	case events.EventTypeMigrationStarted, events.EventTypeMigrationStageCompleted:
		return "📦"
	case events.EventTypeMigrationCompleted:
		return "🚚"
	case events.EventTypeImportCompleted:
		return "📥"
	case events.EventTypePlanApplied:
		return "🧠"
	}

	switch event.Severity {
	case events.SeverityInfo:
		return "ℹ️"
	case events.SeverityWarning:
		return "⚠️"
	case events.SeverityError:
		return "❌"
	default:
		return "•"
	}
}

// getSeverityColor returns the color for a severity level
func getSeverityColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityInfo:
		return color.New(color.FgCyan)
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// extractEventMetadata returns the key data fields of an event, pipe separated
func extractEventMetadata(event *events.Event) string {
	var fields []string

	switch event.Type {
	case events.EventTypeSaveCompleted, events.EventTypeSaveFailed:
		// save: nodes | edges | duration | error
		fields = []string{
			fmt.Sprintf("%d nodes", getIntField(event.Data, "nodes", 0)),
			fmt.Sprintf("%d edges", getIntField(event.Data, "edges", 0)),
			formatDurationMs(getIntField(event.Data, "duration_ms", 0)),
			getStringField(event.Data, "error", ""),
		}

	case events.EventTypeReloadCompleted, events.EventTypeReloadFailed, events.EventTypeEchoSuppressed:
		// reload: reason | nodes | error
		fields = []string{
			getStringField(event.Data, "reason", "unknown"),
			fmt.Sprintf("%d nodes", getIntField(event.Data, "nodes", 0)),
			getStringField(event.Data, "error", ""),
		}

	case events.EventTypeMigrationStarted, events.EventTypeMigrationStageCompleted,
		events.EventTypeMigrationFailed, events.EventTypeMigrationCompleted:
		// migration: stage | rows | guest -> remote | error
		fields = []string{getStringField(event.Data, "stage", "")}
		if rows := getIntField(event.Data, "rows", 0); rows > 0 {
			fields = append(fields, fmt.Sprintf("%d rows", rows))
		}
		guest := shortProjectID(getStringField(event.Data, "guest_project_id", ""))
		if remote := getStringField(event.Data, "remote_project_id", ""); remote != "" {
			fields = append(fields, guest+" → "+shortProjectID(remote))
		} else {
			fields = append(fields, guest)
		}
		fields = append(fields, getStringField(event.Data, "error", ""))

	case events.EventTypeImportCompleted:
		fields = []string{
			fmt.Sprintf("%d nodes", getIntField(event.Data, "nodes", 0)),
			fmt.Sprintf("%d edges", getIntField(event.Data, "edges", 0)),
		}

	case events.EventTypeImportRejected:
		fields = []string{
			getStringField(event.Data, "path", ""),
			getStringField(event.Data, "reason", ""),
		}

	case events.EventTypePlanApplied:
		fields = []string{
			fmt.Sprintf("%d phases", getIntField(event.Data, "phases", 0)),
			fmt.Sprintf("%d tasks", getIntField(event.Data, "tasks", 0)),
		}
		if removed := getIntField(event.Data, "removed", 0); removed > 0 {
			fields = append(fields, fmt.Sprintf("%d replaced", removed))
		}
	}

	return truncateString(joinFields(fields), 70)
}

// Helper functions to safely extract typed fields from event data
func getStringField(data map[string]interface{}, key, defaultValue string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return defaultValue
}

func getIntField(data map[string]interface{}, key string, defaultValue int) int {
	switch val := data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return defaultValue
}

// formatDurationMs formats milliseconds into a human-readable duration
func formatDurationMs(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%.1fm", float64(ms)/60000)
}

// joinFields joins the non-empty fields with " | "
func joinFields(fields []string) string {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " | ")
}

// shouldSkipEvent hides echo notifications unless they were asked for
func shouldSkipEvent(event *events.Event) bool {
	return event.Type == events.EventTypeEchoSuppressed && !showEchoes
}

// truncateString truncates a string to maxLen, adding "..." if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
