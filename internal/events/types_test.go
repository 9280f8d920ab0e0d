package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventFilterMatches(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &Event{
		ProjectID: "p1",
		Type:      EventTypeSaveFailed,
		Severity:  SeverityError,
		Timestamp: base,
	}

	tests := []struct {
		name     string
		filter   EventFilter
		expected bool
	}{
		{"empty filter", EventFilter{}, true},
		{"same project", EventFilter{ProjectID: "p1"}, true},
		{"other project", EventFilter{ProjectID: "p2"}, false},
		{"same type", EventFilter{Type: EventTypeSaveFailed}, true},
		{"other type", EventFilter{Type: EventTypeSaveCompleted}, false},
		{"same severity", EventFilter{Severity: SeverityError}, true},
		{"other severity", EventFilter{Severity: SeverityInfo}, false},
		{"after earlier time", EventFilter{AfterTime: base.Add(-time.Second)}, true},
		{"after same time", EventFilter{AfterTime: base}, false},
		{"limit ignored", EventFilter{Limit: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(event))
		})
	}
}
