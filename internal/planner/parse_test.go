package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	want := &Plan{Phases: []PlannedPhase{
		{Name: "Research", Tasks: []string{"Interview users", "Survey market"}},
		{Name: "Build", Tasks: []string{"Prototype"}},
	}}
	bare := `{"phases": [{"name": "Research", "tasks": ["Interview users", "Survey market"]}, {"name": "Build", "tasks": ["Prototype"]}]}`

	tests := []struct {
		name  string
		input string
	}{
		{"bare json", bare},
		{"json fence", "```json\n" + bare + "\n```"},
		{"plain fence", "```\n" + bare + "\n```"},
		{"prose around fence", "Here is your plan:\n```json\n" + bare + "\n```\nGood luck!"},
		{"prose around object", "Sure! " + bare + " Let me know if you need changes."},
		{"trailing commas", `{"phases": [{"name": "Research", "tasks": ["Interview users", "Survey market",]}, {"name": "Build", "tasks": ["Prototype"]},]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlan(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"not json", "I cannot help with that."},
		{"no phases key", `{"steps": []}`},
		{"phases wrong type", `{"phases": "lots"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestRemoveCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, removeCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, removeCodeFences("`{\"a\":1}`"))
	assert.Equal(t, `{"a":1}`, removeCodeFences(`{"a":1}`))
}
