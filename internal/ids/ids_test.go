package ids

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskIDEmbedsPhase(t *testing.T) {
	phase := NewPhaseID()
	task := NewTaskID(phase)

	assert.True(t, strings.HasPrefix(task, "task:"+phase+":"))

	owner, ok := OwningPhase(task)
	require.True(t, ok)
	assert.Equal(t, phase, owner)
	assert.True(t, BelongsTo(task, phase))
	assert.False(t, BelongsTo(task, NewPhaseID()))
}

func TestNewTaskIDIsUnique(t *testing.T) {
	phase := NewPhaseID()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTaskID(phase)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestOwningPhase(t *testing.T) {
	phase := uuid.New().String()
	suffix := uuid.New().String()

	tests := []struct {
		name   string
		id     string
		want   string
		wantOK bool
	}{
		{"composite", "task:" + phase + ":" + suffix, phase, true},
		{"composite with non-uuid phase", "task:phase-1:" + suffix, "phase-1", true},
		{"legacy form", "task-" + phase + "-" + suffix, phase, true},
		{"legacy with short phase", "task-p1-" + suffix, "p1", true},
		{"plain uuid", phase, "", false},
		{"empty", "", "", false},
		{"marker only", "task:", "", false},
		{"missing suffix", "task:" + phase + ":", "", false},
		{"missing phase", "task::" + suffix, "", false},
		{"legacy without uuid suffix", "task-" + phase + "-abc", "", false},
		{"legacy missing separator", "task-" + phase + suffix, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OwningPhase(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, IsTaskID(tt.id))
		})
	}
}

func TestPlainIDsHaveNoStructure(t *testing.T) {
	for _, id := range []string{NewRootID(), NewPhaseID(), NewEdgeID(), NewProjectID()} {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.False(t, IsTaskID(id))
	}
}
