// Package planner turns a free-text project description into phases and tasks.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/types"
)

// PlannedPhase is one phase of a generated plan.
type PlannedPhase struct {
	Name  string   `json:"name"`
	Tasks []string `json:"tasks"`
}

// Plan is the generator's answer: phases in order, each with task titles.
type Plan struct {
	Phases []PlannedPhase `json:"phases"`
}

// Generator produces a plan for a project description.
type Generator interface {
	Generate(ctx context.Context, description string) (*Plan, error)
}

// ErrEmptyDescription is returned when there is nothing to plan.
var ErrEmptyDescription = errors.New("project description is required")

// Validate checks that every phase is named and task titles are non-empty.
func (p *Plan) Validate() error {
	if p == nil || len(p.Phases) == 0 {
		return errors.New("plan has no phases")
	}
	for i, ph := range p.Phases {
		if strings.TrimSpace(ph.Name) == "" {
			return fmt.Errorf("phase %d has no name", i+1)
		}
		for j, task := range ph.Tasks {
			if strings.TrimSpace(task) == "" {
				return fmt.Errorf("phase %d task %d has no title", i+1, j+1)
			}
		}
	}
	return nil
}

// TaskCount returns the number of tasks across all phases.
func (p *Plan) TaskCount() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.Tasks)
	}
	return n
}

// ApplyOptions controls how a plan is written into a store.
type ApplyOptions struct {
	// Replace removes every existing phase (and its tasks) first. The root is kept.
	Replace bool
}

// ApplyResult reports what Apply created.
type ApplyResult struct {
	PhaseIDs []string
	Tasks    int
	Removed  int
}

// Apply adds the plan's phases and tasks under the store's root in a single commit.
// Nothing is committed when any step fails.
func Apply(store *graph.Store, plan *Plan, opts ApplyOptions) (*ApplyResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	var result *ApplyResult
	err := store.Apply(func(g types.Graph) (types.Graph, error) {
		res := &ApplyResult{}
		if opts.Replace {
			for _, ph := range g.Phases() {
				g = graph.DeletePhase(g, ph.ID)
				res.Removed++
			}
		}
		for _, ph := range plan.Phases {
			next, phase, err := graph.AddPhase(g, strings.TrimSpace(ph.Name))
			if err != nil {
				return g, err
			}
			g = next
			res.PhaseIDs = append(res.PhaseIDs, phase.ID)
			for _, title := range ph.Tasks {
				next, _, err := graph.AddTask(g, phase.ID, strings.TrimSpace(title))
				if err != nil {
					return g, err
				}
				g = next
				res.Tasks++
			}
		}
		result = res
		return g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply plan: %w", err)
	}
	return result, nil
}

// Prompt builds the generation prompt for a description.
func Prompt(description string) string {
	return fmt.Sprintf(`Based on the project description: %q, generate a project plan.

Return ONLY a valid JSON object with a single key "phases". "phases" is an array of objects,
each with a "name" (string) for the phase and "tasks" (array of strings) for the tasks in
that phase. Order phases in the sequence they should be executed. Do not include any other
text or markdown in your response.`, strings.TrimSpace(description))
}
