package types

import (
	"fmt"
	"time"
)

// ProjectStatus is the lifecycle state of a project, derived from its tasks
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// DefaultColor is the color tag given to projects created without one.
const DefaultColor = "from-blue-500 to-blue-600"

// Project is the aggregate root holding a plan's metadata. The plan itself (nodes, edges,
// details) is loaded separately as a Graph.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Color          string        `json:"color"`
	Owner          string        `json:"owner,omitempty"`
	Status         ProjectStatus `json:"status"`
	PhaseCount     int           `json:"phases"`
	TaskCount      int           `json:"tasks"`
	CompletedTasks int           `json:"completedTasks"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Validate checks if the project has valid field values
func (p *Project) Validate() error {
	if len(p.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(p.Name))
	}
	return nil
}

// Recount derives the counters and status from the node collection of g.
func (p *Project) Recount(g Graph) {
	p.PhaseCount, p.TaskCount, p.CompletedTasks = 0, 0, 0
	for _, n := range g.Nodes {
		switch n.Kind {
		case KindPhase:
			p.PhaseCount++
		case KindTask:
			p.TaskCount++
			if n.Data.Status == StatusDone {
				p.CompletedTasks++
			}
		}
	}

	switch {
	case p.TaskCount > 0 && p.CompletedTasks == p.TaskCount:
		p.Status = ProjectCompleted
	case p.TaskCount > 0:
		p.Status = ProjectInProgress
	default:
		p.Status = ProjectPlanning
	}
}

// Progress returns the completed fraction of tasks in [0,1].
func (p *Project) Progress() float64 {
	if p.TaskCount == 0 {
		return 0
	}
	return float64(p.CompletedTasks) / float64(p.TaskCount)
}

// ProjectUpdate carries the project fields to change. Nil fields are left unchanged.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Color       *string
}

// Apply merges u into p.
func (u ProjectUpdate) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Color != nil {
		p.Color = *u.Color
	}
}

// NewProject returns a project with defaults applied and timestamps set.
func NewProject(id, name, description, color string) *Project {
	if color == "" {
		color = DefaultColor
	}
	now := time.Now().UTC()
	return &Project{
		ID:          id,
		Name:        name,
		Description: description,
		Color:       color,
		Status:      ProjectPlanning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Document is a project together with its plan, as held by the local store.
type Document struct {
	Project Project `json:"project"`
	Graph   Graph   `json:"graph"`
}
