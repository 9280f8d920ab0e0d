// Package exchange converts projects to and from the portable JSON document used for
// download and upload.
package exchange

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// FormatVersion is written to every exported document.
const FormatVersion = "1.0.0"

// Document is the exported form of a project.
type Document struct {
	ExportDate  time.Time    `json:"exportDate"`
	Version     string       `json:"version"`
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Color       string       `json:"color"`
	Nodes       []types.Node `json:"nodes"`
	Edges       []types.Edge `json:"edges"`
}

// Export renders a project and its plan as an indented JSON document.
func Export(p types.Project, g types.Graph) ([]byte, error) {
	doc := Document{
		ExportDate:  time.Now().UTC(),
		Version:     FormatVersion,
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		Nodes:       g.Nodes,
		Edges:       g.Edges,
	}
	if doc.Nodes == nil {
		doc.Nodes = []types.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []types.Edge{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project %s: %w", p.ID, err)
	}
	return data, nil
}

// Import validates an exported document and returns the project and plan it describes.
// Validation happens before anything is decoded: a rejected document yields a
// *ValidationError and no partial result.
//
// Detail records are rebuilt from the task nodes, task statuses are normalised and
// tasks missing a phase reference get the one their identifier embeds.
func Import(data []byte) (*types.Document, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot decode document: %v", err)}
	}

	g := types.NewGraph()
	g.Nodes = doc.Nodes
	g.Edges = doc.Edges
	if g.Nodes == nil {
		g.Nodes = []types.Node{}
	}
	if g.Edges == nil {
		g.Edges = []types.Edge{}
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind != types.KindTask {
			continue
		}
		// validate has already checked the status parses.
		status, _ := types.ParseTaskStatus(string(n.Data.Status))
		n.Data.Status = status
		if n.Data.PhaseID == "" {
			if owner, ok := ids.OwningPhase(n.ID); ok {
				n.Data.PhaseID = owner
			} else if parents := g.Parents(n.ID); len(parents) == 1 {
				n.Data.PhaseID = parents[0]
			}
		}
		g.Details[n.ID] = types.DetailFor(*n)
	}

	project := types.NewProject(doc.ID, doc.Name, doc.Description, doc.Color)
	project.Recount(g)
	return &types.Document{Project: *project, Graph: g}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]`)

// FileName suggests a download file name for a project.
func FileName(projectName string) string {
	name := unsafeFileChars.ReplaceAllString(strings.ToLower(projectName), "_")
	if name == "" {
		name = "project"
	}
	return name + ".json"
}
