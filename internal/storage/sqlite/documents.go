package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nexusmap/nexus/internal/ids"
	"github.com/nexusmap/nexus/internal/types"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Storage) readDocument(ctx context.Context, q querier, projectID string) (*types.Document, error) {
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE project_id = ? AND mode = ?",
		projectID, s.mode,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrProjectNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", projectID, err)
	}

	var doc types.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", projectID, err)
	}
	if doc.Graph.Details == nil {
		doc.Graph.Details = make(map[string]types.TaskDetail)
	}
	return &doc, nil
}

func (s *Storage) writeDocument(ctx context.Context, q querier, doc *types.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.Project.ID, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (project_id, mode, name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, mode) DO UPDATE SET
			name = excluded.name,
			body = excluded.body,
			updated_at = excluded.updated_at
	`,
		doc.Project.ID, s.mode, doc.Project.Name, string(body),
		doc.Project.CreatedAt.UnixNano(), doc.Project.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.Project.ID, err)
	}
	return nil
}

// update runs fn on the stored document inside a transaction and writes the result back.
func (s *Storage) update(ctx context.Context, projectID string, fn func(*types.Document) error) (*types.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.readDocument(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	doc.Project.UpdatedAt = time.Now().UTC()
	if err := s.writeDocument(ctx, tx, doc); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return doc, nil
}

// CreateProject stores p with an empty plan. An empty ID is filled in.
func (s *Storage) CreateProject(ctx context.Context, p *types.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	if p.ID == "" {
		p.ID = ids.NewProjectID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.Color == "" {
		p.Color = types.DefaultColor
	}
	if p.Status == "" {
		p.Status = types.ProjectPlanning
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE project_id = ? AND mode = ?", p.ID, s.mode,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project %s: %w", p.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("project %s already exists", p.ID)
	}

	return s.writeDocument(ctx, s.db, &types.Document{Project: *p, Graph: types.NewGraph()})
}

// PutDocument creates or replaces a whole document.
func (s *Storage) PutDocument(ctx context.Context, doc *types.Document) error {
	if doc.Project.ID == "" {
		return fmt.Errorf("document has no project id")
	}
	return s.writeDocument(ctx, s.db, doc)
}

// LoadDocument returns the project and its plan.
func (s *Storage) LoadDocument(ctx context.Context, projectID string) (*types.Document, error) {
	return s.readDocument(ctx, s.db, projectID)
}

// GetProject returns the project record.
func (s *Storage) GetProject(ctx context.Context, projectID string) (*types.Project, error) {
	doc, err := s.readDocument(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	return &doc.Project, nil
}

// ListProjects returns the projects of this mode, most recently updated first.
func (s *Storage) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM documents WHERE mode = ? ORDER BY updated_at DESC, project_id",
		s.mode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*types.Project
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var doc struct {
			Project types.Project `json:"project"`
		}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		projects = append(projects, &doc.Project)
	}
	return projects, rows.Err()
}

// UpdateProject applies u to the project record.
func (s *Storage) UpdateProject(ctx context.Context, projectID string, u types.ProjectUpdate) (*types.Project, error) {
	doc, err := s.update(ctx, projectID, func(doc *types.Document) error {
		u.Apply(&doc.Project)
		if err := doc.Project.Validate(); err != nil {
			return fmt.Errorf("invalid project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc.Project, nil
}

// DeleteProject removes the project document. Deleting an unknown project is not an error.
func (s *Storage) DeleteProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE project_id = ? AND mode = ?", projectID, s.mode,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", projectID, err)
	}
	return nil
}

// Load returns the stored plan of a project.
func (s *Storage) Load(ctx context.Context, projectID string) (*types.Graph, error) {
	doc, err := s.readDocument(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	return &doc.Graph, nil
}

// Save replaces the stored plan and refreshes the project counters.
func (s *Storage) Save(ctx context.Context, projectID string, g *types.Graph) error {
	_, err := s.update(ctx, projectID, func(doc *types.Document) error {
		doc.Graph = g.Clone()
		doc.Project.Recount(doc.Graph)
		return nil
	})
	return err
}
