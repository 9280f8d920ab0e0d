package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nexusmap/nexus/internal/types"
)

// copier is satisfied by *pgxpool.Pool and pgx.Tx.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

func copyNodes(ctx context.Context, c copier, projectID string, nodes []types.Node) error {
	rows := make([][]any, len(nodes))
	for i, n := range nodes {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to encode node %s: %w", n.ID, err)
		}
		rows[i] = []any{projectID, n.ID, string(n.Kind), n.Position.X, n.Position.Y, json.RawMessage(data), i}
	}
	_, err := c.CopyFrom(ctx, pgx.Identifier{"nodes"},
		[]string{"project_id", "id", "type", "position_x", "position_y", "data", "ord"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert nodes: %w", err)
	}
	return nil
}

func copyEdges(ctx context.Context, c copier, projectID string, edges []types.Edge) error {
	rows := make([][]any, len(edges))
	for i, e := range edges {
		style, err := json.Marshal(e.Style)
		if err != nil {
			return fmt.Errorf("failed to encode edge %s: %w", e.ID, err)
		}
		rows[i] = []any{projectID, e.ID, e.Source, e.Target, json.RawMessage(style), i}
	}
	_, err := c.CopyFrom(ctx, pgx.Identifier{"edges"},
		[]string{"project_id", "id", "source", "target", "style", "ord"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert edges: %w", err)
	}
	return nil
}

func copyDetails(ctx context.Context, c copier, projectID string, details []types.TaskDetail) error {
	rows := make([][]any, len(details))
	for i, d := range details {
		rows[i] = []any{projectID, d.NodeID, d.Title, d.Description, string(d.Status)}
	}
	_, err := c.CopyFrom(ctx, pgx.Identifier{"task_details"},
		[]string{"project_id", "node_id", "title", "description", "status"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert task details: %w", err)
	}
	return nil
}

// detailList returns the detail records of g ordered like the task nodes, followed by any
// records without a task node in key order.
func detailList(g *types.Graph) []types.TaskDetail {
	out := make([]types.TaskDetail, 0, len(g.Details))
	seen := make(map[string]bool, len(g.Details))
	for _, n := range g.Nodes {
		if d, ok := g.Details[n.ID]; ok && !seen[n.ID] {
			out = append(out, d)
			seen[n.ID] = true
		}
	}
	var rest []string
	for k := range g.Details {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, g.Details[k])
	}
	return out
}

// InsertNodes appends nodes to a project.
func (s *Storage) InsertNodes(ctx context.Context, projectID string, nodes []types.Node) error {
	return copyNodes(ctx, s.pool, projectID, nodes)
}

// InsertEdges appends edges to a project.
func (s *Storage) InsertEdges(ctx context.Context, projectID string, edges []types.Edge) error {
	return copyEdges(ctx, s.pool, projectID, edges)
}

// InsertTaskDetails appends task detail records to a project.
func (s *Storage) InsertTaskDetails(ctx context.Context, projectID string, details []types.TaskDetail) error {
	return copyDetails(ctx, s.pool, projectID, details)
}

// Load reads the plan of a project.
func (s *Storage) Load(ctx context.Context, projectID string) (*types.Graph, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	g := types.NewGraph()

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, position_x, position_y, data
		FROM nodes WHERE project_id = $1 ORDER BY ord
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	for rows.Next() {
		var n types.Node
		var kind string
		var data []byte
		if err := rows.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Kind = types.NodeKind(kind)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to decode node %s: %w", n.ID, err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, source, target, style
		FROM edges WHERE project_id = $1 ORDER BY ord
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	for rows.Next() {
		var e types.Edge
		var style []byte
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &style); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if err := json.Unmarshal(style, &e.Style); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to decode edge %s: %w", e.ID, err)
		}
		g.Edges = append(g.Edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT node_id, title, description, status
		FROM task_details WHERE project_id = $1
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task details: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d types.TaskDetail
		var status string
		if err := rows.Scan(&d.NodeID, &d.Title, &d.Description, &status); err != nil {
			return nil, fmt.Errorf("failed to scan task detail: %w", err)
		}
		d.Status = types.TaskStatus(status)
		g.Details[d.NodeID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task details: %w", err)
	}

	return &g, nil
}

// Save replaces every plan row of a project in one transaction and refreshes the project
// counters.
func (s *Storage) Save(ctx context.Context, projectID string, g *types.Graph) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", types.ErrProjectNotFound, projectID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock project: %w", err)
	}

	for _, table := range []string{"task_details", "edges", "nodes"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE project_id = $1`, projectID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := copyNodes(ctx, tx, projectID, g.Nodes); err != nil {
		return err
	}
	if err := copyEdges(ctx, tx, projectID, g.Edges); err != nil {
		return err
	}
	if err := copyDetails(ctx, tx, projectID, detailList(g)); err != nil {
		return err
	}

	var p types.Project
	p.Recount(*g)
	_, err = tx.Exec(ctx, `
		UPDATE projects
		SET phases = $2, tasks = $3, completed_tasks = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, projectID, p.PhaseCount, p.TaskCount, p.CompletedTasks, string(p.Status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update project counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
