// Package migration moves a guest project from the local store into the remote store.
//
// The transfer runs as a sequence of stages. A failed stage stops the run and leaves
// both copies in place: local data is only removed after every remote write succeeded,
// and partially written remote rows are left for inspection. Nothing is rolled back.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/types"
)

// Stage names a step of a migration.
type Stage string

const (
	StageRead    Stage = "read"
	StageProject Stage = "project"
	StageNodes   Stage = "nodes"
	StageEdges   Stage = "edges"
	StageDetails Stage = "details"
)

// DefaultDescription is used when the guest project has none.
const DefaultDescription = "Migrated from guest session"

// Source is the local store a guest project is read from.
type Source interface {
	ListProjects(ctx context.Context) ([]*types.Project, error)
	LoadDocument(ctx context.Context, projectID string) (*types.Document, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// Target is the remote store a guest project is written to.
type Target interface {
	CreateProject(ctx context.Context, p *types.Project) error
	InsertNodes(ctx context.Context, projectID string, nodes []types.Node) error
	InsertEdges(ctx context.Context, projectID string, edges []types.Edge) error
	InsertTaskDetails(ctx context.Context, projectID string, details []types.TaskDetail) error
}

// StageError reports the stage a migration stopped at.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("migration failed at %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result describes a completed migration.
type Result struct {
	GuestProjectID  string
	RemoteProjectID string
	Nodes           int
	Edges           int
	Details         int
	// ClearErr is set when the remote copy is complete but the local copy could not be
	// removed. The migration still counts as successful.
	ClearErr error
}

// Config holds migrator configuration
type Config struct {
	Source Source
	Target Target
	Events *events.Emitter // Optional
	Logger *slog.Logger    // Optional, defaults to slog.Default()
}

// Migrator runs guest-to-remote migrations.
type Migrator struct {
	src    Source
	dst    Target
	events *events.Emitter
	logger *slog.Logger
}

// NewMigrator creates a migrator.
func NewMigrator(cfg *Config) (*Migrator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{src: cfg.Source, dst: cfg.Target, events: cfg.Events, logger: logger}, nil
}

// Migrate copies guestProjectID from src to dst under owner with default settings.
func Migrate(ctx context.Context, src Source, dst Target, guestProjectID, owner string) (*Result, error) {
	m, err := NewMigrator(&Config{Source: src, Target: dst})
	if err != nil {
		return nil, err
	}
	return m.Migrate(ctx, guestProjectID, owner)
}

// Migrate copies the guest project to a new remote project owned by owner, then removes
// the local copy.
func (m *Migrator) Migrate(ctx context.Context, guestProjectID, owner string) (*Result, error) {
	result := &Result{GuestProjectID: guestProjectID}
	m.emit(ctx, events.EventTypeMigrationStarted, events.SeverityInfo, "starting guest project migration",
		events.MigrationData{GuestProjectID: guestProjectID})

	doc, err := m.src.LoadDocument(ctx, guestProjectID)
	if err != nil {
		return nil, m.fail(ctx, result, StageRead, fmt.Errorf("failed to read guest project: %w", err))
	}
	g := doc.Graph.Clone()

	project := remoteProject(doc.Project, owner, g)
	if err := m.dst.CreateProject(ctx, project); err != nil {
		return nil, m.fail(ctx, result, StageProject, err)
	}
	result.RemoteProjectID = project.ID
	m.stageDone(ctx, result, StageProject, 1)

	if len(g.Nodes) > 0 {
		if err := m.dst.InsertNodes(ctx, project.ID, g.Nodes); err != nil {
			return nil, m.fail(ctx, result, StageNodes, err)
		}
	}
	result.Nodes = len(g.Nodes)
	m.stageDone(ctx, result, StageNodes, result.Nodes)

	if len(g.Edges) > 0 {
		if err := m.dst.InsertEdges(ctx, project.ID, g.Edges); err != nil {
			return nil, m.fail(ctx, result, StageEdges, err)
		}
	}
	result.Edges = len(g.Edges)
	m.stageDone(ctx, result, StageEdges, result.Edges)

	details := sortedDetails(g.Details)
	if len(details) > 0 {
		if err := m.dst.InsertTaskDetails(ctx, project.ID, details); err != nil {
			return nil, m.fail(ctx, result, StageDetails, err)
		}
	}
	result.Details = len(details)
	m.stageDone(ctx, result, StageDetails, result.Details)

	if err := m.src.DeleteProject(ctx, guestProjectID); err != nil {
		result.ClearErr = fmt.Errorf("failed to clear guest project: %w", err)
		m.logger.Warn("migration succeeded but guest data was not cleared",
			"guest_project_id", guestProjectID, "error", err)
	}

	m.emit(ctx, events.EventTypeMigrationCompleted, events.SeverityInfo, "guest project migrated",
		events.MigrationData{
			GuestProjectID:  guestProjectID,
			RemoteProjectID: project.ID,
			Rows:            result.Nodes + result.Edges + result.Details,
		})
	return result, nil
}

// remoteProject builds the record created in the remote store. The remote store assigns
// a fresh id.
func remoteProject(guest types.Project, owner string, g types.Graph) *types.Project {
	p := &types.Project{
		Name:        guest.Name,
		Description: guest.Description,
		Color:       guest.Color,
		Owner:       owner,
		Status:      guest.Status,
	}
	if p.Description == "" {
		p.Description = DefaultDescription
	}
	if p.Color == "" {
		p.Color = types.DefaultColor
	}
	p.Recount(g)
	return p
}

func sortedDetails(m map[string]types.TaskDetail) []types.TaskDetail {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.TaskDetail, 0, len(keys))
	for _, k := range keys {
		d := m[k]
		if d.NodeID == "" {
			d.NodeID = k
		}
		out = append(out, d)
	}
	return out
}

func (m *Migrator) fail(ctx context.Context, result *Result, stage Stage, err error) error {
	m.emit(ctx, events.EventTypeMigrationFailed, events.SeverityError, "guest project migration failed",
		events.MigrationData{
			GuestProjectID:  result.GuestProjectID,
			RemoteProjectID: result.RemoteProjectID,
			Stage:           string(stage),
			Error:           err.Error(),
		})
	return &StageError{Stage: stage, Err: err}
}

func (m *Migrator) stageDone(ctx context.Context, result *Result, stage Stage, rows int) {
	m.emit(ctx, events.EventTypeMigrationStageCompleted, events.SeverityInfo, "migration stage completed",
		events.MigrationData{
			GuestProjectID:  result.GuestProjectID,
			RemoteProjectID: result.RemoteProjectID,
			Stage:           string(stage),
			Rows:            rows,
		})
}

func (m *Migrator) emit(ctx context.Context, t events.EventType, sev events.EventSeverity, msg string, data events.MigrationData) {
	ev, err := events.NewMigrationEvent(t, data.GuestProjectID, sev, msg, data)
	if err != nil {
		m.logger.Warn("failed to build event", "event_type", t, "error", err)
		return
	}
	m.events.Emit(ctx, ev)
}

// ErrNoGuestProject is returned when the local store holds no projects.
var ErrNoGuestProject = errors.New("no guest project to migrate")

// HasGuestData reports whether the local store holds any project.
func HasGuestData(ctx context.Context, src Source) (bool, error) {
	projects, err := src.ListProjects(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list guest projects: %w", err)
	}
	return len(projects) > 0, nil
}

// MostRecentGuestProject returns the id of the most recently updated guest project.
func MostRecentGuestProject(ctx context.Context, src Source) (string, error) {
	projects, err := src.ListProjects(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list guest projects: %w", err)
	}
	if len(projects) == 0 {
		return "", ErrNoGuestProject
	}
	newest := projects[0]
	for _, p := range projects[1:] {
		if p.UpdatedAt.After(newest.UpdatedAt) {
			newest = p
		}
	}
	return newest.ID, nil
}
