// Package storage defines the persistence contract of the sync layer and picks a backend.
package storage

import (
	"context"
	"fmt"

	"github.com/nexusmap/nexus/internal/storage/postgres"
	"github.com/nexusmap/nexus/internal/storage/sqlite"
	"github.com/nexusmap/nexus/internal/types"
)

// Backend defines the interface for project persistence backends
type Backend interface {
	// Projects
	CreateProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	UpdateProject(ctx context.Context, projectID string, u types.ProjectUpdate) (*types.Project, error)
	// DeleteProject removes the project and every node, edge and detail record it owns
	DeleteProject(ctx context.Context, projectID string) error

	// Plan
	Load(ctx context.Context, projectID string) (*types.Graph, error)
	// Save replaces the whole stored plan with g
	Save(ctx context.Context, projectID string, g *types.Graph) error

	// Lifecycle
	Close() error
}

// Watcher is implemented by backends that publish change notifications. The returned
// channel is closed once ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, projectID string) (<-chan types.Change, error)
}

// Modes
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds backend configuration
type Config struct {
	// Mode is "local" or "remote"
	// Default: "local"
	Mode string

	// LocalPath is the SQLite database file. In remote mode it holds the cache copy;
	// empty disables the cache.
	// Special value ":memory:" creates an in-memory database (useful for tests)
	LocalPath string

	// Remote configures the PostgreSQL backend
	Remote *postgres.Config
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:      ModeLocal,
		LocalPath: ".nexus/nexus.db",
	}
}

// New opens the backend described by cfg.
func New(ctx context.Context, cfg *Config) (Backend, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Mode {
	case "", ModeLocal:
		path := cfg.LocalPath
		if path == "" {
			path = DefaultConfig().LocalPath
		}
		return sqlite.New(path, sqlite.ModeGuest)

	case ModeRemote:
		remote, err := postgres.New(ctx, cfg.Remote)
		if err != nil {
			return nil, err
		}
		if cfg.LocalPath == "" {
			return remote, nil
		}
		cache, err := sqlite.New(cfg.LocalPath, sqlite.ModeCache)
		if err != nil {
			_ = remote.Close()
			return nil, err
		}
		return NewCached(remote, cache), nil
	}
	return nil, fmt.Errorf("unknown storage mode: %q", cfg.Mode)
}
