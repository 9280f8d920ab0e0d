package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nexusmap/nexus/internal/storage/sqlite"
	"github.com/nexusmap/nexus/internal/types"
)

// Cached wraps a remote backend and copies every plan it loads or saves into a local
// cache-mode store. The remote backend stays authoritative: cache failures are logged and
// never fail the call.
type Cached struct {
	Backend
	cache *sqlite.Storage
}

// NewCached returns remote with a write-through cache.
func NewCached(remote Backend, cache *sqlite.Storage) *Cached {
	return &Cached{Backend: remote, cache: cache}
}

// Cache returns the local cache store.
func (c *Cached) Cache() *sqlite.Storage {
	return c.cache
}

// Load reads from the remote backend and refreshes the cache.
func (c *Cached) Load(ctx context.Context, projectID string) (*types.Graph, error) {
	g, err := c.Backend.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectID, g)
	return g, nil
}

// Save writes to the remote backend and refreshes the cache.
func (c *Cached) Save(ctx context.Context, projectID string, g *types.Graph) error {
	if err := c.Backend.Save(ctx, projectID, g); err != nil {
		return err
	}
	c.store(ctx, projectID, g)
	return nil
}

// DeleteProject removes the project remotely and drops the cached copy.
func (c *Cached) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.Backend.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if err := c.cache.DeleteProject(ctx, projectID); err != nil {
		slog.Warn("failed to drop cached project", "project_id", projectID, "error", err)
	}
	return nil
}

// Watch forwards to the remote backend when it publishes changes.
func (c *Cached) Watch(ctx context.Context, projectID string) (<-chan types.Change, error) {
	w, ok := c.Backend.(Watcher)
	if !ok {
		return nil, errors.New("backend does not publish changes")
	}
	return w.Watch(ctx, projectID)
}

// LoadCached returns the last cached copy of a project without contacting the remote.
func (c *Cached) LoadCached(ctx context.Context, projectID string) (*types.Document, error) {
	return c.cache.LoadDocument(ctx, projectID)
}

// Close closes both stores.
func (c *Cached) Close() error {
	return errors.Join(c.Backend.Close(), c.cache.Close())
}

func (c *Cached) store(ctx context.Context, projectID string, g *types.Graph) {
	p, err := c.Backend.GetProject(ctx, projectID)
	if err != nil {
		slog.Warn("failed to read project for cache", "project_id", projectID, "error", err)
		return
	}
	if err := c.cache.PutDocument(ctx, &types.Document{Project: *p, Graph: g.Clone()}); err != nil {
		slog.Warn("failed to cache project", "project_id", projectID, "error", err)
	}
}
