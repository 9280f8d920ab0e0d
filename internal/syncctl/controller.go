// Package syncctl keeps a graph.Store and a storage backend in step.
//
// Local edits are saved after a quiet period (see Debouncer). Remote change
// notifications trigger a full reload unless they arrive while our own save is in
// flight or shortly after it completed, in which case they are treated as echoes.
package syncctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/storage"
	"github.com/nexusmap/nexus/internal/types"
)

// Reload reasons, recorded on events and metrics.
const (
	ReasonInitial = "initial"
	ReasonRemote  = "remote"
	ReasonForce   = "force"
)

// Options configures a Controller.
type Options struct {
	DebounceWait time.Duration
	MaxWait      time.Duration
	EchoWindow   time.Duration

	// ReloadLimit paces reloads triggered by remote notifications. Zero means unlimited.
	ReloadLimit rate.Limit
	ReloadBurst int

	Events  *events.Emitter
	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		DebounceWait: 500 * time.Millisecond,
		MaxWait:      2 * time.Second,
		EchoWindow:   time.Second,
		ReloadLimit:  rate.Limit(4),
		ReloadBurst:  2,
	}
}

// Status is a point-in-time view of a controller.
type Status struct {
	ProjectID    string
	Pending      bool
	Dirty        bool
	Saving       bool
	Bootstrapped bool
	LastSave     time.Time
}

// Controller synchronizes one project's store with a backend.
type Controller struct {
	backend   storage.Backend
	store     *graph.Store
	projectID string
	opts      Options
	logger    *slog.Logger
	metrics   *Metrics

	debouncer *Debouncer
	group     singleflight.Group
	limiter   *rate.Limiter

	// saveMu serializes saves so snapshots reach the backend in order.
	saveMu sync.Mutex

	mu           sync.Mutex
	ctx          context.Context
	started      bool
	closed       bool
	saving       int
	dirty        bool
	bootstrapped bool
	lastSave     time.Time
	unsubscribe  func()
	cancelFeed   context.CancelFunc
	feedDone     chan struct{}
}

// NewController returns a controller for projectID. Call Start to load and begin syncing.
func NewController(backend storage.Backend, store *graph.Store, projectID string, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	limit := opts.ReloadLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.ReloadBurst
	if burst < 1 {
		burst = 1
	}

	c := &Controller{
		backend:   backend,
		store:     store,
		projectID: projectID,
		opts:      opts,
		logger:    opts.Logger.With("project_id", projectID),
		metrics:   opts.Metrics,
		limiter:   rate.NewLimiter(limit, burst),
		ctx:       context.Background(),
	}
	c.debouncer = NewDebouncer(opts.DebounceWait, opts.MaxWait, func() {
		_ = c.save(c.baseContext())
	})
	return c
}

// Start performs the initial load, then subscribes to local edits and, when the
// backend publishes changes, to the remote feed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("controller already started")
	}
	c.started = true
	c.ctx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	if err := c.reload(ctx, ReasonInitial); err != nil {
		return fmt.Errorf("failed to load project %s: %w", c.projectID, err)
	}

	unsubscribe := c.store.Subscribe(c.onStoreChange)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	w, ok := c.backend.(storage.Watcher)
	if !ok {
		return nil
	}
	feedCtx, cancel := context.WithCancel(ctx)
	feed, err := w.Watch(feedCtx, c.projectID)
	if err != nil {
		cancel()
		c.logger.Warn("remote change feed unavailable", "error", err)
		return nil
	}
	done := make(chan struct{})
	c.mu.Lock()
	c.cancelFeed = cancel
	c.feedDone = done
	c.mu.Unlock()
	go c.consume(feedCtx, feed, done)
	return nil
}

// Flush saves pending or previously failed edits now.
func (c *Controller) Flush(ctx context.Context) error {
	pending := c.debouncer.Cancel()
	c.mu.Lock()
	dirty := c.dirty
	c.mu.Unlock()
	if !pending && !dirty {
		return nil
	}
	return c.save(ctx)
}

// ForceRefresh drops pending edits and reloads from the backend, ignoring the echo window.
func (c *Controller) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.New("controller closed")
	}
	c.debouncer.Cancel()
	return c.reload(ctx, ReasonForce)
}

// Close stops syncing. Pending edits are saved before it returns.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	cancelFeed := c.cancelFeed
	feedDone := c.feedDone
	c.mu.Unlock()

	pending := c.debouncer.Stop()
	if unsubscribe != nil {
		unsubscribe()
	}
	if cancelFeed != nil {
		cancelFeed()
		<-feedDone
	}

	c.mu.Lock()
	dirty := c.dirty
	c.mu.Unlock()
	if pending || dirty {
		return c.save(c.baseContext())
	}
	return nil
}

// Status reports the controller's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		ProjectID:    c.projectID,
		Pending:      c.debouncer.Pending(),
		Dirty:        c.dirty,
		Saving:       c.saving > 0,
		Bootstrapped: c.bootstrapped,
		LastSave:     c.lastSave,
	}
}

func (c *Controller) baseContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Controller) onStoreChange(ch graph.Change) {
	if ch.Origin != graph.OriginLocal {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.debouncer.Trigger()
}

func (c *Controller) consume(ctx context.Context, feed <-chan types.Change, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-feed:
			if !ok {
				return
			}
			c.handleChange(ctx, ch)
		}
	}
}

// handleChange reacts to one remote notification.
func (c *Controller) handleChange(ctx context.Context, ch types.Change) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	echo := c.saving > 0 || (!c.lastSave.IsZero() && time.Since(c.lastSave) < c.opts.EchoWindow)
	c.mu.Unlock()

	if echo {
		c.metrics.echoSuppressed.Inc()
		c.emitReload(ctx, events.EventTypeEchoSuppressed, events.SeverityInfo,
			"ignored change notification from own save", events.ReloadData{Reason: ReasonRemote})
		return
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return
	}
	if err := c.reload(ctx, ReasonRemote); err != nil {
		c.logger.Warn("remote reload failed", "table", ch.Table, "error", err)
	}
}

// reload collapses concurrent callers into one load.
func (c *Controller) reload(ctx context.Context, reason string) error {
	_, err, _ := c.group.Do("reload", func() (interface{}, error) {
		return nil, c.load(ctx, reason)
	})
	return err
}

func (c *Controller) load(ctx context.Context, reason string) error {
	project, err := c.backend.GetProject(ctx, c.projectID)
	if err != nil {
		c.failReload(ctx, reason, err)
		return err
	}
	loaded, err := c.backend.Load(ctx, c.projectID)
	if err != nil {
		c.failReload(ctx, reason, err)
		return err
	}
	next := types.NewGraph()
	if loaded != nil {
		next = loaded.Clone()
	}

	c.mu.Lock()
	bootstrap := next.IsEmpty() && !c.bootstrapped
	c.bootstrapped = true
	c.mu.Unlock()

	persist := false
	if bootstrap {
		next.Nodes = append(next.Nodes, graph.NewRoot(project.Name))
		persist = true
		c.emit(ctx, events.NewEvent(events.EventTypeBootstrapped, c.projectID, "sync", events.SeverityInfo,
			"created root node for empty project", map[string]interface{}{"label": project.Name}))
	} else if root, ok := next.Root(); ok && project.Name != "" && root.Data.Label != project.Name {
		renamed, err := graph.RenameRoot(next, project.Name)
		if err == nil {
			next = renamed
			persist = true
			c.emit(ctx, events.NewEvent(events.EventTypeRootRenamed, c.projectID, "sync", events.SeverityInfo,
				"root label follows project name", map[string]interface{}{"from": root.Data.Label, "to": project.Name}))
		}
	}

	c.debouncer.Cancel()
	c.store.ReplaceAll(next, graph.OriginRemote)
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	c.metrics.reloads.WithLabelValues(reason, result(nil)).Inc()
	c.emitReload(ctx, events.EventTypeReloadCompleted, events.SeverityInfo, "reloaded project graph",
		events.ReloadData{Reason: reason, Nodes: len(next.Nodes)})

	if persist {
		// Failure leaves the controller dirty; the next Flush or edit retries.
		_ = c.save(ctx)
	}
	return nil
}

func (c *Controller) failReload(ctx context.Context, reason string, err error) {
	c.metrics.reloads.WithLabelValues(reason, result(err)).Inc()
	c.emitReload(ctx, events.EventTypeReloadFailed, events.SeverityError, "failed to reload project graph",
		events.ReloadData{Reason: reason, Error: err.Error()})
}

// save writes the store's current snapshot.
func (c *Controller) save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	c.saving++
	c.mu.Unlock()

	snap := c.store.Snapshot()
	start := time.Now()
	err := c.backend.Save(ctx, c.projectID, &snap)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.saving--
	if err != nil {
		c.dirty = true
	} else {
		c.dirty = false
		c.lastSave = time.Now()
	}
	c.mu.Unlock()

	c.metrics.saves.WithLabelValues(result(err)).Inc()
	c.metrics.saveDuration.Observe(elapsed.Seconds())

	data := events.SaveData{
		Nodes:      len(snap.Nodes),
		Edges:      len(snap.Edges),
		Details:    len(snap.Details),
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		data.Error = err.Error()
		c.emitSave(ctx, events.EventTypeSaveFailed, events.SeverityError, "failed to save project graph", data)
		return fmt.Errorf("failed to save project %s: %w", c.projectID, err)
	}
	c.emitSave(ctx, events.EventTypeSaveCompleted, events.SeverityInfo, "saved project graph", data)
	return nil
}

func (c *Controller) emit(ctx context.Context, ev *events.Event) {
	c.opts.Events.Emit(ctx, ev)
}

func (c *Controller) emitSave(ctx context.Context, t events.EventType, sev events.EventSeverity, msg string, data events.SaveData) {
	ev, err := events.NewSaveEvent(t, c.projectID, sev, msg, data)
	if err != nil {
		c.logger.Warn("failed to build event", "event_type", t, "error", err)
		return
	}
	c.emit(ctx, ev)
}

func (c *Controller) emitReload(ctx context.Context, t events.EventType, sev events.EventSeverity, msg string, data events.ReloadData) {
	ev, err := events.NewReloadEvent(t, c.projectID, sev, msg, data)
	if err != nil {
		c.logger.Warn("failed to build event", "event_type", t, "error", err)
		return
	}
	c.emit(ctx, ev)
}
