package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nexusmap/nexus/internal/config"
	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/layout"
	"github.com/nexusmap/nexus/internal/storage"
	"github.com/nexusmap/nexus/internal/storage/postgres"
	"github.com/nexusmap/nexus/internal/storage/sqlite"
	"github.com/nexusmap/nexus/internal/syncctl"
	"github.com/nexusmap/nexus/internal/types"
)

var (
	cfgFile    string
	projectRef string
	cfg        config.Config
	logger     *slog.Logger

	// local is the SQLite database: the guest store, the remote cache and the event log.
	local *sqlite.Storage
	// backend holds projects for the configured mode.
	backend storage.Backend
	emitter *events.Emitter
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Plan projects as phases and tasks",
	Long: `Nexus keeps a project plan (a root, its phases and their tasks) as a graph,
lays it out for display, and keeps it in step with a local or shared store.

Projects live in a local SQLite file by default. Set storage.mode to "remote"
(or NEXUS_STORAGE_MODE=remote) with a PostgreSQL URL to share them, and use
'nexus migrate' to move local projects into the shared store.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			cfg.Storage.Mode = mode
		}
		if path, _ := cmd.Flags().GetString("db"); path != "" {
			cfg.Storage.LocalPath = path
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
			os.Exit(1)
		}
		logger = cfg.Log.NewLogger()
		slog.SetDefault(logger)

		if cmd.Annotations["storage"] == "none" {
			return
		}
		if err := openStores(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStores()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("mode", "", "Storage mode: local or remote (overrides config)")
	rootCmd.PersistentFlags().String("db", "", "Path to the local SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "",
		"Project id, id prefix or name (default: most recently updated)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		closeStores()
		os.Exit(1)
	}
}

// openStores opens the local database, the configured backend and the event emitter.
func openStores(ctx context.Context) error {
	var err error
	local, err = sqlite.New(cfg.Storage.LocalPath, sqlite.ModeGuest)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	emitter = events.NewEmitter(local, logger)

	if cfg.Storage.Mode != config.ModeRemote {
		backend = local
		return nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Storage.PostgresURL
	backend, err = storage.New(ctx, &storage.Config{
		Mode:      storage.ModeRemote,
		LocalPath: cfg.Storage.LocalPath,
		Remote:    pgCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to remote store: %w", err)
	}
	return nil
}

func closeStores() {
	if backend != nil && backend != storage.Backend(local) {
		_ = backend.Close()
	}
	if local != nil {
		_ = local.Close()
	}
	backend, local = nil, nil
}

// remoteStore returns the PostgreSQL store behind the active backend, if there is one.
func remoteStore() (*postgres.Storage, bool) {
	switch b := backend.(type) {
	case *postgres.Storage:
		return b, true
	case *storage.Cached:
		pg, ok := b.Backend.(*postgres.Storage)
		return pg, ok
	}
	return nil, false
}

// layoutOptions maps the layout config section onto engine options.
func layoutOptions() layout.Options {
	opts := layout.DefaultOptions()
	opts.NodeSep = cfg.Layout.NodeSep
	opts.RankSep = cfg.Layout.RankSep
	opts.MarginX = cfg.Layout.MarginX
	opts.MarginY = cfg.Layout.MarginY
	if cfg.Layout.Center == "single-pass" {
		opts.Center = layout.CenterSinglePass
	}
	return opts
}

// syncOptions maps the sync config section onto controller options.
func syncOptions(metrics *syncctl.Metrics) syncctl.Options {
	opts := syncctl.DefaultOptions()
	opts.DebounceWait = cfg.Sync.DebounceWait
	opts.MaxWait = cfg.Sync.MaxWait
	opts.EchoWindow = cfg.Sync.EchoWindow
	opts.ReloadLimit = rate.Limit(cfg.Sync.ReloadRate)
	opts.ReloadBurst = cfg.Sync.ReloadBurst
	opts.Events = emitter
	opts.Logger = logger
	opts.Metrics = metrics
	return opts
}

// session is one project loaded into a store and kept in sync with the backend.
type session struct {
	project *types.Project
	store   *graph.Store
	ctl     *syncctl.Controller
}

// openSession resolves ref to a project and starts syncing it.
func openSession(ctx context.Context, ref string, metrics *syncctl.Metrics) (*session, error) {
	project, err := findProject(ctx, ref)
	if err != nil {
		return nil, err
	}
	store := graph.NewStore(types.NewGraph())
	ctl := syncctl.NewController(backend, store, project.ID, syncOptions(metrics))
	if err := ctl.Start(ctx); err != nil {
		return nil, err
	}
	return &session{project: project, store: store, ctl: ctl}, nil
}

// close saves pending edits and stops syncing.
func (s *session) close() error {
	return s.ctl.Close()
}

// exitOnErr prints err and exits when it is non-nil.
func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	closeStores()
	os.Exit(1)
}
