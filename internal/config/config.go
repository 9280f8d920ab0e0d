// Package config loads nexus settings from a YAML file with NEXUS_* environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config is the complete nexus configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Layout  LayoutConfig  `yaml:"layout"`
	Planner PlannerConfig `yaml:"planner"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Mode is "local" (SQLite guest store) or "remote" (Postgres)
	// Default: local
	Mode string `yaml:"mode"`

	// LocalPath is the SQLite database file
	// Default: ~/.nexus/nexus.db
	LocalPath string `yaml:"local_path"`

	// PostgresURL is the connection string of the remote store
	PostgresURL string `yaml:"postgres_url"`

	// Owner is recorded on projects created in the remote store
	Owner string `yaml:"owner"`
}

// SyncConfig tunes the sync controller.
type SyncConfig struct {
	// DebounceWait is the quiet period after the last edit before saving
	// Default: 500ms
	DebounceWait time.Duration `yaml:"debounce_wait"`

	// MaxWait bounds how long a burst of edits can postpone a save
	// Default: 2s
	MaxWait time.Duration `yaml:"max_wait"`

	// EchoWindow is how long after a save change notifications are treated as our own
	// Default: 1s
	EchoWindow time.Duration `yaml:"echo_window"`

	// ReloadRate is the sustained number of remote-triggered reloads per second
	// Default: 4, Range: > 0
	ReloadRate float64 `yaml:"reload_rate"`

	// ReloadBurst is the number of reloads allowed back to back
	// Default: 2
	ReloadBurst int `yaml:"reload_burst"`
}

// LayoutConfig mirrors layout.Options.
type LayoutConfig struct {
	NodeSep float64 `yaml:"node_sep"`
	RankSep float64 `yaml:"rank_sep"`
	MarginX float64 `yaml:"margin_x"`
	MarginY float64 `yaml:"margin_y"`
	// Center is "children-first" or "single-pass"
	Center string `yaml:"center"`
}

// PlannerConfig configures plan generation.
type PlannerConfig struct {
	// Model is the Anthropic model used to draft plans
	Model string `yaml:"model"`
	// MaxTokens caps the response size
	MaxTokens int64 `yaml:"max_tokens"`
	// Timeout bounds one generation request
	Timeout time.Duration `yaml:"timeout"`
	// HourlyTokenBudget caps tokens spent per hour, 0 for unlimited
	HourlyTokenBudget int64 `yaml:"hourly_token_budget"`
	// HourlyCostBudget caps USD spent per hour, 0 for unlimited
	HourlyCostBudget float64 `yaml:"hourly_cost_budget"`
}

// EventsConfig bounds the activity log kept in the local store.
type EventsConfig struct {
	// RetentionDays drops events older than this
	// Default: 30, Range: 1-365
	RetentionDays int `yaml:"retention_days"`

	// PerProjectLimit is the maximum number of events kept per project, 0 for unlimited
	// Default: 500
	PerProjectLimit int `yaml:"per_project_limit"`
}

// LogConfig configures the slog handler used by the CLI.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Mode:      ModeLocal,
			LocalPath: defaultLocalPath(),
		},
		Sync: SyncConfig{
			DebounceWait: 500 * time.Millisecond,
			MaxWait:      2 * time.Second,
			EchoWindow:   time.Second,
			ReloadRate:   4,
			ReloadBurst:  2,
		},
		Layout: LayoutConfig{
			NodeSep: 0,
			RankSep: 300,
			MarginX: 80,
			MarginY: 60,
			Center:  "children-first",
		},
		Planner: PlannerConfig{
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         4096,
			Timeout:           2 * time.Minute,
			HourlyTokenBudget: 100000,
			HourlyCostBudget:  1.50,
		},
		Events: EventsConfig{
			RetentionDays:   30,
			PerProjectLimit: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultLocalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nexus.db"
	}
	return filepath.Join(home, ".nexus", "nexus.db")
}

// Load reads the YAML file at path over the defaults, then applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing YAML: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	switch c.Storage.Mode {
	case ModeLocal:
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required in local mode")
		}
	case ModeRemote:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required in remote mode")
		}
	default:
		return fmt.Errorf("storage.mode must be 'local' or 'remote' (got %q)", c.Storage.Mode)
	}

	if c.Sync.DebounceWait <= 0 {
		return fmt.Errorf("sync.debounce_wait must be positive (got %s)", c.Sync.DebounceWait)
	}
	if c.Sync.MaxWait < c.Sync.DebounceWait {
		return fmt.Errorf("sync.max_wait (%s) must be >= sync.debounce_wait (%s)",
			c.Sync.MaxWait, c.Sync.DebounceWait)
	}
	if c.Sync.EchoWindow < 0 {
		return fmt.Errorf("sync.echo_window cannot be negative (got %s)", c.Sync.EchoWindow)
	}
	if c.Sync.ReloadRate <= 0 {
		return fmt.Errorf("sync.reload_rate must be positive (got %g)", c.Sync.ReloadRate)
	}
	if c.Sync.ReloadBurst < 1 {
		return fmt.Errorf("sync.reload_burst must be at least 1 (got %d)", c.Sync.ReloadBurst)
	}

	if c.Layout.NodeSep < 0 || c.Layout.RankSep < 0 {
		return fmt.Errorf("layout spacing cannot be negative")
	}
	if c.Layout.Center != "children-first" && c.Layout.Center != "single-pass" {
		return fmt.Errorf("layout.center must be 'children-first' or 'single-pass' (got %q)", c.Layout.Center)
	}

	if c.Planner.MaxTokens < 1 {
		return fmt.Errorf("planner.max_tokens must be at least 1 (got %d)", c.Planner.MaxTokens)
	}
	if c.Planner.HourlyTokenBudget < 0 || c.Planner.HourlyCostBudget < 0 {
		return fmt.Errorf("planner budgets cannot be negative")
	}

	if c.Events.RetentionDays < 1 || c.Events.RetentionDays > 365 {
		return fmt.Errorf("events.retention_days must be between 1 and 365 (got %d)", c.Events.RetentionDays)
	}
	if c.Events.PerProjectLimit < 0 {
		return fmt.Errorf("events.per_project_limit cannot be negative (got %d)", c.Events.PerProjectLimit)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json' (got %q)", c.Log.Format)
	}
	return nil
}

// String returns a human-readable representation of the config. The Postgres URL is
// reduced to its host so credentials never reach logs.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Mode: %s, LocalPath: %s, Postgres: %s, DebounceWait: %s, MaxWait: %s, "+
			"EchoWindow: %s, ReloadRate: %g/%d, Center: %s, Model: %s, LogLevel: %s}",
		c.Storage.Mode, c.Storage.LocalPath, redactURL(c.Storage.PostgresURL),
		c.Sync.DebounceWait, c.Sync.MaxWait, c.Sync.EchoWindow,
		c.Sync.ReloadRate, c.Sync.ReloadBurst, c.Layout.Center, c.Planner.Model, c.Log.Level,
	)
}

func redactURL(u string) string {
	if u == "" {
		return "<unset>"
	}
	if at := strings.LastIndex(u, "@"); at >= 0 {
		if scheme := strings.Index(u, "://"); scheme >= 0 && scheme < at {
			return u[:scheme+3] + "***" + u[at:]
		}
	}
	return u
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("log.level must be debug, info, warn or error (got %q)", l.Level)
	}
	return level, nil
}

// NewLogger builds the slog logger described by l, writing to stderr.
func (l LogConfig) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
