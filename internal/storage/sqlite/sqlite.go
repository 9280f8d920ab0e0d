// Package sqlite is the local project store. Each project is kept as one serialized
// document per mode, next to an activity log of sync and migration events.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/nexusmap/nexus/internal/storage/schema"
)

// Mode partitions documents inside one database file.
type Mode string

const (
	// ModeGuest holds projects edited without an account. They are the input of migration.
	ModeGuest Mode = "guest"
	// ModeCache holds the last copy of remote projects seen by this machine.
	ModeCache Mode = "cache"
)

// IsValid checks if the mode value is valid
func (m Mode) IsValid() bool {
	return m == ModeGuest || m == ModeCache
}

// Storage implements the local backend using SQLite
type Storage struct {
	db   *sql.DB
	mode Mode
}

// New opens (creating if needed) the database at path and applies pending migrations.
// The special path ":memory:" opens a private in-memory database.
func New(path string, mode Mode) (*Storage, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid storage mode: %q", mode)
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := schema.NewManager(migrations...).Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Storage{db: db, mode: mode}, nil
}

// Mode returns the document partition this handle reads and writes.
func (s *Storage) Mode() Mode {
	return s.mode
}

// WithMode returns a handle on the same database bound to another mode. Closing either
// handle closes the shared database.
func (s *Storage) WithMode(mode Mode) *Storage {
	return &Storage{db: s.db, mode: mode}
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
