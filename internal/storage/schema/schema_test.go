package schema

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createWidgets = Migration{
		Version:     1,
		Description: "create widgets",
		Up:          `CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	}
	addColor = Migration{
		Version:     2,
		Description: "add widget color",
		Up:          `ALTER TABLE widgets ADD COLUMN color TEXT NOT NULL DEFAULT ''`,
	}
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyRunsPendingInOrder(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	// Registered out of order on purpose.
	manager := NewManager(addColor, createWidgets)
	applied, err := manager.Apply(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	version, err := Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = db.ExecContext(ctx, "INSERT INTO widgets (id, name, color) VALUES (1, 'a', 'red')")
	require.NoError(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	_, err := NewManager(createWidgets).Apply(ctx, db)
	require.NoError(t, err)

	applied, err := NewManager(createWidgets, addColor).Apply(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, applied, "only the new migration runs")

	applied, err = NewManager(createWidgets, addColor).Apply(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestApplyFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	broken := Migration{Version: 2, Description: "broken", Up: "ALTER TABLE missing ADD COLUMN x TEXT"}
	applied, err := NewManager(createWidgets, broken).Apply(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migration 2")
	assert.Equal(t, 1, applied)

	version, err := Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
