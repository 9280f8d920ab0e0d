package sqlite

import "github.com/nexusmap/nexus/internal/storage/schema"

var migrations = []schema.Migration{
	{
		Version:     1,
		Description: "project documents",
		Up: `
CREATE TABLE IF NOT EXISTS documents (
    project_id TEXT NOT NULL,
    mode TEXT NOT NULL CHECK(mode IN ('guest', 'cache')),
    name TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (project_id, mode)
);

CREATE INDEX IF NOT EXISTS idx_documents_mode_updated ON documents(mode, updated_at);
`,
	},
	{
		Version:     2,
		Description: "activity events",
		Up: `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    ts INTEGER NOT NULL,
    project_id TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL DEFAULT 'info',
    message TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_project_ts ON events(project_id, ts);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
`,
	},
}
