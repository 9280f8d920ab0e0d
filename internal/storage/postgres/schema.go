package postgres

// ChangeChannel is the NOTIFY channel fed by the change triggers. Payloads have the form
// "<project id>:<table>".
const ChangeChannel = "nexus_changes"

const schema = `
-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(LENGTH(name) <= 200),
    description TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT '',
    owner TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'planning',
    phases INTEGER NOT NULL DEFAULT 0,
    tasks INTEGER NOT NULL DEFAULT 0,
    completed_tasks INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects(updated_at);

-- Nodes table (ord keeps collection order)
CREATE TABLE IF NOT EXISTS nodes (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('rootNode', 'phaseNode', 'taskNode')),
    position_x DOUBLE PRECISION NOT NULL,
    position_y DOUBLE PRECISION NOT NULL,
    data JSONB NOT NULL DEFAULT '{}',
    ord INTEGER NOT NULL,
    PRIMARY KEY (project_id, id)
);

-- Edges table
CREATE TABLE IF NOT EXISTS edges (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    style JSONB NOT NULL DEFAULT '{}',
    ord INTEGER NOT NULL,
    PRIMARY KEY (project_id, id)
);

-- Task details table
CREATE TABLE IF NOT EXISTS task_details (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    node_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'not-started',
    PRIMARY KEY (project_id, node_id)
);

-- Change feed: every row change publishes "<project id>:<table>". Identical payloads sent
-- inside one transaction are delivered once.
CREATE OR REPLACE FUNCTION nexus_notify_change() RETURNS trigger AS $$
DECLARE
    pid TEXT;
BEGIN
    pid := COALESCE(to_jsonb(NEW), to_jsonb(OLD)) ->> TG_ARGV[0];
    PERFORM pg_notify('nexus_changes', pid || ':' || TG_TABLE_NAME);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS projects_notify ON projects;
CREATE TRIGGER projects_notify AFTER INSERT OR UPDATE OR DELETE ON projects
    FOR EACH ROW EXECUTE FUNCTION nexus_notify_change('id');

DROP TRIGGER IF EXISTS nodes_notify ON nodes;
CREATE TRIGGER nodes_notify AFTER INSERT OR UPDATE OR DELETE ON nodes
    FOR EACH ROW EXECUTE FUNCTION nexus_notify_change('project_id');

DROP TRIGGER IF EXISTS edges_notify ON edges;
CREATE TRIGGER edges_notify AFTER INSERT OR UPDATE OR DELETE ON edges
    FOR EACH ROW EXECUTE FUNCTION nexus_notify_change('project_id');

DROP TRIGGER IF EXISTS task_details_notify ON task_details;
CREATE TRIGGER task_details_notify AFTER INSERT OR UPDATE OR DELETE ON task_details
    FOR EACH ROW EXECUTE FUNCTION nexus_notify_change('project_id');
`
