package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema defines the run history tables. Timestamps are stored as unix
// nanoseconds so retention scans stay a plain integer comparison.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    policy_name TEXT NOT NULL,
    policy_version TEXT NOT NULL,
    stage TEXT NOT NULL,
    dry_run INTEGER NOT NULL,
    success INTEGER NOT NULL,
    adapters TEXT NOT NULL,
    errors TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_policy_name ON runs(policy_name);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);
`

// InsertSchemaVersion records the schema version on first initialization.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `SELECT COALESCE(MAX(version), 0) FROM schema_version;`
