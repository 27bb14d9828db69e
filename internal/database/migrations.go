package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migration represents a single schema migration.
type migration struct {
	version int
	name    string
	up      string
}

// getMigrations returns all migrations in order. New schema changes append a
// new entry; applied versions are never edited.
func getMigrations() []migration {
	return []migration{
		{
			version: 1,
			name:    "workflows_and_tasks",
			up: `
CREATE TABLE IF NOT EXISTS workflows (
    id              TEXT PRIMARY KEY,
    type            TEXT NOT NULL,
    state           TEXT NOT NULL,
    issue_id        TEXT NOT NULL,
    risk_level      TEXT NOT NULL DEFAULT 'UNKNOWN',
    context_json    TEXT NOT NULL,
    started_at      TIMESTAMP NOT NULL,
    completed_at    TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflows_state ON workflows(state);
CREATE INDEX IF NOT EXISTS idx_workflows_issue ON workflows(issue_id);

CREATE TABLE IF NOT EXISTS tasks (
    id              TEXT PRIMARY KEY,
    workflow_id     TEXT NOT NULL,
    stage           TEXT NOT NULL,
    specialist_code TEXT NOT NULL,
    status          TEXT NOT NULL,
    payload_json    TEXT NOT NULL DEFAULT '{}',
    attempts        INTEGER NOT NULL DEFAULT 0,
    error           TEXT,
    seq             INTEGER NOT NULL,
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL,
    started_at      TIMESTAMP,
    completed_at    TIMESTAMP,
    UNIQUE(workflow_id, stage, specialist_code)
);

CREATE INDEX IF NOT EXISTS idx_tasks_workflow ON tasks(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(workflow_id, status);
`,
		},
	}
}

// Migrate applies all pending migrations inside transactions. The
// schema_migrations table records applied versions so Migrate is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := db.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range getMigrations() {
		if m.version <= current {
			continue
		}

		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.up); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// CurrentVersion returns the highest applied schema version, 0 if none.
func (db *DB) CurrentVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := db.conn.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
