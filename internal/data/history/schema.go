package history

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this binary understands.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS builds (
  id TEXT PRIMARY KEY,
  project TEXT NOT NULL DEFAULT 'default',
  number INTEGER NOT NULL,
  ts_utc TEXT NOT NULL,
  verdict TEXT NOT NULL,
  health INTEGER NOT NULL DEFAULT -1,
  analyzed INTEGER NOT NULL DEFAULT 1,
  zero_streak INTEGER NOT NULL DEFAULT 0,
  previous_id TEXT NOT NULL DEFAULT '',
  reference_id TEXT NOT NULL DEFAULT '',
  issue_count INTEGER NOT NULL DEFAULT 0,
  issues BLOB,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
CREATE INDEX IF NOT EXISTS idx_builds_project_number ON builds(project, number);
CREATE INDEX IF NOT EXISTS idx_builds_project_ts ON builds(project, ts_utc);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE builds ADD COLUMN zero_since_utc TEXT NOT NULL DEFAULT '';
ALTER TABLE builds ADD COLUMN high_score INTEGER NOT NULL DEFAULT 0;
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
