package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "facts: durable per-user profile facts",
		SQL: `
CREATE TABLE facts (
    id           INTEGER PRIMARY KEY,
    user_id      TEXT NOT NULL,
    category     TEXT NOT NULL,
    key          TEXT NOT NULL,
    value        TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT 'user',
    created_at   INTEGER NOT NULL,
    last_updated INTEGER NOT NULL,

    UNIQUE (user_id, category, key)
);

CREATE INDEX idx_facts_user ON facts(user_id);
`,
	},
	{
		Version:     2,
		Description: "micro_memories: per-session episodic summaries",
		SQL: `
CREATE TABLE micro_memories (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    summary         TEXT NOT NULL,
    messages        TEXT NOT NULL,
    primary_emotion TEXT NOT NULL DEFAULT 'neutral',
    intensity       REAL NOT NULL DEFAULT 0,
    topics          TEXT NOT NULL DEFAULT '[]',
    importance      REAL NOT NULL DEFAULT 5.0,
    created_at      INTEGER NOT NULL,
    last_accessed   INTEGER NOT NULL,
    access_count    INTEGER NOT NULL DEFAULT 0,
    consolidated    INTEGER NOT NULL DEFAULT 0,
    consolidated_at INTEGER
);

CREATE INDEX idx_micro_user         ON micro_memories(user_id);
CREATE INDEX idx_micro_created      ON micro_memories(created_at DESC);
CREATE INDEX idx_micro_consolidated ON micro_memories(user_id, consolidated);
`,
	},
	{
		Version:     3,
		Description: "super_memories: consolidated long-term themes",
		SQL: `
CREATE TABLE super_memories (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    summary              TEXT NOT NULL,
    themes               TEXT NOT NULL DEFAULT '[]',
    topics               TEXT NOT NULL DEFAULT '[]',
    dominant_emotion     TEXT NOT NULL DEFAULT 'neutral',
    average_intensity    REAL NOT NULL DEFAULT 0,
    emotion_distribution TEXT NOT NULL DEFAULT '{}',
    source_memory_ids    TEXT NOT NULL DEFAULT '[]',
    range_start          INTEGER,
    range_end            INTEGER,
    importance           REAL NOT NULL DEFAULT 7.0,
    created_at           INTEGER NOT NULL,
    last_accessed        INTEGER NOT NULL,
    access_count         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_super_user    ON super_memories(user_id);
CREATE INDEX idx_super_created ON super_memories(created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "sessions: conversation session tracking",
		SQL: `
CREATE TABLE sessions (
    id            INTEGER PRIMARY KEY,
    session_id    TEXT NOT NULL UNIQUE,
    user_id       TEXT NOT NULL,
    started_at    INTEGER NOT NULL,
    ended_at      INTEGER,
    status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended')),
    end_reason    TEXT,
    message_count INTEGER NOT NULL DEFAULT 0,
    memory_id     TEXT
);

CREATE INDEX idx_sessions_user    ON sessions(user_id);
CREATE INDEX idx_sessions_status  ON sessions(status);
CREATE INDEX idx_sessions_started ON sessions(started_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
