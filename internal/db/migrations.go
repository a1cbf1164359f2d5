package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL migration statements.
// Each entry is applied once in order. New migrations are appended at the end.
var migrations = []string{
	// Migration 0: initial schema
	`CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		owner       TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		modified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS turns (
		id                  TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		conversation_id     TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		position            INTEGER NOT NULL,
		model               TEXT NOT NULL,
		user_text           TEXT NOT NULL DEFAULT '',
		assistant_text      TEXT NOT NULL DEFAULT '',
		state               TEXT NOT NULL DEFAULT 'draft',
		sensitivity         TEXT NOT NULL DEFAULT 'unknown',
		entities            TEXT NOT NULL DEFAULT '[]',
		output_moderated    INTEGER NOT NULL DEFAULT 0,
		transient_error     INTEGER NOT NULL DEFAULT 0,
		tokens_input        INTEGER,
		tokens_output       INTEGER,
		cost_input_dollars  REAL NOT NULL DEFAULT 0,
		cost_output_dollars REAL NOT NULL DEFAULT 0,
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (conversation_id, position)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner, modified_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_turns_conversation  ON turns(conversation_id, position)`,

	// Migration 1: migration tracking table
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// applyMigrations runs any migrations that have not yet been applied.
func applyMigrations(conn *sql.DB) error {
	// Ensure the migration tracking table exists first.
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmt := range migrations {
		var count int
		row := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, i)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", i, err)
		}
		if count > 0 {
			continue
		}

		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}

		if _, err := conn.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, i); err != nil {
			return fmt.Errorf("record migration %d: %w", i, err)
		}
	}

	return nil
}
