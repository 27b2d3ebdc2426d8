// Package index provides SQLite-backed note storage with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	guid       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'general',
	content    TEXT NOT NULL DEFAULT '',
	plain_text TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	hash       TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 5000,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS note_tags (
	guid TEXT NOT NULL REFERENCES notes(guid) ON DELETE CASCADE,
	tag  TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'tag',
	UNIQUE(guid, tag, kind)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag);
CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);
`

// DB wraps a sql.DB with note-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// SQL exposes the connection for stores that keep their own tables in the
// note database.
func (db *DB) SQL() *sql.DB {
	return db.conn
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
