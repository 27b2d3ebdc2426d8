package tld

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS tld_domains (
	domain TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS tld_meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at TEXT NOT NULL
);
`

// SQLiteStore keeps the list in two tables of an existing database, so
// every process sharing the note database shares the list.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore applies the TLD tables to conn.
func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if _, err := conn.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return nil, fmt.Errorf("tld: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var fetched string
	err := s.conn.QueryRowContext(ctx, `SELECT fetched_at FROM tld_meta WHERE id = 1`).Scan(&fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("tld: load meta: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tld: parse fetched_at: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT domain FROM tld_domains ORDER BY domain`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tld: load domains: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{FetchedAt: at}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return Snapshot{}, err
		}
		snap.Domains = append(snap.Domains, d)
	}
	return snap, rows.Err()
}

// Save replaces the stored list in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tld: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tld_domains`); err != nil {
		return fmt.Errorf("tld: clear domains: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO tld_domains (domain) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("tld: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range snap.Domains {
		if _, err := stmt.ExecContext(ctx, d); err != nil {
			return fmt.Errorf("tld: insert %s: %w", d, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tld_meta (id, fetched_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at
	`, snap.FetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("tld: save meta: %w", err)
	}
	return tx.Commit()
}
