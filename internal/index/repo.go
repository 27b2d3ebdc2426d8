package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// Derived holds the values computed from a note's content that are stored
// for search and tag listing.
type Derived struct {
	PlainText string
	Hashtags  []string
}

// ListQuery selects a page of notes.
type ListQuery struct {
	Limit  int
	Offset int
	Tag    string
	Sort   string // "updated_at" (default, newest first), "title" or "sort_order"
}

// SearchResult represents one search hit.
type SearchResult struct {
	GUID    string `json:"guid"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const noteColumns = `guid, title, type, content, tags, hash, sort_order, created_at, updated_at`

// UpsertNote inserts or replaces a note, its FTS entry and its tag rows within a transaction.
func (db *DB) UpsertNote(n models.Note, d Derived) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(n.Tags))

	_, err = tx.Exec(`
		INSERT INTO notes (guid, title, type, content, plain_text, tags, hash, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			title      = excluded.title,
			type       = excluded.type,
			content    = excluded.content,
			plain_text = excluded.plain_text,
			tags       = excluded.tags,
			hash       = excluded.hash,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
	`, n.GUID, n.Title, n.Type, n.Content, d.PlainText, string(tagsJSON), n.Hash, n.SortOrder, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.GUID, n.Title, d.PlainText, append(append([]string{}, n.Tags...), d.Hashtags...)); err != nil {
		return err
	}

	// Replace tag rows: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE guid = ?`, n.GUID); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO note_tags (guid, tag, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer stmt.Close()
	for kind, tags := range map[string][]string{"tag": n.Tags, "hashtag": d.Hashtags} {
		for _, tag := range tags {
			if _, err := stmt.Exec(n.GUID, strings.ToLower(tag), kind); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry and its tags.
func (db *DB) DeleteNote(guid string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, guid)
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE guid = ?`, guid); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM notes WHERE guid = ?`, guid)
	if err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	return tx.Commit()
}

// GetNote returns a single note.
func (db *DB) GetNote(guid string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE guid = ?`, guid)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns a page of notes and the total number matching the filter.
func (db *DB) ListNotes(q ListQuery) ([]models.Note, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := ""
	var args []any
	if q.Tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM note_tags t WHERE t.guid = notes.guid AND t.tag = ?)`
		args = append(args, strings.ToLower(q.Tag))
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	order := "updated_at DESC, guid"
	switch q.Sort {
	case "title":
		order = "title COLLATE NOCASE, guid"
	case "sort_order":
		order = "sort_order, updated_at DESC, guid"
	}

	rows, err := db.conn.Query(`SELECT `+noteColumns+` FROM notes `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// Tags returns every explicit tag and hashtag with the number of notes carrying it.
func (db *DB) Tags() ([]models.TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, count(DISTINCT guid)
		FROM note_tags
		GROUP BY tag
		ORDER BY count(DISTINCT guid) DESC, tag
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	var n models.Note
	var tags string
	if err := s.Scan(&n.GUID, &n.Title, &n.Type, &n.Content, &tags, &n.Hash, &n.SortOrder, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags: %w", err)
	}
	n.Tags = nonNil(n.Tags)
	return &n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
