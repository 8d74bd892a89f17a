package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/novelcipher/internal/apperr"
)

// ChapterRow represents a row in the chapters table.
type ChapterRow struct {
	Path      string
	Number    int
	Title     string
	Checksum  string
	Tags      []string
	Size      int64
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertChapter inserts or replaces a chapter row and its FTS entry. A chapter
// number already held by a different path yields apperr.ErrConflict.
func (db *DB) UpsertChapter(r ChapterRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var owner string
	err = tx.QueryRow(`SELECT path FROM chapters WHERE number = ?`, r.Number).Scan(&owner)
	switch {
	case err == nil && owner != r.Path:
		return fmt.Errorf("index: chapter %d already indexed at %s: %w", r.Number, owner, apperr.ErrConflict)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("index: lookup number: %w", err)
	}

	if r.Tags == nil {
		r.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(r.Tags)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO chapters (path, number, title, checksum, tags, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			number     = excluded.number,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			size       = excluded.size,
			updated_at = excluded.updated_at
	`, r.Path, r.Number, r.Title, r.Checksum, string(tagsJSON), r.Size, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert chapter: %w", err)
	}

	if err := ftsUpsert(tx, r.Path, r.Title, r.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteChapter removes a chapter and its FTS entry.
func (db *DB) DeleteChapter(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM chapters WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete chapter: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM chapters WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetByNumber returns the row for a chapter number or apperr.ErrNotFound.
func (db *DB) GetByNumber(number int) (*ChapterRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, number, title, checksum, tags, size, updated_at
		FROM chapters WHERE number = ?
	`, number)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get chapter %d: %w", number, err)
	}
	return r, nil
}

// ListChapters returns chapters ordered by number plus the total count.
func (db *DB) ListChapters(limit, offset int) ([]ChapterRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM chapters`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count chapters: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, number, title, checksum, tags, size, updated_at
		FROM chapters
		ORDER BY number
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list chapters: %w", err)
	}
	defer rows.Close()

	var out []ChapterRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// Neighbours returns the closest lower and higher chapter numbers around
// number. A missing neighbour is reported as 0.
func (db *DB) Neighbours(number int) (prev, next int, err error) {
	err = db.conn.QueryRow(`
		SELECT
			COALESCE((SELECT max(number) FROM chapters WHERE number < ?), 0),
			COALESCE((SELECT min(number) FROM chapters WHERE number > ?), 0)
	`, number, number).Scan(&prev, &next)
	if err != nil {
		return 0, 0, fmt.Errorf("index: neighbours: %w", err)
	}
	return prev, next, nil
}

// AllChecksums returns path → checksum for every indexed chapter.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM chapters`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*ChapterRow, error) {
	var (
		r    ChapterRow
		tags string
	)
	if err := s.Scan(&r.Path, &r.Number, &r.Title, &r.Checksum, &tags, &r.Size, &r.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tags), &r.Tags)
	return &r, nil
}
