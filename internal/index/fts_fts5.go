//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chapters_fts USING fts5(
			path UNINDEXED,
			title,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM chapters_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO chapters_fts (path, title, tags) VALUES (?, ?, ?)`,
		path, title, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM chapters_fts WHERE path = ?`, path)
}

// Search performs an FTS5 search over titles and tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       c.number,
		       c.title,
		       snippet(chapters_fts, 1, '<b>', '</b>', '...', 16)
		FROM chapters_fts f
		JOIN chapters c ON c.path = f.path
		WHERE chapters_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Number, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
