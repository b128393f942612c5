package index

import (
	"fmt"
	"strings"
	"time"
)

// PageRow represents a row in the pages table.
type PageRow struct {
	Key       string
	Title     string
	Summary   string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPage inserts or replaces a page and its FTS entry within a transaction.
func (db *DB) UpsertPage(p PageRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO pages (key, title, summary, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			title      = excluded.title,
			summary    = excluded.summary,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Key, p.Title, p.Summary, p.Checksum, body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	if err := ftsUpsert(tx, p.Key, p.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePage removes a page and its FTS entry.
func (db *DB) DeletePage(key string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, key); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE key = ?`, key); err != nil {
		return fmt.Errorf("index: delete page: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a page, or empty string if not found.
func (db *DB) GetChecksum(key string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE key = ?`, key).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns key → checksum for every indexed page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, cs string
		if err := rows.Scan(&k, &cs); err != nil {
			return nil, err
		}
		out[k] = cs
	}
	return out, rows.Err()
}

// Titles returns key → title for every indexed page.
func (db *DB) Titles() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, title FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: titles: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, title string
		if err := rows.Scan(&k, &title); err != nil {
			return nil, err
		}
		out[k] = title
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
