//go:build sqlite_fts5

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/secondbrain/internal/models"
)

func initFTS(conn *sql.DB) error {
	if _, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`); err != nil {
		return err
	}
	// Backfill rows written by a build without FTS5.
	_, err := conn.Exec(`
		INSERT INTO notes_fts (id, title, content)
		SELECT id, title, content FROM notes WHERE id NOT IN (SELECT id FROM notes_fts)
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO notes_fts (id, title, content) VALUES (?, ?, ?)`, id, title, content)
	if err != nil {
		return fmt.Errorf("db: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db: delete fts: %w", err)
	}
	return nil
}

// SearchNotes ranks notes against query with FTS5. Each word is matched as a
// quoted term and any word may match. prefix, when set, filters by category ID.
func (db *DB) SearchNotes(ctx context.Context, query, prefix string) ([]models.SearchHit, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []models.SearchHit{}, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT n.id, n.category_id, n.path, n.title, n.content, n.version, n.created_at, n.updated_at,
		       snippet(notes_fts, 2, '', '', '...', 32)
		FROM notes_fts
		JOIN notes n ON n.id = notes_fts.id
		WHERE notes_fts MATCH ?
		  AND (? = '' OR substr(n.category_id, 1, length(?)) = ?)
		ORDER BY rank
		LIMIT ?
	`, strings.Join(quoted, " OR "), prefix, prefix, prefix, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("db: search: %w", err)
	}
	defer rows.Close()

	out := []models.SearchHit{}
	for rows.Next() {
		var (
			hit              models.SearchHit
			created, updated int64
		)
		n := &hit.Note
		if err := rows.Scan(&n.ID, &n.CategoryID, &n.Path, &n.Title, &n.Content, &n.Version, &created, &updated, &hit.Snippet); err != nil {
			return nil, err
		}
		n.CreatedAt = fromMillis(created)
		n.UpdatedAt = fromMillis(updated)
		out = append(out, hit)
	}
	return out, rows.Err()
}
