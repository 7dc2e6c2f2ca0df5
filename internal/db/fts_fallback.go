//go:build !sqlite_fts5

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/secondbrain/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over notes.title and notes.content.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// SearchNotes matches any word of query against title or content with LIKE.
// Notes matching more words rank first. prefix, when set, filters by category ID.
func (db *DB) SearchNotes(ctx context.Context, query, prefix string) ([]models.SearchHit, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []models.SearchHit{}, nil
	}

	var (
		conds []string
		score []string
		args  []any
	)
	for _, t := range terms {
		score = append(score, `(CASE WHEN lower(title) LIKE ? OR lower(content) LIKE ? THEN 1 ELSE 0 END)`)
		like := "%" + t + "%"
		args = append(args, like, like)
	}
	for _, t := range terms {
		conds = append(conds, `lower(title) LIKE ? OR lower(content) LIKE ?`)
		like := "%" + t + "%"
		args = append(args, like, like)
	}
	args = append(args, prefix, prefix, prefix, SearchLimit)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`, `+strings.Join(score, " + ")+` AS hits
		FROM notes
		WHERE (`+strings.Join(conds, " OR ")+`)
		  AND (? = '' OR substr(category_id, 1, length(?)) = ?)
		ORDER BY hits DESC, updated_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("db: search: %w", err)
	}
	defer rows.Close()

	out := []models.SearchHit{}
	for rows.Next() {
		var (
			hit              models.SearchHit
			created, updated int64
			hits             int
		)
		n := &hit.Note
		if err := rows.Scan(&n.ID, &n.CategoryID, &n.Path, &n.Title, &n.Content, &n.Version, &created, &updated, &hits); err != nil {
			return nil, err
		}
		n.CreatedAt = fromMillis(created)
		n.UpdatedAt = fromMillis(updated)
		hit.Snippet = snippet(n.Content)
		out = append(out, hit)
	}
	return out, rows.Err()
}
