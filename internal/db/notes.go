package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/models"
)

const noteColumns = `id, category_id, path, title, content, version, created_at, updated_at`

// scanNote is the only place note rows are decoded; version is NOT NULL DEFAULT 1
// in the schema so every row carries one.
func scanNote(s rowScanner) (*models.Note, error) {
	var (
		n                models.Note
		created, updated int64
	)
	if err := s.Scan(&n.ID, &n.CategoryID, &n.Path, &n.Title, &n.Content, &n.Version, &created, &updated); err != nil {
		return nil, err
	}
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	return &n, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getNote(ctx context.Context, q querier, where string, arg any) (*models.Note, error) {
	n, err := scanNote(q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get note: %w", err)
	}
	return n, nil
}

// GetNote returns a note by ID.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return getNote(ctx, db.conn, `id = ?`, id)
}

// GetNoteByPath returns the note stored at path.
func (db *DB) GetNoteByPath(ctx context.Context, path string) (*models.Note, error) {
	return getNote(ctx, db.conn, `path = ?`, path)
}

// InsertNote stores a new note at version 1. A taken path yields apperr.ErrAlreadyExists.
func (db *DB) InsertNote(ctx context.Context, n *models.Note) error {
	now := db.now().UTC()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Version = 1
	n.CreatedAt = now
	n.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: insert note: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.CategoryID, n.Path, n.Title, n.Content, n.Version, toMillis(now), toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("db: insert note: %w", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateNote writes n's category, path, title and content and bumps the version.
// With expectedVersion > 0 the write only happens when the stored version matches,
// otherwise apperr.ErrConflict is returned. On success n reflects the stored row.
func (db *DB) UpdateNote(ctx context.Context, n *models.Note, expectedVersion int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: update note: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `UPDATE notes SET category_id = ?, path = ?, title = ?, content = ?, version = version + 1, updated_at = ? WHERE id = ?`
	args := []any{n.CategoryID, n.Path, n.Title, n.Content, toMillis(db.now()), n.ID}
	if expectedVersion > 0 {
		query += ` AND version = ?`
		args = append(args, expectedVersion)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("db: update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := getNote(ctx, tx, `id = ?`, n.ID); err != nil {
			return err
		}
		return apperr.ErrConflict
	}

	stored, err := getNote(ctx, tx, `id = ?`, n.ID)
	if err != nil {
		return err
	}
	if err := ftsUpsert(tx, stored.ID, stored.Title, stored.Content); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: update note: commit: %w", err)
	}
	*n = *stored
	return nil
}

// AppendNote concatenates text to a note's content as a single statement and bumps the version.
func (db *DB) AppendNote(ctx context.Context, id, text string) (*models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db: append note: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE notes SET content = content || ?, version = version + 1, updated_at = ? WHERE id = ?`,
		"\n\n"+text, toMillis(db.now()), id)
	if err != nil {
		return nil, fmt.Errorf("db: append note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}
	stored, err := getNote(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if err := ftsUpsert(tx, stored.ID, stored.Title, stored.Content); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("db: append note: commit: %w", err)
	}
	return stored, nil
}

// DeleteNote removes a note by ID.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: delete note: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListNotes returns every note ordered by category ID then path.
func (db *DB) ListNotes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY category_id, path`)
}

// NotesByArea returns notes whose category ID starts with prefix.
func (db *DB) NotesByArea(ctx context.Context, prefix string) ([]models.Note, error) {
	return db.queryNotes(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE substr(category_id, 1, length(?)) = ? ORDER BY category_id, path`,
		prefix, prefix)
}

// NoteIDs returns the set of all note IDs.
func (db *DB) NoteIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("db: note ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (db *DB) queryNotes(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}
