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

const eventColumns = `id, title, description, start_date, end_date, all_day, location, category,
	source_note_id, source_text, source_hash, is_extracted, created_at, updated_at`

func scanEvent(s rowScanner) (*models.Event, error) {
	var (
		e                 models.Event
		allDay, extracted int
		created, updated  int64
	)
	if err := s.Scan(&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &allDay, &e.Location, &e.Category,
		&e.SourceNoteID, &e.SourceText, &e.SourceHash, &extracted, &created, &updated); err != nil {
		return nil, err
	}
	e.AllDay = allDay == 1
	e.IsExtracted = extracted == 1
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

// InsertEvent stores a new event.
func (db *DB) InsertEvent(ctx context.Context, e *models.Event) error {
	now := db.now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.StartDate, e.EndDate, boolInt(e.AllDay), e.Location, e.Category,
		e.SourceNoteID, e.SourceText, e.SourceHash, boolInt(e.IsExtracted), toMillis(now), toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("db: insert event: %w", err)
	}
	return nil
}

// GetEvent returns an event by ID.
func (db *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(db.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get event: %w", err)
	}
	return e, nil
}

// UpdateEvent overwrites the mutable fields of an event.
func (db *DB) UpdateEvent(ctx context.Context, e *models.Event) error {
	e.UpdatedAt = db.now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE events SET title = ?, description = ?, start_date = ?, end_date = ?, all_day = ?,
			location = ?, category = ?, source_text = ?, source_hash = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, e.StartDate, e.EndDate, boolInt(e.AllDay),
		e.Location, e.Category, e.SourceText, e.SourceHash, toMillis(e.UpdatedAt), e.ID)
	if err != nil {
		return fmt.Errorf("db: update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db: delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListEvents returns all events by start date.
func (db *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	return db.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date, title`)
}

// EventsBetween returns events starting in [from, to). Both bounds are ISO date
// or datetime strings and compare lexically.
func (db *DB) EventsBetween(ctx context.Context, from, to string) ([]models.Event, error) {
	return db.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE start_date >= ? AND start_date < ? ORDER BY start_date, title`,
		from, to)
}

// EventsByCategory returns events with the given category code.
func (db *DB) EventsByCategory(ctx context.Context, category string) ([]models.Event, error) {
	return db.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE category = ? ORDER BY start_date, title`, category)
}

// ExtractedEvents returns the machine-extracted events that point at noteID.
func (db *DB) ExtractedEvents(ctx context.Context, noteID string) ([]models.Event, error) {
	return db.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE is_extracted = 1 AND source_note_id = ? ORDER BY start_date`, noteID)
}

// DeleteDetachedEvents removes extracted events whose source note no longer exists.
func (db *DB) DeleteDetachedEvents(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM events
		WHERE is_extracted = 1 AND source_note_id NOT IN (SELECT id FROM notes)`)
	if err != nil {
		return 0, fmt.Errorf("db: delete detached events: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
