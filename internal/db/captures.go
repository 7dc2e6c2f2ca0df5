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

const captureColumns = `id, source, content_type, text, file_ref, status, created_at, updated_at`

// claimAttempts bounds how often ClaimNextCapture retries after losing a race.
const claimAttempts = 5

func scanCapture(s rowScanner) (*models.Capture, error) {
	var (
		c                models.Capture
		status           string
		created, updated int64
	)
	if err := s.Scan(&c.ID, &c.Source, &c.ContentType, &c.Text, &c.FileRef, &status, &created, &updated); err != nil {
		return nil, err
	}
	c.Status = models.CaptureStatus(status)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// CreateCapture stores a new pending capture. ID and timestamps are assigned here.
func (db *DB) CreateCapture(ctx context.Context, c *models.Capture) error {
	now := db.now()
	c.ID = uuid.NewString()
	c.Status = models.CaptureStatusPending
	c.CreatedAt = now.UTC()
	c.UpdatedAt = c.CreatedAt
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO captures (`+captureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Source, c.ContentType, c.Text, c.FileRef, string(c.Status), toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("db: create capture: %w", err)
	}
	return nil
}

// GetCapture returns a capture by ID.
func (db *DB) GetCapture(ctx context.Context, id string) (*models.Capture, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get capture: %w", err)
	}
	return c, nil
}

// RecentCaptures returns the newest captures first.
func (db *DB) RecentCaptures(ctx context.Context, limit int) ([]models.Capture, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryCaptures(ctx, `SELECT `+captureColumns+` FROM captures ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// PendingCaptures returns pending captures, oldest first.
func (db *DB) PendingCaptures(ctx context.Context) ([]models.Capture, error) {
	return db.queryCaptures(ctx, `SELECT `+captureColumns+` FROM captures WHERE status = 'pending' ORDER BY created_at, rowid`)
}

func (db *DB) queryCaptures(ctx context.Context, query string, args ...any) ([]models.Capture, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query captures: %w", err)
	}
	defer rows.Close()

	out := []models.Capture{}
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan capture: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ClaimNextCapture moves the oldest pending capture to processing and returns it.
// The status change is a conditional update, so two callers can never claim the
// same capture. Returns (nil, nil) when nothing is pending.
func (db *DB) ClaimNextCapture(ctx context.Context) (*models.Capture, error) {
	for range claimAttempts {
		var id string
		err := db.conn.QueryRowContext(ctx,
			`SELECT id FROM captures WHERE status = 'pending' ORDER BY created_at, rowid LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("db: select pending capture: %w", err)
		}

		claimed, err := db.claimCapture(ctx, id)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		return db.GetCapture(ctx, id)
	}
	return nil, nil
}

func (db *DB) claimCapture(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE captures SET status = 'processing', updated_at = ? WHERE id = ? AND status = 'pending'`,
		toMillis(db.now()), id)
	if err != nil {
		return false, fmt.Errorf("db: claim capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db: claim capture: %w", err)
	}
	return n == 1, nil
}

// SetCaptureStatus changes a capture's status.
func (db *DB) SetCaptureStatus(ctx context.Context, id string, status models.CaptureStatus) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE captures SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(db.now()), id)
	if err != nil {
		return fmt.Errorf("db: set capture status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteCapture removes a capture.
func (db *DB) DeleteCapture(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db: delete capture: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RecoverStaleCaptures resets captures left in processing (e.g. by a crash) to pending.
func (db *DB) RecoverStaleCaptures(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE captures SET status = 'pending', updated_at = ? WHERE status = 'processing'`,
		toMillis(db.now()))
	if err != nil {
		return 0, fmt.Errorf("db: recover stale captures: %w", err)
	}
	return res.RowsAffected()
}
