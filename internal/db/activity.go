package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/secondbrain/internal/models"
)

// InsertActivity appends an entry to the activity log.
func (db *DB) InsertActivity(ctx context.Context, e *models.ActivityEntry) error {
	now := db.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now

	var debug string
	if e.Debug != nil {
		raw, err := json.Marshal(e.Debug)
		if err != nil {
			return fmt.Errorf("db: encode activity debug: %w", err)
		}
		debug = string(raw)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO activity_log (id, created_at, action, capture_id, note_id, note_path, note_title, category_label, reasoning, debug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, toMillis(now), e.Action, e.CaptureID, e.NoteID, e.NotePath, e.NoteTitle, e.CategoryLabel, e.Reasoning, debug)
	if err != nil {
		return fmt.Errorf("db: insert activity: %w", err)
	}
	return nil
}

// RecentActivity returns the newest log entries first.
func (db *DB) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, action, capture_id, note_id, note_path, note_title, category_label, reasoning, debug
		FROM activity_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: recent activity: %w", err)
	}
	defer rows.Close()

	out := []models.ActivityEntry{}
	for rows.Next() {
		var (
			e       models.ActivityEntry
			created int64
			debug   string
		)
		if err := rows.Scan(&e.ID, &created, &e.Action, &e.CaptureID, &e.NoteID, &e.NotePath, &e.NoteTitle,
			&e.CategoryLabel, &e.Reasoning, &debug); err != nil {
			return nil, fmt.Errorf("db: scan activity: %w", err)
		}
		e.CreatedAt = fromMillis(created)
		if debug != "" {
			var d models.ActivityDebug
			if err := json.Unmarshal([]byte(debug), &d); err == nil {
				e.Debug = &d
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
