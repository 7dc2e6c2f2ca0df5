// Package db is the SQLite store behind captures, notes, events and the activity log.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS captures (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL DEFAULT 'web',
	content_type TEXT NOT NULL,
	text         TEXT NOT NULL DEFAULT '',
	file_ref     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_status ON captures(status, created_at);

CREATE TABLE IF NOT EXISTS notes (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL,
	path        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category_id);

CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	start_date     TEXT NOT NULL,
	end_date       TEXT NOT NULL DEFAULT '',
	all_day        INTEGER NOT NULL DEFAULT 1,
	location       TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	source_note_id TEXT NOT NULL DEFAULT '',
	source_text    TEXT NOT NULL DEFAULT '',
	source_hash    TEXT NOT NULL DEFAULT '',
	is_extracted   INTEGER NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_source ON events(source_note_id, source_hash) WHERE is_extracted = 1;

CREATE TABLE IF NOT EXISTS activity_log (
	id             TEXT PRIMARY KEY,
	created_at     INTEGER NOT NULL,
	action         TEXT NOT NULL,
	capture_id     TEXT NOT NULL DEFAULT '',
	note_id        TEXT NOT NULL,
	note_path      TEXT NOT NULL,
	note_title     TEXT NOT NULL,
	category_label TEXT NOT NULL DEFAULT '',
	reasoning      TEXT NOT NULL DEFAULT '',
	debug          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at);
`,
	// Notes written before versioning read back as version 1.
	`ALTER TABLE notes ADD COLUMN version INTEGER NOT NULL DEFAULT 1;`,
}

// DB wraps a sql.DB with store operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database and brings the schema up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: apply fts schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("db: read schema version: %w", err)
	}
	for i := current; i < len(migrations); i++ {
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("db: migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("db: migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("db: migration %d: set version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("db: migration %d: commit: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&v)
	return v, err
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}
