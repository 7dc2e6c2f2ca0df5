package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/checksum"
	"github.com/starford/secondbrain/internal/models"
)

// Store is the persistence the extractor needs.
type Store interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
	ExtractedEvents(ctx context.Context, noteID string) ([]models.Event, error)
	InsertEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	DeleteDetachedEvents(ctx context.Context) (int64, error)
}

// Result counts what an extraction pass changed.
type Result struct {
	Notes     int `json:"notes"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether the pass wrote anything.
func (r Result) Changed() bool {
	return r.Created+r.Updated+r.Removed > 0
}

func (r *Result) add(o Result) {
	r.Notes += o.Notes
	r.Created += o.Created
	r.Updated += o.Updated
	r.Removed += o.Removed
	r.Unchanged += o.Unchanged
}

// Extractor syncs extracted events with note content. Passes through one
// Extractor run one at a time; rows written concurrently by another process
// are taken as they are found.
type Extractor struct {
	store  Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewExtractor creates an Extractor.
func NewExtractor(store Store, logger *slog.Logger) *Extractor {
	return &Extractor{store: store, logger: logger}
}

// Run scans every note and then drops extracted events whose note is gone.
func (x *Extractor) Run(ctx context.Context) (Result, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	notes, err := x.store.ListNotes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("events: list notes: %w", err)
	}

	var total Result
	for i := range notes {
		r, err := x.SyncNote(ctx, &notes[i])
		if err != nil {
			return total, err
		}
		total.add(r)
	}

	detached, err := x.store.DeleteDetachedEvents(ctx)
	if err != nil {
		return total, fmt.Errorf("events: delete detached: %w", err)
	}
	total.Removed += int(detached)

	x.logger.Info("event extraction finished",
		slog.Int("notes", total.Notes),
		slog.Int("created", total.Created),
		slog.Int("updated", total.Updated),
		slog.Int("removed", total.Removed),
		slog.Int("unchanged", total.Unchanged))
	return total, nil
}

// SyncNote brings the extracted events of one note in line with its content.
// Events are keyed by the hash of their exact source text, so rescanning
// unchanged content is a no-op and an edited line replaces its old event.
func (x *Extractor) SyncNote(ctx context.Context, note *models.Note) (Result, error) {
	res := Result{Notes: 1}

	existing, err := x.store.ExtractedEvents(ctx, note.ID)
	if err != nil {
		return res, fmt.Errorf("events: load extracted for %s: %w", note.ID, err)
	}
	byKey := make(map[string]models.Event, len(existing))
	for _, e := range existing {
		byKey[anchor(e)] = e
	}

	category := CategoryFor(note.CategoryID)
	seen := make(map[string]struct{})
	for m := range Scan(note.Content) {
		key := checksum.String(m.SourceText)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		want := models.Event{
			Title:        m.Title,
			StartDate:    m.StartDate(),
			AllDay:       m.AllDay(),
			Location:     m.Location,
			Category:     category,
			SourceNoteID: note.ID,
			SourceText:   m.SourceText,
			SourceHash:   key,
			IsExtracted:  true,
		}

		cur, ok := byKey[key]
		switch {
		case !ok:
			err := x.store.InsertEvent(ctx, &want)
			switch {
			case errors.Is(err, apperr.ErrAlreadyExists):
				// Another pass stored the same mention first.
				res.Unchanged++
			case err != nil:
				return res, fmt.Errorf("events: insert %q: %w", m.Title, err)
			default:
				res.Created++
			}
		case sameFields(cur, want):
			res.Unchanged++
		default:
			cur.Title = want.Title
			cur.StartDate = want.StartDate
			cur.AllDay = want.AllDay
			cur.Location = want.Location
			cur.Category = want.Category
			cur.SourceText = want.SourceText
			cur.SourceHash = want.SourceHash
			if err := x.store.UpdateEvent(ctx, &cur); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return res, fmt.Errorf("events: update %s: %w", cur.ID, err)
			}
			res.Updated++
		}
	}

	for key, e := range byKey {
		if _, ok := seen[key]; ok {
			continue
		}
		if err := x.store.DeleteEvent(ctx, e.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return res, fmt.Errorf("events: delete %s: %w", e.ID, err)
		}
		res.Removed++
	}
	return res, nil
}

// anchor is the stored hash, or the hash of the source text for rows written without one.
func anchor(e models.Event) string {
	if e.SourceHash != "" {
		return e.SourceHash
	}
	return checksum.String(e.SourceText)
}

func sameFields(a, b models.Event) bool {
	return a.Title == b.Title &&
		a.StartDate == b.StartDate &&
		a.AllDay == b.AllDay &&
		a.Location == b.Location &&
		a.Category == b.Category &&
		a.SourceText == b.SourceText &&
		a.SourceHash == b.SourceHash
}
