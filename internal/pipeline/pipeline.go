// Package pipeline files pending captures: claim the oldest one, categorize it,
// resolve the decision into a note and record the outcome in the activity log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/categorizer"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
	"github.com/starford/secondbrain/internal/sse"
)

// ReasonNoPending is reported when there was nothing to process.
const ReasonNoPending = "No pending captures"

// Categorizer decides where a capture belongs.
type Categorizer interface {
	Categorize(ctx context.Context, c *models.Capture) (*categorizer.Outcome, error)
}

// Publisher receives live update events.
type Publisher interface {
	Publish(event sse.Event)
}

// Result is the outcome of one pass. Failures are reported in Error rather than
// returned, and leave the capture pending for the next pass.
type Result struct {
	Processed bool   `json:"processed"`
	CaptureID string `json:"captureId,omitempty"`
	NoteID    string `json:"noteId,omitempty"`
	NotePath  string `json:"notePath,omitempty"`
	Action    string `json:"action,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pipeline processes one capture per call.
type Pipeline struct {
	db      *db.DB
	engine  Categorizer
	notes   *noteservice.Service
	publish Publisher
	logger  *slog.Logger
}

// New creates a Pipeline. publish may be nil.
func New(store *db.DB, engine Categorizer, notes *noteservice.Service, publish Publisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{db: store, engine: engine, notes: notes, publish: publish, logger: logger}
}

// ProcessNext claims the oldest pending capture and files it.
//
// A failure to reach the model puts the capture back to pending. A reply that
// cannot be parsed still files the capture, under the fallback category.
func (p *Pipeline) ProcessNext(ctx context.Context) Result {
	c, err := p.db.ClaimNextCapture(ctx)
	if err != nil {
		p.logger.Error("claim capture failed", slog.String("error", err.Error()))
		return Result{Error: err.Error()}
	}
	if c == nil {
		return Result{Reason: ReasonNoPending}
	}
	log := p.logger.With(slog.String("capture_id", c.ID))

	out, err := p.engine.Categorize(ctx, c)
	if err != nil {
		if errors.Is(err, apperr.ErrNotConfigured) {
			log.Error("capture not processed", slog.String("error", err.Error()))
		} else {
			log.Warn("capture not processed, will retry", slog.String("error", err.Error()))
		}
		p.release(ctx, c.ID)
		return Result{CaptureID: c.ID, Error: err.Error()}
	}

	d := out.Decision
	note, action, err := p.resolve(ctx, d)
	if err != nil {
		log.Error("resolve decision failed", slog.String("error", err.Error()))
		p.release(ctx, c.ID)
		return Result{CaptureID: c.ID, Error: err.Error()}
	}

	// The note is written; from here on the capture must not be retried.
	debug := out.Debug
	entry := &models.ActivityEntry{
		Action:        action,
		CaptureID:     c.ID,
		NoteID:        note.ID,
		NotePath:      note.Path,
		NoteTitle:     note.Title,
		CategoryLabel: d.AreaName,
		Reasoning:     d.Reasoning,
		Debug:         &debug,
	}
	if err := p.db.InsertActivity(ctx, entry); err != nil {
		log.Error("activity log write failed", slog.String("error", err.Error()))
	}
	if err := p.db.SetCaptureStatus(ctx, c.ID, models.CaptureStatusDone); err != nil {
		log.Error("mark capture done failed", slog.String("error", err.Error()))
	}

	res := Result{
		Processed: true,
		CaptureID: c.ID,
		NoteID:    note.ID,
		NotePath:  note.Path,
		Action:    action,
		Fallback:  d.Fallback,
	}
	log.Info("capture filed",
		slog.String("action", action),
		slog.String("note_path", note.Path),
		slog.Bool("fallback", d.Fallback))
	if p.publish != nil {
		p.publish.Publish(sse.Event{Type: sse.TypeCaptureProcessed, Data: res})
	}
	return res
}

// resolve applies a decision. An append whose target vanished becomes a create.
func (p *Pipeline) resolve(ctx context.Context, d categorizer.Decision) (*models.Note, string, error) {
	if d.Action == categorizer.ActionAppend {
		n, err := p.notes.Append(ctx, d.TargetNoteID, d.Content)
		if err == nil {
			return n, models.ActionAppended, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, "", fmt.Errorf("append to %s: %w", d.TargetNoteID, err)
		}
		p.logger.Warn("append target missing, creating a new note", slog.String("note_id", d.TargetNoteID))
	}
	return p.notes.CreateOrUpdateByPath(ctx, d.CategoryID, jd.NotePath(d.CategoryID, d.Title), d.Title, d.Content)
}

func (p *Pipeline) release(ctx context.Context, id string) {
	if err := p.db.SetCaptureStatus(context.WithoutCancel(ctx), id, models.CaptureStatusPending); err != nil {
		p.logger.Error("reset capture to pending failed",
			slog.String("capture_id", id),
			slog.String("error", err.Error()))
	}
}
