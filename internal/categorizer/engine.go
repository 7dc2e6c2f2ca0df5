// Package categorizer decides where a capture belongs in the Johnny.Decimal
// taxonomy by asking a language model, with the full note corpus as context.
package categorizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/models"
)

const debugTextLen = 200

// NoteLister supplies the corpus sent with every request.
type NoteLister interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
}

// ImageSource resolves a capture's file reference.
type ImageSource interface {
	Load(ctx context.Context, ref string) (*llm.Image, error)
}

// Outcome is a decision plus the context it was made with.
type Outcome struct {
	Decision Decision
	Debug    models.ActivityDebug
}

// Engine runs one categorization per capture.
type Engine struct {
	model     llm.Completer
	notes     NoteLister
	images    ImageSource
	maxTokens int
	logger    *slog.Logger
}

// NewEngine creates an Engine. images may be nil, in which case file references are ignored.
func NewEngine(model llm.Completer, notes NoteLister, images ImageSource, maxTokens int, logger *slog.Logger) *Engine {
	return &Engine{model: model, notes: notes, images: images, maxTokens: maxTokens, logger: logger}
}

// Categorize asks the model where c belongs. Errors mean the model could not be
// reached (or the corpus could not be read) and the capture should be retried;
// an unusable reply is not an error and produces the fallback decision.
func (e *Engine) Categorize(ctx context.Context, c *models.Capture) (*Outcome, error) {
	notes, err := e.notes.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("categorizer: load notes: %w", err)
	}

	var (
		img   *llm.Image
		state = ImageNone
	)
	if c.FileRef != "" && e.images != nil {
		img, err = e.images.Load(ctx, c.FileRef)
		if err != nil {
			e.logger.Warn("capture image unavailable",
				slog.String("capture_id", c.ID),
				slog.String("file_ref", c.FileRef),
				slog.String("error", err.Error()))
			state = ImageUnavailable
			img = nil
		} else {
			state = ImageAttached
		}
	}

	system := SystemPrompt(notes)
	user := UserPrompt(c, state)
	reply, err := e.model.Complete(ctx, llm.Request{
		System:    system,
		User:      user,
		Image:     img,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("categorizer: %w", err)
	}

	d := ParseDecision(reply, c.Text)
	if d.Fallback {
		e.logger.Warn("model reply had no usable JSON, using fallback",
			slog.String("capture_id", c.ID))
	}
	return &Outcome{
		Decision: d,
		Debug: models.ActivityDebug{
			NotesInContext: len(notes),
			ImageAttached:  state == ImageAttached,
			PromptLength:   len(system) + len(user),
			CaptureText:    truncateRunes(c.Text, debugTextLen),
			RawResponse:    reply,
		},
	}, nil
}
