// Package ask answers questions about the knowledge base with the model,
// using the best matching notes as context.
package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/models"
)

// fallbackNotes is how many notes are used when search finds nothing.
const fallbackNotes = 10

const systemPrompt = `You answer questions about the user's personal knowledge base.
Use only the notes provided below. Cite note titles when relevant. If the notes do
not contain the answer, say so plainly instead of guessing.`

const emptyKnowledgeBase = "The knowledge base is empty, so there is nothing to answer from yet."

// NoteSource finds notes for a question.
type NoteSource interface {
	SearchNotes(ctx context.Context, query, prefix string) ([]models.SearchHit, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
}

// Answer is the model's reply and how many notes it was given.
type Answer struct {
	Answer       string `json:"answer"`
	SourcesCount int    `json:"sourcesCount"`
}

// Service answers questions.
type Service struct {
	notes     NoteSource
	model     llm.Completer
	maxTokens int
}

// NewService creates a new ask service.
func NewService(notes NoteSource, model llm.Completer, maxTokens int) *Service {
	return &Service{notes: notes, model: model, maxTokens: maxTokens}
}

// Ask searches for notes matching question, falling back to the first notes of
// the corpus when nothing matches, and asks the model with them as context.
// A missing API key is reported before the question is looked at.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if !llm.Ready(s.model) {
		return nil, apperr.ErrNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperr.ErrInvalid)
	}

	notes, err := s.context(ctx, question)
	if err != nil {
		return nil, err
	}

	var user string
	if len(notes) == 0 {
		user = emptyKnowledgeBase + "\n\nQuestion: " + question
	} else {
		user = "Notes:\n\n" + FormatContext(notes) + "\n\nQuestion: " + question
	}
	reply, err := s.model.Complete(ctx, llm.Request{System: systemPrompt, User: user, MaxTokens: s.maxTokens})
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	return &Answer{Answer: strings.TrimSpace(reply), SourcesCount: len(notes)}, nil
}

func (s *Service) context(ctx context.Context, question string) ([]models.Note, error) {
	hits, err := s.notes.SearchNotes(ctx, question, "")
	if err != nil {
		return nil, fmt.Errorf("ask: search: %w", err)
	}
	if len(hits) > 0 {
		notes := make([]models.Note, len(hits))
		for i, h := range hits {
			notes[i] = h.Note
		}
		return notes, nil
	}

	all, err := s.notes.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("ask: list notes: %w", err)
	}
	if len(all) > fallbackNotes {
		all = all[:fallbackNotes]
	}
	return all, nil
}

// FormatContext renders notes as "## title (jdId - area)" blocks separated by rules.
func FormatContext(notes []models.Note) string {
	blocks := make([]string, len(notes))
	for i, n := range notes {
		blocks[i] = fmt.Sprintf("## %s (%s - %s)\nPath: %s\n\n%s",
			n.Title, n.CategoryID, jd.AreaOf(n.CategoryID).Name, n.Path, n.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
