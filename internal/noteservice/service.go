// Package noteservice resolves categorization decisions into notes and serves
// note queries. Every mutation bumps the note version.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
)

// Upsert statuses.
const (
	StatusCreated  = "created"
	StatusUpdated  = "updated"
	StatusConflict = "conflict"
)

// Notifier is told about every note mutation.
type Notifier interface {
	PublishNoteEvent(kind, id, path string)
}

// Service coordinates note reads and writes.
type Service struct {
	db     *db.DB
	notify Notifier
}

// NewService creates a new note service. notify may be nil.
func NewService(store *db.DB, notify Notifier) *Service {
	return &Service{db: store, notify: notify}
}

// CreateInput describes a new note. Path defaults to the taxonomy path for
// CategoryID and Title.
type CreateInput struct {
	CategoryID string
	Path       string
	Title      string
	Content    string
}

// UpdateInput is a partial update; nil fields keep their value. ExpectedVersion
// of zero skips the version check.
type UpdateInput struct {
	CategoryID      *string
	Path            *string
	Title           *string
	Content         *string
	ExpectedVersion int
}

// UpsertInput is a sync write keyed by path. A nil ExpectedVersion always writes.
type UpsertInput struct {
	Path            string
	CategoryID      string
	Title           string
	Content         string
	ExpectedVersion *int
}

// UpsertResult reports the outcome of an upsert. A conflict is not an error:
// Note is the stored note and nothing was written.
type UpsertResult struct {
	Status          string       `json:"status"`
	Note            *models.Note `json:"note"`
	CurrentVersion  int          `json:"currentVersion"`
	ExpectedVersion *int         `json:"expectedVersion,omitempty"`
}

// Get returns a note by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.db.GetNote(ctx, id)
}

// GetByPath returns the note stored at path.
func (s *Service) GetByPath(ctx context.Context, path string) (*models.Note, error) {
	return s.db.GetNoteByPath(ctx, cleanPath(path))
}

// List returns every note ordered by category ID.
func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	return s.db.ListNotes(ctx)
}

// ByArea returns the notes whose category ID starts with prefix, typically one area digit.
func (s *Service) ByArea(ctx context.Context, prefix string) ([]models.Note, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: area is required", apperr.ErrInvalid)
	}
	return s.db.NotesByArea(ctx, prefix)
}

// Search runs a full-text query, optionally restricted to a category prefix.
func (s *Service) Search(ctx context.Context, query, prefix string) ([]models.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []models.SearchHit{}, nil
	}
	return s.db.SearchNotes(ctx, query, strings.TrimSpace(prefix))
}

// Create inserts a new note at version 1. A taken path yields apperr.ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Note, error) {
	if !jd.ValidID(in.CategoryID) {
		return nil, fmt.Errorf("%w: jdId must look like NN.NN", apperr.ErrInvalid)
	}
	n := &models.Note{
		CategoryID: in.CategoryID,
		Path:       cleanPath(in.Path),
		Title:      in.Title,
		Content:    in.Content,
	}
	if n.Path == "" {
		n.Path = jd.NotePath(n.CategoryID, n.Title)
	}
	if err := s.db.InsertNote(ctx, n); err != nil {
		return nil, err
	}
	s.publish(models.ActionCreated, n)
	return n, nil
}

// Update applies a partial update and bumps the version.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Note, error) {
	n, err := s.db.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if !jd.ValidID(*in.CategoryID) {
			return nil, fmt.Errorf("%w: jdId must look like NN.NN", apperr.ErrInvalid)
		}
		n.CategoryID = *in.CategoryID
	}
	if in.Path != nil {
		n.Path = cleanPath(*in.Path)
	}
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if err := s.db.UpdateNote(ctx, n, in.ExpectedVersion); err != nil {
		return nil, err
	}
	s.publish(models.ActionUpdated, n)
	return n, nil
}

// Delete removes a note. Events extracted from it are dropped by the next extraction pass.
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.db.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.publish("deleted", n)
	return nil
}

// DeleteByPath removes the note stored at path.
func (s *Service) DeleteByPath(ctx context.Context, path string) error {
	n, err := s.db.GetNoteByPath(ctx, cleanPath(path))
	if err != nil {
		return err
	}
	return s.Delete(ctx, n.ID)
}

// Append adds text to the end of a note, separated by a blank line.
// A missing note yields apperr.ErrNotFound.
func (s *Service) Append(ctx context.Context, id, text string) (*models.Note, error) {
	n, err := s.db.AppendNote(ctx, id, text)
	if err != nil {
		return nil, err
	}
	s.publish(models.ActionAppended, n)
	return n, nil
}

// CreateOrUpdateByPath stores a note at path, replacing title and content when
// one already exists there. The returned action is models.ActionCreated or
// models.ActionUpdated.
func (s *Service) CreateOrUpdateByPath(ctx context.Context, categoryID, path, title, content string) (*models.Note, string, error) {
	path = cleanPath(path)
	existing, err := s.db.GetNoteByPath(ctx, path)
	switch {
	case err == nil:
		existing.Title = title
		existing.Content = content
		if err := s.db.UpdateNote(ctx, existing, 0); err != nil {
			return nil, "", err
		}
		s.publish(models.ActionUpdated, existing)
		return existing, models.ActionUpdated, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, "", err
	}

	n := &models.Note{CategoryID: categoryID, Path: path, Title: title, Content: content}
	if err := s.db.InsertNote(ctx, n); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			// Lost a race with another writer; the path now exists.
			return s.CreateOrUpdateByPath(ctx, categoryID, path, title, content)
		}
		return nil, "", err
	}
	s.publish(models.ActionCreated, n)
	return n, models.ActionCreated, nil
}

// Upsert writes a note by path, comparing the stored version with
// in.ExpectedVersion first. A mismatch returns StatusConflict and writes nothing.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	path := cleanPath(in.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", apperr.ErrInvalid)
	}
	if in.CategoryID != "" && !jd.ValidID(in.CategoryID) {
		return nil, fmt.Errorf("%w: jdId must look like NN.NN", apperr.ErrInvalid)
	}

	existing, err := s.db.GetNoteByPath(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		if in.CategoryID == "" {
			return nil, fmt.Errorf("%w: jdId is required for a new note", apperr.ErrInvalid)
		}
		n := &models.Note{CategoryID: in.CategoryID, Path: path, Title: in.Title, Content: in.Content}
		if err := s.db.InsertNote(ctx, n); err != nil {
			if errors.Is(err, apperr.ErrAlreadyExists) {
				return s.Upsert(ctx, in)
			}
			return nil, err
		}
		s.publish(models.ActionCreated, n)
		return &UpsertResult{Status: StatusCreated, Note: n, CurrentVersion: n.Version, ExpectedVersion: in.ExpectedVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	expected := 0
	if in.ExpectedVersion != nil {
		expected = *in.ExpectedVersion
		if expected != existing.Version {
			return conflict(existing, in.ExpectedVersion), nil
		}
	}
	n := *existing
	if in.CategoryID != "" {
		n.CategoryID = in.CategoryID
	}
	n.Title = in.Title
	n.Content = in.Content
	if err := s.db.UpdateNote(ctx, &n, expected); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			current, gerr := s.db.GetNoteByPath(ctx, path)
			if gerr != nil {
				return nil, gerr
			}
			return conflict(current, in.ExpectedVersion), nil
		}
		return nil, err
	}
	s.publish(models.ActionUpdated, &n)
	return &UpsertResult{Status: StatusUpdated, Note: &n, CurrentVersion: n.Version, ExpectedVersion: in.ExpectedVersion}, nil
}

func conflict(current *models.Note, expected *int) *UpsertResult {
	return &UpsertResult{
		Status:          StatusConflict,
		Note:            current,
		CurrentVersion:  current.Version,
		ExpectedVersion: expected,
	}
}

func (s *Service) publish(kind string, n *models.Note) {
	if s.notify != nil {
		s.notify.PublishNoteEvent(kind, n.ID, n.Path)
	}
}

func cleanPath(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), "/")
}
