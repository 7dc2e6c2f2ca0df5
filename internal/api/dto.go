package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
)

var jdIDRule = validation.Match(regexp.MustCompile(`^\d{2}\.\d{2}$`)).Error("must look like NN.NN")

// CaptureRequest is the request body for creating a capture.
type CaptureRequest struct {
	Source      string `json:"source" example:"web"`
	ContentType string `json:"contentType" example:"text" validate:"required"`
	Text        string `json:"text" example:"Call the plumber on Friday"`
	FileRef     string `json:"fileRef"`
}

// CaptureResponse is returned after a capture is stored.
type CaptureResponse struct {
	Success   bool   `json:"success"`
	CaptureID string `json:"captureId"`
	FileRef   string `json:"fileRef,omitempty"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	CategoryID string `json:"jdId" example:"61.01" validate:"required"`
	Path       string `json:"path" example:"61-projects/61.01-garden.md"`
	Title      string `json:"title" example:"Garden" validate:"required"`
	Content    string `json:"content" example:"# Garden"`
}

// Validate validates the create request.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CategoryID, validation.Required, jdIDRule),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
	)
}

// UpdateNoteRequest is a partial note update. ExpectedVersion of zero skips the check.
type UpdateNoteRequest struct {
	CategoryID      *string `json:"jdId"`
	Path            *string `json:"path"`
	Title           *string `json:"title"`
	Content         *string `json:"content"`
	ExpectedVersion int     `json:"expectedVersion"`
}

// Validate validates the update request.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CategoryID, validation.NilOrNotEmpty, jdIDRule),
		validation.Field(&r.Path, validation.NilOrNotEmpty),
		validation.Field(&r.Title, validation.NilOrNotEmpty),
		validation.Field(&r.ExpectedVersion, validation.Min(0)),
	)
}

// SyncNoteRequest is the request body for PUT /notes/sync.
type SyncNoteRequest struct {
	Path            string `json:"path" example:"61-projects/61.01-garden.md" validate:"required"`
	CategoryID      string `json:"jdId" example:"61.01"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	ExpectedVersion *int   `json:"expectedVersion"`
}

// Validate validates the sync request.
func (r SyncNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.CategoryID, jdIDRule),
	)
}

// AskRequest is the request body for POST /ask.
type AskRequest struct {
	Question string `json:"question" example:"When is the dentist?" validate:"required"`
}

// AreaResponse is one area of the taxonomy with its categories.
type AreaResponse struct {
	Digit       string        `json:"digit"`
	Label       string        `json:"label"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Categories  []jd.Category `json:"categories"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.NoteSummary `json:"notes"`
	Total int                  `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id"`
	JDID    string `json:"jdId"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
