// Package captures accepts raw items for later filing.
package captures

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/sse"
)

// DefaultRecent is the number of captures returned when no limit is given.
const DefaultRecent = 20

// Publisher receives live update events.
type Publisher interface {
	Publish(event sse.Event)
}

// Input describes a new capture.
type Input struct {
	Source      string `json:"source"`
	ContentType string `json:"contentType"`
	Text        string `json:"text"`
	FileRef     string `json:"fileRef"`
}

// Validate validates the capture input. contentType is free-form (clients send
// values such as "image+text") and text may be empty.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Source, validation.In(models.SourceWeb, models.SourceShortcut, models.SourceEmail)),
		validation.Field(&in.ContentType, validation.Required),
		validation.Field(&in.FileRef, validation.By(remoteRef)),
	)
}

// remoteRef refuses http(s) file references that point at internal hosts.
func remoteRef(value any) error {
	ref, _ := value.(string)
	if !attachments.IsRemote(ref) {
		return nil
	}
	return attachments.CheckRemoteURL(ref)
}

// Service stores captures.
type Service struct {
	db      *db.DB
	publish Publisher
}

// NewService creates a capture service. publish may be nil.
func NewService(store *db.DB, publish Publisher) *Service {
	return &Service{db: store, publish: publish}
}

// Create stores a pending capture. Source defaults to web.
func (s *Service) Create(ctx context.Context, in Input) (*models.Capture, error) {
	in.Source = strings.TrimSpace(in.Source)
	in.ContentType = strings.TrimSpace(in.ContentType)
	in.FileRef = strings.TrimSpace(in.FileRef)
	if in.Source == "" {
		in.Source = models.SourceWeb
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	c := &models.Capture{
		Source:      in.Source,
		ContentType: in.ContentType,
		Text:        in.Text,
		FileRef:     in.FileRef,
	}
	if err := s.db.CreateCapture(ctx, c); err != nil {
		return nil, err
	}
	if s.publish != nil {
		s.publish.Publish(sse.Event{Type: sse.TypeCaptureCreated, Data: c})
	}
	return c, nil
}

// Get returns a capture by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Capture, error) {
	return s.db.GetCapture(ctx, id)
}

// Recent returns the newest captures first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Capture, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	return s.db.RecentCaptures(ctx, limit)
}

// Pending returns the captures waiting to be filed, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.Capture, error) {
	return s.db.PendingCaptures(ctx)
}

// Delete removes a capture.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.DeleteCapture(ctx, id)
}
