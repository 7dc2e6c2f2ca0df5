package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
)

// DefaultUpcomingDays is the window used when none is given.
const DefaultUpcomingDays = 14

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

// Calendar serves manual event edits and date queries.
type Calendar struct {
	db  *db.DB
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a Calendar. loc decides what "today" means.
func NewCalendar(store *db.DB, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{db: store, loc: loc, now: time.Now}
}

// EventInput describes a manually entered event.
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	AllDay      *bool  `json:"allDay"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	NoteID      string `json:"noteId"`
}

// Validate validates the event input.
func (in EventInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.StartDate, validation.Required, validation.By(eventDate)),
		validation.Field(&in.EndDate, validation.By(eventDate)),
		validation.Field(&in.Category, validation.By(eventCategory)),
	)
}

// EventPatch is a partial update; nil fields keep their value.
type EventPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	AllDay      *bool   `json:"allDay"`
	Location    *string `json:"location"`
	Category    *string `json:"category"`
}

func eventDate(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := ParseDate(s); !ok {
		return errors.New("must be YYYY-MM-DD or YYYY-MM-DDTHH:MM[:SS]")
	}
	return nil
}

func eventCategory(v any) error {
	s, _ := v.(string)
	if s != "" && !jd.ValidID(s) {
		return errors.New("must look like NN.NN")
	}
	return nil
}

// ParseDate parses an event date or a datetime without zone.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	for _, layout := range []string{dateTimeLayout, dateTimeLayout + ":05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDateOnly(s string) bool {
	return len(s) == len(dateLayout)
}

// Create stores a manual event. allDay defaults to whether StartDate has no time.
func (c *Calendar) Create(ctx context.Context, in EventInput) (*models.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	e := &models.Event{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		AllDay:       isDateOnly(in.StartDate),
		Location:     in.Location,
		Category:     in.Category,
		SourceNoteID: in.NoteID,
	}
	if in.AllDay != nil {
		e.AllDay = *in.AllDay
	}
	if e.Category == "" {
		e.Category = CategoryLocal
	}
	if err := c.db.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update patches a manual event. Extracted events follow their note and are
// edited there, so patching one is rejected.
func (c *Calendar) Update(ctx context.Context, id string, p EventPatch) (*models.Event, error) {
	e, err := c.db.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsExtracted {
		return nil, fmt.Errorf("%w: extracted events are edited through their note", apperr.ErrInvalid)
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Title, p.Title)
	set(&e.Description, p.Description)
	set(&e.StartDate, p.StartDate)
	set(&e.EndDate, p.EndDate)
	set(&e.Location, p.Location)
	set(&e.Category, p.Category)
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}

	in := EventInput{Title: e.Title, StartDate: e.StartDate, EndDate: e.EndDate, Category: e.Category}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	if err := c.db.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an event. A deleted extracted event comes back on the next
// extraction pass if its line is still in the note.
func (c *Calendar) Delete(ctx context.Context, id string) error {
	return c.db.DeleteEvent(ctx, id)
}

// List returns every event by start date.
func (c *Calendar) List(ctx context.Context) ([]models.Event, error) {
	return c.db.ListEvents(ctx)
}

// ByCategory returns the events filed under an event category.
func (c *Calendar) ByCategory(ctx context.Context, category string) ([]models.Event, error) {
	return c.db.EventsByCategory(ctx, category)
}

// Between returns events whose start date falls on or between the two dates.
func (c *Calendar) Between(ctx context.Context, from, to string) ([]models.Event, error) {
	start, err1 := time.Parse(dateLayout, from)
	end, err2 := time.Parse(dateLayout, to)
	if err1 != nil || err2 != nil || end.Before(start) {
		return nil, fmt.Errorf("%w: from and to must be YYYY-MM-DD with from <= to", apperr.ErrInvalid)
	}
	return c.db.EventsBetween(ctx, start.Format(dateLayout), end.AddDate(0, 0, 1).Format(dateLayout))
}

// Upcoming returns events starting between today and today+days inclusive.
func (c *Calendar) Upcoming(ctx context.Context, days int) ([]models.Event, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	today := c.now().In(c.loc)
	from := today.Format(dateLayout)
	return c.Between(ctx, from, today.AddDate(0, 0, days).Format(dateLayout))
}
