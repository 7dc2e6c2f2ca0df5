package models

import "time"

// Event is a calendar entry, either entered manually or extracted from note text.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate,omitempty"`
	AllDay       bool      `json:"allDay"`
	Location     string    `json:"location,omitempty"`
	Category     string    `json:"category"`
	SourceNoteID string    `json:"sourceNoteId,omitempty"`
	SourceText   string    `json:"sourceText,omitempty"`
	SourceHash   string    `json:"-"`
	IsExtracted  bool      `json:"isExtracted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
