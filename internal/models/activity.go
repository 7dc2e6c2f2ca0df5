package models

import "time"

// Activity actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionAppended = "appended"
)

// ActivityEntry records one automated filing decision. Entries are never modified.
type ActivityEntry struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	Action        string         `json:"action"`
	CaptureID     string         `json:"captureId,omitempty"`
	NoteID        string         `json:"noteId"`
	NotePath      string         `json:"notePath"`
	NoteTitle     string         `json:"noteTitle"`
	CategoryLabel string         `json:"categoryLabel"`
	Reasoning     string         `json:"reasoning"`
	Debug         *ActivityDebug `json:"debug,omitempty"`
}

// ActivityDebug carries the prompt context behind a decision.
type ActivityDebug struct {
	NotesInContext int    `json:"notesInContext"`
	ImageAttached  bool   `json:"imageAttached"`
	PromptLength   int    `json:"promptLength"`
	CaptureText    string `json:"captureText,omitempty"`
	RawResponse    string `json:"rawResponse,omitempty"`
}
