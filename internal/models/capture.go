// Package models defines the domain types shared across the second brain.
package models

import "time"

// CaptureStatus is the processing state of a capture.
type CaptureStatus string

const (
	CaptureStatusPending    CaptureStatus = "pending"
	CaptureStatusProcessing CaptureStatus = "processing"
	CaptureStatusDone       CaptureStatus = "done"
)

// Capture sources.
const (
	SourceWeb      = "web"
	SourceShortcut = "shortcut"
	SourceEmail    = "email"
)

// Content types set by the server. Clients may send other values.
const (
	ContentText  = "text"
	ContentImage = "image"
	ContentURL   = "url"
	ContentFile  = "file"
)

// Capture is a raw item submitted by the user and waiting to be filed.
type Capture struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	ContentType string        `json:"contentType"`
	Text        string        `json:"text,omitempty"`
	FileRef     string        `json:"fileRef,omitempty"`
	Status      CaptureStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
