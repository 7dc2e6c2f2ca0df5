package models

import "time"

// Note is a knowledge-base document filed under a Johnny.Decimal ID.
type Note struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"jdId"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AreaDigit returns the first digit of the note's category ID, or "" when unset.
func (n Note) AreaDigit() string {
	if n.CategoryID == "" {
		return ""
	}
	return n.CategoryID[:1]
}

// NoteSummary is the list representation of a note without its content.
type NoteSummary struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"jdId"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Version    int       `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summary drops the note content.
func (n Note) Summary() NoteSummary {
	return NoteSummary{
		ID:         n.ID,
		CategoryID: n.CategoryID,
		Path:       n.Path,
		Title:      n.Title,
		Version:    n.Version,
		UpdatedAt:  n.UpdatedAt,
	}
}

// SearchHit is a single full-text search result.
type SearchHit struct {
	Note    Note   `json:"note"`
	Snippet string `json:"snippet"`
}
