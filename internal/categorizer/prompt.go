package categorizer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
)

// SystemPrompt builds the filing instructions followed by every note in full.
// The whole corpus is sent on every call.
func SystemPrompt(notes []models.Note) string {
	var b strings.Builder

	b.WriteString(`You file captured notes into a personal knowledge base organised with the Johnny.Decimal system.

== STRUCTURE ==
- Areas are ranges of ten (10-19, 20-29, ...), one digit each.
- Categories are two digits inside an area (41 = Movies inside Media 40-49).
- Items are IDs of the form NN.NN (41.01 is the first note in category 41).

== AREAS AND CATEGORIES ==
`)
	b.WriteString(jd.Describe())
	b.WriteString(`
== RULES ==
1. Never file content under an X0.YY ID. X0.00 is reserved for the area index;
   a movie goes to 41.01, not 40.01.
2. Group related content by category: a pet goes to 71, a family member to 31,
   a video game to 46.
3. Paths follow {category}-{name}/{jdId}-{slug}.md, e.g. 41-movies/41.01-watchlist.md.
4. Prefer appending to an existing note on the same topic over creating a new one.

== KNOWLEDGE BASE ==
`)
	if len(notes) == 0 {
		b.WriteString("(No notes yet)\n")
	} else {
		sorted := slices.Clone(notes)
		slices.SortStableFunc(sorted, func(a, b models.Note) int {
			return strings.Compare(a.CategoryID, b.CategoryID)
		})
		blocks := make([]string, len(sorted))
		for i, n := range sorted {
			blocks[i] = fmt.Sprintf("=== NOTE [%s] ===\nJD ID: %s\nPath: %s\nTitle: %s\n\n%s\n=== END NOTE ===",
				n.ID, n.CategoryID, n.Path, n.Title, n.Content)
		}
		b.WriteString(strings.Join(blocks, "\n\n"))
		b.WriteString("\n")
	}

	b.WriteString(`
== EVENTS ==
When the capture mentions a date, appointment or scheduled activity, put one line per
event in the note content using exactly this form:

📅 Event: Title | YYYY-MM-DD | HH:MM | Location

The date is required. Time (24-hour) and location are optional. Examples:
📅 Event: Dentist Appointment | 2025-12-15 | 14:00 | Dr. Smith's Office
📅 Event: Basketball Practice Start | 2026-01-11

== RESPONSE ==
Reply with a single JSON object and nothing else:
{
  "action": "append" or "create",
  "existingNoteId": "note ID from the knowledge base when appending",
  "area": "41",
  "jdId": "41.01",
  "title": "title for a new note, or a section header when appending",
  "content": "markdown to store",
  "reasoning": "why this category and action"
}
`)
	return b.String()
}

// UserPrompt describes the capture. imageState reports whether an image was
// attached, expected but unavailable, or absent.
func UserPrompt(c *models.Capture, state ImageState) string {
	text := c.Text
	if strings.TrimSpace(text) == "" {
		text = "[No text content]"
	}

	var b strings.Builder
	b.WriteString("Please process this captured content and suggest where it should go.\n\n")
	fmt.Fprintf(&b, "Source: %s\nContent Type: %s\n", c.Source, c.ContentType)
	switch state {
	case ImageAttached:
		b.WriteString("An image is attached. Describe what it shows and base the categorization on it.\n")
	case ImageUnavailable:
		b.WriteString("(Note: There was an image but it could not be loaded)\n")
	}
	fmt.Fprintf(&b, "\nText content:\n%s\n\nProvide your JSON response.", text)
	return b.String()
}

// ImageState is the outcome of loading a capture's image.
type ImageState int

const (
	ImageNone ImageState = iota
	ImageAttached
	ImageUnavailable
)
