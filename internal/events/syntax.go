// Package events finds calendar events written into note text and keeps the
// event table in step with them.
//
// The micro-syntax is one line per event:
//
//	📅 Event: Title | YYYY-MM-DD | HH:MM | Location
//
// Date is required; time and location are optional.
package events

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/starford/secondbrain/internal/apperr"
)

var pattern = regexp.MustCompile(`📅\s*Event:\s*([^|]+)\s*\|\s*(\d{4}-\d{2}-\d{2})(?:\s*\|\s*(\d{1,2}:\d{2}))?(?:\s*\|\s*([^|\n]+))?`)

// Match is one event mention found in text.
type Match struct {
	Title    string
	Date     string
	Time     string
	Location string
	// SourceText is the trimmed matched text.
	SourceText string
}

// AllDay reports whether the mention has no time.
func (m Match) AllDay() bool {
	return m.Time == ""
}

// StartDate returns the date, or "YYYY-MM-DDTHH:MM:00" when a time is present.
func (m Match) StartDate() string {
	if m.Time == "" {
		return m.Date
	}
	return m.Date + "T" + padTime(m.Time) + ":00"
}

func padTime(t string) string {
	if len(t) == 4 {
		return "0" + t
	}
	return t
}

// Scan returns the event mentions in content in order of appearance.
// Each call starts a fresh scan; nothing is shared between iterations.
func Scan(content string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		rest := content
		for {
			loc := pattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(toMatch(rest, loc)) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

func toMatch(s string, loc []int) Match {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return strings.TrimSpace(s[loc[2*i]:loc[2*i+1]])
	}
	return Match{
		Title:      group(1),
		Date:       group(2),
		Time:       group(3),
		Location:   group(4),
		SourceText: strings.TrimSpace(s[loc[0]:loc[1]]),
	}
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	timePrefix  = regexp.MustCompile(`^\d{1,2}:\d{2}`)
)

// Format renders a mention back into the micro-syntax. Fields are trimmed.
// A mention that would scan back differently fails with apperr.ErrInvalid:
// pipes or newlines inside a field, a malformed date or time, or a location
// starting with H:MM when there is no time (it would be read as the time).
func Format(m Match) (string, error) {
	title := strings.TrimSpace(m.Title)
	date := strings.TrimSpace(m.Date)
	tm := strings.TrimSpace(m.Time)
	location := strings.TrimSpace(m.Location)

	switch {
	case title == "" || strings.ContainsAny(title, "|\n"):
		return "", fmt.Errorf("%w: event title must be non-empty without pipes or newlines", apperr.ErrInvalid)
	case !datePattern.MatchString(date):
		return "", fmt.Errorf("%w: event date must be YYYY-MM-DD", apperr.ErrInvalid)
	case tm != "" && !timePattern.MatchString(tm):
		return "", fmt.Errorf("%w: event time must be HH:MM", apperr.ErrInvalid)
	case strings.ContainsAny(location, "|\n"):
		return "", fmt.Errorf("%w: event location must not contain pipes or newlines", apperr.ErrInvalid)
	case tm == "" && timePrefix.MatchString(location):
		return "", fmt.Errorf("%w: location %q would be read as a time; give the time explicitly", apperr.ErrInvalid, location)
	}

	line := fmt.Sprintf("📅 Event: %s | %s", title, date)
	if tm != "" {
		line += " | " + padTime(tm)
	}
	if location != "" {
		line += " | " + location
	}
	return line, nil
}
