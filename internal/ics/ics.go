// Package ics renders events as an iCalendar (RFC 5545) document.
package ics

import (
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/models"
)

const (
	dateLayout  = "20060102"
	utcLayout   = "20060102T150405Z"
	maxLineLen  = 75
	defaultName = "Second Brain"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Options control calendar-wide fields.
type Options struct {
	// Name is the calendar display name.
	Name string
	// Location interprets start and end times that carry no zone. Defaults to UTC.
	Location *time.Location
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now time.Time
	// UIDDomain is appended to event IDs to form UIDs.
	UIDDomain string
}

// Render returns the calendar text. Events whose dates cannot be parsed are left out.
func Render(evs []models.Event, opts Options) string {
	if opts.Name == "" {
		opts.Name = defaultName
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = "secondbrain"
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//" + escape(opts.Name) + "//Events//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + escape(opts.Name),
	}
	stamp := opts.Now.UTC().Format(utcLayout)
	for _, e := range evs {
		start, end, ok := bounds(e, opts.Location)
		if !ok {
			continue
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+e.ID+"@"+opts.UIDDomain,
			"DTSTAMP:"+stamp,
			start,
			end,
			"SUMMARY:"+escape(e.Title),
		)
		if e.Description != "" {
			lines = append(lines, "DESCRIPTION:"+escape(e.Description))
		}
		if e.Location != "" {
			lines = append(lines, "LOCATION:"+escape(e.Location))
		}
		if e.Category != "" {
			lines = append(lines, "CATEGORIES:"+escape(events.CategoryLabel(e.Category)))
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(fold(l))
		b.WriteString("\r\n")
	}
	return b.String()
}

// bounds returns the DTSTART and DTEND lines. All-day events end the day after
// their last day; timed events without an end last one hour.
func bounds(e models.Event, loc *time.Location) (string, string, bool) {
	if e.AllDay {
		start, err := time.Parse("2006-01-02", datePart(e.StartDate))
		if err != nil {
			return "", "", false
		}
		last := start
		if e.EndDate != "" {
			if t, err := time.Parse("2006-01-02", datePart(e.EndDate)); err == nil && !t.Before(start) {
				last = t
			}
		}
		end := last.AddDate(0, 0, 1)
		return "DTSTART;VALUE=DATE:" + start.Format(dateLayout), "DTEND;VALUE=DATE:" + end.Format(dateLayout), true
	}

	start, ok := parseTime(e.StartDate, loc)
	if !ok {
		return "", "", false
	}
	end := start.Add(time.Hour)
	if e.EndDate != "" {
		if t, ok := parseTime(e.EndDate, loc); ok && t.After(start) {
			end = t
		}
	}
	return "DTSTART:" + start.UTC().Format(utcLayout), "DTEND:" + end.UTC().Format(utcLayout), true
}

func datePart(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func parseTime(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

// fold splits content lines longer than 75 octets, continuing with a leading space.
func fold(line string) string {
	if len(line) <= maxLineLen {
		return line
	}
	var b strings.Builder
	limit := maxLineLen
	n := 0
	for _, r := range line {
		size := len(string(r))
		if n+size > limit {
			b.WriteString("\r\n ")
			n = 0
			limit = maxLineLen - 1
		}
		b.WriteRune(r)
		n += size
	}
	return b.String()
}
