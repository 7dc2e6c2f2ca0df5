// Package jd encodes the Johnny.Decimal taxonomy notes are filed under:
// ten areas (0-9), categories within each area (NN) and items (NN.NN).
package jd

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is a two-digit category inside an area.
type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Area is a top-level bucket identified by a single digit.
type Area struct {
	Digit       string     `json:"digit"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Categories  []Category `json:"categories"`
}

// Label returns the "N0-N9" range label of the area.
func (a Area) Label() string {
	return fmt.Sprintf("%s0-%s9", a.Digit, a.Digit)
}

var areas = []Area{
	{Digit: "0", Name: "Index", Description: "System index and meta information", Categories: []Category{
		{"01", "System"}, {"02", "Templates"}, {"03", "Settings"},
	}},
	{Digit: "1", Name: "Reference", Description: "Reference materials and documentation", Categories: []Category{
		{"11", "Technical Docs"}, {"12", "How-To Guides"}, {"13", "Checklists"}, {"14", "Resources"},
	}},
	{Digit: "2", Name: "Projects", Description: "Active projects and work", Categories: []Category{
		{"21", "Active Projects"}, {"22", "Planned Projects"}, {"23", "Completed Projects"},
	}},
	{Digit: "3", Name: "People", Description: "People, contacts, and relationships", Categories: []Category{
		{"31", "Family"}, {"32", "Friends"}, {"33", "Professional"}, {"34", "Service Providers"},
	}},
	{Digit: "4", Name: "Media", Description: "Books, movies, TV shows, games, music", Categories: []Category{
		{"41", "Movies"}, {"42", "TV Shows"}, {"43", "Books"}, {"44", "Podcasts"}, {"45", "Music"}, {"46", "Games"},
	}},
	{Digit: "5", Name: "Events", Description: "Events, calendar, and scheduling", Categories: []Category{
		{"51", "Local Events"}, {"52", "Travel"}, {"53", "Appointments"}, {"54", "Holidays"},
	}},
	{Digit: "6", Name: "Ideas", Description: "Ideas, brainstorms, and creative thoughts", Categories: []Category{
		{"61", "Project Ideas"}, {"62", "Business Ideas"}, {"63", "Creative Writing"}, {"64", "Random Thoughts"},
	}},
	{Digit: "7", Name: "Home", Description: "Home and household management", Categories: []Category{
		{"71", "Pets"}, {"72", "Vehicles"}, {"73", "Maintenance"}, {"74", "Purchases"}, {"75", "Utilities"},
	}},
	{Digit: "8", Name: "Personal", Description: "Personal notes and life", Categories: []Category{
		{"81", "Journal"}, {"82", "Goals"}, {"83", "Health"}, {"84", "Finances"},
	}},
	{Digit: "9", Name: "Archive", Description: "Archived and historical content", Categories: []Category{
		{"91", "Completed Projects"}, {"92", "Past Events"}, {"93", "Old Reference"},
	}},
}

// folders maps a category code to its directory name in note paths.
var folders = map[string]string{
	"01": "01-system", "02": "02-templates", "03": "03-settings",
	"11": "11-technical", "12": "12-howto", "13": "13-checklists", "14": "14-resources",
	"21": "21-active", "22": "22-planned", "23": "23-completed",
	"31": "31-family", "32": "32-friends", "33": "33-professional", "34": "34-providers",
	"41": "41-movies", "42": "42-tv", "43": "43-books", "44": "44-podcasts", "45": "45-music", "46": "46-games",
	"51": "51-local", "52": "52-travel", "53": "53-appointments", "54": "54-holidays",
	"61": "61-projects", "62": "62-business", "63": "63-creative", "64": "64-random",
	"71": "71-pets", "72": "72-vehicles", "73": "73-maintenance", "74": "74-purchases", "75": "75-utilities",
	"81": "81-journal", "82": "82-goals", "83": "83-health", "84": "84-finances",
	"91": "91-projects", "92": "92-events", "93": "93-reference",
}

// DefaultArea is used when a decision names an area that does not exist.
const DefaultArea = "6"

var idRe = regexp.MustCompile(`^\d{2}\.\d{2}$`)

// Areas returns a copy of the area table in digit order.
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// LookupArea returns the area for a digit.
func LookupArea(digit string) (Area, bool) {
	for _, a := range areas {
		if a.Digit == digit {
			return a, true
		}
	}
	return Area{}, false
}

// AreaOf returns the area an ID or category code belongs to, falling back to DefaultArea.
func AreaOf(id string) Area {
	if id != "" {
		if a, ok := LookupArea(id[:1]); ok {
			return a
		}
	}
	a, _ := LookupArea(DefaultArea)
	return a
}

// ValidID reports whether id has the NN.NN form.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// CategoryCode returns the NN part of an NN.NN ID.
func CategoryCode(id string) string {
	if len(id) < 2 {
		return id
	}
	return id[:2]
}

// CategoryFolder returns the directory used for notes in the category of id.
func CategoryFolder(id string) string {
	code := CategoryCode(id)
	if f, ok := folders[code]; ok {
		return f
	}
	if len(code) == 2 && code[1] == '0' {
		return code + "-" + Slugify(AreaOf(code).Name)
	}
	return code + "-notes"
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics into one dash.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// NotePath builds "{folder}/{id}-{slug}.md" for a note.
func NotePath(id, title string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "note"
	}
	return fmt.Sprintf("%s/%s-%s.md", CategoryFolder(id), id, slug)
}

// Describe renders the taxonomy as prompt text, one area per line.
func Describe() string {
	var b strings.Builder
	for _, a := range areas {
		names := make([]string, len(a.Categories))
		for i, c := range a.Categories {
			names[i] = c.Code + "=" + c.Name
		}
		fmt.Fprintf(&b, "- %s %s: %s (Categories: %s)\n", a.Label(), a.Name, a.Description, strings.Join(names, ", "))
	}
	return b.String()
}
