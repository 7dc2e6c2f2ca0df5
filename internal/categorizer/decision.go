package categorizer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/secondbrain/internal/jd"
)

// Actions a decision can carry.
const (
	ActionCreate = "create"
	ActionAppend = "append"
)

// FallbackReasoning marks decisions made without a usable model response.
const FallbackReasoning = "Could not parse AI suggestion, defaulting to Ideas"

const (
	fallbackID       = "61.01"
	fallbackTitle    = "New Note"
	fallbackTitleLen = 50
)

// Decision is where a capture should be filed.
type Decision struct {
	Action       string `json:"action"`
	TargetNoteID string `json:"targetNoteId,omitempty"`
	CategoryID   string `json:"jdId"`
	AreaName     string `json:"areaName"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Reasoning    string `json:"reasoning"`
	Fallback     bool   `json:"fallback"`
}

type modelReply struct {
	Action         string `json:"action"`
	ExistingNoteID string `json:"existingNoteId"`
	Area           any    `json:"area"`
	JDID           string `json:"jdId"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Reasoning      string `json:"reasoning"`
}

// jsonObject spans from the first "{" to the last "}" of the reply.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseDecision reads the model reply. Missing or malformed fields are
// defaulted one by one; a reply without a decodable JSON object yields the fallback.
func ParseDecision(reply, captureText string) Decision {
	raw := jsonObject.FindString(reply)
	if raw == "" {
		return Fallback(captureText)
	}
	var r modelReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Fallback(captureText)
	}

	d := Decision{
		Action:     ActionCreate,
		CategoryID: strings.TrimSpace(r.JDID),
		Title:      strings.TrimSpace(r.Title),
		Content:    r.Content,
		Reasoning:  strings.TrimSpace(r.Reasoning),
	}
	if strings.EqualFold(strings.TrimSpace(r.Action), ActionAppend) && strings.TrimSpace(r.ExistingNoteID) != "" {
		d.Action = ActionAppend
		d.TargetNoteID = strings.TrimSpace(r.ExistingNoteID)
	}
	if !jd.ValidID(d.CategoryID) {
		d.CategoryID = jd.AreaOf(areaDigit(r.Area)).Digit + "1.01"
	}
	d.AreaName = jd.AreaOf(d.CategoryID).Name
	if d.Title == "" {
		d.Title = "Untitled Note"
	}
	if strings.TrimSpace(d.Content) == "" {
		d.Content = "# " + d.Title + "\n\n" + captureText
	}
	if d.Reasoning == "" {
		d.Reasoning = "AI suggestion"
	}
	return d
}

// areaDigit accepts "41", 4, "40-49" and similar, returning the leading digit.
func areaDigit(v any) string {
	var s string
	switch a := v.(type) {
	case string:
		s = strings.TrimSpace(a)
	case float64:
		s = strconv.FormatFloat(a, 'f', -1, 64)
	}
	if s == "" || s[0] < '0' || s[0] > '9' {
		return ""
	}
	return s[:1]
}

// Fallback files the raw capture text under Ideas.
func Fallback(captureText string) Decision {
	title := strings.TrimSpace(strings.ReplaceAll(truncateRunes(captureText, fallbackTitleLen), "\n", " "))
	if title == "" {
		title = fallbackTitle
	}
	area := jd.AreaOf(fallbackID)
	return Decision{
		Action:     ActionCreate,
		CategoryID: fallbackID,
		AreaName:   area.Name,
		Title:      title,
		Content:    "# Note\n\n" + captureText,
		Reasoning:  FallbackReasoning,
		Fallback:   true,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
