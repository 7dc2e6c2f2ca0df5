package mcpserver

import (
	"strings"

	"github.com/starford/secondbrain/internal/jd"
)

const guideEvents = `## Events

A line of this form anywhere in a note becomes a calendar event on the next extraction pass:

` + "```" + `
📅 Event: Title | YYYY-MM-DD | HH:MM | Location
` + "```" + `

Date is required. Time and location are optional; without a time the event is all-day.
Editing the line updates the event, and removing it removes the event.
`

// Guide describes the filing taxonomy and the event line syntax.
func Guide() string {
	var b strings.Builder
	b.WriteString("# Second Brain Taxonomy\n\n")
	b.WriteString("Notes are filed with a Johnny.Decimal ID `NN.NN`. The first digit is the area, ")
	b.WriteString("the first two digits are the category. Paths look like `61-projects/61.01-garden-plan.md`.\n\n")
	b.WriteString("## Areas\n\n")
	b.WriteString(jd.Describe())
	b.WriteString("\n")
	b.WriteString(guideEvents)
	return b.String()
}
