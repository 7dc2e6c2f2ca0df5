package events

// Event category codes.
const (
	CategoryLocal        = "50.01"
	CategoryTravel       = "50.02"
	CategoryAppointments = "50.03"
	CategoryHolidays     = "50.04"
)

var labels = map[string]string{
	CategoryLocal:        "Local Events",
	CategoryTravel:       "Travel",
	CategoryAppointments: "Appointments",
	CategoryHolidays:     "Holidays",
}

// byArea maps the first digit of a note's category ID to an event category.
var byArea = map[byte]string{
	'2': CategoryAppointments,
	'3': CategoryAppointments,
	'5': CategoryLocal,
	'7': CategoryLocal,
	'8': CategoryAppointments,
}

// CategoryFor picks the event category for events found in a note filed under noteCategoryID.
func CategoryFor(noteCategoryID string) string {
	if noteCategoryID != "" {
		if c, ok := byArea[noteCategoryID[0]]; ok {
			return c
		}
	}
	return CategoryLocal
}

// CategoryLabel returns the display name of an event category, or the code itself.
func CategoryLabel(code string) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return code
}

// ValidCategory reports whether code is a known event category.
func ValidCategory(code string) bool {
	_, ok := labels[code]
	return ok
}
