package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/ics"
	"github.com/starford/secondbrain/internal/models"
)

const icsFilename = "secondbrain-events.ics"

// ListEvents handles GET /api/events. Optional filters are from+to (inclusive
// dates) or category; format=ics returns an iCalendar feed instead of JSON.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		evs []models.Event
		err error
	)
	switch {
	case q.Get("from") != "" || q.Get("to") != "":
		evs, err = h.deps.Calendar.Between(r.Context(), q.Get("from"), q.Get("to"))
	case q.Get("category") != "":
		evs, err = h.deps.Calendar.ByCategory(r.Context(), q.Get("category"))
	default:
		evs, err = h.deps.Calendar.List(r.Context())
	}
	if err != nil {
		writeError(w, "list events", err)
		return
	}

	if q.Get("format") == "ics" {
		body := ics.Render(evs, ics.Options{
			Name:     h.deps.CalendarName,
			Location: h.deps.Location,
			Now:      time.Now(),
		})
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+icsFilename)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs})
}

// UpcomingEvents handles GET /api/events/upcoming.
func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := h.deps.Calendar.Upcoming(r.Context(), queryInt(r, "days"))
	if err != nil {
		writeError(w, "upcoming events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs})
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req events.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.deps.Calendar.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateEvent handles PATCH /api/events/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req events.EventPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.deps.Calendar.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update event", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEvent handles DELETE /api/events/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Calendar.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
