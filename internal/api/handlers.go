package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/ask"
	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/captures"
	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
	"github.com/starford/secondbrain/internal/pipeline"
)

// ActivityLister returns recent processing log entries.
type ActivityLister interface {
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}

// Deps are the services the handlers call into.
type Deps struct {
	Notes       *noteservice.Service
	Captures    *captures.Service
	Calendar    *events.Calendar
	Activity    ActivityLister
	Ask         *ask.Service
	Attachments *attachments.Store
	// Process runs one capture pipeline pass.
	Process func(ctx context.Context) pipeline.Result
	// Extract runs one event extraction pass.
	Extract func(ctx context.Context) (events.Result, error)
	// Stream serves live updates. Optional.
	Stream http.Handler
	// CalendarName and Location configure the ICS feed.
	CalendarName string
	Location     *time.Location
}

// Handler holds API route handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Handler{deps: deps}
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. 61-projects%2F61.01-garden.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Ask handles POST /api/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.deps.Ask.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, "ask", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListActivity handles GET /api/activity.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Activity.RecentActivity(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "list activity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}
