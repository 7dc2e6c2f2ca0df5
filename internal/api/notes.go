package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
)

const maxSearchResults = 10

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.deps.Notes.List(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(notes))
}

func summaries(notes []models.Note) NoteListResponse {
	out := make([]models.NoteSummary, len(notes))
	for i, n := range notes {
		out[i] = n.Summary()
	}
	return NoteListResponse{Notes: out, Total: len(out)}
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// GetNoteByPath handles GET /api/notes/by-path/*.
func (h *Handler) GetNoteByPath(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	n, err := h.deps.Notes.GetByPath(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.deps.Notes.Create(r.Context(), noteservice.CreateInput{
		CategoryID: req.CategoryID,
		Path:       req.Path,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNote handles PATCH /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.deps.Notes.Update(r.Context(), chi.URLParam(r, "id"), noteservice.UpdateInput{
		CategoryID:      req.CategoryID,
		Path:            req.Path,
		Title:           req.Title,
		Content:         req.Content,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncNote handles PUT /api/notes/sync. A version conflict is reported in the
// body with status 200 so sync clients can keep both copies.
func (h *Handler) SyncNote(w http.ResponseWriter, r *http.Request) {
	var req SyncNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.deps.Notes.Upsert(r.Context(), noteservice.UpsertInput{
		Path:            req.Path,
		CategoryID:      req.CategoryID,
		Title:           req.Title,
		Content:         req.Content,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(w, "sync note", err)
		return
	}
	status := http.StatusOK
	if res.Status == noteservice.StatusCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// ListAreas handles GET /api/areas.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas := jd.Areas()
	out := make([]AreaResponse, len(areas))
	for i, a := range areas {
		out[i] = AreaResponse{
			Digit:       a.Digit,
			Label:       a.Label(),
			Name:        a.Name,
			Description: a.Description,
			Categories:  a.Categories,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": out})
}

// AreaNotes handles GET /api/areas/{area}/notes.
func (h *Handler) AreaNotes(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	if _, ok := jd.LookupArea(area); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown area"))
		return
	}
	notes, err := h.deps.Notes.ByArea(r.Context(), area)
	if err != nil {
		writeError(w, "list area", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(notes))
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	hits, err := h.deps.Notes.Search(r.Context(), q, r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if len(hits) > maxSearchResults {
		hits = hits[:maxSearchResults]
	}
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{
			ID:      hit.Note.ID,
			JDID:    hit.Note.CategoryID,
			Path:    hit.Note.Path,
			Title:   hit.Note.Title,
			Snippet: hit.Snippet,
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
