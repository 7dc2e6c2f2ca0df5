package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/captures"
)

// CreateCapture handles POST /api/capture.
func (h *Handler) CreateCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.deps.Captures.Create(r.Context(), captures.Input{
		Source:      req.Source,
		ContentType: req.ContentType,
		Text:        req.Text,
		FileRef:     req.FileRef,
	})
	if err != nil {
		writeError(w, "create capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, CaptureResponse{Success: true, CaptureID: c.ID})
}

// ListCaptures handles GET /api/captures.
func (h *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Captures.Recent(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "list captures", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": list})
}

// GetCapture handles GET /api/captures/{id}.
func (h *Handler) GetCapture(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Captures.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get capture", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCapture handles DELETE /api/captures/{id}.
func (h *Handler) DeleteCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Captures.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete capture", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
