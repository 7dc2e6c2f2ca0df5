package api

import "net/http"

// ProcessCapture handles POST /api/admin/process by running one pipeline pass.
func (h *Handler) ProcessCapture(w http.ResponseWriter, r *http.Request) {
	if h.deps.Process == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("capture processing is not available"))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Process(r.Context()))
}

// ExtractEvents handles POST /api/admin/extract by running one extraction pass.
func (h *Handler) ExtractEvents(w http.ResponseWriter, r *http.Request) {
	if h.deps.Extract == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("event extraction is not available"))
		return
	}
	res, err := h.deps.Extract(r.Context())
	if err != nil {
		writeError(w, "extract events", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
