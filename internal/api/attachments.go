package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/captures"
	"github.com/starford/secondbrain/internal/models"
)

// ServeAttachment handles GET /api/attachments/{filename}.
func (h *Handler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	abs, err := h.deps.Attachments.Resolve(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}

// UploadCapture handles POST /api/capture/upload (multipart/form-data, field
// "file", optional "text" and "source"). The file is stored as an attachment
// and an image or file capture is queued for it.
func (h *Handler) UploadCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, attachments.MaxSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	stored, err := h.deps.Attachments.Save(header.Filename, data)
	if err != nil {
		writeError(w, "save attachment", err)
		return
	}

	contentType := models.ContentFile
	if attachments.DetectExt(data) != ".pdf" {
		contentType = models.ContentImage
	}
	c, err := h.deps.Captures.Create(r.Context(), captures.Input{
		Source:      r.FormValue("source"),
		ContentType: contentType,
		Text:        r.FormValue("text"),
		FileRef:     stored,
	})
	if err != nil {
		_ = os.Remove(filepath.Join(h.deps.Attachments.Dir(), stored))
		writeError(w, "create capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, CaptureResponse{Success: true, CaptureID: c.ID, FileRef: stored})
}
