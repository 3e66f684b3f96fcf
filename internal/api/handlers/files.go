package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/storage"
)

// Raw uploads are capped well above any sane document size.
const maxUploadBytes = 20 << 20 // 20 MiB

type FileHandler struct {
	store *storage.Store
}

func NewFileHandler(store *storage.Store) *FileHandler {
	return &FileHandler{store: store}
}

// Upload handles PUT /api/v1/cira-cloud/upload/:filename. The body is
// the raw file; the path segment supplies the original name used for
// extension sniffing when the Content-Type is absent.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	originalName := chi.URLParam(r, "filename")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read upload"})
		return
	}
	if len(data) > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File too large"})
		return
	}

	url, err := h.store.SaveFile(data, r.Header.Get("Content-Type"), originalName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyFile):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "File is empty"})
		case errors.Is(err, storage.ErrUnsupportedType):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Unsupported file type, only JPG/PNG/PDF allowed"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to store file"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
