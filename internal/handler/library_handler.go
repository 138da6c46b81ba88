package handler

import (
	"net/http"

	"audioshelf/internal/domain"
	"audioshelf/internal/middleware"
	"audioshelf/internal/service"

	"github.com/go-chi/chi/v5"
)

// LibraryHandler handles list membership and playback progress
type LibraryHandler struct {
	library *service.LibraryService
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// SetLibraryRequest represents the list/position upsert body
type SetLibraryRequest struct {
	List     domain.List `json:"list"`
	FileID   *string     `json:"fileId,omitempty"`
	Progress *float64    `json:"progress,omitempty"`
}

// SetLibrary upserts the caller's entry for the book.
func (h *LibraryHandler) SetLibrary(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	var req SetLibraryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.library.SetListAndPosition(r.Context(), session.UserID, chi.URLParam(r, "id"), req.List, req.FileID, req.Progress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "server-library--updated")
}

// SetProgressRequest represents the direct progress update body
type SetProgressRequest struct {
	FileID   string  `json:"fileId"`
	Progress float64 `json:"progress"`
}

// SetProgress is the high-frequency playback update for an existing entry.
func (h *LibraryHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	var req SetProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.library.SetProgress(r.Context(), session.UserID, chi.URLParam(r, "id"), req.FileID, req.Progress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "server-library--progress-updated")
}

// GetLibrary returns a user's library with derived completion fractions,
// most recently touched book first.
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	books, err := h.library.Library(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, books)
}
