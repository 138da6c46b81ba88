package handler

import (
	"net/http"

	"audioshelf/internal/service"
	"audioshelf/internal/stream"

	"github.com/go-chi/chi/v5"
)

// BookHandler handles catalog reads, book creation, and audio delivery
type BookHandler struct {
	catalog *service.CatalogService
}

// NewBookHandler creates a new book handler
func NewBookHandler(catalog *service.CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// List returns all books ordered by title.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, books)
}

// CreateBookRequest represents book creation from server-side paths
type CreateBookRequest struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Files  []string `json:"files"`
	Cover  string   `json:"cover,omitempty"`
}

// Create probes the given audio files and stores the book.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), req.Title, req.Author, req.Files, req.Cover)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"bookId": book.ID}})
}

// Get returns a book with its files in playback order and its chapters.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, files, chapters, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"book": book, "files": files, "chapters": chapters})
}

// RediscoverChapters re-probes chapter markers for single-file books.
func (h *BookHandler) RediscoverChapters(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RediscoverChapters(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "admin--chapters-rediscovered")
}

// Cover serves the stored cover image.
func (h *BookHandler) Cover(w http.ResponseWriter, r *http.Request) {
	cover, err := h.catalog.GetCover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(cover)
}

// Audio streams one of the book's files with byte-range seek support.
func (h *BookHandler) Audio(w http.ResponseWriter, r *http.Request) {
	file, err := h.catalog.GetAudioFile(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	stream.ServeFile(w, r, file.Path)
}
