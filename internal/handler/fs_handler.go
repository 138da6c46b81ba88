package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audioshelf/internal/observability"
	"audioshelf/internal/service"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".ogg":  true,
	".opus": true,
	".flac": true,
	".wav":  true,
}

// FSHandler exposes server-side filesystem browsing for book import.
// Every route is admin-gated.
type FSHandler struct {
	defaultDir string
	prober     service.DurationProber
}

// NewFSHandler creates a new filesystem handler
func NewFSHandler(defaultDir string, prober service.DurationProber) *FSHandler {
	return &FSHandler{defaultDir: defaultDir, prober: prober}
}

// DirEntry is a single child of a browsed directory.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// Listing is the response for a directory browse.
type Listing struct {
	Path    string     `json:"path"`
	Parent  string     `json:"parent"`
	Entries []DirEntry `json:"entries"`
}

// List returns the directories and audio files under the requested path,
// falling back to the configured default directory.
func (h *FSHandler) List(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = h.defaultDir
	}
	path = filepath.Clean(path)

	entries, err := os.ReadDir(path)
	if err != nil {
		observability.FromContext(r.Context()).Warn("failed to read directory", "path", path, "error", err.Error())
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "server-fs--not-found", Value: path})
		return
	}

	listing := Listing{
		Path:    path,
		Parent:  filepath.Dir(path),
		Entries: make([]DirEntry, 0, len(entries)),
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() && !audioExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		listing.Entries = append(listing.Entries, DirEntry{
			Name: e.Name(),
			Path: filepath.Join(path, e.Name()),
			Dir:  e.IsDir(),
		})
	}
	sort.Slice(listing.Entries, func(i, j int) bool {
		if listing.Entries[i].Dir != listing.Entries[j].Dir {
			return listing.Entries[i].Dir
		}
		return listing.Entries[i].Name < listing.Entries[j].Name
	})

	writeData(w, listing)
}

// FileInfo is the response for a probed file.
type FileInfo struct {
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
}

// Info probes a candidate audio file and reports its size and duration.
func (h *FSHandler) Info(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "server--invalid-request", Value: "path is required"})
		return
	}
	path = filepath.Clean(path)

	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "server-fs--not-found", Value: path})
		return
	}

	duration, err := h.prober.Duration(r.Context(), path)
	if err != nil {
		observability.FromContext(r.Context()).Warn("failed to probe file", "path", path, "error", err.Error())
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "server-fs--probe-failed", Value: path})
		return
	}

	writeData(w, FileInfo{Path: path, Size: stat.Size(), Duration: duration})
}
