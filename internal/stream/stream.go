package stream

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"audioshelf/internal/observability"
)

// The catalog does not track per-file MIME types, so every audio response
// carries this content type regardless of container format.
const audioContentType = "audio/mpeg"

// ServeFile streams the file at path to the client, honoring a single-range
// Range header with a 206 partial response and falling back to a 200 full
// response otherwise. The file is copied through a fixed-size buffer, never
// loaded into memory, and the handle is closed on every exit path. A client
// disconnect surfaces as a write error and stops the copy.
func ServeFile(w http.ResponseWriter, r *http.Request, path string) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		observability.AudioStreamsTotal.WithLabelValues("not_found").Inc()
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	size := uint64(fileInfo.Size())

	file, err := os.Open(path)
	if err != nil {
		observability.FromContext(r.Context()).Error("could not open audio file",
			"path", path, "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	byteRange, hasRange := ParseRange(r.Header.Get("Range"))
	if hasRange && byteRange.Start >= size {
		// Degrade out-of-bounds ranges the same way as malformed ones.
		hasRange = false
	}

	observability.AudioStreamsActive.Inc()
	defer observability.AudioStreamsActive.Dec()

	w.Header().Set("Content-Type", audioContentType)
	w.Header().Set("Accept-Ranges", "bytes")

	if !hasRange {
		observability.AudioStreamsTotal.WithLabelValues("full").Inc()
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)

		n, err := io.Copy(w, file)
		observability.AudioBytesStreamed.Add(float64(n))
		if err != nil {
			observability.FromContext(r.Context()).Debug("audio stream interrupted",
				"path", path, "error", err.Error())
		}
		return
	}

	end := size - 1
	if byteRange.End != nil && *byteRange.End < end {
		end = *byteRange.End
	}
	length := end - byteRange.Start + 1

	if _, err := file.Seek(int64(byteRange.Start), io.SeekStart); err != nil {
		observability.FromContext(r.Context()).Error("could not seek audio file",
			"path", path, "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	observability.AudioStreamsTotal.WithLabelValues("partial").Inc()
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", byteRange.Start, end, size))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", length))
	w.WriteHeader(http.StatusPartialContent)

	n, err := io.CopyN(w, file, int64(length))
	observability.AudioBytesStreamed.Add(float64(n))
	if err != nil {
		observability.FromContext(r.Context()).Debug("audio stream interrupted",
			"path", path, "error", err.Error())
	}
}
