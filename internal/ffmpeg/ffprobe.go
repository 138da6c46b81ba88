// Package ffmpeg wraps the external ffprobe binary for metadata extraction.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"audioshelf/internal/domain"
)

// Prober invokes ffprobe to read audio metadata.
type Prober struct {
	path string
}

// NewProber creates a Prober using the given ffprobe binary path.
func NewProber(path string) *Prober {
	return &Prober{path: path}
}

// Check verifies the ffprobe binary is runnable.
func (p *Prober) Check() error {
	if err := exec.Command(p.path, "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not available at %q: %w", p.path, err)
	}
	return nil
}

// Duration returns the duration of the audio file at path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return ParseDuration(string(output))
}

// Chapters returns the chapter markers embedded in the audio file at path,
// ordered as ffprobe reports them. A file without markers yields an empty
// slice, not an error.
func (p *Prober) Chapters(ctx context.Context, path string) ([]*domain.Chapter, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "error",
		"-show_chapters",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return ParseChapters(output)
}

// probeChapters mirrors ffprobe's -show_chapters JSON document.
type probeChapters struct {
	Chapters []struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Tags      struct {
			Title string `json:"title"`
		} `json:"tags"`
	} `json:"chapters"`
}

// ParseChapters parses ffprobe's -show_chapters JSON output. Untitled
// markers are numbered.
func ParseChapters(output []byte) ([]*domain.Chapter, error) {
	var doc probeChapters
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, fmt.Errorf("unexpected ffprobe chapter output: %w", err)
	}

	chapters := make([]*domain.Chapter, 0, len(doc.Chapters))
	for i, c := range doc.Chapters {
		start, err := strconv.ParseFloat(c.StartTime, 64)
		if err != nil {
			return nil, fmt.Errorf("bad chapter start %q: %w", c.StartTime, err)
		}
		end, err := strconv.ParseFloat(c.EndTime, 64)
		if err != nil {
			return nil, fmt.Errorf("bad chapter end %q: %w", c.EndTime, err)
		}

		name := c.Tags.Title
		if name == "" {
			name = fmt.Sprintf("Chapter %d", i+1)
		}
		chapters = append(chapters, &domain.Chapter{Name: name, Start: start, End: end})
	}
	return chapters, nil
}

// ParseDuration parses ffprobe's duration output.
func ParseDuration(output string) (float64, error) {
	trimmed := strings.TrimSpace(output)
	duration, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", trimmed, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %f", duration)
	}
	return duration, nil
}
