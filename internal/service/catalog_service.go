package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audioshelf/internal/domain"
	"audioshelf/internal/observability"
)

// DurationProber reports the playable duration of an audio file on disk.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ChapterProber reads the chapter markers embedded in an audio file.
type ChapterProber interface {
	Chapters(ctx context.Context, path string) ([]*domain.Chapter, error)
}

// MediaProber is the full metadata surface the catalog needs from ffprobe.
type MediaProber interface {
	DurationProber
	ChapterProber
}

// CatalogService owns book creation and reads. Files are server-side paths;
// durations come from the prober at creation time and define the progress
// denominator from then on.
type CatalogService struct {
	bookRepo domain.BookRepository
	prober   MediaProber
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(bookRepo domain.BookRepository, prober MediaProber) *CatalogService {
	return &CatalogService{
		bookRepo: bookRepo,
		prober:   prober,
	}
}

// CreateBook validates the paths, probes each file's duration, orders files
// by filename, and stores the book with positions assigned 1..n. The
// optional cover is read from a server-side path.
func (s *CatalogService) CreateBook(ctx context.Context, title, author string, paths []string, coverPath string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" || len(paths) == 0 {
		return nil, domain.ErrInvalidInput
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, domain.ErrFileNotFound
		}
	}

	var cover []byte
	if coverPath != "" {
		data, err := os.ReadFile(coverPath)
		if err != nil {
			return nil, domain.ErrCoverNotFound
		}
		cover = data
	}

	files := make([]*domain.File, 0, len(paths))
	for _, path := range paths {
		duration, err := s.prober.Duration(ctx, path)
		if err != nil {
			observability.FromContext(ctx).Error("ffprobe failed",
				"path", path, "error", err.Error())
			return nil, err
		}
		files = append(files, &domain.File{
			ID:       newID(),
			Path:     path,
			Name:     filepath.Base(path),
			Duration: duration,
		})
	}

	// Filename sort defines the playback order; position makes it durable
	// even if names later collide or files are renamed on disk.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	for i, file := range files {
		file.Position = i + 1
	}

	// Chapter markers only carry meaning when the whole book is one file;
	// a failed probe is tolerated since the book plays fine without them.
	var chapters []*domain.Chapter
	if len(files) == 1 {
		probed, err := s.prober.Chapters(ctx, files[0].Path)
		if err != nil {
			observability.FromContext(ctx).Warn("chapter probe failed",
				"path", files[0].Path, "error", err.Error())
		} else {
			for _, chapter := range probed {
				chapter.ID = newID()
			}
			chapters = probed
		}
	}

	book := &domain.Book{
		ID:     newID(),
		Title:  title,
		Author: author,
	}
	if err := s.bookRepo.CreateWithFiles(ctx, book, files, cover, chapters); err != nil {
		return nil, err
	}
	return book, nil
}

// RediscoverChapters re-probes chapter markers for every single-file book
// and replaces each stored set with the probe result. A book whose file
// fails to probe keeps its existing chapters.
func (s *CatalogService) RediscoverChapters(ctx context.Context) error {
	files, err := s.bookRepo.ListSingleFileBooks(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		chapters, err := s.prober.Chapters(ctx, file.Path)
		if err != nil {
			observability.FromContext(ctx).Warn("chapter probe failed",
				"path", file.Path, "error", err.Error())
			continue
		}
		for _, chapter := range chapters {
			chapter.ID = newID()
		}
		if err := s.bookRepo.ReplaceChapters(ctx, file.BookID, chapters); err != nil {
			return err
		}
	}
	return nil
}

// ListBooks returns the catalog ordered by title.
func (s *CatalogService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.bookRepo.List(ctx)
}

// GetBook returns a book with its files in playback order and its chapters
// ordered by start.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, []*domain.File, []*domain.Chapter, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	files, err := s.bookRepo.GetFilesByBook(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	chapters, err := s.bookRepo.GetChaptersByBook(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return book, files, chapters, nil
}

// GetCover returns a book's cover image bytes.
func (s *CatalogService) GetCover(ctx context.Context, bookID string) ([]byte, error) {
	return s.bookRepo.GetCover(ctx, bookID)
}

// GetAudioFile returns the file row for fileID, verifying it belongs to the
// given book so one book's URL space cannot address another's audio.
func (s *CatalogService) GetAudioFile(ctx context.Context, bookID, fileID string) (*domain.File, error) {
	file, err := s.bookRepo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.BookID != bookID {
		return nil, domain.ErrFileNotFound
	}
	return file, nil
}
