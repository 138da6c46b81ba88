package service

import (
	"context"

	"audioshelf/internal/domain"
)

// LibraryService owns a user's per-book listening state: list membership,
// the current file, the in-file offset, and the derived completion fraction.
type LibraryService struct {
	libraryRepo domain.LibraryRepository
	bookRepo    domain.BookRepository
}

// NewLibraryService creates a new LibraryService
func NewLibraryService(libraryRepo domain.LibraryRepository, bookRepo domain.BookRepository) *LibraryService {
	return &LibraryService{
		libraryRepo: libraryRepo,
		bookRepo:    bookRepo,
	}
}

// SetListAndPosition upserts the entry for (userID, bookID). On create, a
// missing fileID falls back to the book's first file and a missing progress
// to 0. On update, supplying a different fileID resets progress to 0 no
// matter what progress value came with it. The list is always overwritten
// and modified always advances.
func (s *LibraryService) SetListAndPosition(ctx context.Context, userID, bookID string, list domain.List, fileID *string, progress *float64) error {
	if !list.Valid() {
		return domain.ErrInvalidList
	}
	if progress != nil && *progress < 0 {
		return domain.ErrInvalidInput
	}

	// The book must exist so an insert with no fileID has a first file to
	// fall back to.
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return err
	}

	return s.libraryRepo.Upsert(ctx, userID, bookID, list, fileID, progress)
}

// SetProgress is the high-frequency playback path: an unconditional update of
// the current file and offset for an existing entry. It deliberately skips
// list handling and the file-change reset of SetListAndPosition.
func (s *LibraryService) SetProgress(ctx context.Context, userID, bookID, fileID string, progress float64) error {
	if progress < 0 {
		return domain.ErrInvalidInput
	}
	return s.libraryRepo.UpdateProgress(ctx, userID, bookID, fileID, progress)
}

// LibraryBook is one book of a user's library with its derived completion
// fraction.
type LibraryBook struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Author   string      `json:"author"`
	List     domain.List `json:"list"`
	Progress float64     `json:"progress"`
}

// Library returns the user's library ordered by most recently touched book
// first. Completion fractions are recomputed here on every read; they are
// never stored, since editing a book's files changes the denominator.
func (s *LibraryService) Library(ctx context.Context, userID string) ([]*LibraryBook, error) {
	rows, err := s.libraryRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	books := make([]*LibraryBook, 0, len(rows))
	for _, row := range rows {
		files, err := s.bookRepo.GetFilesByBook(ctx, row.BookID)
		if err != nil {
			return nil, err
		}

		books = append(books, &LibraryBook{
			ID:       row.BookID,
			Title:    row.Title,
			Author:   row.Author,
			List:     row.List,
			Progress: CompletionFraction(files, row.FileID, row.Progress),
		})
	}
	return books, nil
}

// CompletionFraction converts a (current file, in-file offset) position into
// a book-level fraction: the summed durations of every file before the
// current one, plus the offset, over the book's total duration. A book with
// no audible duration yields 0.
func CompletionFraction(files []*domain.File, currentFileID string, offset float64) float64 {
	var total, before float64
	var currentPos int

	for _, f := range files {
		total += f.Duration
		if f.ID == currentFileID {
			currentPos = f.Position
		}
	}
	if total <= 0 {
		return 0
	}

	for _, f := range files {
		if f.Position < currentPos {
			before += f.Duration
		}
	}

	return (before + offset) / total
}
