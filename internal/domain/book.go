package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrCoverNotFound = errors.New("cover not found")
)

// Book is a catalog entry. A book owns one or more ordered audio files.
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// File is a single audio file of a book. Position starts at 1 and defines the
// playback order within the book; Path never leaves the server.
type File struct {
	ID       string  `json:"id"`
	BookID   string  `json:"book_id"`
	Path     string  `json:"-"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Duration float64 `json:"duration"`
}

// Chapter is a named span inside a book, read from the audio container's own
// chapter markers. Start and End are offsets in seconds.
type Chapter struct {
	ID     string  `json:"id"`
	BookID string  `json:"-"`
	Name   string  `json:"name"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// BookRepository defines the interface for catalog data access
type BookRepository interface {
	CreateWithFiles(ctx context.Context, book *Book, files []*File, cover []byte, chapters []*Chapter) error
	GetByID(ctx context.Context, id string) (*Book, error)
	List(ctx context.Context) ([]*Book, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	GetFilesByBook(ctx context.Context, bookID string) ([]*File, error)
	GetCover(ctx context.Context, bookID string) ([]byte, error)
	GetChaptersByBook(ctx context.Context, bookID string) ([]*Chapter, error)
	ReplaceChapters(ctx context.Context, bookID string, chapters []*Chapter) error
	ListSingleFileBooks(ctx context.Context) ([]*File, error)
}
