package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEntryNotFound = errors.New("library entry not found")
	ErrInvalidList   = errors.New("invalid list name")
)

// List is the shelf a library entry sits on.
type List string

const (
	ListListening    List = "listening"
	ListWantToListen List = "want_to_listen"
	ListFinished     List = "finished"
	ListAbandoned    List = "abandoned"
)

// Valid reports whether l is one of the known lists.
func (l List) Valid() bool {
	switch l {
	case ListListening, ListWantToListen, ListFinished, ListAbandoned:
		return true
	}
	return false
}

// LibraryEntry is a user's per-book state: list membership plus playback
// position. Progress is an offset in seconds inside FileID, not a book-wide
// fraction. At most one entry exists per (user, book).
type LibraryEntry struct {
	UserID     string    `json:"-"`
	BookID     string    `json:"-"`
	FileID     string    `json:"fileId"`
	Progress   float64   `json:"progress"`
	List       List      `json:"list"`
	CreatedAt  time.Time `json:"created"`
	ModifiedAt time.Time `json:"modified"`
}

// LibraryRow is one row of a user's library read: the entry joined with its
// book. Progress here is still the raw in-file offset; the completion
// fraction is derived at read time by the service.
type LibraryRow struct {
	BookID   string
	Title    string
	Author   string
	List     List
	FileID   string
	Progress float64
	Modified time.Time
}

// LibraryRepository defines the interface for library-entry data access.
// Upsert must resolve concurrent creates with the storage layer's native
// conflict handling, not a read-then-write.
type LibraryRepository interface {
	Upsert(ctx context.Context, userID, bookID string, list List, fileID *string, progress *float64) error
	UpdateProgress(ctx context.Context, userID, bookID, fileID string, progress float64) error
	GetEntry(ctx context.Context, userID, bookID string) (*LibraryEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*LibraryRow, error)
}
