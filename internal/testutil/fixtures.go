package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"audioshelf/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID           string
	Username     string
	PasswordHash string
	Admin        bool
	CreatedAt    time.Time
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{
		ID:           nextID("user"),
		Username:     fmt.Sprintf("testuser%d", idCounter.Load()),
		PasswordHash: "$2a$10$test.hash.for.testing.purposes.only", // bcrypt hash placeholder
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.User{
		ID:           o.ID,
		Username:     o.Username,
		PasswordHash: o.PasswordHash,
		Admin:        o.Admin,
		CreatedAt:    o.CreatedAt,
		ModifiedAt:   o.CreatedAt,
	}
}

// WithUserID sets the user ID
func WithUserID(id string) func(*UserOptions) {
	return func(o *UserOptions) { o.ID = id }
}

// WithUsername sets the username
func WithUsername(username string) func(*UserOptions) {
	return func(o *UserOptions) { o.Username = username }
}

// WithAdmin marks the user as an admin
func WithAdmin() func(*UserOptions) {
	return func(o *UserOptions) { o.Admin = true }
}

// WithPasswordHash sets the password hash
func WithPasswordHash(hash string) func(*UserOptions) {
	return func(o *UserOptions) { o.PasswordHash = hash }
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	Token        string
	UserID       string
	LastAccessed time.Time
}

// NewTestSession creates a test session with sensible defaults
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	o := &SessionOptions{
		Token:  nextID("token"),
		UserID: nextID("user"),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.LastAccessed.IsZero() {
		o.LastAccessed = time.Now()
	}

	return &domain.Session{
		Token:        o.Token,
		UserID:       o.UserID,
		LastAccessed: o.LastAccessed,
		CreatedAt:    o.LastAccessed,
	}
}

// WithToken sets the session token
func WithToken(token string) func(*SessionOptions) {
	return func(o *SessionOptions) { o.Token = token }
}

// WithSessionUserID sets the session's user ID
func WithSessionUserID(userID string) func(*SessionOptions) {
	return func(o *SessionOptions) { o.UserID = userID }
}

// WithLastAccessed sets the last-accessed timestamp
func WithLastAccessed(at time.Time) func(*SessionOptions) {
	return func(o *SessionOptions) { o.LastAccessed = at }
}

// NewTestBook creates a test book with sensible defaults
func NewTestBook(title, author string) *domain.Book {
	now := time.Now()
	return &domain.Book{
		ID:         nextID("book"),
		Title:      title,
		Author:     author,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NewTestFile creates a test audio file belonging to a book
func NewTestFile(bookID string, position int, duration float64) *domain.File {
	id := nextID("file")
	return &domain.File{
		ID:       id,
		BookID:   bookID,
		Path:     "/audiobooks/" + id + ".mp3",
		Name:     fmt.Sprintf("%s.mp3", id),
		Position: position,
		Duration: duration,
	}
}

// NewTestFiles creates n ordered files for a book, each with the given duration
func NewTestFiles(bookID string, n int, duration float64) []*domain.File {
	files := make([]*domain.File, 0, n)
	for i := 1; i <= n; i++ {
		files = append(files, NewTestFile(bookID, i, duration))
	}
	return files
}

// NewTestSessionInfo creates a resolved session for handler tests
func NewTestSessionInfo(userID string, admin bool) *domain.SessionInfo {
	return &domain.SessionInfo{
		Token:        nextID("token"),
		UserID:       userID,
		Username:     "testuser",
		Admin:        admin,
		LastAccessed: time.Now(),
	}
}
