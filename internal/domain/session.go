package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrNotAdmin        = errors.New("not admin")
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

// Session is the persisted session row. The token is the primary key and the
// only credential a client ever holds.
type Session struct {
	Token        string    `json:"-"`
	UserID       string    `json:"user_id"`
	LastAccessed time.Time `json:"last_accessed"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionInfo is a session joined with its user at resolve time. Username and
// Admin are denormalized per request so a privilege change applies on the
// next request rather than being frozen into the session row.
type SessionInfo struct {
	Token        string    `json:"-"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Admin        bool      `json:"admin"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetInfoByToken(ctx context.Context, token string) (*SessionInfo, error)
	Touch(ctx context.Context, token string) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
