package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"audioshelf/internal/domain"
)

// SessionRepository implements domain.SessionRepository for PostgreSQL.
// The hot-path statements are prepared once at construction.
type SessionRepository struct {
	db                 *sql.DB
	createStmt         *sql.Stmt
	getInfoByTokenStmt *sql.Stmt
	touchStmt          *sql.Stmt
	deleteStmt         *sql.Stmt
	deleteExpiredStmt  *sql.Stmt
}

// NewSessionRepository creates a new SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING last_accessed, created
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.getInfoByTokenStmt, err = db.Prepare(`
		SELECT sessions.token, sessions.user_id, sessions.last_accessed,
		       users.username, users.admin
		FROM sessions
		INNER JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getInfoByToken statement: %w", err)
	}

	repo.touchStmt, err = db.Prepare(`
		UPDATE sessions SET last_accessed = CURRENT_TIMESTAMP WHERE token = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare touch statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM sessions WHERE token = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteExpiredStmt, err = db.Prepare(`DELETE FROM sessions WHERE last_accessed <= $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	return repo, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.createStmt.QueryRowContext(ctx,
		session.Token,
		session.UserID,
	).Scan(&session.LastAccessed, &session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetInfoByToken returns the session joined with its user. Expiry is not
// evaluated here; the lifecycle layer owns that policy.
func (r *SessionRepository) GetInfoByToken(ctx context.Context, token string) (*domain.SessionInfo, error) {
	info := &domain.SessionInfo{}
	err := r.getInfoByTokenStmt.QueryRowContext(ctx, token).Scan(
		&info.Token,
		&info.UserID,
		&info.LastAccessed,
		&info.Username,
		&info.Admin,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return info, nil
}

// Touch advances last_accessed to now. This is the sliding-renewal write.
func (r *SessionRepository) Touch(ctx context.Context, token string) error {
	_, err := r.touchStmt.ExecContext(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.deleteStmt.ExecContext(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.deleteExpiredStmt.ExecContext(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}
