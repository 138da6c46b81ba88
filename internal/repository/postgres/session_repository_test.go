package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"audioshelf/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionRepositoryMocks(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare(regexp.QuoteMeta(`
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING last_accessed, created
	`))
	mock.ExpectPrepare(regexp.QuoteMeta(`
		SELECT sessions.token, sessions.user_id, sessions.last_accessed,
		       users.username, users.admin
		FROM sessions
		INNER JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = $1
	`))
	mock.ExpectPrepare(regexp.QuoteMeta(`
		UPDATE sessions SET last_accessed = CURRENT_TIMESTAMP WHERE token = $1
	`))
	mock.ExpectPrepare(regexp.QuoteMeta(`DELETE FROM sessions WHERE token = $1`))
	mock.ExpectPrepare(regexp.QuoteMeta(`DELETE FROM sessions WHERE last_accessed <= $1`))
}

func TestNewSessionRepository(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionRepositoryMocks(mock)

		repo, err := NewSessionRepository(db)
		require.NoError(t, err)
		assert.NotNil(t, repo)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails_when_prepare_create_fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare(regexp.QuoteMeta(`
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING last_accessed, created
	`)).WillReturnError(errors.New("prepare failed"))

		repo, err := NewSessionRepository(db)
		require.Error(t, err)
		assert.Nil(t, repo)
		assert.Contains(t, err.Error(), "failed to prepare create statement")
	})
}

func TestSessionRepository_Create(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionRepositoryMocks(mock)

		repo, err := NewSessionRepository(db)
		require.NoError(t, err)

		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING last_accessed, created
	`)).
			WithArgs("token123", "user-123").
			WillReturnRows(sqlmock.NewRows([]string{"last_accessed", "created"}).
				AddRow(now, now))

		session := &domain.Session{
			Token:  "token123",
			UserID: "user-123",
		}

		err = repo.Create(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, now, session.LastAccessed)
		assert.Equal(t, now, session.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionRepositoryMocks(mock)

		repo, err := NewSessionRepository(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING last_accessed, created
	`)).
			WithArgs("token123", "user-123").
			WillReturnError(errors.New("connection refused"))

		err = repo.Create(context.Background(), &domain.Session{Token: "token123", UserID: "user-123"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create session")
	})
}

func TestSessionRepository_GetInfoByToken(t *testing.T) {
	t.Run("returns_joined_user_fields", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionRepositoryMocks(mock)

		repo, err := NewSessionRepository(db)
		require.NoError(t, err)

		lastAccessed := time.Now().Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT sessions.token, sessions.user_id, sessions.last_accessed,
		       users.username, users.admin
		FROM sessions
		INNER JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = $1
	`)).
			WithArgs("token123").
			WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "last_accessed", "username", "admin"}).
				AddRow("token123", "user-123", lastAccessed, "alice", true))

		info, err := repo.GetInfoByToken(context.Background(), "token123")
		require.NoError(t, err)
		assert.Equal(t, "token123", info.Token)
		assert.Equal(t, "user-123", info.UserID)
		assert.Equal(t, "alice", info.Username)
		assert.True(t, info.Admin)
		assert.Equal(t, lastAccessed, info.LastAccessed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_token_maps_to_not_found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionRepositoryMocks(mock)

		repo, err := NewSessionRepository(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT sessions.token, sessions.user_id, sessions.last_accessed,
		       users.username, users.admin
		FROM sessions
		INNER JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = $1
	`)).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "last_accessed", "username", "admin"}))

		info, err := repo.GetInfoByToken(context.Background(), "missing")
		assert.Nil(t, info)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionRepository_Touch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setupSessionRepositoryMocks(mock)

	repo, err := NewSessionRepository(db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE sessions SET last_accessed = CURRENT_TIMESTAMP WHERE token = $1
	`)).
		WithArgs("token123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Touch(context.Background(), "token123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setupSessionRepositoryMocks(mock)

	repo, err := NewSessionRepository(db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE token = $1`)).
		WithArgs("token123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(context.Background(), "token123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	setupSessionRepositoryMocks(mock)

	repo, err := NewSessionRepository(db)
	require.NoError(t, err)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE last_accessed <= $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
