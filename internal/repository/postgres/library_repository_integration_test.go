//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"audioshelf/internal/domain"
	"audioshelf/internal/repository/postgres"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container, applies the embedded
// migrations, and returns a ready connection.
func setupPostgres(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	time.Sleep(2 * time.Second)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "failed to connect to PostgreSQL")

	require.NoError(t, postgres.Migrate(ctx, db), "failed to run migrations")

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// seedBook creates a user, a book, and n ordered files; returns the user ID,
// book ID and file IDs in playback order.
func seedBook(t *testing.T, db *sql.DB, n int) (string, string, []string) {
	t.Helper()
	ctx := context.Background()

	userRepo := postgres.NewUserRepository(db)
	bookRepo := postgres.NewBookRepository(db)

	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     "reader-" + uuid.New().String()[:8],
		PasswordHash: "irrelevant",
	}
	require.NoError(t, userRepo.Create(ctx, user))

	book := &domain.Book{
		ID:     uuid.New().String(),
		Title:  "Integration Book",
		Author: "Nobody",
	}
	files := make([]*domain.File, 0, n)
	fileIDs := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := uuid.New().String()
		fileIDs = append(fileIDs, id)
		files = append(files, &domain.File{
			ID:       id,
			Path:     fmt.Sprintf("/audio/%02d.mp3", i),
			Name:     fmt.Sprintf("%02d.mp3", i),
			Position: i,
			Duration: 100,
		})
	}
	require.NoError(t, bookRepo.CreateWithFiles(ctx, book, files, nil, nil))

	return user.ID, book.ID, fileIDs
}

func TestLibraryRepository_Upsert_Integration(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()

	repo, err := postgres.NewLibraryRepository(db)
	require.NoError(t, err)

	t.Run("insert_without_file_defaults_to_first_file", func(t *testing.T) {
		userID, bookID, fileIDs := seedBook(t, db, 3)

		err := repo.Upsert(ctx, userID, bookID, domain.ListListening, nil, nil)
		require.NoError(t, err)

		entry, err := repo.GetEntry(ctx, userID, bookID)
		require.NoError(t, err)
		assert.Equal(t, fileIDs[0], entry.FileID)
		assert.Equal(t, 0.0, entry.Progress)
		assert.Equal(t, domain.ListListening, entry.List)
	})

	t.Run("update_with_same_file_keeps_progress", func(t *testing.T) {
		userID, bookID, fileIDs := seedBook(t, db, 3)

		progress := 42.5
		require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListListening, &fileIDs[1], &progress))

		// List change only; file and progress must survive.
		require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListFinished, nil, nil))

		entry, err := repo.GetEntry(ctx, userID, bookID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListFinished, entry.List)
		assert.Equal(t, fileIDs[1], entry.FileID)
		assert.Equal(t, 42.5, entry.Progress)
	})

	t.Run("file_change_resets_progress", func(t *testing.T) {
		userID, bookID, fileIDs := seedBook(t, db, 3)

		progress := 99.0
		require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListListening, &fileIDs[0], &progress))

		// Moving to another file zeroes progress even when a progress value
		// rides along.
		stale := 50.0
		require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListListening, &fileIDs[2], &stale))

		entry, err := repo.GetEntry(ctx, userID, bookID)
		require.NoError(t, err)
		assert.Equal(t, fileIDs[2], entry.FileID)
		assert.Equal(t, 0.0, entry.Progress)
	})

	t.Run("unknown_file_is_rejected", func(t *testing.T) {
		userID, bookID, _ := seedBook(t, db, 1)

		other := uuid.New().String()
		err := repo.Upsert(ctx, userID, bookID, domain.ListListening, &other, nil)
		assert.ErrorIs(t, err, domain.ErrFileNotFound)
	})
}

func TestLibraryRepository_UpdateProgress_Integration(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()

	repo, err := postgres.NewLibraryRepository(db)
	require.NoError(t, err)

	t.Run("moves_position_on_existing_entry", func(t *testing.T) {
		userID, bookID, fileIDs := seedBook(t, db, 2)

		require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListListening, nil, nil))
		require.NoError(t, repo.UpdateProgress(ctx, userID, bookID, fileIDs[1], 12.5))

		entry, err := repo.GetEntry(ctx, userID, bookID)
		require.NoError(t, err)
		assert.Equal(t, fileIDs[1], entry.FileID)
		assert.Equal(t, 12.5, entry.Progress)
	})

	t.Run("missing_entry_is_rejected", func(t *testing.T) {
		userID, bookID, fileIDs := seedBook(t, db, 1)

		err := repo.UpdateProgress(ctx, userID, bookID, fileIDs[0], 1.0)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)

		_, err = repo.GetEntry(ctx, userID, bookID)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	})
}

func TestLibraryRepository_ListByUser_Integration(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()

	repo, err := postgres.NewLibraryRepository(db)
	require.NoError(t, err)

	userID, bookID, _ := seedBook(t, db, 1)
	require.NoError(t, repo.Upsert(ctx, userID, bookID, domain.ListWantToListen, nil, nil))

	rows, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bookID, rows[0].BookID)
	assert.Equal(t, "Integration Book", rows[0].Title)
	assert.Equal(t, domain.ListWantToListen, rows[0].List)
}
