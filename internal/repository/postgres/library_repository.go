package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"audioshelf/internal/domain"
)

// LibraryRepository implements domain.LibraryRepository for PostgreSQL.
// UpdateProgress is the high-frequency playback path, so every statement is
// prepared once up front.
type LibraryRepository struct {
	db                 *sql.DB
	upsertStmt         *sql.Stmt
	updateProgressStmt *sql.Stmt
	getEntryStmt       *sql.Stmt
	listByUserStmt     *sql.Stmt
}

// NewLibraryRepository creates a new LibraryRepository with prepared statements.
func NewLibraryRepository(db *sql.DB) (*LibraryRepository, error) {
	repo := &LibraryRepository{db: db}

	var err error
	// Insert-or-update in a single statement so two concurrent creates for
	// the same (user, book) never race a read-then-write. When no file is
	// supplied on insert, the book's first file by position is used. On
	// update, an explicit file change resets progress to 0 no matter what
	// progress value was supplied alongside it.
	repo.upsertStmt, err = db.Prepare(`
		INSERT INTO library_entries (user_id, book_id, file_id, list, progress)
		VALUES ($1, $2, COALESCE($4, (
			SELECT id
			FROM files
			WHERE book_id = $2
			ORDER BY position ASC
			LIMIT 1
		)), $3, COALESCE($5, 0))
		ON CONFLICT (user_id, book_id) DO UPDATE
		SET list = EXCLUDED.list,
		    file_id = COALESCE($4, library_entries.file_id),
		    progress = CASE
		        WHEN $4 IS NOT NULL AND library_entries.file_id != $4 THEN 0
		        WHEN $5 IS NOT NULL THEN $5
		        ELSE library_entries.progress
		    END,
		    modified = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	repo.updateProgressStmt, err = db.Prepare(`
		UPDATE library_entries
		SET progress = $4,
		    file_id = $3,
		    modified = CURRENT_TIMESTAMP
		WHERE user_id = $1
		AND book_id = $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare updateProgress statement: %w", err)
	}

	repo.getEntryStmt, err = db.Prepare(`
		SELECT user_id, book_id, file_id, progress, list, created, modified
		FROM library_entries
		WHERE user_id = $1
		AND book_id = $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getEntry statement: %w", err)
	}

	repo.listByUserStmt, err = db.Prepare(`
		SELECT books.id, books.title, books.author,
		       library_entries.list, library_entries.file_id,
		       library_entries.progress, library_entries.modified
		FROM library_entries
		JOIN books ON books.id = library_entries.book_id
		WHERE library_entries.user_id = $1
		ORDER BY library_entries.modified DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare listByUser statement: %w", err)
	}

	return repo, nil
}

// Upsert creates or updates the entry for (userID, bookID). fileID and
// progress may be nil to mean "not supplied".
func (r *LibraryRepository) Upsert(ctx context.Context, userID, bookID string, list domain.List, fileID *string, progress *float64) error {
	_, err := r.upsertStmt.ExecContext(ctx, userID, bookID, string(list), fileID, progress)
	if err != nil {
		if IsForeignKeyViolation(err, "library_entries_file_id_fkey") {
			return domain.ErrFileNotFound
		}
		if IsForeignKeyViolation(err, "library_entries_book_id_fkey") {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("failed to upsert library entry: %w", err)
	}
	return nil
}

// UpdateProgress unconditionally moves an existing entry's position. No
// list handling, no file-change reset; this runs every few seconds during
// playback and must stay narrow.
func (r *LibraryRepository) UpdateProgress(ctx context.Context, userID, bookID, fileID string, progress float64) error {
	result, err := r.updateProgressStmt.ExecContext(ctx, userID, bookID, fileID, progress)
	if err != nil {
		if IsForeignKeyViolation(err, "library_entries_file_id_fkey") {
			return domain.ErrFileNotFound
		}
		return fmt.Errorf("failed to update progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *LibraryRepository) GetEntry(ctx context.Context, userID, bookID string) (*domain.LibraryEntry, error) {
	entry := &domain.LibraryEntry{}
	err := r.getEntryStmt.QueryRowContext(ctx, userID, bookID).Scan(
		&entry.UserID,
		&entry.BookID,
		&entry.FileID,
		&entry.Progress,
		&entry.List,
		&entry.CreatedAt,
		&entry.ModifiedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library entry: %w", err)
	}
	return entry, nil
}

// ListByUser returns the user's entries joined with their books, most
// recently touched first.
func (r *LibraryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LibraryRow, error) {
	rows, err := r.listByUserStmt.QueryContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LibraryRow
	for rows.Next() {
		row := &domain.LibraryRow{}
		if err := rows.Scan(
			&row.BookID,
			&row.Title,
			&row.Author,
			&row.List,
			&row.FileID,
			&row.Progress,
			&row.Modified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		entries = append(entries, row)
	}
	return entries, rows.Err()
}
