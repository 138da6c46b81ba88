package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"audioshelf/internal/domain"
)

// BookRepository implements domain.BookRepository for PostgreSQL
type BookRepository struct {
	db *sql.DB
}

// NewBookRepository creates a new PostgreSQL book repository
func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// CreateWithFiles inserts a book, its ordered files and any chapter markers
// in one transaction.
func (r *BookRepository) CreateWithFiles(ctx context.Context, book *domain.Book, files []*domain.File, cover []byte, chapters []*domain.Chapter) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO books (id, title, author, cover)
			VALUES ($1, $2, $3, $4)
			RETURNING created, modified
		`, book.ID, book.Title, book.Author, cover).Scan(&book.CreatedAt, &book.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert book: %w", err)
		}

		for _, file := range files {
			file.BookID = book.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO files (id, book_id, path, name, position, duration)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, file.ID, file.BookID, file.Path, file.Name, file.Position, file.Duration)
			if err != nil {
				return fmt.Errorf("failed to insert file %s: %w", file.Name, err)
			}
		}

		for _, chapter := range chapters {
			chapter.BookID = book.ID
			if err := insertChapter(ctx, tx, chapter); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertChapter(ctx context.Context, tx *sql.Tx, chapter *domain.Chapter) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chapters (id, book_id, name, start, "end")
		VALUES ($1, $2, $3, $4, $5)
	`, chapter.ID, chapter.BookID, chapter.Name, chapter.Start, chapter.End)
	if err != nil {
		return fmt.Errorf("failed to insert chapter %s: %w", chapter.Name, err)
	}
	return nil
}

// GetByID retrieves a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	book := &domain.Book{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, author, created, modified
		FROM books
		WHERE id = $1
	`, id).Scan(&book.ID, &book.Title, &book.Author, &book.CreatedAt, &book.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// List retrieves all books ordered by title
func (r *BookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, author, created, modified
		FROM books
		ORDER BY title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book := &domain.Book{}
		if err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.CreatedAt, &book.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// GetFile retrieves a single audio file row by ID
func (r *BookRepository) GetFile(ctx context.Context, fileID string) (*domain.File, error) {
	file := &domain.File{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, book_id, path, name, position, duration
		FROM files
		WHERE id = $1
	`, fileID).Scan(&file.ID, &file.BookID, &file.Path, &file.Name, &file.Position, &file.Duration)
	if err == sql.ErrNoRows {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// GetFilesByBook retrieves a book's files in playback order
func (r *BookRepository) GetFilesByBook(ctx context.Context, bookID string) ([]*domain.File, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, path, name, position, duration
		FROM files
		WHERE book_id = $1
		ORDER BY position ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		file := &domain.File{}
		if err := rows.Scan(&file.ID, &file.BookID, &file.Path, &file.Name, &file.Position, &file.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// GetChaptersByBook retrieves a book's chapter markers ordered by start
func (r *BookRepository) GetChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, name, start, "end"
		FROM chapters
		WHERE book_id = $1
		ORDER BY start ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*domain.Chapter
	for rows.Next() {
		chapter := &domain.Chapter{}
		if err := rows.Scan(&chapter.ID, &chapter.BookID, &chapter.Name, &chapter.Start, &chapter.End); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

// ReplaceChapters swaps a book's chapter set atomically. An empty set clears
// the book's chapters.
func (r *BookRepository) ReplaceChapters(ctx context.Context, bookID string, chapters []*domain.Chapter) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE book_id = $1`, bookID); err != nil {
			return fmt.Errorf("failed to delete old chapters: %w", err)
		}
		for _, chapter := range chapters {
			chapter.BookID = bookID
			if err := insertChapter(ctx, tx, chapter); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSingleFileBooks returns the lone file of every book that has exactly
// one file. Chapter markers only make sense for those; multi-file books get
// their structure from file boundaries instead.
func (r *BookRepository) ListSingleFileBooks(ctx context.Context) ([]*domain.File, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, path, name, position, duration
		FROM files
		WHERE book_id IN (
			SELECT book_id
			FROM files
			GROUP BY book_id
			HAVING COUNT(1) = 1
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list single-file books: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		file := &domain.File{}
		if err := rows.Scan(&file.ID, &file.BookID, &file.Path, &file.Name, &file.Position, &file.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// GetCover retrieves a book's cover image bytes
func (r *BookRepository) GetCover(ctx context.Context, bookID string) ([]byte, error) {
	var cover []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT cover FROM books WHERE id = $1
	`, bookID).Scan(&cover)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cover: %w", err)
	}
	if len(cover) == 0 {
		return nil, domain.ErrCoverNotFound
	}
	return cover, nil
}
