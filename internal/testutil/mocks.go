// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the audioshelf application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"audioshelf/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockNotFound       = errors.New("mock: not found")
)

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)
	ListFunc          func(ctx context.Context) ([]*domain.User, error)
	UpdateFunc        func(ctx context.Context, id string, update domain.UserUpdate) error
	CountFunc         func(ctx context.Context) (int64, error)

	// In-memory storage for simple tests
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository with initialized maps
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Users == nil {
		m.Users = make(map[string]*domain.User)
	}

	for _, u := range m.Users {
		if u.Username == user.Username {
			return domain.ErrUsernameExists
		}
	}

	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*domain.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.Users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	if update.Admin != nil {
		user.Admin = *update.Admin
	}
	user.ModifiedAt = time.Now()
	return nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.Users)), nil
}

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc         func(ctx context.Context, session *domain.Session) error
	GetInfoByTokenFunc func(ctx context.Context, token string) (*domain.SessionInfo, error)
	TouchFunc          func(ctx context.Context, token string) error
	DeleteFunc         func(ctx context.Context, token string) error
	DeleteExpiredFunc  func(ctx context.Context, olderThan time.Time) (int64, error)

	// In-memory storage
	Sessions map[string]*domain.Session

	// Users to join against for GetInfoByToken; keyed by user ID
	Users map[string]*domain.User
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
		Users:    make(map[string]*domain.User),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if session.LastAccessed.IsZero() {
		session.LastAccessed = now
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	m.Sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetInfoByToken(ctx context.Context, token string) (*domain.SessionInfo, error) {
	if m.GetInfoByTokenFunc != nil {
		return m.GetInfoByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.Sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	info := &domain.SessionInfo{
		Token:        session.Token,
		UserID:       session.UserID,
		LastAccessed: session.LastAccessed,
	}
	if user, ok := m.Users[session.UserID]; ok {
		info.Username = user.Username
		info.Admin = user.Admin
	}
	return info, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, token string) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.LastAccessed = time.Now()
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Sessions[token]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.Sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, olderThan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for token, session := range m.Sessions {
		if session.LastAccessed.Before(olderThan) {
			delete(m.Sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// MockBookRepository implements domain.BookRepository for testing
type MockBookRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateWithFilesFunc     func(ctx context.Context, book *domain.Book, files []*domain.File, cover []byte, chapters []*domain.Chapter) error
	GetByIDFunc             func(ctx context.Context, id string) (*domain.Book, error)
	ListFunc                func(ctx context.Context) ([]*domain.Book, error)
	GetFileFunc             func(ctx context.Context, id string) (*domain.File, error)
	GetFilesByBookFunc      func(ctx context.Context, bookID string) ([]*domain.File, error)
	GetCoverFunc            func(ctx context.Context, bookID string) ([]byte, error)
	GetChaptersByBookFunc   func(ctx context.Context, bookID string) ([]*domain.Chapter, error)
	ReplaceChaptersFunc     func(ctx context.Context, bookID string, chapters []*domain.Chapter) error
	ListSingleFileBooksFunc func(ctx context.Context) ([]*domain.File, error)

	// In-memory storage
	Books    map[string]*domain.Book
	Files    map[string]*domain.File
	Covers   map[string][]byte
	Chapters map[string][]*domain.Chapter
}

// NewMockBookRepository creates a new MockBookRepository with initialized maps
func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{
		Books:    make(map[string]*domain.Book),
		Files:    make(map[string]*domain.File),
		Covers:   make(map[string][]byte),
		Chapters: make(map[string][]*domain.Chapter),
	}
}

func (m *MockBookRepository) CreateWithFiles(ctx context.Context, book *domain.Book, files []*domain.File, cover []byte, chapters []*domain.Chapter) error {
	if m.CreateWithFilesFunc != nil {
		return m.CreateWithFilesFunc(ctx, book, files, cover, chapters)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}
	m.Books[book.ID] = book
	// The real repository stamps ownership inside the transaction.
	for _, f := range files {
		f.BookID = book.ID
		m.Files[f.ID] = f
	}
	for _, c := range chapters {
		c.BookID = book.ID
	}
	if len(chapters) > 0 {
		m.Chapters[book.ID] = chapters
	}
	if len(cover) > 0 {
		m.Covers[book.ID] = cover
	}
	return nil
}

func (m *MockBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if book, ok := m.Books[id]; ok {
		return book, nil
	}
	return nil, domain.ErrBookNotFound
}

func (m *MockBookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]*domain.Book, 0, len(m.Books))
	for _, b := range m.Books {
		books = append(books, b)
	}
	return books, nil
}

func (m *MockBookRepository) GetFile(ctx context.Context, id string) (*domain.File, error) {
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if file, ok := m.Files[id]; ok {
		return file, nil
	}
	return nil, domain.ErrFileNotFound
}

func (m *MockBookRepository) GetFilesByBook(ctx context.Context, bookID string) ([]*domain.File, error) {
	if m.GetFilesByBookFunc != nil {
		return m.GetFilesByBookFunc(ctx, bookID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*domain.File, 0)
	for _, f := range m.Files {
		if f.BookID == bookID {
			files = append(files, f)
		}
	}
	// Callers expect playback order
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].Position < files[i].Position {
				files[i], files[j] = files[j], files[i]
			}
		}
	}
	return files, nil
}

func (m *MockBookRepository) GetChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	if m.GetChaptersByBookFunc != nil {
		return m.GetChaptersByBookFunc(ctx, bookID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	chapters := append([]*domain.Chapter(nil), m.Chapters[bookID]...)
	// Callers expect start order
	for i := 0; i < len(chapters); i++ {
		for j := i + 1; j < len(chapters); j++ {
			if chapters[j].Start < chapters[i].Start {
				chapters[i], chapters[j] = chapters[j], chapters[i]
			}
		}
	}
	return chapters, nil
}

func (m *MockBookRepository) ReplaceChapters(ctx context.Context, bookID string, chapters []*domain.Chapter) error {
	if m.ReplaceChaptersFunc != nil {
		return m.ReplaceChaptersFunc(ctx, bookID, chapters)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chapters {
		c.BookID = bookID
	}
	if len(chapters) == 0 {
		delete(m.Chapters, bookID)
		return nil
	}
	m.Chapters[bookID] = chapters
	return nil
}

func (m *MockBookRepository) ListSingleFileBooks(ctx context.Context) ([]*domain.File, error) {
	if m.ListSingleFileBooksFunc != nil {
		return m.ListSingleFileBooksFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, f := range m.Files {
		counts[f.BookID]++
	}
	files := make([]*domain.File, 0)
	for _, f := range m.Files {
		if counts[f.BookID] == 1 {
			files = append(files, f)
		}
	}
	return files, nil
}

func (m *MockBookRepository) GetCover(ctx context.Context, bookID string) ([]byte, error) {
	if m.GetCoverFunc != nil {
		return m.GetCoverFunc(ctx, bookID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if cover, ok := m.Covers[bookID]; ok && len(cover) > 0 {
		return cover, nil
	}
	return nil, domain.ErrCoverNotFound
}

// MockLibraryRepository implements domain.LibraryRepository for testing
type MockLibraryRepository struct {
	mu sync.RWMutex

	// Function overrides
	UpsertFunc         func(ctx context.Context, userID, bookID string, list domain.List, fileID *string, progress *float64) error
	UpdateProgressFunc func(ctx context.Context, userID, bookID, fileID string, progress float64) error
	GetEntryFunc       func(ctx context.Context, userID, bookID string) (*domain.LibraryEntry, error)
	ListByUserFunc     func(ctx context.Context, userID string) ([]*domain.LibraryRow, error)

	// In-memory storage keyed by userID+"/"+bookID
	Entries map[string]*domain.LibraryEntry

	// Books backs the title/author join of ListByUser. Tests that assert on
	// joined fields point this at a MockBookRepository's Books map.
	Books map[string]*domain.Book
}

// NewMockLibraryRepository creates a new MockLibraryRepository with initialized maps
func NewMockLibraryRepository() *MockLibraryRepository {
	return &MockLibraryRepository{
		Entries: make(map[string]*domain.LibraryEntry),
	}
}

func entryKey(userID, bookID string) string {
	return userID + "/" + bookID
}

func (m *MockLibraryRepository) Upsert(ctx context.Context, userID, bookID string, list domain.List, fileID *string, progress *float64) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, bookID, list, fileID, progress)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey(userID, bookID)
	entry, ok := m.Entries[key]
	if !ok {
		entry = &domain.LibraryEntry{UserID: userID, BookID: bookID}
		if fileID != nil {
			entry.FileID = *fileID
		}
		if progress != nil {
			entry.Progress = *progress
		}
		entry.List = list
		entry.ModifiedAt = time.Now()
		m.Entries[key] = entry
		return nil
	}

	entry.List = list
	if fileID != nil && entry.FileID != *fileID {
		entry.FileID = *fileID
		entry.Progress = 0
	} else if progress != nil {
		entry.Progress = *progress
	}
	entry.ModifiedAt = time.Now()
	return nil
}

func (m *MockLibraryRepository) UpdateProgress(ctx context.Context, userID, bookID, fileID string, progress float64) error {
	if m.UpdateProgressFunc != nil {
		return m.UpdateProgressFunc(ctx, userID, bookID, fileID, progress)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.Entries[entryKey(userID, bookID)]
	if !ok {
		return domain.ErrEntryNotFound
	}
	entry.FileID = fileID
	entry.Progress = progress
	entry.ModifiedAt = time.Now()
	return nil
}

func (m *MockLibraryRepository) GetEntry(ctx context.Context, userID, bookID string) (*domain.LibraryEntry, error) {
	if m.GetEntryFunc != nil {
		return m.GetEntryFunc(ctx, userID, bookID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if entry, ok := m.Entries[entryKey(userID, bookID)]; ok {
		return entry, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockLibraryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LibraryRow, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]*domain.LibraryRow, 0)
	for _, entry := range m.Entries {
		if entry.UserID != userID {
			continue
		}
		row := &domain.LibraryRow{
			BookID:   entry.BookID,
			List:     entry.List,
			FileID:   entry.FileID,
			Progress: entry.Progress,
			Modified: entry.ModifiedAt,
		}
		if book, ok := m.Books[entry.BookID]; ok {
			row.Title = book.Title
			row.Author = book.Author
		}
		rows = append(rows, row)
	}
	return rows, nil
}
