package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"audioshelf/internal/domain"
	"audioshelf/internal/service"
	"audioshelf/internal/testutil"
)

// staticProber satisfies the catalog's probe surface with fixed answers.
type staticProber struct {
	chapters []*domain.Chapter
}

func (p *staticProber) Duration(ctx context.Context, path string) (float64, error) {
	return 100, nil
}

func (p *staticProber) Chapters(ctx context.Context, path string) ([]*domain.Chapter, error) {
	return p.chapters, nil
}

func newBookHandler(t *testing.T, prober service.MediaProber) (*BookHandler, *testutil.MockBookRepository) {
	t.Helper()
	bookRepo := testutil.NewMockBookRepository()
	return NewBookHandler(service.NewCatalogService(bookRepo, prober)), bookRepo
}

func TestBookHandler_Get_IncludesChapters(t *testing.T) {
	handler, bookRepo := newBookHandler(t, &staticProber{})

	book := testutil.NewTestBook("Dune", "Frank Herbert")
	bookRepo.Books[book.ID] = book
	file := testutil.NewTestFile(book.ID, 1, 3600)
	bookRepo.Files[file.ID] = file
	bookRepo.Chapters[book.ID] = []*domain.Chapter{
		{ID: "ch-1", BookID: book.ID, Name: "Part One", Start: 0, End: 1800},
		{ID: "ch-2", BookID: book.ID, Name: "Part Two", Start: 1800, End: 3600},
	}

	req := httptest.NewRequest(http.MethodGet, "/book/"+book.ID, nil)
	req = withURLParam(req, "id", book.ID)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[struct {
		Data struct {
			Book     domain.Book      `json:"book"`
			Files    []domain.File    `json:"files"`
			Chapters []domain.Chapter `json:"chapters"`
		} `json:"data"`
	}](t, w)
	if resp.Data.Book.Title != "Dune" {
		t.Errorf("Unexpected book: %+v", resp.Data.Book)
	}
	if len(resp.Data.Files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(resp.Data.Files))
	}
	if len(resp.Data.Chapters) != 2 || resp.Data.Chapters[0].Name != "Part One" {
		t.Errorf("Expected chapters in start order, got %+v", resp.Data.Chapters)
	}
}

func TestBookHandler_Get_UnknownBook(t *testing.T) {
	handler, _ := newBookHandler(t, &staticProber{})

	req := httptest.NewRequest(http.MethodGet, "/book/missing", nil)
	req = withURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	testutil.AssertJSONError(t, w, http.StatusNotFound, "server-books--not-found")
}

func TestBookHandler_RediscoverChapters(t *testing.T) {
	prober := &staticProber{chapters: []*domain.Chapter{
		{Name: "Part One", Start: 0, End: 1800},
	}}
	handler, bookRepo := newBookHandler(t, prober)

	book := testutil.NewTestBook("Dune", "Frank Herbert")
	bookRepo.Books[book.ID] = book
	file := testutil.NewTestFile(book.ID, 1, 3600)
	bookRepo.Files[file.ID] = file

	req := httptest.NewRequest(http.MethodPost, "/rediscover-chapters", nil)
	w := httptest.NewRecorder()

	handler.RediscoverChapters(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[SuccessResponse](t, w)
	if resp.Message != "admin--chapters-rediscovered" {
		t.Errorf("Unexpected message: %q", resp.Message)
	}

	chapters, err := bookRepo.GetChaptersByBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != "Part One" {
		t.Errorf("Expected rediscovered chapters stored, got %+v", chapters)
	}
}
