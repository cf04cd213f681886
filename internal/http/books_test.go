package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/categories"
	"github.com/shelfmark/shelfmark/internal/database/importhistory"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/mirror"
)

type testServer struct {
	router     *gin.Engine
	db         *database.Database
	books      *books.Repository
	categories *categories.Repository
	mirrorDir  string
}

func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	booksRepo := books.NewRepository(db.DB)
	categoriesRepo := categories.NewRepository(db.DB)
	historyRepo := importhistory.NewRepository(db.DB)
	mirrorDir := t.TempDir()

	router := NewRouter(RouterConfig{
		Database:       db,
		Version:        "test",
		BookStore:      booksRepo,
		CategoryStore:  categoriesRepo,
		StatsStore:     booksRepo,
		MirrorExporter: mirror.NewExporter(booksRepo, mirrorDir),
		MirrorImporter: mirror.NewImporter(booksRepo, categoriesRepo, historyRepo, mirrorDir),
		ImportHistory:  historyRepo,
	})

	srv := &testServer{
		router:     router,
		db:         db,
		books:      booksRepo,
		categories: categoriesRepo,
		mirrorDir:  mirrorDir,
	}
	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return srv, cleanup
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	s.router.ServeHTTP(w, req)
	return w
}

func TestBooksController_CreateBook(t *testing.T) {
	t.Run("creates a book", func(t *testing.T) {
		srv, cleanup := setupTestServer(t)
		defer cleanup()

		w := srv.do(t, "POST", "/api/books", `{"title": "Dune", "author": "Frank Herbert", "isbn13": "9780441172719"}`)

		assert.Equal(t, http.StatusCreated, w.Code)

		var book entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.NotZero(t, book.ID)
		assert.Equal(t, "Dune", book.Title)
	})

	t.Run("validation failures return field details", func(t *testing.T) {
		srv, cleanup := setupTestServer(t)
		defer cleanup()

		w := srv.do(t, "POST", "/api/books", `{"title": "", "author": "", "isbn13": "123"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error   string `json:"error"`
			Details []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "validation failed", resp.Error)
		assert.Len(t, resp.Details, 3)
	})

	t.Run("malformed json is a 400", func(t *testing.T) {
		srv, cleanup := setupTestServer(t)
		defer cleanup()

		w := srv.do(t, "POST", "/api/books", `{"title": `)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_GetBook(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	book, err := srv.books.CreateBook(books.CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	t.Run("returns the aggregate", func(t *testing.T) {
		w := srv.do(t, "GET", fmt.Sprintf("/api/books/%d", book.ID), "")

		assert.Equal(t, http.StatusOK, w.Code)

		var loaded entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
		assert.Equal(t, book.ID, loaded.ID)
	})

	t.Run("missing book is a 404", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books/9999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is a 400", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books/dune", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_UpdateAndDelete(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	book, err := srv.books.CreateBook(books.CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d", book.ID), `{"pages": 412}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.NotNil(t, updated.Pages)
	assert.Equal(t, 412, *updated.Pages)
	assert.Equal(t, "Dune", updated.Title)

	w = srv.do(t, "DELETE", fmt.Sprintf("/api/books/%d", book.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, "GET", fmt.Sprintf("/api/books/%d", book.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBooksController_SetReadingStatus(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	book, err := srv.books.CreateBook(books.CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	t.Run("sets status with dates", func(t *testing.T) {
		w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d/reading", book.ID),
			`{"status": "read", "date_started": "2026-01-10", "date_finished": "2026-02-01"}`)

		assert.Equal(t, http.StatusOK, w.Code)

		var record entities.ReadingRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
		assert.Equal(t, entities.StatusRead, record.Status)
	})

	t.Run("malformed date is a 400", func(t *testing.T) {
		w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d/reading", book.ID),
			`{"status": "read", "date_finished": "Feb 1st"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown status is a 400", func(t *testing.T) {
		w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d/reading", book.ID), `{"status": "abandoned"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_SetReview(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	book, err := srv.books.CreateBook(books.CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	t.Run("sets rating and text", func(t *testing.T) {
		w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d/review", book.ID),
			`{"rating": 5, "review_text": "A classic.", "is_spoiler": true, "private_notes": "Lent out."}`)

		assert.Equal(t, http.StatusOK, w.Code)

		var review entities.Review
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
		require.NotNil(t, review.Rating)
		assert.Equal(t, 5, *review.Rating)
		assert.True(t, review.IsSpoiler)
	})

	t.Run("rating out of range is a 400", func(t *testing.T) {
		w := srv.do(t, "PUT", fmt.Sprintf("/api/books/%d/review", book.ID), `{"rating": 6}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_ListBooks(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	for i := 1; i <= 7; i++ {
		book, err := srv.books.CreateBook(books.CreateBookInput{
			Title:  fmt.Sprintf("Book %02d", i),
			Author: "Author",
		})
		require.NoError(t, err)
		if i <= 3 {
			_, err = srv.books.SetReadingStatus(book.ID, books.ReadingInput{Status: entities.StatusRead})
			require.NoError(t, err)
		}
	}

	t.Run("paginates with metadata", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books?sort=title&page=2&page_size=3", "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data       []entities.Book `json:"data"`
			Total      int64           `json:"total"`
			Page       int             `json:"page"`
			PageSize   int             `json:"page_size"`
			TotalPages int             `json:"total_pages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.Total)
		assert.Equal(t, 2, resp.Page)
		assert.Equal(t, 3, resp.TotalPages)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, "Book 04", resp.Data[0].Title)
	})

	t.Run("page without page_size uses the default size", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books?page=2", "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data     []entities.Book `json:"data"`
			Total    int64           `json:"total"`
			Page     int             `json:"page"`
			PageSize int             `json:"page_size"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.Total)
		assert.Equal(t, 2, resp.Page)
		assert.Equal(t, 20, resp.PageSize)
		assert.Empty(t, resp.Data)
	})

	t.Run("filters by status", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books?status=read", "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.Total)
	})

	t.Run("bad query parameters are a 400", func(t *testing.T) {
		w := srv.do(t, "GET", "/api/books?min_rating=lots", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, "GET", "/api/books?sort=popularity", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, "GET", "/api/books?order=sideways", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
