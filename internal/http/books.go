package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
)

// BookStore defines database operations for book management.
type BookStore interface {
	CreateBook(input books.CreateBookInput) (*entities.Book, error)
	GetBook(id uint) (*entities.Book, error)
	UpdateBook(id uint, input books.UpdateBookInput) (*entities.Book, error)
	DeleteBook(id uint) error
	SetReadingStatus(bookID uint, input books.ReadingInput) (*entities.ReadingRecord, error)
	SetReview(bookID uint, input books.ReviewInput) (*entities.Review, error)
	ListBooks(opts books.ListOptions) ([]entities.Book, int64, error)
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

// ListBooks returns a filtered, sorted page of the library.
// GET /api/books
func (bc *BooksController) ListBooks(c *gin.Context) {
	opts, err := listOptionsFromQuery(c)
	if err != nil {
		respondDomainError(c, err, "parse list query")
		return
	}

	result, total, err := bc.store.ListBooks(opts)
	if err != nil {
		respondDomainError(c, err, "list books")
		return
	}

	// Mirror the defaults ListBooks applies so the metadata matches
	// the page actually served.
	if opts.Page.Number == 0 {
		opts.Page.Number = 1
	}
	if opts.Page.Size == 0 {
		opts.Page.Size = books.DefaultPageSize
	}
	totalPages := int((total + int64(opts.Page.Size) - 1) / int64(opts.Page.Size))
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       result,
		Total:      total,
		Page:       opts.Page.Number,
		PageSize:   opts.Page.Size,
		TotalPages: totalPages,
	})
}

// listOptionsFromQuery translates query parameters into list options.
// Malformed parameters are collected into a single ValidationError so
// the client sees every problem at once.
func listOptionsFromQuery(c *gin.Context) (books.ListOptions, error) {
	var opts books.ListOptions
	var fields []errs.FieldError

	if status := c.Query("status"); status != "" {
		s := entities.ReadingStatus(status)
		opts.Filter.Status = &s
	}
	for name, dst := range map[string]**int{
		"min_rating": &opts.Filter.MinRating,
		"max_rating": &opts.Filter.MaxRating,
	} {
		value, fe := parseQueryInt(c, name)
		if fe != nil {
			fields = append(fields, *fe)
			continue
		}
		*dst = value
	}
	if raw := c.Query("category_id"); raw != "" {
		value, fe := parseQueryInt(c, "category_id")
		if fe != nil {
			fields = append(fields, *fe)
		} else if *value < 1 {
			fields = append(fields, errs.Field("category_id", "must be a positive integer"))
		} else {
			id := uint(*value)
			opts.Filter.CategoryID = &id
		}
	}
	opts.Filter.Search = c.Query("search")

	opts.Sort.Key = books.SortKey(c.Query("sort"))
	order := c.Query("order")
	switch order {
	case "", "asc":
	case "desc":
		opts.Sort.Desc = true
	default:
		fields = append(fields, errs.Field("order", "must be asc or desc"))
	}
	// An explicit order without a sort key applies to the default
	// date_added ordering instead of being dropped.
	if opts.Sort.Key == "" && order != "" {
		opts.Sort.Key = books.SortDateAdded
	}

	for name, dst := range map[string]*int{
		"page":      &opts.Page.Number,
		"page_size": &opts.Page.Size,
	} {
		value, fe := parseQueryInt(c, name)
		if fe != nil {
			fields = append(fields, *fe)
			continue
		}
		if value != nil {
			*dst = *value
		}
	}

	if len(fields) > 0 {
		return opts, errs.Validation(fields...)
	}
	return opts, nil
}

// GetBook returns a single book aggregate.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBook(id)
	if err != nil {
		respondDomainError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook adds a new book to the library.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var input books.CreateBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.CreateBook(input)
	if err != nil {
		respondDomainError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// UpdateBook applies a partial update to a book's descriptive fields.
// PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input books.UpdateBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.UpdateBook(id, input)
	if err != nil {
		respondDomainError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book together with its reading record, review
// and category links.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		respondDomainError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

type readingRequest struct {
	Status       string `json:"status"`
	DateStarted  string `json:"date_started"`
	DateFinished string `json:"date_finished"`
	ReadCount    *int   `json:"read_count"`
}

// SetReadingStatus creates or replaces the book's reading record.
// PUT /api/books/:id/reading
func (bc *BooksController) SetReadingStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	input := books.ReadingInput{
		Status:    entities.ReadingStatus(req.Status),
		ReadCount: req.ReadCount,
	}
	var fields []errs.FieldError
	for name, pair := range map[string]struct {
		raw string
		dst **time.Time
	}{
		"date_started":  {req.DateStarted, &input.DateStarted},
		"date_finished": {req.DateFinished, &input.DateFinished},
	} {
		if pair.raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", pair.raw)
		if err != nil {
			fields = append(fields, errs.Field(name, "must be a YYYY-MM-DD date"))
			continue
		}
		*pair.dst = &parsed
	}
	if len(fields) > 0 {
		respondDomainError(c, errs.Validation(fields...), "parse reading dates")
		return
	}

	record, err := bc.store.SetReadingStatus(id, input)
	if err != nil {
		respondDomainError(c, err, "set reading status")
		return
	}
	c.JSON(http.StatusOK, record)
}

// SetReview creates or replaces the book's review.
// PUT /api/books/:id/review
func (bc *BooksController) SetReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input books.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	review, err := bc.store.SetReview(id, input)
	if err != nil {
		respondDomainError(c, err, "set review")
		return
	}
	c.JSON(http.StatusOK, review)
}
