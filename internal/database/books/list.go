package books

import (
	"fmt"
	"strings"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
	"gorm.io/gorm"
)

// SortKey enumerates the supported list orderings. Anything else is
// rejected with a ValidationError rather than silently ignored.
type SortKey string

const (
	SortTitle     SortKey = "title"
	SortAuthor    SortKey = "author"
	SortDateAdded SortKey = "date_added"
	SortDateRead  SortKey = "date_read"
	SortRating    SortKey = "rating"
)

// Filter narrows the listed books. All set keys are combined with AND;
// the search text itself matches title OR author OR isbn13.
type Filter struct {
	Status     *entities.ReadingStatus
	MinRating  *int
	MaxRating  *int
	CategoryID *uint
	Search     string
}

// Sort selects the primary ordering. Ties are always broken by id
// ascending, so equal primary keys produce a deterministic order.
type Sort struct {
	Key  SortKey
	Desc bool
}

// Page selects a 1-based page of the filtered, sorted sequence.
type Page struct {
	Number int
	Size   int
}

// ListOptions is the full configuration for ListBooks.
type ListOptions struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// DefaultPageSize is used when no explicit page is requested.
const DefaultPageSize = 20

func (o *ListOptions) normalize() error {
	var fields []errs.FieldError

	if o.Sort.Key == "" {
		// Library default: newest additions first.
		o.Sort.Key = SortDateAdded
		o.Sort.Desc = true
	}
	switch o.Sort.Key {
	case SortTitle, SortAuthor, SortDateAdded, SortDateRead, SortRating:
	default:
		fields = append(fields, errs.Field("sort", fmt.Sprintf("unknown sort key %q", o.Sort.Key)))
	}

	// Each half defaults independently, so a request naming only a page
	// number still gets the standard page size.
	if o.Page.Number == 0 {
		o.Page.Number = 1
	}
	if o.Page.Size == 0 {
		o.Page.Size = DefaultPageSize
	}
	if o.Page.Number < 1 {
		fields = append(fields, errs.Field("page", "must be at least 1"))
	}
	if o.Page.Size < 1 {
		fields = append(fields, errs.Field("page_size", "must be at least 1"))
	}

	f := o.Filter
	if f.Status != nil && !f.Status.Valid() {
		fields = append(fields, errs.Field("status", "must be one of to-read, currently-reading, read"))
	}
	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		fields = append(fields, errs.Field("min_rating", "must be between 1 and 5"))
	}
	if f.MaxRating != nil && (*f.MaxRating < 1 || *f.MaxRating > 5) {
		fields = append(fields, errs.Field("max_rating", "must be between 1 and 5"))
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		fields = append(fields, errs.Field("min_rating", "must not exceed max_rating"))
	}

	if len(fields) > 0 {
		return errs.Validation(fields...)
	}
	return nil
}

// ListBooks returns the page of book aggregates matching the options,
// plus the total match count (reflecting filtering but not paging). An
// empty result is not an error.
func (r *Repository) ListBooks(opts ListOptions) ([]entities.Book, int64, error) {
	if err := opts.normalize(); err != nil {
		return nil, 0, err
	}

	f := opts.Filter
	needRecords := f.Status != nil || opts.Sort.Key == SortDateRead
	needReviews := f.MinRating != nil || f.MaxRating != nil || opts.Sort.Key == SortRating

	q := r.db.Model(&entities.Book{}).Select("books.*")

	// reading_records.book_id and reviews.book_id are unique, so these
	// joins never fan out rows.
	if needRecords {
		q = q.Joins("LEFT JOIN reading_records ON reading_records.book_id = books.id")
	}
	if needReviews {
		q = q.Joins("LEFT JOIN reviews ON reviews.book_id = books.id")
	}

	if f.Status != nil {
		q = q.Where("reading_records.status = ?", *f.Status)
	}
	if f.MinRating != nil {
		q = q.Where("reviews.rating >= ?", *f.MinRating)
	}
	if f.MaxRating != nil {
		q = q.Where("reviews.rating <= ?", *f.MaxRating)
	}
	if f.CategoryID != nil {
		q = q.Where("books.id IN (SELECT book_id FROM book_categories WHERE category_id = ?)", *f.CategoryID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(books.title) LIKE ? OR LOWER(books.author) LIKE ? OR LOWER(books.isbn13) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = applySort(q, opts.Sort)

	var books []entities.Book
	err := q.
		Offset((opts.Page.Number - 1) * opts.Page.Size).
		Limit(opts.Page.Size).
		Preload("ReadingRecord").
		Preload("Review").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name COLLATE NOCASE ASC")
		}).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, total, nil
}

// applySort builds the ORDER BY clause. Books missing the sort field
// (unrated books, books never finished) sort last ascending and first
// descending.
func applySort(q *gorm.DB, sort Sort) *gorm.DB {
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}

	var column string
	nullable := false
	switch sort.Key {
	case SortTitle:
		column = "books.title COLLATE NOCASE"
	case SortAuthor:
		column = "books.author COLLATE NOCASE"
	case SortDateAdded:
		column = "books.date_added"
	case SortDateRead:
		column = "reading_records.date_finished"
		nullable = true
	case SortRating:
		column = "reviews.rating"
		nullable = true
	}

	if nullable {
		q = q.Order(fmt.Sprintf("(%s IS NULL) %s", column, dir))
	}
	return q.
		Order(fmt.Sprintf("%s %s", column, dir)).
		Order("books.id ASC")
}
