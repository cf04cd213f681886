// Package books provides database operations for book management: CRUD,
// reading status, reviews, the filter/sort/search list query, and
// dashboard statistics.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.CreateBook(books.CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
//
// All write operations are transactional: they either fully apply or
// leave the store untouched.
package books

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
	"github.com/shelfmark/shelfmark/internal/validate"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBookInput carries the fields accepted when creating a book.
type CreateBookInput struct {
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	ISBN13        string `json:"isbn13" validate:"omitempty,len=13,numeric"`
	Pages         *int   `json:"pages" validate:"omitempty,min=0"`
	Publisher     string `json:"publisher"`
	YearPublished int    `json:"year_published" validate:"omitempty,min=0"`
	CoverPath     string `json:"cover_path"`
}

// UpdateBookInput carries partial updates; nil fields are left
// untouched. The update is applied all-or-nothing.
type UpdateBookInput struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN13        *string `json:"isbn13"`
	Pages         *int    `json:"pages" validate:"omitempty,min=0"`
	Publisher     *string `json:"publisher"`
	YearPublished *int    `json:"year_published" validate:"omitempty,min=0"`
	CoverPath     *string `json:"cover_path"`
}

// ReadingInput carries the fields for SetReadingStatus.
type ReadingInput struct {
	Status       entities.ReadingStatus `json:"status"`
	DateStarted  *time.Time             `json:"date_started"`
	DateFinished *time.Time             `json:"date_finished"`
	ReadCount    *int                   `json:"read_count"`
}

// ReviewInput carries the fields for SetReview.
type ReviewInput struct {
	Rating       *int   `json:"rating"`
	ReviewText   string `json:"review_text"`
	IsSpoiler    bool   `json:"is_spoiler"`
	PrivateNotes string `json:"private_notes"`
}

// CreateBook validates the input and stores a new book with no attached
// reading record, review, or categories.
func (r *Repository) CreateBook(input CreateBookInput) (*entities.Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)

	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:         input.Title,
		Author:        input.Author,
		ISBN13:        input.ISBN13,
		Pages:         input.Pages,
		Publisher:     input.Publisher,
		YearPublished: input.YearPublished,
		CoverPath:     input.CoverPath,
		DateAdded:     time.Now().UTC(),
	}
	if err := r.db.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// GetBook retrieves a book aggregate: the book joined with its reading
// record, review, and category set.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("ReadingRecord").
		Preload("Review").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name COLLATE NOCASE ASC")
		}).
		First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("book", id)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookByISBN13 retrieves a book aggregate by its ISBN-13, used by
// the mirror importer for matching.
func (r *Repository) GetBookByISBN13(isbn13 string) (*entities.Book, error) {
	return r.findOne("isbn13 = ?", isbn13)
}

// GetBookByTitleAndAuthor retrieves a book aggregate by exact title and
// author match.
func (r *Repository) GetBookByTitleAndAuthor(title, author string) (*entities.Book, error) {
	return r.findOne("title = ? AND author = ?", title, author)
}

func (r *Repository) findOne(query string, args ...any) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("ReadingRecord").
		Preload("Review").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name COLLATE NOCASE ASC")
		}).
		Where(query, args...).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("book", 0)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateBook applies a partial update atomically. Unset fields keep
// their current values.
func (r *Repository) UpdateBook(id uint, input UpdateBookInput) (*entities.Book, error) {
	var fields []errs.FieldError
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		fields = append(fields, errs.Field("title", "is required"))
	}
	if input.Author != nil && strings.TrimSpace(*input.Author) == "" {
		fields = append(fields, errs.Field("author", "is required"))
	}
	if input.ISBN13 != nil && *input.ISBN13 != "" && !validISBN13(*input.ISBN13) {
		fields = append(fields, errs.Field("isbn13", "must be exactly 13 digits"))
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		updates["author"] = strings.TrimSpace(*input.Author)
	}
	if input.ISBN13 != nil {
		updates["isbn13"] = *input.ISBN13
	}
	if input.Pages != nil {
		updates["pages"] = *input.Pages
	}
	if input.Publisher != nil {
		updates["publisher"] = *input.Publisher
	}
	if input.YearPublished != nil {
		updates["year_published"] = *input.YearPublished
	}
	if input.CoverPath != nil {
		updates["cover_path"] = *input.CoverPath
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", id)
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&book).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(id)
}

// DeleteBook removes a book and all of its dependents in one
// transaction: the reading record, the review, and the category
// association rows. Categories themselves persist.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", id)
			}
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.ReadingRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM book_categories WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
}

// SetReadingStatus upserts the book's reading record. Only date
// consistency is enforced; any status may move to any other.
func (r *Repository) SetReadingStatus(bookID uint, input ReadingInput) (*entities.ReadingRecord, error) {
	var fields []errs.FieldError
	if !input.Status.Valid() {
		fields = append(fields, errs.Field("status", "must be one of to-read, currently-reading, read"))
	}
	if input.DateStarted != nil && input.DateFinished != nil && input.DateFinished.Before(*input.DateStarted) {
		fields = append(fields, errs.Field("date_finished", "must not be before date_started"))
	}
	if input.ReadCount != nil && *input.ReadCount < 1 {
		fields = append(fields, errs.Field("read_count", "must be at least 1"))
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	var record entities.ReadingRecord
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entities.Book{}, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", bookID)
			}
			return err
		}

		err := tx.Where("book_id = ?", bookID).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = entities.ReadingRecord{
				BookID:       bookID,
				Status:       input.Status,
				DateStarted:  input.DateStarted,
				DateFinished: input.DateFinished,
				ReadCount:    1,
			}
			if input.ReadCount != nil {
				record.ReadCount = *input.ReadCount
			}
			return tx.Create(&record).Error
		case err != nil:
			return err
		}

		record.Status = input.Status
		record.DateStarted = input.DateStarted
		record.DateFinished = input.DateFinished
		if input.ReadCount != nil {
			record.ReadCount = *input.ReadCount
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SetReview upserts the book's review. Rating, when present, must lie
// in [1,5].
func (r *Repository) SetReview(bookID uint, input ReviewInput) (*entities.Review, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, errs.Validation(errs.Field("rating", "must be between 1 and 5"))
	}

	var review entities.Review
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entities.Book{}, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", bookID)
			}
			return err
		}

		err := tx.Where("book_id = ?", bookID).First(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = entities.Review{
				BookID:       bookID,
				Rating:       input.Rating,
				ReviewText:   input.ReviewText,
				IsSpoiler:    input.IsSpoiler,
				PrivateNotes: input.PrivateNotes,
			}
			return tx.Create(&review).Error
		case err != nil:
			return err
		}

		review.Rating = input.Rating
		review.ReviewText = input.ReviewText
		review.IsSpoiler = input.IsSpoiler
		review.PrivateNotes = input.PrivateNotes
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateSyncState records the mirror content hash after an export or
// import, used to skip unchanged files on the next import.
func (r *Repository) UpdateSyncState(bookID uint, hash string) error {
	now := time.Now().UTC()
	result := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Updates(map[string]any{
		"sync_hash":      hash,
		"last_synced_at": &now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("book", bookID)
	}
	return nil
}

// GetAllBooks retrieves every book aggregate, ordered by title. Used by
// the mirror exporter.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.
		Preload("ReadingRecord").
		Preload("Review").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name COLLATE NOCASE ASC")
		}).
		Order("books.title COLLATE NOCASE ASC, books.id ASC").
		Find(&books).Error
	return books, err
}

func validISBN13(s string) bool {
	if len(s) != 13 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
