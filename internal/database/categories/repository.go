// Package categories provides database operations for category
// management and book-category associations.
//
// Category names are unique under case-insensitive comparison, and a
// given book links to a given category at most once; violations of
// either invariant surface as errs.ConflictError.
package categories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// Repository handles all category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new categories repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateCategory creates a category. Names are unique
// case-insensitively; an empty color is auto-assigned from the palette.
func (r *Repository) CreateCategory(name, color string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation(errs.Field("name", "is required"))
	}

	var category entities.Category
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing entities.Category
		err := tx.Where("LOWER(name) = LOWER(?)", name).First(&existing).Error
		if err == nil {
			return errs.Conflict("category %q already exists", existing.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if color == "" {
			var used []string
			if err := tx.Model(&entities.Category{}).Pluck("color", &used).Error; err != nil {
				return err
			}
			color = utils.NextColor(used)
		}

		category = entities.Category{Name: name, Color: color}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategory retrieves a category by id.
func (r *Repository) GetCategory(id uint) (*entities.Category, error) {
	var category entities.Category
	err := r.db.First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("category", id)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetOrCreateCategory finds a category by case-insensitive name,
// creating it with an auto-assigned color when absent. Used by the
// mirror importer when linking shelves.
func (r *Repository) GetOrCreateCategory(name string) (*entities.Category, error) {
	var category entities.Category
	err := r.db.Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.CreateCategory(name, "")
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name COLLATE NOCASE ASC").Find(&categories).Error
	if categories == nil {
		categories = []entities.Category{}
	}
	return categories, err
}

// UpdateCategory renames or recolors a category. Renames keep the
// case-insensitive uniqueness invariant.
func (r *Repository) UpdateCategory(id uint, name, color string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation(errs.Field("name", "is required"))
	}

	var category entities.Category
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category", id)
			}
			return err
		}

		var existing entities.Category
		err := tx.Where("LOWER(name) = LOWER(?) AND id <> ?", name, id).First(&existing).Error
		if err == nil {
			return errs.Conflict("category %q already exists", existing.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		category.Name = name
		if color != "" {
			category.Color = color
		}
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes a category. A category still linked to books
// cannot be deleted; unlink the books first.
func (r *Repository) DeleteCategory(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var category entities.Category
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category", id)
			}
			return err
		}

		var linked int64
		if err := tx.Table("book_categories").Where("category_id = ?", id).Count(&linked).Error; err != nil {
			return err
		}
		if linked > 0 {
			return errs.Conflict("category %q still has %d linked book(s)", category.Name, linked)
		}

		return tx.Delete(&entities.Category{}, id).Error
	})
}

// LinkBook associates a book with a category. Linking the same pair
// twice is a conflict.
func (r *Repository) LinkBook(bookID, categoryID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", bookID)
			}
			return err
		}
		var category entities.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category", categoryID)
			}
			return err
		}

		var existing int64
		err := tx.Table("book_categories").
			Where("book_id = ? AND category_id = ?", bookID, categoryID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return errs.Conflict("book %d is already linked to category %q", bookID, category.Name)
		}

		return tx.Exec(
			"INSERT INTO book_categories (book_id, category_id) VALUES (?, ?)",
			bookID, categoryID,
		).Error
	})
}

// UnlinkBook removes a book-category association.
func (r *Repository) UnlinkBook(bookID, categoryID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entities.Book{}, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book", bookID)
			}
			return err
		}
		if err := tx.First(&entities.Category{}, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category", categoryID)
			}
			return err
		}

		result := tx.Exec(
			"DELETE FROM book_categories WHERE book_id = ? AND category_id = ?",
			bookID, categoryID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("book-category link", 0)
		}
		return nil
	})
}

// BookCount returns how many books are linked to the category.
func (r *Repository) BookCount(categoryID uint) (int64, error) {
	var count int64
	err := r.db.Table("book_categories").Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}
