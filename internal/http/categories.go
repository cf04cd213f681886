package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// CategoryStore defines database operations for category management.
type CategoryStore interface {
	CreateCategory(name, color string) (*entities.Category, error)
	GetCategory(id uint) (*entities.Category, error)
	ListCategories() ([]entities.Category, error)
	UpdateCategory(id uint, name, color string) (*entities.Category, error)
	DeleteCategory(id uint) error
	LinkBook(bookID, categoryID uint) error
	UnlinkBook(bookID, categoryID uint) error
	BookCount(categoryID uint) (int64, error)
}

type CategoriesController struct {
	store CategoryStore
}

func NewCategoriesController(store CategoryStore) *CategoriesController {
	return &CategoriesController{store: store}
}

// ListCategories returns all categories ordered by name.
// GET /api/categories
func (cc *CategoriesController) ListCategories(c *gin.Context) {
	categories, err := cc.store.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	if categories == nil {
		categories = []entities.Category{}
	}
	c.JSON(http.StatusOK, categories)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateCategory creates a new category. When no color is supplied one
// is picked from the palette.
// POST /api/categories
func (cc *CategoriesController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	category, err := cc.store.CreateCategory(req.Name, req.Color)
	if err != nil {
		respondDomainError(c, err, "create category")
		return
	}
	respondCreated(c, category)
}

// UpdateCategory renames or recolors a category.
// PUT /api/categories/:id
func (cc *CategoriesController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	category, err := cc.store.UpdateCategory(id, req.Name, req.Color)
	if err != nil {
		respondDomainError(c, err, "update category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes an empty category. A category that still has
// books attached is refused with a conflict.
// DELETE /api/categories/:id
func (cc *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.store.DeleteCategory(id); err != nil {
		respondDomainError(c, err, "delete category")
		return
	}
	respondSuccess(c, "category deleted")
}

// AddBookToCategory links a book to a category.
// POST /api/books/:id/categories/:categoryId
func (cc *CategoriesController) AddBookToCategory(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := parseIDParam(c, "categoryId")
	if !ok {
		return
	}

	if err := cc.store.LinkBook(bookID, categoryID); err != nil {
		respondDomainError(c, err, "link book to category")
		return
	}
	respondSuccess(c, "book added to category")
}

// RemoveBookFromCategory unlinks a book from a category.
// DELETE /api/books/:id/categories/:categoryId
func (cc *CategoriesController) RemoveBookFromCategory(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := parseIDParam(c, "categoryId")
	if !ok {
		return
	}

	if err := cc.store.UnlinkBook(bookID, categoryID); err != nil {
		respondDomainError(c, err, "unlink book from category")
		return
	}
	respondSuccess(c, "book removed from category")
}

// GetCategory returns a single category with its book count.
// GET /api/categories/:id
func (cc *CategoriesController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := cc.store.GetCategory(id)
	if err != nil {
		respondDomainError(c, err, "get category")
		return
	}
	count, err := cc.store.BookCount(id)
	if err != nil {
		respondInternalError(c, err, "count category books")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         category.ID,
		"name":       category.Name,
		"color":      category.Color,
		"book_count": count,
	})
}
