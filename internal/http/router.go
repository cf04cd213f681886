package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/database"
)

// RouterConfig carries the dependencies of the HTTP layer. Optional
// pieces (the mirror exporter and importer) may be nil, in which case
// their routes are not registered.
type RouterConfig struct {
	Database *database.Database
	Version  string

	BookStore     BookStore
	CategoryStore CategoryStore
	StatsStore    StatsStore

	MirrorExporter MirrorExporter
	MirrorImporter MirrorImporter
	ImportHistory  ImportHistoryStore
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.BookStore)
	categoriesController := NewCategoriesController(cfg.CategoryStore)
	statsController := NewStatsController(cfg.StatsStore)

	// Health endpoints
	router.GET("/api/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	router.GET("/api/books", booksController.ListBooks)
	router.POST("/api/books", booksController.CreateBook)
	router.GET("/api/books/:id", booksController.GetBook)
	router.PUT("/api/books/:id", booksController.UpdateBook)
	router.DELETE("/api/books/:id", booksController.DeleteBook)
	router.PUT("/api/books/:id/reading", booksController.SetReadingStatus)
	router.PUT("/api/books/:id/review", booksController.SetReview)

	// Category endpoints
	router.GET("/api/categories", categoriesController.ListCategories)
	router.POST("/api/categories", categoriesController.CreateCategory)
	router.GET("/api/categories/:id", categoriesController.GetCategory)
	router.PUT("/api/categories/:id", categoriesController.UpdateCategory)
	router.DELETE("/api/categories/:id", categoriesController.DeleteCategory)
	router.POST("/api/books/:id/categories/:categoryId", categoriesController.AddBookToCategory)
	router.DELETE("/api/books/:id/categories/:categoryId", categoriesController.RemoveBookFromCategory)

	// Stats endpoint
	router.GET("/api/stats", statsController.GetStats)

	// Mirror endpoints
	if cfg.MirrorExporter != nil && cfg.MirrorImporter != nil {
		mirrorController := NewMirrorController(cfg.MirrorExporter, cfg.MirrorImporter, cfg.ImportHistory)
		router.POST("/api/mirror/export", mirrorController.Export)
		router.POST("/api/mirror/import", mirrorController.Import)
		router.GET("/api/mirror/history", mirrorController.History)
	}

	return router
}
