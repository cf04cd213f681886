// Package database provides the data access layer for the application.
//
// The layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go       # Connection setup and migrations
//	├── books/            # Book CRUD, reading status, reviews, list/stats queries
//	├── categories/       # Category management and book associations
//	└── importhistory/    # Mirror import run records
//
// Each sub-package provides a Repository type holding an explicit
// *gorm.DB; nothing reaches for a global session, so tests can run
// against isolated database files.
//
//	db, err := database.NewDatabase("./shelfmark.db")
//	booksRepo := books.NewRepository(db.DB)
//	categoriesRepo := categories.NewRepository(db.DB)
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Database owns the shared GORM handle.
type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.ReadingRecord{},
		&entities.Review{},
		&entities.Category{},
		&entities.ImportHistory{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
