// Package importhistory records mirror import runs so past imports can
// be inspected from the API.
package importhistory

import (
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles import history database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new import history repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record persists one import run.
func (r *Repository) Record(run *entities.ImportHistory) error {
	return r.db.Create(run).Error
}

// Recent returns the most recent runs, newest first.
func (r *Repository) Recent(limit int) ([]entities.ImportHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entities.ImportHistory
	err := r.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	if runs == nil {
		runs = []entities.ImportHistory{}
	}
	return runs, err
}
