package books

import (
	"time"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Stats holds the dashboard aggregates. Pure read-only aggregation, no
// side effects.
type Stats struct {
	TotalBooks            int64            `json:"total_books"`
	ReadCount             int64            `json:"read"`
	CurrentlyReadingCount int64            `json:"currently_reading"`
	ReadThisYear          int64            `json:"read_this_year"`
	RatingDistribution    map[int]int64    `json:"rating_distribution"`
	RecentlyAdded         []entities.Book  `json:"recently_added"`
	BooksPerMonth         map[string]int64 `json:"books_per_month"`
}

// recentlyAddedLimit caps the dashboard's newest-additions list.
const recentlyAddedLimit = 10

// ComputeStats returns aggregate counts over the whole library.
// "Read this year" counts books with status read whose finished date
// falls inside the current calendar year.
func (r *Repository) ComputeStats() (*Stats, error) {
	stats := &Stats{RatingDistribution: make(map[int]int64)}

	if err := r.db.Model(&entities.Book{}).Count(&stats.TotalBooks).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&entities.ReadingRecord{}).
		Where("status = ?", entities.StatusRead).
		Count(&stats.ReadCount).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&entities.ReadingRecord{}).
		Where("status = ?", entities.StatusCurrentlyReading).
		Count(&stats.CurrentlyReadingCount).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	if err := r.db.Model(&entities.ReadingRecord{}).
		Where("status = ? AND date_finished >= ? AND date_finished < ?",
			entities.StatusRead, yearStart, yearEnd).
		Count(&stats.ReadThisYear).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.Model(&entities.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("rating IS NOT NULL").
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.RatingDistribution[row.Rating] = row.Count
	}

	recent := []entities.Book{}
	if err := r.db.
		Order("date_added DESC, id DESC").
		Limit(recentlyAddedLimit).
		Find(&recent).Error; err != nil {
		return nil, err
	}
	stats.RecentlyAdded = recent

	// Bucketing by finish month happens here rather than in SQL so the
	// keys do not depend on the driver's date formatting functions.
	var finished []time.Time
	if err := r.db.Model(&entities.ReadingRecord{}).
		Where("status = ? AND date_finished IS NOT NULL", entities.StatusRead).
		Pluck("date_finished", &finished).Error; err != nil {
		return nil, err
	}
	stats.BooksPerMonth = make(map[string]int64)
	for _, d := range finished {
		stats.BooksPerMonth[d.Format("2006-01")]++
	}

	return stats, nil
}
