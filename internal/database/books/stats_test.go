package books

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/entities"
)

func TestComputeStats(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	thisYear := time.Date(time.Now().Year(), time.March, 15, 0, 0, 0, 0, time.UTC)
	lastYear := thisYear.AddDate(-1, 0, 0)

	finishedNow := seed(t, repo, seedBook{title: "Finished This Year", author: "A", rating: 5})
	_, err := repo.SetReadingStatus(finishedNow.ID, ReadingInput{
		Status:       entities.StatusRead,
		DateFinished: &thisYear,
	})
	require.NoError(t, err)

	finishedBefore := seed(t, repo, seedBook{title: "Finished Last Year", author: "A", rating: 5})
	_, err = repo.SetReadingStatus(finishedBefore.ID, ReadingInput{
		Status:       entities.StatusRead,
		DateFinished: &lastYear,
	})
	require.NoError(t, err)

	seed(t, repo, seedBook{title: "In Progress", author: "A", status: entities.StatusCurrentlyReading, rating: 3})
	seed(t, repo, seedBook{title: "Queued", author: "A", status: entities.StatusToRead})
	seed(t, repo, seedBook{title: "Untracked", author: "A"})

	stats, err := repo.ComputeStats()

	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalBooks)
	assert.Equal(t, int64(2), stats.ReadCount)
	assert.Equal(t, int64(1), stats.CurrentlyReadingCount)
	assert.Equal(t, int64(1), stats.ReadThisYear)
	assert.Equal(t, map[int]int64{3: 1, 5: 2}, stats.RatingDistribution)
	assert.Len(t, stats.RecentlyAdded, 5)
	assert.Equal(t, map[string]int64{
		thisYear.Format("2006-01"): 1,
		lastYear.Format("2006-01"): 1,
	}, stats.BooksPerMonth)
}

func TestComputeStats_RecentlyAdded(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	for i := 1; i <= 12; i++ {
		seed(t, repo, seedBook{
			title:  fmt.Sprintf("Book %02d", i),
			author: "A",
			added:  fmt.Sprintf("2026-01-%02d", i),
		})
	}

	stats, err := repo.ComputeStats()

	require.NoError(t, err)
	require.Len(t, stats.RecentlyAdded, 10)
	assert.Equal(t, "Book 12", stats.RecentlyAdded[0].Title)
	assert.Equal(t, "Book 03", stats.RecentlyAdded[9].Title)
}

func TestComputeStats_EmptyLibrary(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	stats, err := repo.ComputeStats()

	require.NoError(t, err)
	assert.Zero(t, stats.TotalBooks)
	assert.Zero(t, stats.ReadCount)
	assert.Zero(t, stats.ReadThisYear)
	assert.Empty(t, stats.RatingDistribution)
	assert.NotNil(t, stats.RecentlyAdded)
	assert.Empty(t, stats.RecentlyAdded)
	assert.Empty(t, stats.BooksPerMonth)
}
