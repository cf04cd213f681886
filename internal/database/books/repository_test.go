package books

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
)

func setupTestRepo(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.ReadingRecord{},
		&entities.Review{},
		&entities.Category{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func intPtr(n int) *int { return &n }

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}

func TestRepository_CreateBook(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	book, err := repo.CreateBook(CreateBookInput{
		Title:  "  Dune  ",
		Author: "Frank Herbert",
		ISBN13: "9780441172719",
		Pages:  intPtr(412),
	})

	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, "9780441172719", book.ISBN13)
	assert.False(t, book.DateAdded.IsZero())
	assert.Nil(t, book.ReadingRecord)
	assert.Nil(t, book.Review)
}

func TestRepository_CreateBook_ValidationCollectsAllFields(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.CreateBook(CreateBookInput{
		Title:  "   ",
		Author: "",
		ISBN13: "123",
	})

	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "author", "isbn13"}, names)
}

func TestRepository_CreateBook_RejectsNonNumericISBN(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.CreateBook(CreateBookInput{
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN13: "978044117271X",
	})

	assert.True(t, errs.IsValidation(err))
}

func TestRepository_GetBook_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.GetBook(99)

	assert.True(t, errs.IsNotFound(err))
}

func TestRepository_GetBookByISBN13(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateBook(CreateBookInput{
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN13: "9780441172719",
	})
	require.NoError(t, err)

	found, err := repo.GetBookByISBN13("9780441172719")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.GetBookByISBN13("9999999999999")
	assert.True(t, errs.IsNotFound(err))
}

func TestRepository_UpdateBook_PartialUpdateKeepsOtherFields(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateBook(CreateBookInput{
		Title:     "Dune",
		Author:    "Frank Herbert",
		Publisher: "Chilton Books",
	})
	require.NoError(t, err)

	pages := 412
	updated, err := repo.UpdateBook(created.ID, UpdateBookInput{Pages: &pages})

	require.NoError(t, err)
	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "Chilton Books", updated.Publisher)
	require.NotNil(t, updated.Pages)
	assert.Equal(t, 412, *updated.Pages)
}

func TestRepository_UpdateBook_RejectsEmptyTitle(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateBook(CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	empty := "   "
	_, err = repo.UpdateBook(created.ID, UpdateBookInput{Title: &empty})

	assert.True(t, errs.IsValidation(err))
}

func TestRepository_UpdateBook_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	title := "Renamed"
	_, err := repo.UpdateBook(42, UpdateBookInput{Title: &title})

	assert.True(t, errs.IsNotFound(err))
}

func TestRepository_DeleteBook_RemovesDependents(t *testing.T) {
	repo, db, cleanup := setupTestRepo(t)
	defer cleanup()

	book, err := repo.CreateBook(CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	_, err = repo.SetReadingStatus(book.ID, ReadingInput{Status: entities.StatusRead})
	require.NoError(t, err)
	_, err = repo.SetReview(book.ID, ReviewInput{Rating: intPtr(5)})
	require.NoError(t, err)

	category := entities.Category{Name: "Sci-Fi", Color: "#f94144"}
	require.NoError(t, db.Create(&category).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO book_categories (book_id, category_id) VALUES (?, ?)", book.ID, category.ID,
	).Error)

	require.NoError(t, repo.DeleteBook(book.ID))

	_, err = repo.GetBook(book.ID)
	assert.True(t, errs.IsNotFound(err))

	var records, reviews, links, cats int64
	db.Model(&entities.ReadingRecord{}).Where("book_id = ?", book.ID).Count(&records)
	db.Model(&entities.Review{}).Where("book_id = ?", book.ID).Count(&reviews)
	db.Raw("SELECT COUNT(*) FROM book_categories WHERE book_id = ?", book.ID).Scan(&links)
	db.Model(&entities.Category{}).Count(&cats)

	assert.Zero(t, records)
	assert.Zero(t, reviews)
	assert.Zero(t, links)
	// The category itself survives its last book.
	assert.Equal(t, int64(1), cats)
}

func TestRepository_DeleteBook_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	err := repo.DeleteBook(7)

	assert.True(t, errs.IsNotFound(err))
}

func TestRepository_SetReadingStatus(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	book, err := repo.CreateBook(CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	t.Run("creates record with default read count", func(t *testing.T) {
		record, err := repo.SetReadingStatus(book.ID, ReadingInput{
			Status:      entities.StatusCurrentlyReading,
			DateStarted: datePtr(t, "2026-01-10"),
		})

		require.NoError(t, err)
		assert.Equal(t, entities.StatusCurrentlyReading, record.Status)
		assert.Equal(t, 1, record.ReadCount)
	})

	t.Run("replaces the existing record", func(t *testing.T) {
		record, err := repo.SetReadingStatus(book.ID, ReadingInput{
			Status:       entities.StatusRead,
			DateStarted:  datePtr(t, "2026-01-10"),
			DateFinished: datePtr(t, "2026-02-01"),
			ReadCount:    intPtr(2),
		})

		require.NoError(t, err)
		assert.Equal(t, entities.StatusRead, record.Status)
		assert.Equal(t, 2, record.ReadCount)

		loaded, err := repo.GetBook(book.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.ReadingRecord)
		assert.Equal(t, record.ID, loaded.ReadingRecord.ID)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := repo.SetReadingStatus(book.ID, ReadingInput{Status: "abandoned"})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("rejects finish date before start date", func(t *testing.T) {
		_, err := repo.SetReadingStatus(book.ID, ReadingInput{
			Status:       entities.StatusRead,
			DateStarted:  datePtr(t, "2026-02-01"),
			DateFinished: datePtr(t, "2026-01-10"),
		})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("rejects read count below one", func(t *testing.T) {
		_, err := repo.SetReadingStatus(book.ID, ReadingInput{
			Status:    entities.StatusRead,
			ReadCount: intPtr(0),
		})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := repo.SetReadingStatus(404, ReadingInput{Status: entities.StatusRead})
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestRepository_SetReview(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	book, err := repo.CreateBook(CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	t.Run("creates and replaces", func(t *testing.T) {
		review, err := repo.SetReview(book.ID, ReviewInput{
			Rating:     intPtr(4),
			ReviewText: "A classic.",
			IsSpoiler:  true,
		})
		require.NoError(t, err)
		require.NotNil(t, review.Rating)
		assert.Equal(t, 4, *review.Rating)
		assert.True(t, review.IsSpoiler)

		review, err = repo.SetReview(book.ID, ReviewInput{
			Rating:       intPtr(5),
			ReviewText:   "On reread, even better.",
			PrivateNotes: "Lent my copy to Sam.",
		})
		require.NoError(t, err)
		assert.Equal(t, 5, *review.Rating)
		assert.Equal(t, "Lent my copy to Sam.", review.PrivateNotes)
		assert.False(t, review.IsSpoiler)
	})

	t.Run("ratings outside one to five are rejected", func(t *testing.T) {
		_, err := repo.SetReview(book.ID, ReviewInput{Rating: intPtr(0)})
		assert.True(t, errs.IsValidation(err))

		_, err = repo.SetReview(book.ID, ReviewInput{Rating: intPtr(6)})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("nil rating means text-only review", func(t *testing.T) {
		review, err := repo.SetReview(book.ID, ReviewInput{ReviewText: "No rating yet."})
		require.NoError(t, err)
		assert.Nil(t, review.Rating)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := repo.SetReview(404, ReviewInput{Rating: intPtr(3)})
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestRepository_UpdateSyncState(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	book, err := repo.CreateBook(CreateBookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSyncState(book.ID, "a1b2c3d4e5f60718"))

	var loaded entities.Book
	require.NoError(t, repo.db.First(&loaded, book.ID).Error)
	assert.Equal(t, "a1b2c3d4e5f60718", loaded.SyncHash)
	assert.NotNil(t, loaded.LastSyncedAt)

	err = repo.UpdateSyncState(404, "deadbeefdeadbeef")
	assert.True(t, errs.IsNotFound(err))
}

func TestRepository_GetAllBooks_OrderedByTitle(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	for _, title := range []string{"zen and motorcycles", "Dune", "antifragile"} {
		_, err := repo.CreateBook(CreateBookInput{Title: title, Author: "Someone"})
		require.NoError(t, err)
	}

	all, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "antifragile", all[0].Title)
	assert.Equal(t, "Dune", all[1].Title)
	assert.Equal(t, "zen and motorcycles", all[2].Title)
}
