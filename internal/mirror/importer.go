package mirror

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/categories"
	"github.com/shelfmark/shelfmark/internal/database/importhistory"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
)

// Importer reads mirror documents back into the database. All mutation
// goes through the repository surface, so imported data is validated
// the same way manual entry is. Each book is its own transaction; the
// importer never holds a lock across files.
type Importer struct {
	books      *books.Repository
	categories *categories.Repository
	history    *importhistory.Repository
	dir        string
}

// NewImporter creates an importer reading from dir.
func NewImporter(booksRepo *books.Repository, categoriesRepo *categories.Repository, historyRepo *importhistory.Repository, dir string) *Importer {
	return &Importer{
		books:      booksRepo,
		categories: categoriesRepo,
		history:    historyRepo,
		dir:        dir,
	}
}

// ImportResult summarizes one import run.
type ImportResult struct {
	BooksImported int      `json:"books_imported"`
	BooksSkipped  int      `json:"books_skipped"`
	BooksFailed   int      `json:"books_failed"`
	Errors        []string `json:"errors,omitempty"`
}

// Outcome reports what happened to a single file.
type Outcome int

const (
	OutcomeImported Outcome = iota
	OutcomeSkipped
)

// ImportAll imports every mirror document in the directory and records
// the run in the import history.
func (imp *Importer) ImportAll() (ImportResult, error) {
	var result ImportResult
	startedAt := time.Now().UTC()

	files, err := filepath.Glob(filepath.Join(imp.dir, "*.md"))
	if err != nil {
		return result, fmt.Errorf("failed to list mirror documents: %w", err)
	}

	for _, file := range files {
		outcome, err := imp.ImportFile(file)
		switch {
		case err != nil:
			log.Printf("Mirror import: failed to import %s: %v", file, err)
			result.BooksFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(file), err))
		case outcome == OutcomeSkipped:
			result.BooksSkipped++
		default:
			result.BooksImported++
		}
	}

	imp.recordRun(startedAt, result)
	return result, nil
}

// ImportFile parses one mirror document and upserts the book it
// describes, matching by isbn13 first and title+author second.
// Unchanged files (same content hash as the last sync) are skipped.
func (imp *Importer) ImportFile(path string) (Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return OutcomeSkipped, err
	}

	// Hash the canonical rendering so formatting-only differences in
	// hand-edited files do not force re-imports.
	canonical, err := Render(doc)
	if err != nil {
		return OutcomeSkipped, err
	}
	hash := Hash(canonical)

	existing, err := imp.findExisting(doc)
	if err != nil {
		return OutcomeSkipped, err
	}
	if existing != nil && existing.SyncHash == hash {
		return OutcomeSkipped, nil
	}

	var book *entities.Book
	if existing == nil {
		if book, err = imp.books.CreateBook(doc.BookInput()); err != nil {
			return OutcomeSkipped, err
		}
	} else {
		if book, err = imp.books.UpdateBook(existing.ID, doc.UpdateInput()); err != nil {
			return OutcomeSkipped, err
		}
	}

	reading, err := doc.ReadingInput()
	if err != nil {
		return OutcomeSkipped, err
	}
	if reading != nil {
		if _, err := imp.books.SetReadingStatus(book.ID, *reading); err != nil {
			return OutcomeSkipped, err
		}
	}

	if review := doc.ReviewInput(); review != nil {
		if _, err := imp.books.SetReview(book.ID, *review); err != nil {
			return OutcomeSkipped, err
		}
	}

	if err := imp.syncShelves(book, doc.Frontmatter.Shelves); err != nil {
		return OutcomeSkipped, err
	}

	if err := imp.books.UpdateSyncState(book.ID, hash); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeImported, nil
}

func (imp *Importer) findExisting(doc *Document) (*entities.Book, error) {
	if doc.Frontmatter.ISBN13 != "" {
		book, err := imp.books.GetBookByISBN13(doc.Frontmatter.ISBN13)
		if err == nil {
			return book, nil
		}
		if !errs.IsNotFound(err) {
			return nil, err
		}
	}

	book, err := imp.books.GetBookByTitleAndAuthor(doc.Frontmatter.Title, doc.Frontmatter.Author)
	if err == nil {
		return book, nil
	}
	if errs.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// syncShelves makes the book's category links match the document's
// shelf list, creating categories as needed.
func (imp *Importer) syncShelves(book *entities.Book, shelves []string) error {
	desired := make(map[string]bool, len(shelves))
	for _, name := range shelves {
		if strings.TrimSpace(name) != "" {
			desired[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}

	current, err := imp.books.GetBook(book.ID)
	if err != nil {
		return err
	}

	linked := make(map[string]bool, len(current.Categories))
	for _, category := range current.Categories {
		key := strings.ToLower(category.Name)
		linked[key] = true
		if !desired[key] {
			if err := imp.categories.UnlinkBook(book.ID, category.ID); err != nil {
				return err
			}
		}
	}

	for _, name := range shelves {
		name = strings.TrimSpace(name)
		if name == "" || linked[strings.ToLower(name)] {
			continue
		}
		category, err := imp.categories.GetOrCreateCategory(name)
		if err != nil {
			return err
		}
		if err := imp.categories.LinkBook(book.ID, category.ID); err != nil && !errs.IsConflict(err) {
			return err
		}
	}

	return nil
}

func (imp *Importer) recordRun(startedAt time.Time, result ImportResult) {
	if imp.history == nil {
		return
	}

	status := entities.ImportRunSuccess
	if result.BooksFailed > 0 {
		status = entities.ImportRunPartial
		if result.BooksImported == 0 && result.BooksSkipped == 0 {
			status = entities.ImportRunFailed
		}
	}

	completedAt := time.Now().UTC()
	run := &entities.ImportHistory{
		Source:        imp.dir,
		BooksImported: result.BooksImported,
		BooksSkipped:  result.BooksSkipped,
		BooksFailed:   result.BooksFailed,
		Status:        status,
		ErrorLog:      strings.Join(result.Errors, "\n"),
		StartedAt:     startedAt,
		CompletedAt:   &completedAt,
	}
	if err := imp.history.Record(run); err != nil {
		log.Printf("Mirror import: failed to record import history: %v", err)
	}
}
