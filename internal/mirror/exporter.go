package mirror

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// Exporter writes every book aggregate to its mirror document under
// the configured directory.
type Exporter struct {
	books *books.Repository
	dir   string
}

// NewExporter creates an exporter writing into dir.
func NewExporter(repo *books.Repository, dir string) *Exporter {
	return &Exporter{books: repo, dir: dir}
}

// ExportResult summarizes one export run.
type ExportResult struct {
	BooksExported int `json:"books_exported"`
	BooksFailed   int `json:"books_failed"`
}

// ExportAll writes a mirror document for every book. Failures on
// individual books are logged and counted, not fatal.
func (e *Exporter) ExportAll() (ExportResult, error) {
	var result ExportResult

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return result, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	all, err := e.books.GetAllBooks()
	if err != nil {
		return result, fmt.Errorf("failed to load books: %w", err)
	}

	for i := range all {
		if err := e.ExportBook(&all[i]); err != nil {
			log.Printf("Mirror export: failed to export %q: %v", all[i].Title, err)
			result.BooksFailed++
			continue
		}
		result.BooksExported++
	}

	return result, nil
}

// ExportBook writes a single book's mirror document atomically (temp
// file plus rename) and records its content hash for change detection.
func (e *Exporter) ExportBook(book *entities.Book) error {
	doc := FromBook(book)
	data, err := Render(doc)
	if err != nil {
		return err
	}

	path := filepath.Join(e.dir, utils.Slugify(book.Title)+".md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}

	return e.books.UpdateSyncState(book.ID, Hash(data))
}
