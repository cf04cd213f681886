// Package mirror implements the plain-text library mirror: one markdown
// document per book, holding a YAML metadata header followed by the
// public review and private notes as free text.
//
// The format round-trips: parsing a document and re-rendering it yields
// byte-equivalent structured fields, with the free-text sections
// preserved verbatim (including embedded blank lines).
package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/errs"
)

const (
	dateLayout = "2006-01-02"

	reviewHeading  = "# Review"
	notesHeading   = "# Private Notes"
	frontmatterSep = "---"
)

// Frontmatter is the structured metadata header of a mirror document.
// Field order here is the field order in the rendered YAML.
type Frontmatter struct {
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	ISBN13        string   `yaml:"isbn13,omitempty"`
	Pages         *int     `yaml:"pages,omitempty"`
	Publisher     string   `yaml:"publisher,omitempty"`
	YearPublished int      `yaml:"year_published,omitempty"`
	Status        string   `yaml:"status,omitempty"`
	DateStarted   string   `yaml:"date_started,omitempty"`
	DateFinished  string   `yaml:"date_finished,omitempty"`
	ReadCount     int      `yaml:"read_count,omitempty"`
	Rating        *int     `yaml:"rating,omitempty"`
	Spoiler       bool     `yaml:"spoiler,omitempty"`
	Shelves       []string `yaml:"shelves,omitempty"`
}

// Document is one parsed mirror file: the metadata header plus the two
// free-text body sections.
type Document struct {
	Frontmatter  Frontmatter
	Review       string
	PrivateNotes string
}

// Render serializes the document to its canonical byte form.
func Render(doc *Document) ([]byte, error) {
	fm, err := yaml.Marshal(&doc.Frontmatter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterSep + "\n")
	b.Write(fm)
	b.WriteString(frontmatterSep + "\n")

	if doc.Review != "" {
		b.WriteString("\n" + reviewHeading + "\n\n")
		b.WriteString(doc.Review)
		b.WriteString("\n")
	}
	if doc.PrivateNotes != "" {
		b.WriteString("\n" + notesHeading + "\n\n")
		b.WriteString(doc.PrivateNotes)
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

// Parse reads a mirror document. The body is split on the two known
// section headings; everything between headings is section text, kept
// verbatim apart from the blank lines framing each section.
func Parse(data []byte) (*Document, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(content, frontmatterSep) {
		return nil, errs.Validation(errs.Field("document", "missing frontmatter header"))
	}

	parts := strings.SplitN(content, frontmatterSep, 3)
	if len(parts) < 3 {
		return nil, errs.Validation(errs.Field("document", "unterminated frontmatter header"))
	}

	doc := &Document{}
	if err := yaml.Unmarshal([]byte(parts[1]), &doc.Frontmatter); err != nil {
		return nil, errs.Validation(errs.Field("document", fmt.Sprintf("invalid frontmatter: %v", err)))
	}

	var reviewLines, notesLines []string
	var current *[]string
	for _, line := range strings.Split(parts[2], "\n") {
		switch strings.TrimRight(line, " \t") {
		case reviewHeading:
			current = &reviewLines
		case notesHeading:
			current = &notesLines
		default:
			if current != nil {
				*current = append(*current, line)
			}
		}
	}
	doc.Review = strings.Trim(strings.Join(reviewLines, "\n"), "\n")
	doc.PrivateNotes = strings.Trim(strings.Join(notesLines, "\n"), "\n")

	return doc, nil
}

// Hash returns the 16-hex-character content hash of rendered document
// bytes, used to detect changed mirror files.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// FromBook projects a book aggregate into its mirror document.
func FromBook(book *entities.Book) *Document {
	doc := &Document{
		Frontmatter: Frontmatter{
			Title:         book.Title,
			Author:        book.Author,
			ISBN13:        book.ISBN13,
			Pages:         book.Pages,
			Publisher:     book.Publisher,
			YearPublished: book.YearPublished,
		},
	}

	if record := book.ReadingRecord; record != nil {
		doc.Frontmatter.Status = string(record.Status)
		if record.DateStarted != nil {
			doc.Frontmatter.DateStarted = record.DateStarted.Format(dateLayout)
		}
		if record.DateFinished != nil {
			doc.Frontmatter.DateFinished = record.DateFinished.Format(dateLayout)
		}
		doc.Frontmatter.ReadCount = record.ReadCount
	}

	if review := book.Review; review != nil {
		doc.Frontmatter.Rating = review.Rating
		doc.Frontmatter.Spoiler = review.IsSpoiler
		doc.Review = review.ReviewText
		doc.PrivateNotes = review.PrivateNotes
	}

	for _, category := range book.Categories {
		doc.Frontmatter.Shelves = append(doc.Frontmatter.Shelves, category.Name)
	}

	return doc
}

// BookInput converts the document's metadata into a create input.
func (d *Document) BookInput() books.CreateBookInput {
	return books.CreateBookInput{
		Title:         d.Frontmatter.Title,
		Author:        d.Frontmatter.Author,
		ISBN13:        d.Frontmatter.ISBN13,
		Pages:         d.Frontmatter.Pages,
		Publisher:     d.Frontmatter.Publisher,
		YearPublished: d.Frontmatter.YearPublished,
	}
}

// UpdateInput converts the document's metadata into a full update of an
// existing book's fields.
func (d *Document) UpdateInput() books.UpdateBookInput {
	fm := d.Frontmatter
	return books.UpdateBookInput{
		Title:         &fm.Title,
		Author:        &fm.Author,
		ISBN13:        &fm.ISBN13,
		Pages:         fm.Pages,
		Publisher:     &fm.Publisher,
		YearPublished: &fm.YearPublished,
	}
}

// ReadingInput converts the header's reading fields, or returns nil
// when the document carries no status.
func (d *Document) ReadingInput() (*books.ReadingInput, error) {
	if d.Frontmatter.Status == "" {
		return nil, nil
	}

	input := &books.ReadingInput{
		Status: entities.ReadingStatus(d.Frontmatter.Status),
	}
	if d.Frontmatter.ReadCount > 0 {
		count := d.Frontmatter.ReadCount
		input.ReadCount = &count
	}

	var err error
	if input.DateStarted, err = parseDate(d.Frontmatter.DateStarted, "date_started"); err != nil {
		return nil, err
	}
	if input.DateFinished, err = parseDate(d.Frontmatter.DateFinished, "date_finished"); err != nil {
		return nil, err
	}
	return input, nil
}

// ReviewInput converts the review fields, or returns nil when the
// document carries no rating, review text, or notes.
func (d *Document) ReviewInput() *books.ReviewInput {
	if d.Frontmatter.Rating == nil && d.Review == "" && d.PrivateNotes == "" {
		return nil
	}
	return &books.ReviewInput{
		Rating:       d.Frontmatter.Rating,
		ReviewText:   d.Review,
		IsSpoiler:    d.Frontmatter.Spoiler,
		PrivateNotes: d.PrivateNotes,
	}
}

func parseDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, errs.Validation(errs.Field(field, "must be a YYYY-MM-DD date"))
	}
	return &t, nil
}
