package entities

import (
	"time"
)

type ReadingStatus string

const (
	StatusToRead           ReadingStatus = "to-read"
	StatusCurrentlyReading ReadingStatus = "currently-reading"
	StatusRead             ReadingStatus = "read"
)

// Valid reports whether the status is one of the known reading states.
// Any status may transition to any other; only date consistency is
// checked at write time.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusToRead, StatusCurrentlyReading, StatusRead:
		return true
	}
	return false
}

type Book struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Title         string        `gorm:"index;size:512" json:"title"`
	Author        string        `gorm:"index;size:256" json:"author"`
	ISBN13        string        `gorm:"column:isbn13;index;size:13" json:"isbn13,omitempty"`
	Pages         *int          `json:"pages,omitempty"`
	Publisher     string        `gorm:"size:256" json:"publisher,omitempty"`
	YearPublished int           `json:"year_published,omitempty"`
	CoverPath     string        `gorm:"size:1024" json:"cover_path,omitempty"`
	DateAdded     time.Time     `gorm:"index" json:"date_added"`

	// Mirror sync bookkeeping
	SyncHash     string     `gorm:"size:16" json:"-"`
	LastSyncedAt *time.Time `json:"-"`

	ReadingRecord *ReadingRecord `gorm:"foreignKey:BookID" json:"reading_record,omitempty"`
	Review        *Review        `gorm:"foreignKey:BookID" json:"review,omitempty"`
	Categories    []Category     `gorm:"many2many:book_categories;" json:"categories,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status returns the current reading status, or empty when the book has
// no reading record yet.
func (b *Book) Status() ReadingStatus {
	if b.ReadingRecord == nil {
		return ""
	}
	return b.ReadingRecord.Status
}

// Rating returns the review rating, or nil when unrated.
func (b *Book) Rating() *int {
	if b.Review == nil {
		return nil
	}
	return b.Review.Rating
}

type ReadingRecord struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	BookID       uint          `gorm:"uniqueIndex" json:"book_id"`
	Status       ReadingStatus `gorm:"size:20;index;default:'to-read'" json:"status"`
	DateStarted  *time.Time    `json:"date_started,omitempty"`
	DateFinished *time.Time    `gorm:"index" json:"date_finished,omitempty"`
	ReadCount    int           `gorm:"default:1" json:"read_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type Review struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	BookID     uint   `gorm:"uniqueIndex" json:"book_id"`
	Rating     *int   `gorm:"index" json:"rating,omitempty"`
	ReviewText string `gorm:"type:text" json:"review_text,omitempty"`
	IsSpoiler  bool   `json:"is_spoiler"`

	// PrivateNotes are only ever surfaced in single-user contexts (the
	// local API and the mirror documents), never in shared exports.
	PrivateNotes string `gorm:"type:text" json:"private_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:100" json:"name"`
	Color     string    `gorm:"size:9" json:"color,omitempty"`
	Books     []Book    `gorm:"many2many:book_categories;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type ImportRunStatus string

const (
	ImportRunSuccess ImportRunStatus = "success"
	ImportRunPartial ImportRunStatus = "partial"
	ImportRunFailed  ImportRunStatus = "failed"
)

// ImportHistory records one mirror import run.
type ImportHistory struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Source        string          `gorm:"size:1024" json:"source"`
	BooksImported int             `json:"books_imported"`
	BooksSkipped  int             `json:"books_skipped"`
	BooksFailed   int             `json:"books_failed"`
	Status        ImportRunStatus `gorm:"size:20;default:'success'" json:"status"`
	ErrorLog      string          `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

func (ReadingRecord) TableName() string {
	return "reading_records"
}

func (Review) TableName() string {
	return "reviews"
}

func (Category) TableName() string {
	return "categories"
}

func (ImportHistory) TableName() string {
	return "import_history"
}
