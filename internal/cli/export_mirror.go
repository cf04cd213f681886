package cli

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/mirror"
)

type ExportMirrorCommand struct {
	Directory    string
	DatabasePath string
}

func NewExportMirrorCommand() *ExportMirrorCommand {
	return &ExportMirrorCommand{}
}

func (cmd *ExportMirrorCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export-mirror", flag.ExitOnError)

	fs.StringVar(&cmd.Directory, "dir", config.DefaultMirrorDir, "Directory to write mirror documents into")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export-mirror [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Write every book in the library out as a plain-text mirror document.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export-mirror\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export-mirror -dir ./library -db ./shelfmark.db\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *ExportMirrorCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	exporter := mirror.NewExporter(books.NewRepository(db.DB), cmd.Directory)
	result, err := exporter.ExportAll()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Books exported: %d\n", result.BooksExported)
	if result.BooksFailed > 0 {
		fmt.Printf("Books failed: %d (check logs above for details)\n", result.BooksFailed)
	}
	return nil
}
