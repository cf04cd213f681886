package cli

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/categories"
	"github.com/shelfmark/shelfmark/internal/database/importhistory"
	"github.com/shelfmark/shelfmark/internal/mirror"
)

type ImportMirrorCommand struct {
	Directory    string
	DatabasePath string
}

func NewImportMirrorCommand() *ImportMirrorCommand {
	return &ImportMirrorCommand{}
}

func (cmd *ImportMirrorCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-mirror", flag.ExitOnError)

	fs.StringVar(&cmd.Directory, "dir", config.DefaultMirrorDir, "Directory to read mirror documents from")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-mirror [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Read every mirror document from a directory and apply it to the library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-mirror\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-mirror -dir ./library -db ./shelfmark.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(cmd.Directory); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", cmd.Directory)
	}
	return nil
}

func (cmd *ImportMirrorCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	importer := mirror.NewImporter(
		books.NewRepository(db.DB),
		categories.NewRepository(db.DB),
		importhistory.NewRepository(db.DB),
		cmd.Directory,
	)
	result, err := importer.ImportAll()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Books imported: %d\n", result.BooksImported)
	fmt.Printf("Books skipped (unchanged): %d\n", result.BooksSkipped)
	if result.BooksFailed > 0 {
		fmt.Printf("Books failed: %d\n", result.BooksFailed)
		for _, msg := range result.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}
	return nil
}
