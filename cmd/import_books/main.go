package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"library-ledger/config"
	"library-ledger/library"

	"github.com/spf13/cobra"
)

// Columns of the import file. A header row is recognised and skipped.
const (
	colISBN = iota
	colTitle
	colAuthor
	colYear
	colGenre
	numColumns
)

func main() {
	var file string
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Add or update catalog books from a CSV file (isbn,title,author,year,genre)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run(config.MustLoad(), file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "books.csv", "CSV file to import")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	var store library.Store
	switch cfg.Storage.Kind {
	case "sqlite":
		db, err := library.NewDatabase(cfg.Storage.DBPath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		store = db
	default:
		store = library.NewFileStore(cfg.Storage.BooksPath(), cfg.Storage.MembersPath())
	}

	catalog := library.NewCatalog(store, library.NewTransactionLog(cfg.Storage.HistoryPath()))
	if err := catalog.Load(); err != nil {
		return err
	}

	books, errorCount, err := readBooks(path)
	if err != nil {
		return err
	}

	fmt.Printf("Importing books from %s...\n", path)
	added, updated := 0, 0
	for _, b := range books {
		if _, err := catalog.Book(b.ISBN); err == nil {
			updated++
		} else {
			added++
		}
		catalog.AddBook(b)
	}
	if err := catalog.Save(); err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Added: %d books\n", added)
	fmt.Printf("Updated: %d books\n", updated)
	fmt.Printf("Errors: %d\n", errorCount)
	return nil
}

// readBooks parses the import file. Rows that cannot be used are reported
// and counted, not fatal.
func readBooks(path string) ([]library.Book, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		books      []library.Book
		errorCount int
	)
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("unreadable row", slog.Int("line", line), slog.String("err", err.Error()))
			errorCount++
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "isbn") {
			continue
		}

		b, err := parseBook(row)
		if err != nil {
			fmt.Printf("Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		books = append(books, b)
	}
	return books, errorCount, nil
}

func parseBook(row []string) (library.Book, error) {
	if len(row) != numColumns {
		return library.Book{}, fmt.Errorf("want %d columns, got %d", numColumns, len(row))
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	if row[colISBN] == "" || row[colTitle] == "" {
		return library.Book{}, fmt.Errorf("isbn and title are required")
	}

	var year int
	if row[colYear] != "" {
		y, err := strconv.Atoi(row[colYear])
		if err != nil {
			return library.Book{}, fmt.Errorf("invalid year %q", row[colYear])
		}
		year = y
	}

	return library.Book{
		ISBN:   row[colISBN],
		Title:  row[colTitle],
		Author: row[colAuthor],
		Year:   year,
		Genre:  row[colGenre],
	}, nil
}
