package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"library-ledger/config"
	"library-ledger/library"
	"library-ledger/stats"

	"github.com/spf13/cobra"
)

// backend is a catalog store the statistics can also read books from.
type backend interface {
	library.Store
	stats.BookSource
}

var (
	cfg        *config.Config
	store      backend
	closeStore = func() error { return nil }
	history    *library.TransactionLog
	catalog    *library.Catalog
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "library",
		Short: "Manage a small library's catalog, members and loans",
		Long: `library keeps the book catalog, the registered members and the
borrow/return ledger on disk, and reports simple usage statistics.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	registerCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		_ = closeStore()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var de *library.DomainError
		if errors.As(err, &de) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// setup loads the configuration, opens the stores and restores the catalog.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}
	setupLogger(cfg)
	slog.Debug("config", slog.Any("cfg", cfg))

	store, closeStore, err = openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	history = library.NewTransactionLog(cfg.Storage.HistoryPath())
	catalog = library.NewCatalog(store, history)
	return catalog.Load()
}

func teardown(*cobra.Command, []string) error {
	err := closeStore()
	closeStore = func() error { return nil }
	return err
}

func openStore(s config.Storage) (backend, func() error, error) {
	switch s.Kind {
	case "sqlite":
		db, err := library.NewDatabase(s.DBPath())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return library.NewFileStore(s.BooksPath(), s.MembersPath()), func() error { return nil }, nil
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
