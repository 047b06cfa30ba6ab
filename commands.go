package main

import (
	"fmt"
	"strings"

	"library-ledger/library"
	"library-ledger/stats"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func registerCommands(root *cobra.Command) {
	root.AddCommand(newBookCmd(), newMemberCmd(), newBorrowCmd(), newReturnCmd(), newStatsCmd(), newCheckCmd())
}

// ------------------ Books ------------------

func newBookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Add, edit, remove and list books"}

	var b library.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book, or replace the details of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := catalog.Book(b.ISBN)
			exists := err == nil

			catalog.AddBook(b)
			if err := catalog.Save(); err != nil {
				return err
			}
			if exists {
				fmt.Printf("Book %s updated.\n", b.ISBN)
			} else {
				fmt.Printf("Book %s added.\n", b.ISBN)
			}
			return nil
		},
	}
	bookFlags(add, &b)

	var e library.Book
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit the title, author, year and genre of a book",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			d := library.BookDetails{Title: e.Title, Author: e.Author, Year: e.Year, Genre: e.Genre}
			if err := catalog.UpdateBook(e.ISBN, d); err != nil {
				return err
			}
			if err := catalog.Save(); err != nil {
				return err
			}
			fmt.Printf("Book %s updated.\n", e.ISBN)
			return nil
		},
	}
	bookFlags(edit, &e)

	remove := &cobra.Command{
		Use:   "remove <isbn>",
		Short: "Remove a book, taking it out of every member's loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := catalog.DeleteBook(args[0]); err != nil {
				return err
			}
			fmt.Printf("Book %s removed.\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			printBooks(catalog.Books())
			return nil
		},
	}

	cmd.AddCommand(add, edit, remove, list)
	return cmd
}

func bookFlags(cmd *cobra.Command, b *library.Book) {
	cmd.Flags().StringVar(&b.ISBN, "isbn", "", "book ISBN")
	cmd.Flags().StringVar(&b.Title, "title", "", "title")
	cmd.Flags().StringVar(&b.Author, "author", "", "author")
	cmd.Flags().IntVar(&b.Year, "year", 0, "publication year")
	cmd.Flags().StringVar(&b.Genre, "genre", "", "genre")
	for _, name := range []string{"isbn", "title", "author", "year", "genre"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// ------------------ Members ------------------

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Register, remove and list members"}

	var id, name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("name cannot be empty")
			}
			if id == "" {
				id = uuid.NewString()
			}
			catalog.RegisterMember(library.Member{ID: id, Name: name})
			if err := catalog.Save(); err != nil {
				return err
			}
			fmt.Printf("Added member '%s' with ID %s\n", name, id)
			return nil
		},
	}
	add.Flags().StringVar(&id, "id", "", "member ID (generated when empty)")
	add.Flags().StringVar(&name, "name", "", "member name")
	_ = add.MarkFlagRequired("name")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a member and make their books available",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := catalog.DeleteMember(args[0]); err != nil {
				return err
			}
			fmt.Printf("Member %s removed, their books are available again.\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the members and their loans",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			printMembers(catalog.Members())
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

// ------------------ Circulation ------------------

func newBorrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <isbn> <member-id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := catalog.Borrow(args[0], args[1]); err != nil {
				return err
			}
			if err := catalog.Save(); err != nil {
				return err
			}
			fmt.Printf("Book %s borrowed by member %s.\n", args[0], args[1])
			return nil
		},
	}
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <isbn> <member-id>",
		Short: "Take a book back from a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := catalog.Return(args[0], args[1]); err != nil {
				return err
			}
			if err := catalog.Save(); err != nil {
				return err
			}
			fmt.Printf("Book %s returned by member %s.\n", args[0], args[1])
			return nil
		},
	}
}

// ------------------ Statistics ------------------

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stats", Short: "Usage statistics from the saved catalog and history"}

	genres := &cobra.Command{
		Use:   "genres",
		Short: "Share of books per genre",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			chart, err := stats.NewAggregator(store, history).GenreDistribution()
			if err != nil {
				return err
			}
			printPie(chart)
			return nil
		},
	}

	authors := &cobra.Command{
		Use:   "authors",
		Short: "The ten authors with the most books",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			chart, err := stats.NewAggregator(store, history).TopAuthors()
			if err != nil {
				return err
			}
			printBars(chart)
			return nil
		},
	}

	activity := &cobra.Command{
		Use:   "activity",
		Short: "Borrows per day over the last 30 days",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			chart, err := stats.NewAggregator(store, history).BorrowingActivity()
			if err != nil {
				return err
			}
			printLine(chart)
			return nil
		},
	}

	cmd.AddCommand(genres, authors, activity)
	return cmd
}

// ------------------ Maintenance ------------------

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that book statuses and member loans agree",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := catalog.Check(); err != nil {
				return err
			}
			fmt.Println("Catalog is consistent.")
			return nil
		},
	}
}
