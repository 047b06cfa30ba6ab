package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a Store backed by SQLite. Each Save replaces the whole
// snapshot in one transaction.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            year INTEGER NOT NULL DEFAULT 0,
            genre TEXT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('disponible','emprunté'))
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            isbn TEXT NOT NULL,
            seq INTEGER NOT NULL,
            PRIMARY KEY (member_id, isbn)
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Save replaces every stored book, member and loan with snap.
func (d *Database) Save(snap Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM loans`, `DELETE FROM members`, `DELETE FROM books`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	bookStmt, err := tx.Prepare(`INSERT INTO books(isbn,position,title,author,year,genre,status) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer bookStmt.Close()
	for i, b := range snap.Books {
		if _, err := bookStmt.Exec(b.ISBN, i, b.Title, b.Author, b.Year, b.Genre, string(b.Status)); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ISBN, err)
		}
	}

	memberStmt, err := tx.Prepare(`INSERT INTO members(id,position,name) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer memberStmt.Close()
	loanStmt, err := tx.Prepare(`INSERT INTO loans(member_id,isbn,seq) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer loanStmt.Close()
	for i, m := range snap.Members {
		if _, err := memberStmt.Exec(m.ID, i, m.Name); err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
		for seq, isbn := range m.Borrowed {
			if _, err := loanStmt.Exec(m.ID, isbn, seq); err != nil {
				return fmt.Errorf("insert loan %s/%s: %w", m.ID, isbn, err)
			}
		}
	}

	return tx.Commit()
}

// Load reads the stored snapshot in catalog order.
func (d *Database) Load() (Snapshot, error) {
	books, err := d.LoadBooks()
	if err != nil {
		return Snapshot{}, err
	}

	rows, err := d.db.Query(`SELECT id,name FROM members ORDER BY position`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	var members []Member
	index := make(map[string]int)
	for rows.Next() {
		m := Member{Borrowed: []string{}}
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return Snapshot{}, err
		}
		index[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	loans, err := d.db.Query(`SELECT member_id,isbn FROM loans ORDER BY member_id, seq`)
	if err != nil {
		return Snapshot{}, err
	}
	defer loans.Close()
	for loans.Next() {
		var memberID, isbn string
		if err := loans.Scan(&memberID, &isbn); err != nil {
			return Snapshot{}, err
		}
		if i, ok := index[memberID]; ok {
			members[i].Borrowed = append(members[i].Borrowed, isbn)
		}
	}
	if err := loans.Err(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Books: books, Members: members}, nil
}

// LoadBooks returns the stored books in catalog order.
func (d *Database) LoadBooks() ([]Book, error) {
	rows, err := d.db.Query(`SELECT isbn,title,author,year,genre,status FROM books ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var (
			b      Book
			status string
		)
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Year, &b.Genre, &status); err != nil {
			return nil, err
		}
		b.Status = Status(status)
		books = append(books, b)
	}
	return books, rows.Err()
}
