package library

import (
	"slices"
	"time"
)

// MaxLoans is the number of books a member may hold at the same time.
const MaxLoans = 3

// Status is the availability of a book. The values are the ones written to
// the book store.
type Status string

const (
	StatusAvailable Status = "disponible"
	StatusBorrowed  Status = "emprunté"
)

// Action is the kind of a transaction log entry.
type Action string

const (
	ActionBorrow Action = "emprunt"
	ActionReturn Action = "retour"
)

// Book represents one catalog item. ISBN is the catalog key and never changes
// once the book exists.
type Book struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
	Status Status `json:"status"`
}

// BookDetails holds the editable attributes of a book.
type BookDetails struct {
	Title  string
	Author string
	Year   int
	Genre  string
}

// Available reports whether the book can be borrowed.
func (b Book) Available() bool { return b.Status == StatusAvailable }

// Member represents a registered borrower. Borrowed keeps the ISBNs in the
// order they were borrowed.
type Member struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Borrowed []string `json:"borrowed"`
}

// Holds reports whether the member currently has the book.
func (m Member) Holds(isbn string) bool { return slices.Contains(m.Borrowed, isbn) }

func (m Member) clone() *Member {
	m.Borrowed = slices.Clone(m.Borrowed)
	if m.Borrowed == nil {
		m.Borrowed = []string{}
	}
	return &m
}

// Transaction is one immutable entry of the transaction log.
type Transaction struct {
	Time     time.Time
	ISBN     string
	MemberID string
	Action   Action
}

// Snapshot is the full persisted state of the catalog, in catalog order.
type Snapshot struct {
	Books   []Book
	Members []Member
}
