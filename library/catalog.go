package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Store persists and restores the whole catalog.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Recorder appends entries to the transaction log.
type Recorder interface {
	Append(Transaction) error
}

// Catalog owns books and members and enforces the lending rules. It is the
// only writer of the persisted state.
type Catalog struct {
	store   Store
	history Recorder
	now     func() time.Time
	log     *slog.Logger

	st *state
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithLogger sets the logger used by the catalog.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// NewCatalog returns an empty catalog persisted to store. Call Load to
// restore the saved state.
func NewCatalog(store Store, history Recorder, opts ...Option) *Catalog {
	c := &Catalog{
		store:   store,
		history: history,
		now:     time.Now,
		log:     slog.Default(),
		st:      newState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ------------------ Books ------------------

// AddBook inserts the book, replacing any book with the same ISBN. The
// availability status belongs to the ledger: a new book starts available and
// a replaced book keeps the status it had.
func (c *Catalog) AddBook(b Book) {
	b.Status = StatusAvailable
	if old, ok := c.st.books[b.ISBN]; ok {
		b.Status = old.Status
	}
	c.st.putBook(b)
}

// UpdateBook edits the descriptive fields of an existing book.
func (c *Catalog) UpdateBook(isbn string, d BookDetails) error {
	b, ok := c.st.books[isbn]
	if !ok {
		return newError(KindBookNotFound, "book %s does not exist", isbn)
	}
	b.Title, b.Author, b.Year, b.Genre = d.Title, d.Author, d.Year, d.Genre
	return nil
}

// RemoveBook deletes the book without touching the members holding it.
// DeleteBook is the cascading variant.
func (c *Catalog) RemoveBook(isbn string) error {
	if _, ok := c.st.books[isbn]; !ok {
		return newError(KindBookNotFound, "book %s does not exist", isbn)
	}
	c.st.deleteBook(isbn)
	return nil
}

// DeleteBook removes the book from every member's loans, deletes it and
// saves the result. The in-memory catalog only changes if the save succeeds.
func (c *Catalog) DeleteBook(isbn string) error {
	if _, ok := c.st.books[isbn]; !ok {
		return newError(KindBookNotFound, "book %s does not exist", isbn)
	}

	next := c.st.clone()
	for _, id := range next.memberOrder {
		m := next.members[id]
		m.Borrowed = slices.DeleteFunc(m.Borrowed, func(v string) bool { return v == isbn })
	}
	next.deleteBook(isbn)

	if err := c.commit(next); err != nil {
		return err
	}
	c.log.Info("book deleted", slog.String("isbn", isbn))
	return nil
}

// Book returns a copy of the book with the given ISBN.
func (c *Catalog) Book(isbn string) (Book, error) {
	b, ok := c.st.books[isbn]
	if !ok {
		return Book{}, newError(KindBookNotFound, "book %s does not exist", isbn)
	}
	return *b, nil
}

// Books returns the catalog in insertion order.
func (c *Catalog) Books() []Book { return c.st.snapshot().Books }

// ------------------ Members ------------------

// RegisterMember inserts the member. Registering an existing id renames the
// member and keeps its loans; a new member starts with no loans.
func (c *Catalog) RegisterMember(m Member) {
	m.Borrowed = []string{}
	if old, ok := c.st.members[m.ID]; ok {
		m.Borrowed = old.Borrowed
	}
	c.st.putMember(m)
}

// DeleteMember makes every book the member holds available again, removes
// the member and saves the result.
func (c *Catalog) DeleteMember(id string) error {
	if _, ok := c.st.members[id]; !ok {
		return newError(KindMemberNotFound, "member %s does not exist", id)
	}

	next := c.st.clone()
	for _, isbn := range next.members[id].Borrowed {
		if b, ok := next.books[isbn]; ok {
			b.Status = StatusAvailable
		}
	}
	next.deleteMember(id)

	if err := c.commit(next); err != nil {
		return err
	}
	c.log.Info("member deleted", slog.String("member", id))
	return nil
}

// Member returns a copy of the member with the given id.
func (c *Catalog) Member(id string) (Member, error) {
	m, ok := c.st.members[id]
	if !ok {
		return Member{}, newError(KindMemberNotFound, "member %s does not exist", id)
	}
	return *m.clone(), nil
}

// Members returns the members in registration order.
func (c *Catalog) Members() []Member { return c.st.snapshot().Members }

// ------------------ Circulation ------------------

// Borrow lends the book to the member. Checks run in a fixed order (member,
// book, availability, quota) and nothing changes unless all of them pass.
func (c *Catalog) Borrow(isbn, memberID string) error {
	m, ok := c.st.members[memberID]
	if !ok {
		return newError(KindMemberNotFound, "member %s does not exist", memberID)
	}
	b, ok := c.st.books[isbn]
	if !ok {
		return newError(KindBookNotFound, "book %s does not exist", isbn)
	}
	if !b.Available() {
		return newError(KindBookUnavailable, "book %s is already borrowed", isbn)
	}
	if len(m.Borrowed) >= MaxLoans {
		return newError(KindLoanQuotaExceeded, "member %s already holds %d books", memberID, MaxLoans)
	}

	if err := c.record(isbn, memberID, ActionBorrow); err != nil {
		return err
	}
	b.Status = StatusBorrowed
	m.Borrowed = append(m.Borrowed, isbn)

	c.log.Info("book borrowed", slog.String("isbn", isbn), slog.String("member", memberID))
	return nil
}

// Return takes the book back from the member. An unknown book, an unknown
// member and a book the member does not hold all fail with a book-not-found
// error.
func (c *Catalog) Return(isbn, memberID string) error {
	b, bookOK := c.st.books[isbn]
	m, memberOK := c.st.members[memberID]
	if !bookOK || !memberOK || !m.Holds(isbn) {
		return newError(KindBookNotFound, "book %s is not borrowed by member %s", isbn, memberID)
	}

	if err := c.record(isbn, memberID, ActionReturn); err != nil {
		return err
	}
	b.Status = StatusAvailable
	m.Borrowed = slices.DeleteFunc(m.Borrowed, func(v string) bool { return v == isbn })

	c.log.Info("book returned", slog.String("isbn", isbn), slog.String("member", memberID))
	return nil
}

// record writes the log entry before the state changes, so a failed write
// leaves the catalog untouched.
func (c *Catalog) record(isbn, memberID string, action Action) error {
	tx := Transaction{Time: c.now(), ISBN: isbn, MemberID: memberID, Action: action}
	if err := c.history.Append(tx); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

// ------------------ Persistence ------------------

// Save writes both collections to the store.
func (c *Catalog) Save() error {
	if err := c.store.Save(c.st.snapshot()); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	c.log.Debug("catalog saved", slog.Int("books", len(c.st.bookOrder)), slog.Int("members", len(c.st.memberOrder)))
	return nil
}

// Load replaces the in-memory catalog with the stored one. Missing stores
// yield empty collections.
func (c *Catalog) Load() error {
	snap, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c.st = stateFrom(snap)
	c.log.Debug("catalog loaded", slog.Int("books", len(c.st.bookOrder)), slog.Int("members", len(c.st.memberOrder)))

	if err := c.Check(); err != nil {
		c.log.Warn("loaded catalog is inconsistent", slog.String("err", err.Error()))
	}
	return nil
}

func (c *Catalog) commit(next *state) error {
	if err := c.store.Save(next.snapshot()); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	c.st = next
	return nil
}

// ------------------ Consistency ------------------

// Check verifies that book statuses, member loans and the loan quota agree.
// It returns nil when the catalog is consistent.
func (c *Catalog) Check() error {
	var problems []error
	holders := make(map[string]int)

	for _, id := range c.st.memberOrder {
		m := c.st.members[id]
		if len(m.Borrowed) > MaxLoans {
			problems = append(problems, fmt.Errorf("member %s holds %d books", id, len(m.Borrowed)))
		}
		seen := make(map[string]bool, len(m.Borrowed))
		for _, isbn := range m.Borrowed {
			if seen[isbn] {
				problems = append(problems, fmt.Errorf("member %s holds book %s twice", id, isbn))
				continue
			}
			seen[isbn] = true
			holders[isbn]++
			if _, ok := c.st.books[isbn]; !ok {
				problems = append(problems, fmt.Errorf("member %s holds unknown book %s", id, isbn))
			}
		}
	}

	for _, isbn := range c.st.bookOrder {
		b := c.st.books[isbn]
		switch n := holders[isbn]; {
		case n > 1:
			problems = append(problems, fmt.Errorf("book %s is held by %d members", isbn, n))
		case n == 1 && b.Status != StatusBorrowed:
			problems = append(problems, fmt.Errorf("book %s is held but marked %s", isbn, b.Status))
		case n == 0 && b.Status != StatusAvailable:
			problems = append(problems, fmt.Errorf("book %s is held by nobody but marked %s", isbn, b.Status))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("inconsistent catalog: %w", errors.Join(problems...))
}
