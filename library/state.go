package library

import "slices"

// state is the in-memory catalog: both collections keyed by id, plus the
// insertion order of the keys, which is also the order they are saved in.
type state struct {
	books       map[string]*Book
	bookOrder   []string
	members     map[string]*Member
	memberOrder []string
}

func newState() *state {
	return &state{
		books:   make(map[string]*Book),
		members: make(map[string]*Member),
	}
}

func stateFrom(snap Snapshot) *state {
	s := newState()
	for _, b := range snap.Books {
		s.putBook(b)
	}
	for _, m := range snap.Members {
		s.putMember(*m.clone())
	}
	return s
}

func (s *state) putBook(b Book) {
	if _, ok := s.books[b.ISBN]; !ok {
		s.bookOrder = append(s.bookOrder, b.ISBN)
	}
	s.books[b.ISBN] = &b
}

func (s *state) deleteBook(isbn string) {
	delete(s.books, isbn)
	s.bookOrder = slices.DeleteFunc(s.bookOrder, func(id string) bool { return id == isbn })
}

func (s *state) putMember(m Member) {
	if _, ok := s.members[m.ID]; !ok {
		s.memberOrder = append(s.memberOrder, m.ID)
	}
	s.members[m.ID] = &m
}

func (s *state) deleteMember(id string) {
	delete(s.members, id)
	s.memberOrder = slices.DeleteFunc(s.memberOrder, func(v string) bool { return v == id })
}

func (s *state) clone() *state {
	return stateFrom(s.snapshot())
}

func (s *state) snapshot() Snapshot {
	snap := Snapshot{
		Books:   make([]Book, 0, len(s.bookOrder)),
		Members: make([]Member, 0, len(s.memberOrder)),
	}
	for _, id := range s.bookOrder {
		snap.Books = append(snap.Books, *s.books[id])
	}
	for _, id := range s.memberOrder {
		snap.Members = append(snap.Members, *s.members[id].clone())
	}
	return snap
}
