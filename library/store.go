package library

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

// storeJSON writes two-space indented objects, like the files the catalog has
// always produced.
var storeJSON = jsoniter.Config{
	EscapeHTML:             true,
	IndentionStep:          2,
	ValidateJsonRawMessage: true,
}.Froze()

var validate = validator.New(validator.WithRequiredStructEnabled())

// bookRecord is the persisted shape of a Book.
type bookRecord struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"titre"`
	Author string `json:"auteur"`
	Year   year   `json:"annee"`
	Genre  string `json:"genre"`
	Status Status `json:"statut" validate:"required,oneof=disponible emprunté"`
}

// memberRecord is the persisted shape of a Member. The id is the object key.
type memberRecord struct {
	Name     string   `json:"nom"`
	Borrowed []string `json:"livres_empruntes" validate:"max=3,unique"`
}

// bookText is the part of a book record that reports can use when the rest
// of it does not decode.
type bookText struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"titre"`
	Author string `json:"auteur"`
	Genre  string `json:"genre"`
}

// year accepts both a number and a numeric string; older files stored the
// publication year as text.
type year int

func (y *year) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid year %s", data)
	}
	*y = year(n)
	return nil
}

func toBookRecord(b Book) bookRecord {
	return bookRecord{
		ISBN:   b.ISBN,
		Title:  b.Title,
		Author: b.Author,
		Year:   year(b.Year),
		Genre:  b.Genre,
		Status: b.Status,
	}
}

func (r bookRecord) book() Book {
	return Book{
		ISBN:   r.ISBN,
		Title:  r.Title,
		Author: r.Author,
		Year:   int(r.Year),
		Genre:  r.Genre,
		Status: r.Status,
	}
}

// FileStore keeps books and members in two JSON files, each one object keyed
// by id. Keys are written in catalog order and read back in file order.
type FileStore struct {
	booksPath   string
	membersPath string
	log         *slog.Logger
}

// NewFileStore returns a store backed by the two given files. The files are
// created on the first Save.
func NewFileStore(booksPath, membersPath string) *FileStore {
	return &FileStore{booksPath: booksPath, membersPath: membersPath, log: slog.Default()}
}

// Load reads both files. A missing file yields an empty collection.
func (s *FileStore) Load() (Snapshot, error) {
	books, err := s.loadBooks()
	if err != nil {
		return Snapshot{}, err
	}
	members, err := s.loadMembers()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Books: books, Members: members}, nil
}

// LoadBooks reads only the book file, for reporting. It is lenient: a missing
// isbn is taken from the key, other missing fields stay empty and a record
// whose text fields do not decode is skipped. The file itself must still be a
// JSON object.
func (s *FileStore) LoadBooks() ([]Book, error) {
	data, err := readStoreFile(s.booksPath)
	if err != nil || data == nil {
		return nil, err
	}

	var (
		books   []Book
		skipped int
	)
	err = decodeObject(data, func(key string, it *jsoniter.Iterator) error {
		raw := it.SkipAndReturnBytes()
		if it.Error != nil {
			return newError(KindMalformedRecord, "book %s: %v", key, it.Error)
		}
		var rec bookRecord
		if err := storeJSON.Unmarshal(raw, &rec); err != nil {
			var text bookText
			if err := storeJSON.Unmarshal(raw, &text); err != nil {
				skipped++
				return nil
			}
			rec = bookRecord{ISBN: text.ISBN, Title: text.Title, Author: text.Author, Genre: text.Genre}
		}
		if rec.ISBN == "" {
			rec.ISBN = key
		}
		books = append(books, rec.book())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.booksPath, err)
	}
	if skipped > 0 {
		s.log.Debug("skipped unreadable book records", slog.String("path", s.booksPath), slog.Int("records", skipped))
	}
	return books, nil
}

// loadBooks reads the book file for the catalog and rejects any record the
// catalog could not have written.
func (s *FileStore) loadBooks() ([]Book, error) {
	data, err := readStoreFile(s.booksPath)
	if err != nil || data == nil {
		return nil, err
	}

	var books []Book
	err = decodeObject(data, func(key string, it *jsoniter.Iterator) error {
		var rec bookRecord
		it.ReadVal(&rec)
		if it.Error != nil {
			return newError(KindMalformedRecord, "book %s: %v", key, it.Error)
		}
		if err := validate.Struct(rec); err != nil {
			return newError(KindMalformedRecord, "book %s: %v", key, err)
		}
		switch rec.ISBN {
		case "":
			rec.ISBN = key
		case key:
		default:
			return newError(KindMalformedRecord, "book %s: isbn field is %q", key, rec.ISBN)
		}
		books = append(books, rec.book())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.booksPath, err)
	}
	return books, nil
}

func (s *FileStore) loadMembers() ([]Member, error) {
	data, err := readStoreFile(s.membersPath)
	if err != nil || data == nil {
		return nil, err
	}

	var members []Member
	err = decodeObject(data, func(key string, it *jsoniter.Iterator) error {
		var rec memberRecord
		it.ReadVal(&rec)
		if it.Error != nil {
			return newError(KindMalformedRecord, "member %s: %v", key, it.Error)
		}
		if err := validate.Struct(rec); err != nil {
			return newError(KindMalformedRecord, "member %s: %v", key, err)
		}
		borrowed := rec.Borrowed
		if borrowed == nil {
			borrowed = []string{}
		}
		members = append(members, Member{ID: key, Name: rec.Name, Borrowed: borrowed})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.membersPath, err)
	}
	return members, nil
}

// Save rewrites both files.
func (s *FileStore) Save(snap Snapshot) error {
	keys := make([]string, len(snap.Books))
	for i, b := range snap.Books {
		keys[i] = b.ISBN
	}
	data, err := encodeObject(keys, func(i int) any { return toBookRecord(snap.Books[i]) })
	if err != nil {
		return fmt.Errorf("encode books: %w", err)
	}
	if err := writeFileAtomic(s.booksPath, data); err != nil {
		return err
	}

	keys = make([]string, len(snap.Members))
	for i, m := range snap.Members {
		keys[i] = m.ID
	}
	data, err = encodeObject(keys, func(i int) any {
		m := snap.Members[i]
		borrowed := m.Borrowed
		if borrowed == nil {
			borrowed = []string{}
		}
		return memberRecord{Name: m.Name, Borrowed: borrowed}
	})
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	return writeFileAtomic(s.membersPath, data)
}

// readStoreFile returns nil data, and no error, when the file is absent or
// blank.
func readStoreFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

// decodeObject walks the top-level object of data in document order.
func decodeObject(data []byte, fn func(key string, it *jsoniter.Iterator) error) error {
	it := jsoniter.ParseBytes(storeJSON, data)
	var cbErr error
	it.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
		if err := fn(key, it); err != nil {
			cbErr = err
			return false
		}
		return true
	})
	if cbErr != nil {
		return cbErr
	}
	if it.Error != nil {
		return newError(KindMalformedRecord, "invalid json: %v", it.Error)
	}
	return nil
}

func encodeObject(keys []string, value func(i int) any) ([]byte, error) {
	if len(keys) == 0 {
		return []byte("{}\n"), nil
	}

	stream := storeJSON.BorrowStream(nil)
	defer storeJSON.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, k := range keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		stream.WriteVal(value(i))
	}
	stream.WriteObjectEnd()
	stream.WriteRaw("\n")
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// writeFileAtomic replaces path through a temporary file in the same
// directory so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
