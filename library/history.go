package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is the timestamp format written to the transaction log.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TransactionLog is the append-only CSV history of borrows and returns.
// Each row is: timestamp, isbn, member id, action.
type TransactionLog struct {
	path string
	log  *slog.Logger
}

// NewTransactionLog returns a log stored at path.
func NewTransactionLog(path string) *TransactionLog {
	return &TransactionLog{path: path, log: slog.Default()}
}

// Path returns the file backing the log.
func (l *TransactionLog) Path() string { return l.path }

// Append adds one row and closes the file before returning.
func (l *TransactionLog) Append(tx Transaction) (err error) {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transaction log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close transaction log: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	row := []string{tx.Time.Format(TimestampLayout), tx.ISBN, tx.MemberID, string(tx.Action)}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush transaction log: %w", err)
	}
	return nil
}

// Read returns every well-formed entry in log order. Rows with the wrong
// number of fields, an unparseable timestamp or an unknown action are
// skipped. A missing file is an empty log.
func (l *TransactionLog) Read() ([]Transaction, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open transaction log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var (
		txs     []Transaction
		skipped int
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read transaction log: %w", err)
		}

		tx, ok := parseTransaction(row)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	if skipped > 0 {
		l.log.Debug("skipped malformed transaction rows", slog.String("path", l.path), slog.Int("rows", skipped))
	}
	return txs, nil
}

func parseTransaction(row []string) (Transaction, bool) {
	if len(row) != 4 {
		return Transaction{}, false
	}
	ts, ok := ParseTimestamp(row[0])
	if !ok {
		return Transaction{}, false
	}
	action := Action(row[3])
	if action != ActionBorrow && action != ActionReturn {
		return Transaction{}, false
	}
	return Transaction{Time: ts, ISBN: row[1], MemberID: row[2], Action: action}, true
}

// ParseTimestamp reads a log timestamp. Timestamps without a zone are local
// time; RFC 3339 timestamps keep their offset.
func ParseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
