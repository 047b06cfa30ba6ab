// Package stats derives usage statistics from the persisted catalog and the
// transaction log. It never looks at a live library.Catalog: the figures
// reflect what has been saved.
package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"library-ledger/library"
)

const (
	// Unknown labels books without a genre or an author.
	Unknown = "Unknown"
	// TopAuthorsLimit is the number of bars in the top authors chart.
	TopAuthorsLimit = 10
	// ActivityDays is the length of the borrowing activity window.
	ActivityDays = 30
	// LabelWidth is the maximum length of an author label, ellipsis included.
	LabelWidth = 15
)

// BookSource reads the persisted book collection in storage order. Records
// with missing fields are returned with those fields empty.
type BookSource interface {
	LoadBooks() ([]library.Book, error)
}

// HistorySource reads the transaction log.
type HistorySource interface {
	Read() ([]library.Transaction, error)
}

// Slice is one sector of a pie chart.
type Slice struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// PercentLabel formats the share of the slice with one decimal.
func (s Slice) PercentLabel() string { return fmt.Sprintf("%.1f%%", s.Percent) }

// PieChart describes a proportional chart.
type PieChart struct {
	Title  string  `json:"title"`
	Total  int     `json:"total"`
	Slices []Slice `json:"slices"`
}

// Bar is one column of a bar chart. Label is the display form of Name.
type Bar struct {
	Label string `json:"label"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BarChart describes a ranked bar chart.
type BarChart struct {
	Title  string `json:"title"`
	YLabel string `json:"y_label"`
	Bars   []Bar  `json:"bars"`
}

// Point is the number of borrows on one calendar day.
type Point struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// LineChart describes a daily time series, oldest day first.
type LineChart struct {
	Title  string  `json:"title"`
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
	Points []Point `json:"points"`
}

// Aggregator computes the three charts. It holds no state between calls.
type Aggregator struct {
	books   BookSource
	history HistorySource
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the reference time of the activity window.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an aggregator reading from the given sources.
func NewAggregator(books BookSource, history HistorySource, opts ...Option) *Aggregator {
	a := &Aggregator{books: books, history: history, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenreDistribution counts the persisted books per genre, in the order the
// genres first appear.
func (a *Aggregator) GenreDistribution() (PieChart, error) {
	books, err := a.books.LoadBooks()
	if err != nil {
		return PieChart{}, fmt.Errorf("genre distribution: %w", err)
	}

	chart := PieChart{Title: "Books by genre", Total: len(books), Slices: []Slice{}}
	for _, c := range countBy(books, func(b library.Book) string { return b.Genre }) {
		chart.Slices = append(chart.Slices, Slice{
			Label:   c.key,
			Count:   c.n,
			Percent: 100 * float64(c.n) / float64(len(books)),
		})
	}
	return chart, nil
}

// TopAuthors ranks authors by number of persisted books and keeps the first
// ten. Authors with the same count stay in the order they first appear.
func (a *Aggregator) TopAuthors() (BarChart, error) {
	books, err := a.books.LoadBooks()
	if err != nil {
		return BarChart{}, fmt.Errorf("top authors: %w", err)
	}

	counts := countBy(books, func(b library.Book) string { return b.Author })
	slices.SortStableFunc(counts, func(x, y count) int { return y.n - x.n })
	if len(counts) > TopAuthorsLimit {
		counts = counts[:TopAuthorsLimit]
	}

	chart := BarChart{Title: "Top 10 authors", YLabel: "Books", Bars: []Bar{}}
	for _, c := range counts {
		chart.Bars = append(chart.Bars, Bar{Label: Truncate(c.key, LabelWidth), Name: c.key, Count: c.n})
	}
	return chart, nil
}

// BorrowingActivity counts borrows per day over the last 30 days, today
// included. Days without borrows are present with a zero count.
func (a *Aggregator) BorrowingActivity() (LineChart, error) {
	txs, err := a.history.Read()
	if err != nil {
		return LineChart{}, fmt.Errorf("borrowing activity: %w", err)
	}

	now := a.now()
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(ActivityDays - 1))
	window := time.Duration(ActivityDays) * 24 * time.Hour

	perDay := make(map[string]int)
	for _, tx := range txs {
		if tx.Action != library.ActionBorrow || now.Sub(tx.Time) > window {
			continue
		}
		perDay[tx.Time.In(now.Location()).Format(time.DateOnly)]++
	}

	chart := LineChart{
		Title:  "Borrows over the last 30 days",
		XLabel: "Date",
		YLabel: "Borrows",
		Points: make([]Point, 0, ActivityDays),
	}
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		chart.Points = append(chart.Points, Point{Day: day, Count: perDay[day.Format(time.DateOnly)]})
	}
	return chart, nil
}

// Truncate shortens s to width runes, ending with "..." when it was cut.
func Truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

type count struct {
	key string
	n   int
}

// countBy groups books by their exact key, keeping first-seen order. Blank
// keys count as Unknown.
func countBy(books []library.Book, key func(library.Book) string) []count {
	var counts []count
	index := make(map[string]int)
	for _, b := range books {
		k := key(b)
		if strings.TrimSpace(k) == "" {
			k = Unknown
		}
		i, ok := index[k]
		if !ok {
			i = len(counts)
			index[k] = i
			counts = append(counts, count{key: k})
		}
		counts[i].n++
	}
	return counts
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
