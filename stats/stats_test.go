package stats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"library-ledger/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 30, 15, 0, 0, 0, time.Local)

type staticBooks []library.Book

func (s staticBooks) LoadBooks() ([]library.Book, error) { return s, nil }

type staticHistory []library.Transaction

func (s staticHistory) Read() ([]library.Transaction, error) { return s, nil }

type brokenSource struct{}

func (brokenSource) LoadBooks() ([]library.Book, error) { return nil, errors.New("boom") }
func (brokenSource) Read() ([]library.Transaction, error) { return nil, errors.New("boom") }

func newAggregator(books BookSource, history HistorySource) *Aggregator {
	return NewAggregator(books, history, WithClock(func() time.Time { return now }))
}

func TestGenreDistribution(t *testing.T) {
	books := staticBooks{
		{ISBN: "1", Genre: "SciFi"},
		{ISBN: "2", Genre: "SciFi"},
		{ISBN: "3"},
	}

	chart, err := newAggregator(books, staticHistory{}).GenreDistribution()
	require.NoError(t, err)
	require.Len(t, chart.Slices, 2)
	assert.Equal(t, 3, chart.Total)
	assert.Equal(t, "SciFi", chart.Slices[0].Label)
	assert.Equal(t, 2, chart.Slices[0].Count)
	assert.Equal(t, "66.7%", chart.Slices[0].PercentLabel())
	assert.Equal(t, Unknown, chart.Slices[1].Label)
	assert.Equal(t, 1, chart.Slices[1].Count)
	assert.Equal(t, "33.3%", chart.Slices[1].PercentLabel())
}

func TestGenreDistributionKeepsExactLabels(t *testing.T) {
	books := staticBooks{
		{ISBN: "1", Genre: "SciFi"},
		{ISBN: "2", Genre: " SciFi"},
		{ISBN: "3", Genre: "   "},
	}

	chart, err := newAggregator(books, staticHistory{}).GenreDistribution()
	require.NoError(t, err)
	require.Len(t, chart.Slices, 3)
	assert.Equal(t, "SciFi", chart.Slices[0].Label)
	assert.Equal(t, " SciFi", chart.Slices[1].Label)
	assert.Equal(t, Unknown, chart.Slices[2].Label)
}

func TestGenreDistributionEmpty(t *testing.T) {
	chart, err := newAggregator(staticBooks{}, staticHistory{}).GenreDistribution()
	require.NoError(t, err)
	assert.Empty(t, chart.Slices)
	assert.Zero(t, chart.Total)
}

func TestTopAuthors(t *testing.T) {
	var books staticBooks
	add := func(author string, n int) {
		for i := 0; i < n; i++ {
			books = append(books, library.Book{ISBN: author + string(rune('a'+i)), Author: author})
		}
	}
	// Ties keep the order in which the authors first appear.
	add("Zola", 2)
	add("Asimov", 3)
	add("Camus", 2)
	add("", 1)
	for _, a := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"} {
		add(a, 1)
	}
	add("Ursula Kroeber Le Guin", 2)

	chart, err := newAggregator(books, staticHistory{}).TopAuthors()
	require.NoError(t, err)
	require.Len(t, chart.Bars, TopAuthorsLimit)

	var names []string
	for _, b := range chart.Bars {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Asimov", "Zola", "Camus", "Ursula Kroeber Le Guin", Unknown, "A1", "A2", "A3", "A4", "A5"}, names)
	assert.Equal(t, 3, chart.Bars[0].Count)
	assert.Equal(t, "Ursula Kroeb...", chart.Bars[3].Label)
	assert.Equal(t, "Asimov", chart.Bars[0].Label)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Short", Truncate("Short", 15))
	assert.Equal(t, "Exactly fifteen", Truncate("Exactly fifteen", 15))
	assert.Equal(t, "Gabriel Garc...", Truncate("Gabriel García Márquez", 15))
	assert.Equal(t, "Éléonore Vil...", Truncate("Éléonore Villeneuve", 15))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestBorrowingActivity(t *testing.T) {
	history := staticHistory{
		{Time: now.Add(-2 * time.Hour), ISBN: "1", MemberID: "M1", Action: library.ActionBorrow},
		{Time: now.Add(-1 * time.Hour), ISBN: "2", MemberID: "M1", Action: library.ActionBorrow},
		{Time: now.Add(-30 * time.Minute), ISBN: "2", MemberID: "M1", Action: library.ActionReturn},
		{Time: now.AddDate(0, 0, -40), ISBN: "3", MemberID: "M2", Action: library.ActionBorrow},
		{Time: now.AddDate(0, 0, -29), ISBN: "4", MemberID: "M2", Action: library.ActionBorrow},
		{Time: now.AddDate(0, 0, -3), ISBN: "5", MemberID: "M2", Action: library.ActionBorrow},
	}

	chart, err := newAggregator(staticBooks{}, history).BorrowingActivity()
	require.NoError(t, err)
	require.Len(t, chart.Points, ActivityDays)

	first, last := chart.Points[0], chart.Points[ActivityDays-1]
	assert.Equal(t, "2024-06-01", first.Day.Format(time.DateOnly))
	assert.Equal(t, "2024-06-30", last.Day.Format(time.DateOnly))
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 1, chart.Points[ActivityDays-4].Count)

	total := 0
	for i, p := range chart.Points {
		total += p.Count
		if i > 0 {
			assert.True(t, p.Day.After(chart.Points[i-1].Day))
		}
	}
	assert.Equal(t, 4, total)
}

func TestBorrowingActivityEmpty(t *testing.T) {
	chart, err := newAggregator(staticBooks{}, staticHistory{}).BorrowingActivity()
	require.NoError(t, err)
	require.Len(t, chart.Points, ActivityDays)
	for _, p := range chart.Points {
		assert.Zero(t, p.Count)
	}
}

func TestSourceErrorsPropagate(t *testing.T) {
	a := newAggregator(brokenSource{}, brokenSource{})
	_, err := a.GenreDistribution()
	assert.Error(t, err)
	_, err = a.TopAuthors()
	assert.Error(t, err)
	_, err = a.BorrowingActivity()
	assert.Error(t, err)
}

func TestChartsTolerateIncompleteBookRecords(t *testing.T) {
	dir := t.TempDir()
	booksPath := filepath.Join(dir, "livres.json")
	require.NoError(t, os.WriteFile(booksPath,
		[]byte(`{"1":{"isbn":"1","genre":"SciFi","auteur":"Herbert"},"2":{"genre":"SciFi"},"3":{"isbn":"3"}}`), 0o644))
	store := library.NewFileStore(booksPath, filepath.Join(dir, "membres.json"))
	a := newAggregator(store, library.NewTransactionLog(filepath.Join(dir, "historique.csv")))

	genres, err := a.GenreDistribution()
	require.NoError(t, err)
	require.Len(t, genres.Slices, 2)
	assert.Equal(t, "SciFi", genres.Slices[0].Label)
	assert.Equal(t, 2, genres.Slices[0].Count)
	assert.Equal(t, "66.7%", genres.Slices[0].PercentLabel())
	assert.Equal(t, Unknown, genres.Slices[1].Label)
	assert.Equal(t, 1, genres.Slices[1].Count)

	authors, err := a.TopAuthors()
	require.NoError(t, err)
	require.Len(t, authors.Bars, 2)
	assert.Equal(t, Unknown, authors.Bars[0].Name)
	assert.Equal(t, 2, authors.Bars[0].Count)
	assert.Equal(t, "Herbert", authors.Bars[1].Name)
}

// TestReadsPersistedState checks that the charts only see what was saved.
func TestReadsPersistedState(t *testing.T) {
	dir := t.TempDir()
	store := library.NewFileStore(filepath.Join(dir, "livres.json"), filepath.Join(dir, "membres.json"))
	history := library.NewTransactionLog(filepath.Join(dir, "historique.csv"))

	rows := []string{
		now.Add(-time.Hour).Format(library.TimestampLayout) + ",1,M1,emprunt",
		now.Add(-time.Minute).Format(library.TimestampLayout) + ",2,M1,emprunt",
		now.AddDate(0, 0, -40).Format(library.TimestampLayout) + ",3,M1,emprunt",
		"garbage row",
	}
	require.NoError(t, os.WriteFile(history.Path(), []byte(strings.Join(rows, "\n")+"\n"), 0o644))

	c := library.NewCatalog(store, history)
	c.AddBook(library.Book{ISBN: "1", Title: "Dune", Author: "Frank Herbert", Genre: "SciFi"})
	c.AddBook(library.Book{ISBN: "2", Title: "Hyperion", Author: "Dan Simmons", Genre: "SciFi"})
	require.NoError(t, c.Save())
	c.AddBook(library.Book{ISBN: "3", Title: "Unsaved", Author: "Nobody", Genre: "Essay"})

	a := NewAggregator(store, history, WithClock(func() time.Time { return now }))

	genres, err := a.GenreDistribution()
	require.NoError(t, err)
	require.Len(t, genres.Slices, 1)
	assert.Equal(t, 2, genres.Slices[0].Count)

	activity, err := a.BorrowingActivity()
	require.NoError(t, err)
	assert.Equal(t, 2, activity.Points[ActivityDays-1].Count)
}
