package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionLogAppendAndRead(t *testing.T) {
	log := NewTransactionLog(filepath.Join(t.TempDir(), "data", "historique.csv"))
	at := time.Date(2024, time.March, 2, 9, 15, 30, 123456000, time.Local)

	require.NoError(t, log.Append(Transaction{Time: at, ISBN: "111", MemberID: "M1", Action: ActionBorrow}))
	require.NoError(t, log.Append(Transaction{Time: at.Add(time.Hour), ISBN: "111", MemberID: "M1", Action: ActionReturn}))

	raw, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"2024-03-02T09:15:30.123456,111,M1,emprunt\n2024-03-02T10:15:30.123456,111,M1,retour\n",
		string(raw))

	txs, err := log.Read()
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, at.Equal(txs[0].Time))
	assert.Equal(t, ActionBorrow, txs[0].Action)
	assert.Equal(t, ActionReturn, txs[1].Action)
	assert.Equal(t, "M1", txs[1].MemberID)
}

func TestTransactionLogQuotesFields(t *testing.T) {
	log := NewTransactionLog(filepath.Join(t.TempDir(), "historique.csv"))
	at := time.Date(2024, time.March, 2, 9, 0, 0, 0, time.Local)

	require.NoError(t, log.Append(Transaction{Time: at, ISBN: "1,2", MemberID: `M "1"`, Action: ActionBorrow}))

	txs, err := log.Read()
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "1,2", txs[0].ISBN)
	assert.Equal(t, `M "1"`, txs[0].MemberID)
}

func TestTransactionLogSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historique.csv")
	rows := []string{
		"2024-03-02T09:15:30.123456,111,M1,emprunt",
		"2024-03-02T09:15:30,111,M1",
		"2024-03-02T09:15:30,111,M1,emprunt,extra",
		"yesterday,111,M1,emprunt",
		"2024-03-02T09:15:30,111,M1,perdu",
		`2024-03-02T09:15:30,1"1,M1,emprunt`,
		"2024-03-03,222,M2,retour",
		"2024-03-04T08:00:00+02:00,333,M3,emprunt",
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644))

	txs, err := NewTransactionLog(path).Read()
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "111", txs[0].ISBN)
	assert.Equal(t, "222", txs[1].ISBN)
	assert.Equal(t, ActionReturn, txs[1].Action)
	assert.Equal(t, "333", txs[2].ISBN)
	_, offset := txs[2].Time.Zone()
	assert.Equal(t, 2*60*60, offset)
}

func TestTransactionLogMissingFile(t *testing.T) {
	txs, err := NewTransactionLog(filepath.Join(t.TempDir(), "none.csv")).Read()
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2024-03-02T09:15:30.123456",
		"2024-03-02T09:15:30",
		"2024-03-02 09:15:30.5",
		"2024-03-02T09:15",
		"2024-03-02",
		"2024-03-02T09:15:30Z",
	} {
		ts, ok := ParseTimestamp(s)
		assert.True(t, ok, s)
		assert.Equal(t, 2024, ts.Year(), s)
	}

	_, ok := ParseTimestamp("02/03/2024")
	assert.False(t, ok)
}
