package library

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("return: %w", newError(KindBookNotFound, "book 1 is not borrowed by member M1"))

	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.NotErrorIs(t, err, ErrMemberNotFound)
	assert.Equal(t, "return: book 1 is not borrowed by member M1", err.Error())

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindBookNotFound, de.Kind)
}

func TestDomainErrorDefaultMessages(t *testing.T) {
	cases := map[*DomainError]string{
		ErrBookNotFound:      "the book does not exist",
		ErrMemberNotFound:    "the member does not exist",
		ErrBookUnavailable:   "the book is unavailable",
		ErrLoanQuotaExceeded: "the loan quota of 3 books has been reached",
		ErrMalformedRecord:   "the stored record is malformed",
	}
	for err, want := range cases {
		assert.Equal(t, want, err.Error())
	}
	assert.Equal(t, "loan quota exceeded", KindLoanQuotaExceeded.String())
}
