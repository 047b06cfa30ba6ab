package library

import "fmt"

// ErrorKind enumerates the domain failures of the catalog.
type ErrorKind int

const (
	KindBookNotFound ErrorKind = iota + 1
	KindMemberNotFound
	KindBookUnavailable
	KindLoanQuotaExceeded
	KindMalformedRecord
)

func (k ErrorKind) String() string {
	switch k {
	case KindBookNotFound:
		return "book not found"
	case KindMemberNotFound:
		return "member not found"
	case KindBookUnavailable:
		return "book unavailable"
	case KindLoanQuotaExceeded:
		return "loan quota exceeded"
	case KindMalformedRecord:
		return "malformed record"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

func (k ErrorKind) defaultMessage() string {
	switch k {
	case KindBookNotFound:
		return "the book does not exist"
	case KindMemberNotFound:
		return "the member does not exist"
	case KindBookUnavailable:
		return "the book is unavailable"
	case KindLoanQuotaExceeded:
		return fmt.Sprintf("the loan quota of %d books has been reached", MaxLoans)
	case KindMalformedRecord:
		return "the stored record is malformed"
	default:
		return k.String()
	}
}

// DomainError is a rule violation reported by the catalog. Message overrides
// the default text of the kind when set.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.defaultMessage()
}

// Is matches any DomainError of the same kind, so the sentinels below work
// with errors.Is whatever the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind
}

var (
	ErrBookNotFound      = &DomainError{Kind: KindBookNotFound}
	ErrMemberNotFound    = &DomainError{Kind: KindMemberNotFound}
	ErrBookUnavailable   = &DomainError{Kind: KindBookUnavailable}
	ErrLoanQuotaExceeded = &DomainError{Kind: KindLoanQuotaExceeded}
	ErrMalformedRecord   = &DomainError{Kind: KindMalformedRecord}
)

func newError(kind ErrorKind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
