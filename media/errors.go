package media

import (
	"errors"
	"fmt"
)

// Failure classes surfaced by a search. Match them with errors.Is.
var (
	// ErrRemote indicates a transport error, a non-2xx response or a timeout
	ErrRemote = errors.New("remote lookup failed")

	// ErrEmptyBody indicates the remote answered without a parseable body
	ErrEmptyBody = errors.New("remote lookup returned no body")

	// ErrStore indicates the local store could not be read or written
	ErrStore = errors.New("local store operation failed")
)

// Kind classifies an Error.
type Kind int

const (
	KindRemote Kind = iota + 1
	KindEmptyBody
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindEmptyBody:
		return "empty_body"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindRemote:
		return ErrRemote
	case KindEmptyBody:
		return ErrEmptyBody
	case KindStore:
		return ErrStore
	default:
		return nil
	}
}

// Error is the typed failure returned by the search coordinator.
type Error struct {
	Kind  Kind
	Op    string
	Query string
	Err   error
}

// NewError builds an Error. A nil cause falls back to the kind sentinel.
func NewError(kind Kind, op, query string, err error) *Error {
	if err == nil {
		err = kind.sentinel()
	}
	return &Error{Kind: kind, Op: op, Query: query, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	if e.Query != "" {
		msg += fmt.Sprintf(" for query %q", e.Query)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind so callers can test the class
// without unwrapping the cause.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	switch {
	case errors.Is(err, ErrEmptyBody):
		return KindEmptyBody
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrStore):
		return KindStore
	}
	return 0
}
