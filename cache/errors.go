package cache

import (
	"errors"
	"fmt"
)

// ErrInvalidResultType is matched by TypeMismatchError.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// TypeMismatchError is returned when a cached value has a different type than
// the one requested, which means two callers share a key for different data.
type TypeMismatchError struct {
	Key   string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cache key %q holds a %T", e.Key, e.Value)
}

func (e *TypeMismatchError) Unwrap() error { return ErrInvalidResultType }
