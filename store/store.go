// Package store defines the persistence contract for the media_item table.
//
// Implementations live in sqlstore (SQLite through bun) and boltstore
// (bbolt). Every failure they return is a *Error, which matches
// media.ErrStore with errors.Is.
package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-media-cache/media"
)

// TableName is the name of the only table a Backend manages.
const TableName = "media_item"

var (
	// ErrDuplicateID is returned when an insert would store two rows with one ID.
	ErrDuplicateID = media.ErrDuplicateID

	// ErrClosed is returned by a Backend after Close.
	ErrClosed = errors.New("store is closed")
)

// Backend is the durable table behind the local store.
type Backend interface {
	// List returns every row in insertion order.
	List(ctx context.Context) ([]media.MediaItem, error)

	// Clear deletes every row. Clearing an empty table succeeds.
	Clear(ctx context.Context) error

	// Insert appends items. Either all rows are written or none are.
	Insert(ctx context.Context, items []media.MediaItem) error

	// Replace clears the table and inserts items in one transaction.
	Replace(ctx context.Context, items []media.MediaItem) error

	Close() error
}

// Error wraps a storage failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

// Wrap returns nil for a nil err, and leaves an existing *Error alone.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// CheckBatch validates items before a write. It reports in-batch duplicates
// as ErrDuplicateID.
func CheckBatch(op string, items []media.MediaItem) error {
	return Wrap(op, media.ValidateItems(items))
}

func (e *Error) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports every store error as media.ErrStore.
func (e *Error) Is(target error) bool {
	return target == media.ErrStore
}
