package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MediaItem is the single persisted entity. ID is an external catalog
// identifier (an IMDb id for OMDb) and acts as the primary key.
type MediaItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Year   string  `json:"year"`
	Type   string  `json:"type"`
	Poster *string `json:"poster,omitempty"`
}

// Validate checks the invariants a row must satisfy before it is written.
func (m MediaItem) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
	)
}

// PosterURL returns the poster URL or "" when the item has none.
func (m MediaItem) PosterURL() string {
	if m.Poster == nil {
		return ""
	}
	return *m.Poster
}

// ErrDuplicateID is returned when two items in one batch share an ID.
var ErrDuplicateID = errors.New("duplicate media item id")

// ValidateItems validates every item and rejects duplicate IDs within the batch.
func ValidateItems(items []MediaItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("item %d: %w %q", i, ErrDuplicateID, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Status is the parsed form of the upstream Response field.
type Status int

const (
	StatusUnknown Status = iota
	StatusTrue
	StatusFalse
)

func (s Status) String() string {
	switch s {
	case StatusTrue:
		return "True"
	case StatusFalse:
		return "False"
	default:
		return "Unknown"
	}
}

// ParseStatus maps the upstream "True"/"False" convention onto Status.
// Any other value, including the empty string, is StatusUnknown.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return StatusTrue
	case "false":
		return StatusFalse
	default:
		return StatusUnknown
	}
}

// SearchResult is the in-memory payload of one successful remote lookup.
// It is never persisted; only Items reach the store.
type SearchResult struct {
	Items        []MediaItem `json:"items"`
	TotalResults string      `json:"total_results"`
	Response     string      `json:"response"`
	Error        string      `json:"error,omitempty"`
}

// Status parses Response.
func (r *SearchResult) Status() Status {
	if r == nil {
		return StatusUnknown
	}
	return ParseStatus(r.Response)
}

// Total parses TotalResults. ok is false when the upstream value is missing
// or not a non-negative integer.
func (r *SearchResult) Total() (total int, ok bool) {
	if r == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.TotalResults))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Empty reports whether the lookup produced no items.
func (r *SearchResult) Empty() bool {
	return r == nil || len(r.Items) == 0
}
