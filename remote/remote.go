// Package remote defines the lookup the search coordinator calls for a query.
package remote

import (
	"context"

	"github.com/goliatone/go-media-cache/media"
)

// Lookup queries the remote catalog.
//
// A nil result with a nil error means the remote answered without a body;
// callers must treat it as a failure.
type Lookup interface {
	Search(ctx context.Context, query string) (*media.SearchResult, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, query string) (*media.SearchResult, error)

func (f LookupFunc) Search(ctx context.Context, query string) (*media.SearchResult, error) {
	return f(ctx, query)
}
