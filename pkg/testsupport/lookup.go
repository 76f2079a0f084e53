package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/remote"
)

// LookupResponse is the scripted answer for one query.
type LookupResponse struct {
	Result *media.SearchResult
	Err    error
	Panic  any

	// Gate, when set, blocks the lookup until it is closed or ctx is done.
	Gate chan struct{}
	// IgnoreContext makes a gated lookup wait for Gate only.
	IgnoreContext bool
}

// StubLookup is a scripted remote.Lookup that records the queries it got.
type StubLookup struct {
	mu        sync.Mutex
	responses map[string]LookupResponse
	queries   []string
}

var _ remote.Lookup = (*StubLookup)(nil)

func NewStubLookup() *StubLookup {
	return &StubLookup{responses: make(map[string]LookupResponse)}
}

// On scripts the response for query.
func (s *StubLookup) On(query string, resp LookupResponse) *StubLookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[query] = resp
	return s
}

// Queries returns the queries received so far, in order.
func (s *StubLookup) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *StubLookup) Search(ctx context.Context, query string) (*media.SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	resp, ok := s.responses[query]
	s.mu.Unlock()

	if !ok {
		return NotFound(), nil
	}

	if resp.Gate != nil {
		if resp.IgnoreContext {
			<-resp.Gate
		} else {
			select {
			case <-resp.Gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if resp.Panic != nil {
		panic(resp.Panic)
	}
	return resp.Result, resp.Err
}
