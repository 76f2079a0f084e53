// Package search coordinates a remote lookup with the local store.
//
// A successful lookup replaces the local contents with its items in one
// transaction. A failed lookup leaves the local contents untouched.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/remote"
	"github.com/goliatone/go-media-cache/repositorycache"
)

const opSearch = "search"

// ErrClosed is returned by SearchAsync after Close.
var ErrClosed = errors.New("search: repository closed")

// LocalStore is the part of the local store the coordinator writes to and
// re-exports.
type LocalStore interface {
	ReplaceAll(ctx context.Context, items []media.MediaItem) error
	ObserveAll(ctx context.Context) *repositorycache.Subscription
}

// Config tunes the coordinator.
type Config struct {
	// Workers bounds concurrent SearchAsync calls.
	Workers int `mapstructure:"workers"`

	// PreserveOnEmpty keeps the local contents when a search finds nothing.
	// When false an empty search clears the store.
	PreserveOnEmpty bool `mapstructure:"preserve_on_empty"`
}

// DefaultConfig allows four concurrent SearchAsync calls and clears the
// store on an empty result.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Validate requires at least one worker.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	)
}

// Outcome is the single value sent by SearchAsync.
type Outcome struct {
	Result *media.SearchResult
	Err    error
}

// Repository runs searches. Calls are independent; there is no locking
// between them and the last committed replace wins.
type Repository struct {
	lookup remote.Lookup
	local  LocalStore
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	pool   *pool.Pool
}

// New builds a Repository. A nil logger uses slog.Default().
func New(lookup remote.Lookup, local LocalStore, cfg Config, logger *slog.Logger) (*Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		lookup: lookup,
		local:  local,
		cfg:    cfg,
		logger: logger.With("component", "search"),
		pool:   pool.New().WithMaxGoroutines(cfg.Workers),
	}, nil
}

// SearchByQuery looks query up and, on success, replaces the local contents
// with the result items.
//
// Remote failures return a *media.Error of KindRemote or KindEmptyBody and
// leave the store untouched. If the store write fails the result is still
// returned together with a KindStore error.
func (r *Repository) SearchByQuery(ctx context.Context, query string) (*media.SearchResult, error) {
	logger := r.logger.With("search_id", uuid.NewString(), "query", query)
	logger.Debug("search started")

	result, err := r.callLookup(ctx, query)
	if err != nil {
		kind := media.KindOf(err)
		if kind != media.KindEmptyBody {
			kind = media.KindRemote
		}
		logger.Warn("search failed", "kind", kind.String(), "error", err)
		return nil, media.NewError(kind, opSearch, query, err)
	}
	if result == nil {
		logger.Warn("search failed", "kind", media.KindEmptyBody.String())
		return nil, media.NewError(media.KindEmptyBody, opSearch, query, nil)
	}

	if result.Empty() && r.cfg.PreserveOnEmpty {
		logger.Info("search found nothing, keeping local contents", "status", result.Status().String())
		return result, nil
	}

	// the lookup may have ignored cancellation; never write for a caller
	// that is gone
	if err := ctx.Err(); err != nil {
		logger.Warn("search cancelled before store update", "error", err)
		return result, media.NewError(media.KindStore, opSearch, query, err)
	}

	if err := r.local.ReplaceAll(ctx, result.Items); err != nil {
		logger.Error("store update failed", "error", err)
		return result, media.NewError(media.KindStore, opSearch, query, err)
	}

	logger.Info("search finished",
		"count", len(result.Items),
		"total", result.TotalResults,
		"status", result.Status().String(),
	)
	return result, nil
}

// callLookup turns a panicking lookup into a remote failure.
func (r *Repository) callLookup(ctx context.Context, query string) (result *media.SearchResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("%w: lookup panicked: %v", media.ErrRemote, p)
		}
	}()
	return r.lookup.Search(ctx, query)
}

// SearchAsync runs SearchByQuery on the worker pool. The returned channel
// yields exactly one Outcome and is then closed. Submission blocks while all
// workers are busy.
func (r *Repository) SearchAsync(ctx context.Context, query string) <-chan Outcome {
	out := make(chan Outcome, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		out <- Outcome{Err: ErrClosed}
		close(out)
		return out
	}

	r.pool.Go(func() {
		defer close(out)
		result, err := r.SearchByQuery(ctx, query)
		out <- Outcome{Result: result, Err: err}
	})
	return out
}

// ObserveAll re-exports the local store subscription.
func (r *Repository) ObserveAll(ctx context.Context) *repositorycache.Subscription {
	return r.local.ObserveAll(ctx)
}

// Close rejects new async searches and waits for the running ones. It does
// not close the local store.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Wait()
	return nil
}
