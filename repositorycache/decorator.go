package repositorycache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-media-cache/cache"
	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

const snapshotMethod = "snapshot"

// Store decorates a store.Backend with a snapshot cache and live
// subscriptions. It is the local source of truth handed to the app.
type Store struct {
	base          store.Backend
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	logger        *slog.Logger

	// generation is bumped after every committed write. Snapshot keys
	// include it, so a read that starts after a write never sees the
	// pre-write snapshot.
	generation atomic.Uint64

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps base. The store owns base from now on and closes it in Close.
func New(base store.Backend, cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *Store {
	s := &Store{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		logger:        slog.Default(),
		subs:          make(map[*Subscription]struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "repositorycache")
	return s
}

// Generation returns the number of writes committed through this store.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Snapshot returns the current contents. Concurrent callers for the same
// generation share one backend read.
func (s *Store) Snapshot(ctx context.Context) ([]media.MediaItem, error) {
	items, _, err := s.snapshot(ctx)
	return items, err
}

func (s *Store) snapshot(ctx context.Context) ([]media.MediaItem, uint64, error) {
	if s.isClosed() {
		return nil, 0, store.Wrap("snapshot", store.ErrClosed)
	}

	gen := s.generation.Load()
	// the fetch is shared by every caller waiting on this key, so it must not
	// inherit one caller's cancellation
	shared := context.WithoutCancel(ctx)
	items, err := cache.GetOrFetch(shared, s.cache, s.snapshotKey(gen), func(ctx context.Context) ([]media.MediaItem, error) {
		return s.base.List(ctx)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, gen, store.Wrap("snapshot", err)
	}
	return slices.Clone(items), gen, nil
}

// ClearAll deletes every row.
func (s *Store) ClearAll(ctx context.Context) error {
	if s.isClosed() {
		return store.Wrap("clear", store.ErrClosed)
	}
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	s.committed(ctx, "clear", 0)
	return nil
}

// InsertAll appends items, all or nothing.
func (s *Store) InsertAll(ctx context.Context, items []media.MediaItem) error {
	if s.isClosed() {
		return store.Wrap("insert", store.ErrClosed)
	}
	if err := s.base.Insert(ctx, items); err != nil {
		return err
	}
	s.committed(ctx, "insert", len(items))
	return nil
}

// ReplaceAll swaps the contents for items in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, items []media.MediaItem) error {
	if s.isClosed() {
		return store.Wrap("replace", store.ErrClosed)
	}
	if err := s.base.Replace(ctx, items); err != nil {
		return err
	}
	s.committed(ctx, "replace", len(items))
	return nil
}

// Close ends every subscription, waits for their goroutines and closes the
// backend. Calling it twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	// writes racing a read can leave older generations cached
	if err := s.cache.DeleteByPrefix(context.Background(), s.keySerializer.SerializeKey(snapshotMethod)); err != nil {
		s.logger.Warn("dropping cached snapshots failed", "error", err)
	}
	return s.base.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) snapshotKey(generation uint64) string {
	return s.keySerializer.SerializeKey(snapshotMethod, generation)
}

// committed runs after a successful write: new generation, drop the
// snapshot of the previous one, wake subscribers.
func (s *Store) committed(ctx context.Context, op string, count int) {
	gen := s.generation.Add(1)

	if err := s.cache.Delete(ctx, s.snapshotKey(gen-1)); err != nil {
		s.logger.Warn("snapshot invalidation failed", "op", op, "generation", gen, "error", err)
	}

	s.logger.Debug("store write committed", "op", op, "count", count, "generation", gen)
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.wake()
	}
}
