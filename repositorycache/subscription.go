package repositorycache

import (
	"context"
	"sync"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

// Subscription is one live view of the store contents.
//
// Updates yields the full contents right away and again after every
// committed write. Wake-ups are conflated: a reader that falls behind gets
// the newest contents, not every intermediate state. The channel is closed
// when the subscription ends; Err then reports a read failure, if any.
type Subscription struct {
	updates chan []media.MediaItem
	signal  chan struct{}
	stop    chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newSubscription() *Subscription {
	return &Subscription{
		updates: make(chan []media.MediaItem),
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Updates returns the channel of snapshots.
func (sub *Subscription) Updates() <-chan []media.MediaItem {
	return sub.updates
}

// Err returns the error that ended the subscription. It is nil while the
// subscription is live and after a normal close or cancellation.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Close ends the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(func() { close(sub.stop) })
}

func (sub *Subscription) wake() {
	select {
	case sub.signal <- struct{}{}:
	default:
	}
}

func (sub *Subscription) fail(err error) {
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
}

// ObserveAll subscribes to the store contents until ctx is done, the
// subscription is closed or the store is closed.
func (s *Store) ObserveAll(ctx context.Context) *Subscription {
	sub := newSubscription()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.fail(store.Wrap("observe", store.ErrClosed))
		close(sub.updates)
		return sub
	}
	s.subs[sub] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	sub.wake()
	go s.serve(ctx, sub)
	return sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (s *Store) serve(ctx context.Context, sub *Subscription) {
	defer s.wg.Done()
	defer close(sub.updates)
	defer s.unsubscribe(sub)

	var (
		last      uint64
		delivered bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case <-s.done:
			return
		case <-sub.signal:
		}

		items, gen, ok := s.read(ctx, sub)
		if !ok {
			return
		}
		if delivered && gen == last {
			continue
		}

	deliver:
		for {
			select {
			case sub.updates <- items:
				last, delivered = gen, true
				break deliver
			case <-sub.signal:
				// newer contents are available; drop the pending snapshot
				if items, gen, ok = s.read(ctx, sub); !ok {
					return
				}
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			case <-s.done:
				return
			}
		}
	}
}

// read loads a snapshot for sub. A failure that is not caused by the
// subscription ending is recorded on sub.
func (s *Store) read(ctx context.Context, sub *Subscription) ([]media.MediaItem, uint64, bool) {
	items, gen, err := s.snapshot(ctx)
	if err == nil {
		return items, gen, true
	}

	if ctx.Err() == nil && !s.isClosed() {
		s.logger.Error("snapshot read failed, ending subscription", "error", err)
		sub.fail(err)
	}
	return nil, gen, false
}
