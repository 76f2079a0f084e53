package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

// MemoryBackend is an in-memory store.Backend. Failures can be injected per
// operation and every call is counted.
type MemoryBackend struct {
	mu     sync.Mutex
	items  []media.MediaItem
	closed bool

	calls map[string]int
	fail  map[string]error
}

var _ store.Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns a backend pre-filled with items.
func NewMemoryBackend(items ...media.MediaItem) *MemoryBackend {
	return &MemoryBackend{
		items: append([]media.MediaItem(nil), items...),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// FailOn makes op ("list", "clear", "insert", "replace") return err until
// cleared with a nil err.
func (m *MemoryBackend) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how many times op was invoked.
func (m *MemoryBackend) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Items returns a copy of the current rows.
func (m *MemoryBackend) Items() []media.MediaItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.MediaItem{}, m.items...)
}

func (m *MemoryBackend) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if m.closed {
		return store.Wrap(op, store.ErrClosed)
	}
	if err := m.fail[op]; err != nil {
		return store.Wrap(op, err)
	}
	return store.Wrap(op, ctx.Err())
}

func (m *MemoryBackend) List(ctx context.Context) ([]media.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "list"); err != nil {
		return nil, err
	}
	return append([]media.MediaItem{}, m.items...), nil
}

func (m *MemoryBackend) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "clear"); err != nil {
		return err
	}
	m.items = nil
	return nil
}

func (m *MemoryBackend) Insert(ctx context.Context, items []media.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "insert"); err != nil {
		return err
	}
	if err := store.CheckBatch("insert", items); err != nil {
		return err
	}
	existing := make(map[string]struct{}, len(m.items))
	for _, item := range m.items {
		existing[item.ID] = struct{}{}
	}
	for _, item := range items {
		if _, ok := existing[item.ID]; ok {
			return store.Wrap("insert", store.ErrDuplicateID)
		}
	}
	m.items = append(m.items, items...)
	return nil
}

func (m *MemoryBackend) Replace(ctx context.Context, items []media.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "replace"); err != nil {
		return err
	}
	if err := store.CheckBatch("replace", items); err != nil {
		return err
	}
	m.items = append([]media.MediaItem(nil), items...)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["close"]++
	m.closed = true
	return nil
}
