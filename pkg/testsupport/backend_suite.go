package testsupport

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

// BackendFactory returns a fresh, empty backend. The suite closes it.
type BackendFactory func(t *testing.T) store.Backend

// RunBackendSuite checks the store.Backend contract against newBackend.
func RunBackendSuite(t *testing.T, newBackend BackendFactory) {
	t.Helper()

	open := func(t *testing.T) store.Backend {
		b := newBackend(t)
		t.Cleanup(func() { _ = b.Close() })
		return b
	}

	t.Run("empty list", func(t *testing.T) {
		b := open(t)
		items, err := b.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected empty table, got %v", items)
		}
	})

	t.Run("insert round trip keeps order and fields", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)

		want := BatmanItems()
		if err := b.Insert(ctx, want); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := b.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
		if got[2].Poster != nil {
			t.Errorf("expected absent poster to stay nil, got %q", *got[2].Poster)
		}
	})

	t.Run("insert appends", func(t *testing.T) {
		b := open(t)

		mustInsert(t, b, BatmanItems()[:1])
		mustInsert(t, b, SupermanItems())

		got := mustList(t, b)
		want := []string{"tt0372784", "tt0078346", "tt0770828"}
		if !reflect.DeepEqual(IDs(got), want) {
			t.Errorf("got ids %v, want %v", IDs(got), want)
		}
	})

	t.Run("insert empty batch", func(t *testing.T) {
		b := open(t)
		if err := b.Insert(context.Background(), nil); err != nil {
			t.Fatalf("Insert(nil): %v", err)
		}
		if got := mustList(t, b); len(got) != 0 {
			t.Errorf("expected empty table, got %v", got)
		}
	})

	t.Run("duplicate against existing rows is all or nothing", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		mustInsert(t, b, BatmanItems()[:1])

		batch := []media.MediaItem{Item("tt9999999", "New"), BatmanItems()[0]}
		err := b.Insert(ctx, batch)
		assertStoreErr(t, err, store.ErrDuplicateID)

		if got := mustList(t, b); !reflect.DeepEqual(IDs(got), []string{"tt0372784"}) {
			t.Errorf("failed insert changed the table: %v", IDs(got))
		}
	})

	t.Run("duplicate within batch", func(t *testing.T) {
		b := open(t)
		err := b.Insert(context.Background(), []media.MediaItem{Item("a", "A"), Item("a", "A again")})
		assertStoreErr(t, err, store.ErrDuplicateID)
		if got := mustList(t, b); len(got) != 0 {
			t.Errorf("expected empty table, got %v", got)
		}
	})

	t.Run("blank id rejected", func(t *testing.T) {
		b := open(t)
		err := b.Insert(context.Background(), []media.MediaItem{{Title: "no id"}})
		if !errors.Is(err, media.ErrStore) {
			t.Errorf("expected store error, got %v", err)
		}
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		mustInsert(t, b, BatmanItems())

		for i := 0; i < 2; i++ {
			if err := b.Clear(ctx); err != nil {
				t.Fatalf("Clear #%d: %v", i+1, err)
			}
			if got := mustList(t, b); len(got) != 0 {
				t.Errorf("Clear #%d left %v", i+1, got)
			}
		}
	})

	t.Run("replace swaps contents", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		mustInsert(t, b, BatmanItems())

		if err := b.Replace(ctx, SupermanItems()); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		if got := mustList(t, b); !reflect.DeepEqual(got, SupermanItems()) {
			t.Errorf("got %v, want superman items", IDs(got))
		}

		if err := b.Replace(ctx, nil); err != nil {
			t.Fatalf("Replace(nil): %v", err)
		}
		if got := mustList(t, b); len(got) != 0 {
			t.Errorf("expected empty table after empty replace, got %v", IDs(got))
		}
	})

	t.Run("replace can reuse existing ids", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		mustInsert(t, b, BatmanItems())

		if err := b.Replace(ctx, BatmanItems()[1:]); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		if got := mustList(t, b); !reflect.DeepEqual(got, BatmanItems()[1:]) {
			t.Errorf("got %v", IDs(got))
		}
	})

	t.Run("failed replace keeps previous contents", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		mustInsert(t, b, BatmanItems())

		err := b.Replace(ctx, []media.MediaItem{Item("x", "X"), Item("x", "X")})
		assertStoreErr(t, err, store.ErrDuplicateID)
		if got := mustList(t, b); !reflect.DeepEqual(got, BatmanItems()) {
			t.Errorf("failed replace changed the table: %v", IDs(got))
		}
	})

	t.Run("cancelled replace keeps previous contents", func(t *testing.T) {
		b := open(t)
		mustInsert(t, b, BatmanItems())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := b.Replace(ctx, SupermanItems())
		if !errors.Is(err, media.ErrStore) {
			t.Errorf("expected store error, got %v", err)
		}
		if got := mustList(t, b); !reflect.DeepEqual(got, BatmanItems()) {
			t.Errorf("cancelled replace changed the table: %v", IDs(got))
		}
	})

	t.Run("closed backend", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := b.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		_, err := b.List(context.Background())
		assertStoreErr(t, err, store.ErrClosed)
		assertStoreErr(t, b.Clear(context.Background()), store.ErrClosed)
	})
}

func mustInsert(t *testing.T, b store.Backend, items []media.MediaItem) {
	t.Helper()
	if err := b.Insert(context.Background(), items); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func mustList(t *testing.T, b store.Backend) []media.MediaItem {
	t.Helper()
	items, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return items
}

func assertStoreErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if !errors.Is(err, media.ErrStore) {
		t.Errorf("expected error to match media.ErrStore, got %v", err)
	}
}
