package boltstore

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/goliatone/go-media-cache/pkg/testsupport"
	"github.com/goliatone/go-media-cache/store"
)

func TestStore_BackendContract(t *testing.T) {
	testsupport.RunBackendSuite(t, func(t *testing.T) store.Backend {
		s, err := Open(filepath.Join(t.TempDir(), "media.bolt"), nil)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestStore_ReopenKeepsOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "media.bolt")

	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Insert(ctx, testsupport.BatmanItems()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := first.Insert(ctx, testsupport.SupermanItems()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := append(testsupport.BatmanItems(), testsupport.SupermanItems()...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", testsupport.IDs(got), testsupport.IDs(want))
	}
}

func TestStore_ClearResetsIndex(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "media.bolt"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	items := testsupport.BatmanItems()
	if err := s.Insert(ctx, items); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	// ids freed by Clear can be inserted again
	if err := s.Insert(ctx, items); err != nil {
		t.Fatalf("Insert after Clear: %v", err)
	}
}
