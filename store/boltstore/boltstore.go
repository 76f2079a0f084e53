// Package boltstore implements store.Backend on a bbolt file.
//
// Rows live in the media_item bucket under big-endian sequence keys, which
// keeps cursor order equal to insertion order. A second bucket maps each id
// to its sequence key and enforces uniqueness.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

var (
	bucketItems = []byte(store.TableName)
	bucketIndex = []byte(store.TableName + "_id")
)

// Store is a store.Backend over a bbolt database.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
	closed atomic.Bool
}

var _ store.Backend = (*Store)(nil)

// Open opens (or creates) the bbolt file at path, creating parent
// directories as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, store.Wrap("open", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, store.Wrap("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketItems, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, store.Wrap("open", err)
	}

	s := &Store{db: db, logger: logger.With("component", "boltstore")}
	s.logger.Debug("bolt store opened", "path", path)
	return s, nil
}

func (s *Store) List(ctx context.Context) ([]media.MediaItem, error) {
	if s.closed.Load() {
		return nil, store.Wrap("list", store.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("list", err)
	}

	items := []media.MediaItem{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(_, v []byte) error {
			var item media.MediaItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, store.Wrap("list", err)
	}
	return items, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.update(ctx, "clear", resetBuckets)
}

func (s *Store) Insert(ctx context.Context, items []media.MediaItem) error {
	if err := store.CheckBatch("insert", items); err != nil {
		return err
	}
	return s.update(ctx, "insert", func(tx *bolt.Tx) error {
		return insert(tx, items)
	})
}

func (s *Store) Replace(ctx context.Context, items []media.MediaItem) error {
	if err := store.CheckBatch("replace", items); err != nil {
		return err
	}
	return s.update(ctx, "replace", func(tx *bolt.Tx) error {
		if err := resetBuckets(tx); err != nil {
			return err
		}
		return insert(tx, items)
	})
}

// Close closes the database. Calling it twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return store.Wrap("close", s.db.Close())
}

// update runs fn in a read-write transaction. bbolt is not context aware,
// so ctx is checked before fn and again before commit.
func (s *Store) update(ctx context.Context, op string, fn func(tx *bolt.Tx) error) error {
	if s.closed.Load() {
		return store.Wrap(op, store.ErrClosed)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		return ctx.Err()
	})
	return store.Wrap(op, err)
}

func resetBuckets(tx *bolt.Tx) error {
	for _, bucket := range [][]byte{bucketItems, bucketIndex} {
		if err := tx.DeleteBucket(bucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(bucket); err != nil {
			return err
		}
	}
	return nil
}

func insert(tx *bolt.Tx, items []media.MediaItem) error {
	rows := tx.Bucket(bucketItems)
	index := tx.Bucket(bucketIndex)

	for _, item := range items {
		if index.Get([]byte(item.ID)) != nil {
			return fmt.Errorf("%w: %q", store.ErrDuplicateID, item.ID)
		}

		seq, err := rows.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := rows.Put(key, data); err != nil {
			return err
		}
		if err := index.Put([]byte(item.ID), key); err != nil {
			return err
		}
	}
	return nil
}
