// Package sqlstore implements store.Backend on SQLite through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/store"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// mediaItemRecord is one media_item row. RowID is the surrogate key the
// repository manages; ID is the OMDb identifier and stays unique.
type mediaItemRecord struct {
	bun.BaseModel `bun:"table:media_item"`

	RowID  uuid.UUID `bun:"row_id,pk,type:varchar(36)"`
	ID     string    `bun:"id,notnull,unique"`
	Title  string    `bun:"title,notnull"`
	Year   string    `bun:"year,notnull"`
	Type   string    `bun:"type,notnull"`
	Poster *string   `bun:"poster"`
}

func newRepository(db *bun.DB) repository.Repository[*mediaItemRecord] {
	return repository.NewRepository[*mediaItemRecord](db, repository.ModelHandlers[*mediaItemRecord]{
		NewRecord: func() *mediaItemRecord {
			return &mediaItemRecord{}
		},
		GetID: func(record *mediaItemRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.RowID
		},
		SetID: func(record *mediaItemRecord, id uuid.UUID) {
			record.RowID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
}

// byInsertion lists rows in the order they were written.
func byInsertion(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("rowid ASC")
}

func allRows(q *bun.DeleteQuery) *bun.DeleteQuery {
	return q.Where("1 = 1")
}

func toRecords(items []media.MediaItem) []*mediaItemRecord {
	records := make([]*mediaItemRecord, len(items))
	for i, item := range items {
		records[i] = &mediaItemRecord{
			RowID:  uuid.New(),
			ID:     item.ID,
			Title:  item.Title,
			Year:   item.Year,
			Type:   item.Type,
			Poster: item.Poster,
		}
	}
	return records
}

func toItems(records []*mediaItemRecord) []media.MediaItem {
	items := make([]media.MediaItem, len(records))
	for i, r := range records {
		items[i] = media.MediaItem{
			ID:     r.ID,
			Title:  r.Title,
			Year:   r.Year,
			Type:   r.Type,
			Poster: r.Poster,
		}
	}
	return items
}

// Store is a store.Backend over a single SQLite database file.
type Store struct {
	db     *bun.DB
	repo   repository.Repository[*mediaItemRecord]
	logger *slog.Logger
	closed atomic.Bool
}

var _ store.Backend = (*Store)(nil)

// Open opens (or creates) the database at path and makes sure the
// media_item table exists. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqldb, err := sql.Open(DriverName, dsn(path))
	if err != nil {
		return nil, store.Wrap("open", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across queries.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := &Store{
		db:     db,
		repo:   newRepository(db),
		logger: logger.With("component", "sqlstore"),
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("sqlite store opened", "path", path)
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*mediaItemRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return store.Wrap("migrate", err)
}

func (s *Store) List(ctx context.Context) ([]media.MediaItem, error) {
	if s.closed.Load() {
		return nil, store.Wrap("list", store.ErrClosed)
	}

	records, _, err := s.repo.ListTx(ctx, s.db, byInsertion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, store.Wrap("list", err)
	}
	return toItems(records), nil
}

func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return store.Wrap("clear", store.ErrClosed)
	}
	return store.Wrap("clear", s.repo.DeleteManyTx(ctx, s.db, allRows))
}

func (s *Store) Insert(ctx context.Context, items []media.MediaItem) error {
	if s.closed.Load() {
		return store.Wrap("insert", store.ErrClosed)
	}
	if err := store.CheckBatch("insert", items); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.insert(ctx, tx, items)
	})
	return store.Wrap("insert", err)
}

func (s *Store) Replace(ctx context.Context, items []media.MediaItem) error {
	if s.closed.Load() {
		return store.Wrap("replace", store.ErrClosed)
	}
	if err := store.CheckBatch("replace", items); err != nil {
		return err
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.DeleteManyTx(ctx, tx, allRows); err != nil {
			return err
		}
		if err := s.insert(ctx, tx, items); err != nil {
			return err
		}
		// do not commit a replace the caller already gave up on
		return ctx.Err()
	})
	return store.Wrap("replace", err)
}

// Close closes the database. Calling it twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return store.Wrap("close", s.db.Close())
}

func (s *Store) insert(ctx context.Context, tx bun.IDB, items []media.MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := s.repo.CreateManyTx(ctx, tx, toRecords(items)); err != nil {
		if isConstraintViolation(err) {
			return errors.Join(store.ErrDuplicateID, err)
		}
		return err
	}
	return nil
}

// isConstraintViolation matches the driver error, or its message when the
// repository has already flattened it into its own error type.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
