// Package di is the composition root. It builds the local store, the remote
// lookup and the search coordinator from a config.Config.
package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-media-cache/cache"
	"github.com/goliatone/go-media-cache/internal/config"
	"github.com/goliatone/go-media-cache/remote"
	"github.com/goliatone/go-media-cache/remote/omdb"
	"github.com/goliatone/go-media-cache/repositorycache"
	"github.com/goliatone/go-media-cache/search"
	"github.com/goliatone/go-media-cache/store"
	"github.com/goliatone/go-media-cache/store/boltstore"
	"github.com/goliatone/go-media-cache/store/sqlstore"
)

// Container owns every long lived component. Close releases them in reverse
// order of construction.
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	local         *repositorycache.Store
	lookup        remote.Lookup
	search        *search.Repository
}

// Option overrides a component before the container wires it.
type Option func(*options)

type options struct {
	lookup  remote.Lookup
	backend store.Backend
}

// WithLookup replaces the OMDb client.
func WithLookup(lookup remote.Lookup) Option {
	return func(o *options) { o.lookup = lookup }
}

// WithBackend replaces the backend selected by store.driver. The container
// takes ownership of it.
func WithBackend(backend store.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// NewContainer creates the container. A nil logger uses slog.Default().
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	lookup := o.lookup
	if lookup == nil {
		client, err := omdb.NewClient(cfg.Remote, logger)
		if err != nil {
			return nil, err
		}
		lookup = client
	}

	backend := o.backend
	if backend == nil {
		backend, err = OpenBackend(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
	}

	keySerializer := cache.NewNamespacedKeySerializer(store.TableName)
	local := repositorycache.New(backend, cacheService, keySerializer, repositorycache.WithLogger(logger))

	repo, err := search.New(lookup, local, cfg.Search, logger)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	return &Container{
		config:        cfg,
		logger:        logger,
		cacheService:  cacheService,
		keySerializer: keySerializer,
		local:         local,
		lookup:        lookup,
		search:        repo,
	}, nil
}

// OpenBackend opens the store engine named by cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Backend, error) {
	var (
		backend store.Backend
		err     error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		var s *sqlstore.Store
		if s, err = sqlstore.Open(ctx, cfg.Path, logger); err == nil {
			backend = s
		}
	case config.DriverBolt:
		var s *boltstore.Store
		if s, err = boltstore.Open(cfg.Path, logger); err == nil {
			backend = s
		}
	default:
		err = fmt.Errorf("di: unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// Search returns the search coordinator.
func (c *Container) Search() *search.Repository {
	return c.search
}

// Store returns the local store.
func (c *Container) Store() *repositorycache.Store {
	return c.local
}

// Lookup returns the remote lookup in use.
func (c *Container) Lookup() remote.Lookup {
	return c.lookup
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Close waits for in-flight async searches, then closes the local store and
// its backend.
func (c *Container) Close() error {
	return errors.Join(c.search.Close(), c.local.Close())
}
