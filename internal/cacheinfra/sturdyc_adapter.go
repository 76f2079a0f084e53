package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings used for store snapshots.
type Config struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards must be greater than 0 and not above Capacity.
	NumShards int

	// TTL bounds how long an unused snapshot stays around.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped when full, 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a small cache: snapshots are keyed by store
// generation, so only one or two keys are ever live.
func DefaultConfig() Config {
	return Config{
		Capacity:           64,
		NumShards:          4,
		TTL:                10 * time.Minute,
		EvictionPercentage: 10,
	}
}

func (c Config) options() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// ErrNilFetch is returned when GetOrFetch is called without a fetch function.
var ErrNilFetch = errors.New("cacheinfra: fetch function is nil")

// SturdycService wraps a sturdyc client. Concurrent misses on one key are
// collapsed into a single fetch by sturdyc.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)

	return &SturdycService{client: client}, nil
}

func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, ErrNilFetch
	}
	return s.client.GetOrFetch(ctx, key, fetchFn)
}

func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of cached entries.
func (s *SturdycService) Size() int {
	return s.client.Size()
}
