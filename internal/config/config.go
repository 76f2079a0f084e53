// Package config loads the mediasearch configuration with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goliatone/go-media-cache/cache"
	"github.com/goliatone/go-media-cache/internal/logging"
	"github.com/goliatone/go-media-cache/remote/omdb"
	"github.com/goliatone/go-media-cache/search"
)

const (
	appName   = "mediasearch"
	envPrefix = "MEDIASEARCH"

	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config holds all application configuration
type Config struct {
	Remote  omdb.Config    `mapstructure:"remote"`
	Store   StoreConfig    `mapstructure:"store"`
	Cache   cache.Config   `mapstructure:"cache"`
	Search  search.Config  `mapstructure:"search"`
	Logging logging.Config `mapstructure:"logging"`
}

// StoreConfig selects the local store engine
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "bolt"
	Path   string `mapstructure:"path"`   // ":memory:" keeps a sqlite store in memory
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverBolt)),
		validation.Field(&c.Path, validation.Required),
	)
}

// DefaultConfig returns the default configuration. The API key has no
// default and must come from the file or MEDIASEARCH_REMOTE_API_KEY.
func DefaultConfig() *Config {
	return &Config{
		Remote: omdb.DefaultConfig(),
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(defaultDataPath(), "omdb.db"),
		},
		Cache:   cache.DefaultConfig(),
		Search:  search.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Remote),
		validation.Field(&c.Store),
		validation.Field(&c.Cache),
		validation.Field(&c.Search),
		validation.Field(&c.Logging),
	)
}

// defaultConfigPath returns the directory searched for config.yaml
func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// defaultDataPath returns the directory holding the local store
func defaultDataPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// Load reads configuration from path, or from config.yaml in the default
// locations when path is empty, then applies environment overrides and
// validates the result. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("remote.base_url", cfg.Remote.BaseURL)
	v.SetDefault("remote.api_key", cfg.Remote.APIKey)
	v.SetDefault("remote.timeout", cfg.Remote.Timeout)
	v.SetDefault("remote.rate_limit", cfg.Remote.RateLimit)
	v.SetDefault("remote.burst", cfg.Remote.Burst)
	v.SetDefault("remote.media_type", cfg.Remote.MediaType)

	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)

	v.SetDefault("cache.capacity", cfg.Cache.Capacity)
	v.SetDefault("cache.num_shards", cfg.Cache.NumShards)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", cfg.Cache.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", cfg.Cache.EvictionInterval)

	v.SetDefault("search.workers", cfg.Search.Workers)
	v.SetDefault("search.preserve_on_empty", cfg.Search.PreserveOnEmpty)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
