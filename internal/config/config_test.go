package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	dir := isolate(t)
	t.Setenv("MEDIASEARCH_REMOTE_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Remote.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Remote.APIKey)
	}
	if cfg.Remote.BaseURL != "https://www.omdbapi.com/" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Driver = %q", cfg.Store.Driver)
	}
	if want := filepath.Join(dir, "data", "mediasearch", "omdb.db"); cfg.Store.Path != want {
		t.Errorf("Path = %q, want %q", cfg.Store.Path, want)
	}
	if cfg.Search.Workers != 4 || cfg.Search.PreserveOnEmpty {
		t.Errorf("unexpected search config %+v", cfg.Search)
	}
	if cfg.Cache.Capacity != DefaultConfig().Cache.Capacity {
		t.Errorf("cache capacity = %d", cfg.Cache.Capacity)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	isolate(t)

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
remote:
  api_key: file-key
  timeout: 3s
  rate_limit: 2.5
  media_type: series
store:
  driver: bolt
  path: /tmp/media.bolt
cache:
  ttl: 1m
search:
  workers: 8
  preserve_on_empty: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Remote.APIKey != "file-key" || cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("unexpected remote config %+v", cfg.Remote)
	}
	if cfg.Remote.RateLimit != 2.5 || cfg.Remote.MediaType != "series" {
		t.Errorf("unexpected remote config %+v", cfg.Remote)
	}
	if cfg.Store.Driver != DriverBolt || cfg.Store.Path != "/tmp/media.bolt" {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Search.Workers != 8 || !cfg.Search.PreserveOnEmpty {
		t.Errorf("unexpected search config %+v", cfg.Search)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "remote:\n  api_key: file-key\nsearch:\n  workers: 2\n")
	t.Setenv("MEDIASEARCH_SEARCH_WORKERS", "6")
	t.Setenv("MEDIASEARCH_STORE_DRIVER", "bolt")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Workers != 6 {
		t.Errorf("Workers = %d, want env override", cfg.Search.Workers)
	}
	if cfg.Store.Driver != DriverBolt {
		t.Errorf("Driver = %q, want env override", cfg.Store.Driver)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "remote:\n  api_key: k\nstore:\n  driver: postgres\n"},
		{name: "zero workers", body: "remote:\n  api_key: k\nsearch:\n  workers: 0\n"},
		{name: "bad log format", body: "remote:\n  api_key: k\nlogging:\n  format: xml\n"},
		{name: "bad cache", body: "remote:\n  api_key: k\ncache:\n  capacity: 0\n"},
		{name: "malformed yaml", body: "remote: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if _, err := Load(writeConfig(t, dir, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)
	t.Setenv("MEDIASEARCH_REMOTE_API_KEY", "k")

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
