// Package logging builds the slog logger used by the command.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds logging configuration
type Config struct {
	File   string `mapstructure:"file"`   // empty logs to the fallback writer
	Level  string `mapstructure:"level"`  // DEBUG, INFO, WARN or ERROR
	Format string `mapstructure:"format"` // json or text, empty picks json for files
}

func DefaultConfig() Config {
	return Config{Level: "INFO"}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.By(knownLevel)),
		validation.Field(&c.Format, validation.In(FormatJSON, FormatText)),
	)
}

func knownLevel(value any) error {
	s, _ := value.(string)
	switch strings.ToUpper(s) {
	case "", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		return nil
	}
	return errors.New("must be one of DEBUG, INFO, WARN, ERROR")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogger initializes the slog logger. With cfg.File set it appends JSON
// records to that file, otherwise it writes text records to fallback. The
// returned Closer releases the file.
func SetupLogger(cfg Config, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	if cfg.File == "" {
		if fallback == nil {
			fallback = os.Stderr
		}
		return slog.New(newHandler(cfg.Format, FormatText, fallback, opts)), nopCloser{}, nil
	}

	logPath, err := expandHome(cfg.File)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(newHandler(cfg.Format, FormatJSON, logFile, opts)), logFile, nil
}

func newHandler(format, fallback string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "" {
		format = fallback
	}
	if format == FormatText {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
