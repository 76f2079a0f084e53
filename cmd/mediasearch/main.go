package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/goliatone/go-media-cache/internal/config"
	"github.com/goliatone/go-media-cache/internal/logging"
	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/pkg/di"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		configPath  string
		watch       bool
	)
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "path to config.yaml")
	flag.BoolVar(&watch, "watch", false, "print the local store on every change until interrupted")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: mediasearch [flags] [QUERY...]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Without queries the cached results are printed.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("mediasearch %s\n", Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, newContainer: newContainer}
	if err := a.run(ctx, configPath, watch, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*di.Container, error) {
	return di.NewContainer(ctx, cfg, logger)
}

type app struct {
	stdout       io.Writer
	stderr       io.Writer
	newContainer func(context.Context, *config.Config, *slog.Logger) (*di.Container, error)

	mu sync.Mutex // guards stdout
}

func (a *app) run(ctx context.Context, configPath string, watch bool, queries []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := logging.SetupLogger(cfg.Logging, a.stderr)
	if err != nil {
		// fall back to null logger if file logging fails
		fmt.Fprintf(a.stderr, "logging disabled: %v\n", err)
		logger = logging.NullLogger()
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting mediasearch", "version", Version, "driver", cfg.Store.Driver)

	container, err := a.newContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	var watcher sync.WaitGroup
	if watch {
		sub := container.Search().ObserveAll(ctx)
		defer sub.Close()

		watcher.Add(1)
		go func() {
			defer watcher.Done()
			for items := range sub.Updates() {
				a.printStore(items)
			}
			if err := sub.Err(); err != nil {
				logger.Error("watch ended", "error", err)
			}
		}()
	}

	if len(queries) == 0 && !watch {
		items, err := container.Store().Snapshot(ctx)
		if err != nil {
			return err
		}
		a.printStore(items)
		return nil
	}

	failed := 0
	for _, query := range queries {
		result, err := container.Search().SearchByQuery(ctx, query)
		a.printResult(query, result, err)
		if err != nil {
			failed++
		}
	}

	if watch {
		<-ctx.Done()
		watcher.Wait()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d searches failed", failed, len(queries))
	}
	return nil
}

func (a *app) printResult(query string, result *media.SearchResult, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var me *media.Error
	switch {
	case err != nil && errors.As(err, &me) && me.Kind == media.KindStore && result != nil:
		fmt.Fprintf(a.stdout, "%q: %d results, not cached: %v\n", query, len(result.Items), me.Err)
		return
	case err != nil:
		fmt.Fprintf(a.stdout, "%q: failed: %v\n", query, err)
		return
	case result.Empty():
		msg := result.Error
		if msg == "" {
			msg = "no results"
		}
		fmt.Fprintf(a.stdout, "%q: %s\n", query, msg)
		return
	}

	if total, ok := result.Total(); ok {
		fmt.Fprintf(a.stdout, "%q: %d of %d results\n", query, len(result.Items), total)
	} else {
		fmt.Fprintf(a.stdout, "%q: %d results\n", query, len(result.Items))
	}
	printItems(a.stdout, result.Items)
}

func (a *app) printStore(items []media.MediaItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fmt.Fprintf(a.stdout, "store: %d items\n", len(items))
	printItems(a.stdout, items)
}

func printItems(w io.Writer, items []media.MediaItem) {
	for _, item := range items {
		fmt.Fprintf(w, "  %-10s %-9s %-7s %s\n", item.ID, item.Year, item.Type, item.Title)
	}
}
