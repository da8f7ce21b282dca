// Newsrss scrapes news sites that don't publish a feed of their own and
// serves the results back as RSS.
//
// It periodically fetches each configured site's listing page, follows
// every article link it finds, and caches the structured articles so that
// GET /{source}.rss can be answered without touching the site.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	"golang.org/x/sync/errgroup"

	"newsrss/internal/feed"
	"newsrss/internal/logger"
	"newsrss/internal/refresh"
	"newsrss/internal/scrape"
)

type config struct {
	Addr string `env:"ADDR, default=0.0.0.0:3000"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`

	RefreshInterval  time.Duration `env:"REFRESH_INTERVAL, default=1h"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY, default=8"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l, err := logger.New(os.Stderr, cfg.LoggerFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("error creating logger: %s", err)
	}
	slog.SetDefault(l)

	// Start the application
	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	slog.Info("running", "config", cfg)

	sources, err := scrape.DefaultSources()
	if err != nil {
		return fmt.Errorf("error loading sources: %s", err)
	}

	cache := feed.NewCache()
	scraper := scrape.NewScraper(&http.Client{Timeout: cfg.FetchTimeout}, cfg.FetchConcurrency)

	s, err := feed.NewServer(cfg.Addr, sources, cache)
	if err != nil {
		return fmt.Errorf("error creating feed server: %s", err)
	}
	refresher := refresh.New(scraper, sources, cache, cfg.RefreshInterval)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Start the server
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	})
	g.Go(func() error {
		// Block from shutting down until the group is canceled
		<-gCtx.Done()

		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}

		return nil
	})

	g.Go(func() error {
		// Start the refresh loop
		if err := refresher.Run(gCtx); err != nil {
			return fmt.Errorf("error running refresher: %s", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}
