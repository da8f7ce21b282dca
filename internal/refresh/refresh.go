// Package refresh drives the scrape cycle that keeps the feed cache warm.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsrss/internal/feed"
	"newsrss/internal/scrape"
)

// Refresher repeatedly scrapes every configured source and commits the
// results to the cache.
type Refresher struct {
	scraper  *scrape.Scraper
	sources  []scrape.Source
	cache    *feed.Cache
	interval time.Duration
}

func New(scraper *scrape.Scraper, sources []scrape.Source, cache *feed.Cache, interval time.Duration) *Refresher {
	return &Refresher{
		scraper:  scraper,
		sources:  sources,
		cache:    cache,
		interval: interval,
	}
}

// Run scrapes once immediately, then again every interval until ctx is done.
// It has no other way to stop.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single cycle: all sources scraped concurrently, each one
// committed or skipped on its own.
//
// A source that fails keeps whatever the cache already holds for it, so
// stale-but-valid articles stay served instead of flapping to 404.
func (r *Refresher) RunOnce(ctx context.Context) {
	slog.InfoContext(ctx, "refresh cycle started", "sources", len(r.sources))
	start := time.Now()

	var wg sync.WaitGroup
	for _, src := range r.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()

			articles, err := r.scraper.Articles(ctx, src)
			if err != nil {
				slog.ErrorContext(ctx, "refresh failed, keeping last good articles", "source", src.Name, "error", err)
				return
			}

			r.cache.Replace(src.Name, articles)
			slog.InfoContext(ctx, "refreshed source", "source", src.Name, "articles", len(articles))
		}()
	}
	wg.Wait()

	slog.InfoContext(ctx, "refresh cycle done", "duration", time.Since(start))
}
