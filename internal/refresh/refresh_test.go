package refresh

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrss/internal/feed"
	"newsrss/internal/scrape"
)

const listing = `<html><body>
<div class="article"><span class="headline">One</span><a href="/a">read</a></div>
</body></html>`

const article = `<html><body>
<section class="body"><p>Body</p></section>
<span class="date">5 Mar 2024 09:30</span>
</body></html>`

// A site whose listing page can be toggled to fail.
func newToggleSite(t *testing.T) (*httptest.Server, *bool) {
	t.Helper()

	failing := new(bool)
	m := http.NewServeMux()
	m.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		if *failing {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, listing)
	})
	m.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, article)
	})

	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	return srv, failing
}

func testSource(t *testing.T, name, baseURL string) scrape.Source {
	t.Helper()

	return scrape.Source{
		Name:             name,
		BaseURL:          baseURL,
		ListingPath:      "/news/",
		ArticleSelector:  "div.article",
		HeadlineSelector: "span.headline",
		LinkSelector:     "a",
		BodySelector:     "section.body",
		DateSelector:     "span.date",
		ParseDate: func(text string) (time.Time, error) {
			return time.Parse("2 Jan 2006 15:04", text)
		},
	}
}

func TestRunOnce_CommitsAllSources(t *testing.T) {
	var (
		siteA, _ = newToggleSite(t)
		siteB, _ = newToggleSite(t)
		cache    = feed.NewCache()
		scraper  = scrape.NewScraper(http.DefaultClient, 4)
	)
	sources := []scrape.Source{
		testSource(t, "A", siteA.URL),
		testSource(t, "B", siteB.URL),
	}

	New(scraper, sources, cache, time.Hour).RunOnce(context.Background())

	a, _, ok := cache.Lookup("A")
	require.True(t, ok)
	require.Len(t, a, 1)
	assert.Equal(t, "One", a[0].Headline)

	_, _, ok = cache.Lookup("B")
	assert.True(t, ok)
}

func TestRunOnce_FailingSourceDoesNotBlockOthers(t *testing.T) {
	var (
		siteA, failA = newToggleSite(t)
		siteB, _     = newToggleSite(t)
		cache        = feed.NewCache()
		scraper      = scrape.NewScraper(http.DefaultClient, 4)
	)
	*failA = true
	sources := []scrape.Source{
		testSource(t, "A", siteA.URL),
		testSource(t, "B", siteB.URL),
	}

	New(scraper, sources, cache, time.Hour).RunOnce(context.Background())

	_, _, ok := cache.Lookup("A")
	assert.False(t, ok, "failed source should stay absent")

	b, _, ok := cache.Lookup("B")
	require.True(t, ok)
	assert.Len(t, b, 1)
}

func TestRunOnce_FailurePreservesLastGoodEntry(t *testing.T) {
	var (
		site, fail = newToggleSite(t)
		cache      = feed.NewCache()
		scraper    = scrape.NewScraper(http.DefaultClient, 4)
	)
	sources := []scrape.Source{testSource(t, "A", site.URL)}
	r := New(scraper, sources, cache, time.Hour)

	r.RunOnce(context.Background())
	good, gen1, ok := cache.Lookup("A")
	require.True(t, ok)
	require.Len(t, good, 1)

	// The site goes down; the next cycle must leave the entry untouched.
	*fail = true
	r.RunOnce(context.Background())

	after, gen2, ok := cache.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, good, after)
	assert.Equal(t, gen1, gen2)
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	var (
		site, _ = newToggleSite(t)
		cache   = feed.NewCache()
		scraper = scrape.NewScraper(http.DefaultClient, 4)
	)
	sources := []scrape.Source{testSource(t, "A", site.URL)}
	r := New(scraper, sources, cache, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	// Let the first cycle land, then shut down.
	require.Eventually(t, func() bool {
		_, _, ok := cache.Lookup("A")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop")
	}
}
