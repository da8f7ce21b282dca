// Package scrape turns a news site's listing page into structured articles.
//
// A [Source] describes one site declaratively: where the listing lives,
// which selectors identify each piece of an article, and how to read the
// site's date format. A [Scraper] does the actual work: fetch the listing,
// fan out over every linked article page, and hand back the articles in
// listing order.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	apperrs "newsrss/internal/errors"
)

type (
	// Article is one piece extracted from a source. Its Link doubles as
	// its identity in the rendered feed.
	Article struct {
		Headline string
		Link     string
		Body     string
		Image    string // empty when the source has no image selector
		Date     time.Time
	}

	// Source describes how to scrape one site. It's pure data, built once
	// at startup; Name is the cache key and its lowercase form is the
	// feed route.
	Source struct {
		Name        string
		BaseURL     string
		ListingPath string

		ArticleSelector  string
		HeadlineSelector string
		LinkSelector     string
		BodySelector     string
		ImageSelector    string // optional
		DateSelector     string

		ParseDate func(string) (time.Time, error)
	}
)

// url resolves path against the source's base URL.
func (s Source) url(path string) (string, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("error parsing base url %q: %w", s.BaseURL, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("error parsing %q: %w", path, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// Scraper extracts articles for sources. It is safe for concurrent use.
type Scraper struct {
	client *http.Client
	limit  int
}

// NewScraper creates a scraper that fetches with the given client and runs
// at most limit article fetches at once per source.
func NewScraper(client *http.Client, limit int) *Scraper {
	return &Scraper{
		client: client,
		limit:  limit,
	}
}

// Articles fetches the source's listing page and every article it links to,
// returning the articles in the order the listing presented them.
//
// Extraction is all-or-nothing: if any single article fails, the whole
// result for the source is the error and no partial list comes back.
func (sc *Scraper) Articles(ctx context.Context, src Source) ([]Article, error) {
	listingURL, err := src.url(src.ListingPath)
	if err != nil {
		return nil, err
	}
	listing, err := sc.fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching listing for %s: %w", src.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listing))
	if err != nil {
		return nil, fmt.Errorf("error parsing listing for %s: %w", src.Name, err)
	}

	var entries []*goquery.Selection
	doc.Find(src.ArticleSelector).Each(func(_ int, sel *goquery.Selection) {
		entries = append(entries, sel)
	})

	// Fan out over the entries, pairing each result back with its listing
	// index so the output order matches document order.
	articles := make([]Article, len(entries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sc.limit)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			a, err := sc.article(gCtx, src, entry)
			if err != nil {
				return err
			}
			articles[i] = a

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error scraping %s: %w", src.Name, err)
	}

	return articles, nil
}

var bodyPolicy = bluemonday.UGCPolicy()

// article resolves one listing entry into an Article, fetching the
// article's own page for its body, image, and date.
func (sc *Scraper) article(ctx context.Context, src Source, entry *goquery.Selection) (Article, error) {
	headline := strings.TrimSpace(entry.Find(src.HeadlineSelector).Text())

	href, ok := entry.Find(src.LinkSelector).Attr("href")
	if !ok {
		return Article{}, apperrs.E(apperrs.KindMissingAttribute, fmt.Sprintf("article link for %q has no href", headline))
	}
	link, err := src.url(href)
	if err != nil {
		return Article{}, err
	}

	page, err := sc.fetch(ctx, link)
	if err != nil {
		return Article{}, fmt.Errorf("error fetching article %s: %w", link, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Article{}, fmt.Errorf("error parsing article %s: %w", link, err)
	}

	body, err := doc.Find(src.BodySelector).Html()
	if err != nil {
		return Article{}, fmt.Errorf("error reading body of %s: %w", link, err)
	}

	var image string
	if src.ImageSelector != "" {
		imgSrc, ok := doc.Find(src.ImageSelector).Attr("src")
		if !ok {
			return Article{}, apperrs.E(apperrs.KindMissingAttribute, fmt.Sprintf("image for article %s has no src", link))
		}
		if image, err = src.url(imgSrc); err != nil {
			return Article{}, err
		}
	}

	date, err := src.ParseDate(doc.Find(src.DateSelector).Text())
	if err != nil {
		return Article{}, apperrs.E(apperrs.KindDateParse, fmt.Errorf("article %s: %w", link, err))
	}

	return Article{
		Headline: headline,
		Link:     link,
		Body:     bodyPolicy.Sanitize(body),
		Image:    image,
		Date:     date,
	}, nil
}

// fetch GETs the url, retrying transient failures, and returns the body.
//
// Anything that still fails after the retry budget comes back as a
// transport error.
func (sc *Scraper) fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := sc.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		body = b

		return nil
	})
	if err != nil {
		return nil, apperrs.E(apperrs.KindTransport, err)
	}

	return body, nil
}
