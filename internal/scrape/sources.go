package scrape

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // the sources below need their zones wherever this runs

	"github.com/araddon/dateparse"
)

// DefaultSources returns the sites this process scrapes.
//
// Every source here is independent: its own selectors, its own idea of how
// dates are written. Adding a site means adding an entry.
func DefaultSources() ([]Source, error) {
	dublin, err := time.LoadLocation("Europe/Dublin")
	if err != nil {
		return nil, fmt.Errorf("error loading zone: %w", err)
	}

	return []Source{
		rte(dublin),
		theJournal(dublin),
	}, nil
}

const rteDateLayout = "Updated / Monday, 2 Jan 2006 15:04"

func rte(dublin *time.Location) Source {
	return Source{
		Name:             "RTE",
		BaseURL:          "https://www.rte.ie/",
		ListingPath:      "/news/",
		ArticleSelector:  ":not(.av-box) ~ .article-meta",
		HeadlineSelector: "span.underline",
		LinkSelector:     "a",
		BodySelector:     "section.article-body",
		DateSelector:     "span.modified-date",
		ParseDate: func(text string) (time.Time, error) {
			t, err := time.ParseInLocation(rteDateLayout, strings.TrimSpace(text), dublin)
			if err != nil {
				// RTE drops the modified-date span on some articles;
				// those get stamped with the current Dublin time.
				return time.Now().In(dublin), nil
			}

			return t, nil
		},
	}
}

func theJournal(dublin *time.Location) Source {
	return Source{
		Name:             "TheJournal",
		BaseURL:          "https://www.thejournal.ie/",
		ListingPath:      "/news/",
		ArticleSelector:  "div.listing article.news-item",
		HeadlineSelector: "h4.title",
		LinkSelector:     "a",
		BodySelector:     "div.article-body",
		ImageSelector:    "figure.article-img img",
		DateSelector:     "time.published",
		ParseDate: func(text string) (time.Time, error) {
			t, err := dateparse.ParseIn(strings.TrimSpace(text), dublin)
			if err != nil {
				return time.Time{}, fmt.Errorf("error parsing date %q: %w", text, err)
			}

			return t.In(dublin), nil
		},
	}
}
