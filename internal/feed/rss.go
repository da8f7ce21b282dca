package feed

import (
	"encoding/xml"
	"time"

	apperrs "newsrss/internal/errors"
	"newsrss/internal/scrape"
)

// The RSS 2.0 document we serve, modeled directly on the wire format.
type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string  `xml:"title"`
	Link    string  `xml:"link"`
	GUID    rssGUID `xml:"guid"`
	PubDate string  `xml:"pubDate"`
	Content string  `xml:"content:encoded"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// renderRSS builds the feed document for a source from its cached articles,
// one item per article in cache order. An article's link is its permalink
// identity; dates render with their zone offset.
func renderRSS(src scrape.Source, articles []scrape.Article) ([]byte, error) {
	items := make([]rssItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, rssItem{
			Title:   a.Headline,
			Link:    a.Link,
			GUID:    rssGUID{IsPermaLink: true, Value: a.Link},
			PubDate: a.Date.Format(time.RFC1123Z),
			Content: a.Body,
		})
	}

	doc := rssDoc{
		Version:   "2.0",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		Channel: rssChannel{
			Title:       src.Name,
			Link:        src.BaseURL,
			Description: "Latest articles from " + src.Name,
			Items:       items,
		},
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, apperrs.E(apperrs.KindSerialization, err)
	}

	return append([]byte(xml.Header), out...), nil
}
