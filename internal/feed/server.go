package feed

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	apperrs "newsrss/internal/errors"
	"newsrss/internal/scrape"
	"newsrss/internal/server"
)

type (
	// Server answers GET /{source}.rss from the cache. It never scrapes:
	// a request is a read of the last committed entry plus a render.
	Server struct {
		*server.Server

		cache    *Cache
		routes   map[string]scrape.Source
		rendered *lru.Cache[string, renderedFeed]
	}

	// A marshaled document, valid while the cache entry it was built
	// from is still the current generation.
	renderedFeed struct {
		gen  uint64
		body []byte
	}
)

// NewServer creates the feed server with one route per source, keyed by the
// source's lowercase name.
func NewServer(addr string, sources []scrape.Source, cache *Cache) (*Server, error) {
	rendered, err := lru.New[string, renderedFeed](64)
	if err != nil {
		return nil, fmt.Errorf("error creating render cache: %s", err)
	}

	s, r := server.New("feed", addr)
	srvr := &Server{
		Server:   s,
		cache:    cache,
		routes:   make(map[string]scrape.Source, len(sources)),
		rendered: rendered,
	}
	for _, src := range sources {
		srvr.routes[strings.ToLower(src.Name)] = src
	}

	r.HandleFuncE("/{feed}.rss", srvr.handleFeed).Methods(http.MethodGet)

	return srvr, nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) error {
	name := mux.Vars(r)["feed"]

	src, ok := s.routes[name]
	if !ok {
		return apperrs.E(http.StatusNotFound, fmt.Sprintf("no feed named %q", name))
	}
	articles, gen, ok := s.cache.Lookup(src.Name)
	if !ok {
		// Nothing scraped yet for this source
		return apperrs.E(http.StatusNotFound, fmt.Sprintf("feed %q has no articles yet", name))
	}

	if cached, ok := s.rendered.Get(name); ok && cached.gen == gen {
		return writeRSS(w, cached.body)
	}

	body, err := renderRSS(src, articles)
	if err != nil {
		return err
	}
	s.rendered.Add(name, renderedFeed{gen: gen, body: body})

	return writeRSS(w, body)
}

func writeRSS(w http.ResponseWriter, body []byte) error {
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("error writing feed response: %s", err)
	}

	return nil
}
