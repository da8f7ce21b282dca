// Package server has the generic HTTP plumbing shared by anything in this
// repo that listens: router setup, access logging, panic recovery, and
// handlers that return errors.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	apperrs "newsrss/internal/errors"
	"newsrss/internal/logger"
)

type (
	// Server wraps [http.Server] with the timeouts and middleware every
	// listener here should have.
	Server struct {
		http.Server
	}
)

// New creates a server bound to addr and returns it along with the router
// to attach routes to. The name shows up in access logs.
func New(name, addr string) (*Server, ErrRouter) {
	r := ErrRouter{Router: mux.NewRouter()}

	return &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler:      handlers.RecoveryHandler()(accessLogWrapper{serverName: name, inner: r}),
		},
	}, r
}

// Implements [http.Handler] to wrap each call with an access log.
//
// Each request gets an id attached to its context so everything logged while
// handling it can be tied back together.
type accessLogWrapper struct {
	serverName string
	inner      http.Handler
}

func (alw accessLogWrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logger.Ctx(r.Context(), slog.String("request_id", uuid.NewString()))
	r = r.WithContext(ctx)

	slog.InfoContext(ctx, "request received", "server", alw.serverName, "method", r.Method, "path", r.URL.Path)
	start := time.Now()

	writer := &respCodeWriter{ResponseWriter: w}
	alw.inner.ServeHTTP(writer, r)

	slog.InfoContext(ctx, "request completed",
		"server", alw.serverName,
		"method", r.Method,
		"url", r.URL.String(),
		"duration", time.Since(start),
		"status_code", writer.code,
	)
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *respCodeWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	// Either it's already a structured error, or coerce it to one
	sErr := &apperrs.Error{}
	if !errors.As(err, &sErr) {
		sErr = apperrs.E(http.StatusInternalServerError, err)
	}

	slog.ErrorContext(r.Context(), "request failed", "error", err, "status_code", sErr.Status)

	// The routes served here are feed documents, so errors carry a status
	// and no body.
	w.WriteHeader(sErr.Status)
}

// ErrRouter is a newtype around a mux router that allows attaching handlers
// that return errors.
type ErrRouter struct {
	*mux.Router
}

func (r ErrRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}
