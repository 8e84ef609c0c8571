// Package server implements the HTTP surface: the submission form, the
// visualization pipeline, shareable pages, and the JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/transformerzoo/zoo-server/pkg/transformer"
	"github.com/transformerzoo/zoo-server/server/internal/auth"
	"github.com/transformerzoo/zoo-server/server/internal/cache"
	"github.com/transformerzoo/zoo-server/server/internal/httpx"
	"github.com/transformerzoo/zoo-server/server/internal/monitoring"
	"github.com/transformerzoo/zoo-server/server/internal/rate"
	"github.com/transformerzoo/zoo-server/server/internal/runtime"
	"github.com/transformerzoo/zoo-server/server/internal/store"
)

// New creates a server.
func New(
	st *store.S,
	c *cache.C,
	limiter rate.Limiter,
	rt *runtime.M,
	authn *auth.Authenticator,
	metrics monitoring.MetricsMonitoring,
	maxInputTokens int,
	logger logr.Logger,
) *S {
	return &S{
		store:          st,
		cache:          c,
		limiter:        limiter,
		runtime:        rt,
		authn:          authn,
		metrics:        metrics,
		tokenizer:      transformer.NewTokenizer(),
		maxInputTokens: maxInputTokens,
		logger:         logger.WithName("server"),
	}
}

// S is a server.
type S struct {
	store   *store.S
	cache   *cache.C
	limiter rate.Limiter
	runtime *runtime.M
	authn   *auth.Authenticator
	metrics monitoring.MetricsMonitoring

	tokenizer      *transformer.Tokenizer
	maxInputTokens int

	logger logr.Logger

	srv *http.Server
}

// Handler builds the routing table.
func (s *S) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.Handle("POST /visualize", s.authn.OptionalMiddleware(http.HandlerFunc(s.handleVisualize)))
	mux.HandleFunc("GET /viz/{shareToken}", s.handleSharedVisualization)
	mux.HandleFunc("GET /unload", s.handleUnload)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/visualizations", s.handleListVisualizations)
	mux.HandleFunc("GET /api/visualizations/{id}/export", s.handleExport)
	mux.HandleFunc("GET /api/visualizations/{id}/annotations", s.handleListAnnotations)
	mux.Handle("POST /api/visualizations/{id}/annotations", s.authn.Middleware(http.HandlerFunc(s.handleCreateAnnotation)))
	mux.Handle("PATCH /api/annotations/{id}", s.authn.Middleware(http.HandlerFunc(s.handleUpdateAnnotation)))
	mux.Handle("DELETE /api/annotations/{id}", s.authn.Middleware(http.HandlerFunc(s.handleDeleteAnnotation)))

	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.Handle("POST /api/cache/clear", s.authn.Middleware(http.HandlerFunc(s.handleCacheClear)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return httpx.CORS{}.Wrap(mux)
}

// Run starts the HTTP server. It blocks until the server stops.
func (s *S) Run(port int) error {
	s.logger.Info("Starting HTTP server", "port", port)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %s", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *S) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *S) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// clientIP extracts the caller's address for rate limiting keys.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
