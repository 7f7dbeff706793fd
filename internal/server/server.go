// Package server provides the HTTP API for imi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/search"
	"github.com/hyperjump/imi/internal/vector"
	"go.uber.org/zap"
)

// Searcher is the search surface the API needs. *search.Orchestrator[models.Item, string]
// implements it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]vector.Scored[models.Item], error)
	Status() search.Status
	CleanupExpired() (items, queries int)
	ClearCaches(resetStats bool)
	Notifier() *search.Notifier
}

// ItemCounter reports the corpus size.
type ItemCounter interface {
	Len() int
}

// Reloader reloads the corpus and returns the new item count.
type Reloader func(ctx context.Context) (int, error)

// Server is the HTTP server for the imi API.
type Server struct {
	searcher Searcher
	items    ItemCounter
	reload   Reloader
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithReloader exposes POST /api/v1/corpus/reload.
func WithReloader(fn Reloader) Option {
	return func(s *Server) { s.reload = fn }
}

// NewServer creates a server with the given dependencies.
func NewServer(searcher Searcher, items ItemCounter, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		items:    items,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Post("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/status", s.handleStatus)
		r.Post("/api/v1/cache/cleanup", s.handleCacheCleanup)
		r.Post("/api/v1/cache/clear", s.handleCacheClear)
		r.Get("/api/v1/notices/last", s.handleLastNotice)
		if s.reload != nil {
			r.Post("/api/v1/corpus/reload", s.handleReload)
		}
		r.Get("/health", s.handleHealth)
	})

	// Long-lived stream: no request timeout and no response buffering.
	r.Get("/api/v1/notices/stream", s.handleNoticeStream)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
