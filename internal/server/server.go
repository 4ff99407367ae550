// Package server exposes the dispatch system over HTTP so out-of-process
// channel adapters can emit events, call hooks, and stream the bus via SSE.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wirebus/wirebus/internal/config"
	"github.com/wirebus/wirebus/internal/event"
	"github.com/wirebus/wirebus/internal/logging"
)

// Server is the HTTP server.
type Server struct {
	config  *config.Config
	router  *chi.Mux
	httpSrv *http.Server
	system  *event.System
}

// New creates a server over the given dispatch system.
func New(cfg *config.Config, system *event.System) *Server {
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		system: system,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.Server.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

// Handler returns the server's root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Hostname, s.config.Server.Port)
	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE connections stay open indefinitely.
	}

	logging.Info().Str("addr", addr).Msg("server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
