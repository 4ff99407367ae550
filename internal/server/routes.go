package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Event streaming (SSE) and injection
	r.Get("/event", s.streamEvents)
	r.Post("/event", s.emitEvent)

	// Hook dispatch
	r.Post("/hook/{name}", s.callHook)

	// Health and metrics
	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
}
