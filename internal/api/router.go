package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Channel registry
		r.Route("/io", func(r chi.Router) {
			r.Get("/channels", s.handleListChannels)
			r.Get("/config", s.handleDescribeChannels)
			r.Get("/hardware", s.handleDescribeHardware)
			r.Get("/history/{id}", s.handleChannelHistory)
			r.Post("/discover", s.handleDiscover)
		})

		// System
		r.Route("/system", func(r chi.Router) {
			r.Get("/log", s.handleSystemLog)
		})

		// WebSocket (live snapshot stream)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"channels": s.registry.Count(),
	})
}
