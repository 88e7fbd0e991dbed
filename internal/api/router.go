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

		// Session endpoints
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/signout", s.handleSignOut)

		// Dashboard state
		r.Get("/view", s.handleView)
		r.Post("/refetch", s.handleRefetch)

		// Space endpoints
		r.Route("/spaces", func(r chi.Router) {
			r.Get("/", s.handleListSpaces)
			r.Post("/", s.handleCreateSpace)
			r.Post("/{id}/select", s.handleSelectSpace)
			r.Post("/{id}/devices", s.handleCreateDevice)
		})

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/select", s.handleSelectDevice)
			r.Post("/toggle", s.handleToggle)
		})

		// WebSocket for live view snapshots
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
