package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/message", s.sendMessage) // Streaming response
			r.Post("/abort", s.abortSession)
			r.Post("/abandon", s.abandonSession)
		})
	})

	// Document routes
	r.Route("/document", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Get("/content", s.readDocument)
	})

	// Provider routes
	r.Get("/provider", s.listProviders)
	r.Get("/model", s.listModels)

	// Event streaming (SSE)
	r.Get("/event", s.globalEvents)

	// Health
	r.Get("/health", s.health)
}
