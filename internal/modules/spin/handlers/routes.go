package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all spin operator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/spin", func(r chi.Router) {
		r.Post("/matrix", h.HandleMatrix)
	})
}
