package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all VQE routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/vqe", func(r chi.Router) {
		r.Post("/observe", h.HandleObserve)
		r.Post("/minimize", h.HandleMinimize)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleListRuns)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRun(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/{id}/watch", func(w http.ResponseWriter, r *http.Request) {
				h.HandleWatchRun(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
