package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Get("/", h.HandleListResults)
		r.Post("/run", h.HandleRunBatch)
		r.Post("/preview", h.HandlePreview)
		r.Get("/batches/latest", h.HandleGetLatestBatch)

		r.Route("/{symbol}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetResult(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetSummary(w, r, chi.URLParam(r, "symbol"))
			})
		})
	})
}
