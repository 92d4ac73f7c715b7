package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/http/handlers"
	mw "github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/middleware"
)

// NewRouter builds the admin/ops HTTP surface.
func NewRouter(h *handlers.AdminHandlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Component("admin-api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireAdmin)

		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Patch("/{id}", h.SetProductActive)
		})

		r.Route("/content/{key}", func(r chi.Router) {
			r.Put("/", h.SetSectionText)
			r.Post("/photos", h.AddSectionPhoto)
			r.Get("/photos", h.ListSectionPhotos)
			r.Delete("/photos", h.ClearSectionPhotos)
		})

		r.Get("/orders/{id}", h.GetOrder)
		r.Get("/users", h.ListUsers)
	})

	return r
}
