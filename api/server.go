/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/ingredients/*      Ingredient registry
  /api/shopping-events/*  Shopping trips
  /api/batches/*          Purchase batches (discard, status)
  /api/inventory/*        Stock views
  /api/usages/*           Consumption records
  /api/reports/*          Dashboard and period reports
  /api/units/*            Unit matrix

SECURITY NOTE:
  No authentication middleware. This is a single-household service on a
  trusted network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", h.ListIngredients)
			r.Post("/", h.CreateIngredient)
		})

		r.Route("/shopping-events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateTrip)
			r.Get("/{id}", h.GetEvent)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", h.CreateBatch)
			r.Post("/{id}/discard", h.DiscardBatch)
			r.Post("/{id}/status", h.SetBatchStatus)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.ListInventory)
			r.Get("/value", h.InventoryValue)
			r.Get("/expiring", h.InventoryExpiring)
		})

		r.Route("/usages", func(r chi.Router) {
			r.Post("/", h.CreateUsage)
			r.Delete("/{id}", h.DeleteUsage)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/daily/{date}", h.DailyReport)
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.ListUnits)
			r.Post("/", h.SaveUnit)
		})
	})

	return r
}
