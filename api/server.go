/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: Structured request logging (logrus)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the mobile frontend

ROUTE GROUPS:
  /api/accounts/*    Profile, balance, card, history, top-ups, fares
  /api/scenarios/*   Demo scenario loaders (dev only)

SECURITY NOTE:
  No authentication middleware currently; the account id comes from the
  path and is wrapped into an explicit fare.Session per request. A
  production deployment puts a token check in front and derives the
  session from it instead.

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
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateProfile)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Get("/balance", h.GetBalance)
				r.Get("/transactions", h.GetTransactions)

				r.Route("/card", func(r chi.Router) {
					r.Post("/", h.RegisterCard)
					r.Get("/", h.GetCard)
					r.Delete("/", h.DeleteCard)
				})

				r.Route("/topups", func(r chi.Router) {
					r.Post("/", h.InitiateTopUp)
					r.Post("/confirm", h.ConfirmTopUp)
				})

				r.Route("/fare", func(r chi.Router) {
					r.Post("/tag", h.AuthorizeTag)
					r.Post("/scan", h.AuthorizeScan)
				})
			})
		})

		// Demo scenarios (dev only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
