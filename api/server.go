/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request log with the request ID
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/auth/*                                 Sign in / sign out
  /api/projects/{projectID}/towers/{towerID}  Tower views and writes (session required)
  /api/scenarios/*                            Demo scenarios (session required, load needs the local store)

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
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Post("/auth/signout", h.SignOut)

			r.Route("/projects/{projectID}/towers/{towerID}", func(r chi.Router) {
				r.Get("/pending", h.GetPending)
				r.Get("/units/{unitID}/state", h.GetUnitState)
				r.Get("/eligible", h.GetEligible)
				r.Post("/installations", h.CreateInstallation)
				r.Get("/supply", h.GetSupply)
				r.Post("/supplies", h.CreateSupply)
				r.Get("/progress", h.GetProgress)
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		})
	})

	return r
}
