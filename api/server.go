/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the operations console

ROUTES:
  GET  /api/health
  GET  /api/clients/{id}/config       Resolved client configuration
  PUT  /api/clients/{id}/config       Store client configuration
  GET  /api/clients/{id}/incentives   Stored incentive rules
  PUT  /api/clients/{id}/incentives   Replace incentive rules
  POST /api/clients/{id}/payroll      Run payroll (multipart)
  POST /api/clients/{id}/invoice      Run invoicing (multipart)
  GET  /api/runs                      Run audit trail
  GET  /api/scenarios                 Demo clients
  POST /api/scenarios/load            Seed a demo client

SECURITY NOTE:
  No authentication middleware currently. Deploy behind the gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cli/serve.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/flexpay-engine/logging"
)

// DefaultAllowedOrigins is used when no CORS origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/clients/{id}", func(r chi.Router) {
			r.Get("/config", h.GetClientConfig)
			r.Put("/config", h.PutClientConfig)
			r.Get("/incentives", h.ListIncentiveRules)
			r.Put("/incentives", h.PutIncentiveRules)
			r.Post("/payroll", h.RunPayroll)
			r.Post("/invoice", h.RunInvoice)
		})

		r.Get("/runs", h.ListRuns)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
