/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     logrus line per request (method, path, status, duration)
  3. Recoverer:  Panic recovery (logged 500 in the error envelope)
  4. CORS:       Cross-origin requests for the frontend
  5. Auth:       Bearer token to Principal, /api routes only

ROUTE GROUPS:
  /api/requests/*     Claims, transitions, lines of a claim
  /api/lines/*        Lines, employee response, attendance
  /api/days/*         Calendar registry
  /api/departments    Directory
  /api/employees      Directory
  /api/scenarios/*    Demo scenarios (only with Options.Scenarios, no auth)
  /healthz            Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options configures NewRouter.
type Options struct {
	AllowedOrigins []string
	// Scenarios mounts the demo scenario routes. Development only.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(recoverer(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessages(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessages(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.Scenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			// Claim routes
			r.Route("/requests", func(r chi.Router) {
				r.Get("/", h.ListRequests)
				r.Post("/", h.CreateRequest)
				r.Get("/{id}", h.GetRequest)
				r.Patch("/{id}", h.UpdateRequest)
				r.Delete("/{id}", h.DeleteRequest)
				r.Post("/{id}/transition", h.TransitionRequest)
				r.Get("/{id}/lines", h.ListRequestLines)
				r.Post("/{id}/lines", h.CreateLines)
			})

			// Line routes
			r.Route("/lines", func(r chi.Router) {
				r.Get("/", h.ListLines)
				r.Get("/{id}", h.GetLine)
				r.Patch("/{id}", h.UpdateLine)
				r.Delete("/{id}", h.DeleteLine)
				r.Post("/{id}/response", h.RespondToLine)
				r.Post("/{id}/attendance", h.CertifyAttendance)
			})

			// Calendar routes
			r.Route("/days", func(r chi.Router) {
				r.Get("/", h.ListDays)
				r.Post("/", h.CreateDay)
				r.Get("/{id}", h.GetDay)
				r.Delete("/{id}", h.DeleteDay)
			})

			// Directory routes
			r.Get("/departments", h.ListDepartments)
			r.Get("/employees", h.ListEmployees)
		})
	})

	return r
}
