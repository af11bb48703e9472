// Package api assembles the HTTP router: middleware, role gates and routes.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/courtside/internal/api/handler"
	"github.com/albapepper/courtside/internal/auth"
	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/metrics"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(h *handler.Handler, sessions *auth.Service, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json", "text/plain")) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag", "Content-Disposition"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// Session tokens are optional at this level; role gates below enforce them.
	r.Use(sessions.Authenticate)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Handle("/metrics", metrics.Handler())

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/registrations", h.Register)
		r.Get("/teams", h.ListTeams)
		r.Get("/teams/{id}/schedule", h.TeamSchedule)

		// Authenticated by the Stripe-Signature header, not a session.
		r.Post("/webhooks/stripe", h.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(auth.RoleAdmin))
			r.Get("/imports/template", h.GetImportTemplate)
			r.Post("/imports/parse", h.ParseImport)
			r.Post("/imports/preview", h.PreviewImport)
			r.Post("/imports/execute", h.ExecuteImport)
			r.Get("/admin/summary", h.AdminSummary)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(auth.RoleParent, auth.RoleAdmin))
			r.Post("/payments/checkout", h.StartCheckout)
			r.Get("/payments/{id}/invoice.pdf", h.InvoicePDF)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(auth.RoleCoach, auth.RoleAdmin))
			r.Post("/teams/{id}/schedule", h.CreateEvent)
			r.Delete("/schedule/{eventID}", h.DeleteEvent)
			r.Get("/teams/{id}/roster", h.TeamRoster)
		})

		r.With(auth.Require(auth.RoleParent, auth.RoleCoach, auth.RoleAdmin)).
			Get("/players/{id}/welcome.pdf", h.WelcomePDF)
	})

	return r
}
