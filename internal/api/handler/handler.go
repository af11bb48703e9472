// Package handler provides HTTP handlers for all API endpoints.
// Read-only listings query Postgres directly through prepared statements
// that return complete JSON; handlers pass raw bytes through. Writes go
// through the domain services.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/cache"
	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/documents"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/registration"
	"github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/schedule"
	"github.com/albapepper/courtside/internal/validate"
)

// DB is the subset of *pgxpool.Pool the handlers use.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Deps lists the handler dependencies. Nil services disable their routes'
// behaviour with a 503.
type Deps struct {
	DB            DB
	Cache         *cache.Cache
	Config        *config.Config
	Logger        *slog.Logger
	Roster        roster.Store
	Registrations *registration.Service
	Checkout      *payments.CheckoutService
	Gateway       payments.Gateway
	Webhooks      *payments.Processor
	Documents     *documents.Service
	Schedule      *schedule.Service
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db            DB
	cache         *cache.Cache
	cfg           *config.Config
	logger        *slog.Logger
	roster        roster.Store
	registrations *registration.Service
	checkout      *payments.CheckoutService
	gateway       payments.Gateway
	webhooks      *payments.Processor
	documents     *documents.Service
	schedule      *schedule.Service
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	c := d.Cache
	if c == nil {
		c = cache.New(false)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:            d.DB,
		cache:         c,
		cfg:           d.Config,
		logger:        logger,
		roster:        d.Roster,
		registrations: d.Registrations,
		checkout:      d.Checkout,
		gateway:       d.Gateway,
		webhooks:      d.Webhooks,
		documents:     d.Documents,
		schedule:      d.Schedule,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":     "Courtside API",
		"version":  "1.0.0",
		"status":   "running",
		"docs":     "/docs",
		"payments": h.gateway != nil,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	if h.db == nil || h.db.QueryRow(r.Context(), "health_check").Scan(&n) != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps domain errors onto the error envelope.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		respond.WriteErrorFields(w, "Request validation failed", verr.Fields)
	case errors.Is(err, payments.ErrNotFound), errors.Is(err, documents.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound), errors.Is(err, roster.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, respond.CodeNotFound, "Resource not found")
	case errors.Is(err, payments.ErrNotPayable):
		respond.WriteErrorDetail(w, http.StatusConflict, respond.CodeConflict, "Payment cannot be paid", err.Error())
	case errors.Is(err, payments.ErrNotConfigured):
		respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeNotConfigured, "Payments are not configured")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeDatabaseError, "Database operation failed")
	}
}

func notConfigured(w http.ResponseWriter, what string) {
	respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeNotConfigured, what+" is not configured")
}
