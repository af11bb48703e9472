// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide registry. It carries Go runtime and process
// collectors plus the application collectors below.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ImportRows counts executed import rows by outcome (success|error).
	ImportRows = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtside",
		Subsystem: "roster_import",
		Name:      "rows_total",
		Help:      "Roster import rows executed, by outcome.",
	}, []string{"outcome"})

	// PreviewRows counts previewed rows by classification.
	PreviewRows = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtside",
		Subsystem: "roster_import",
		Name:      "preview_rows_total",
		Help:      "Roster import rows previewed, by status.",
	}, []string{"status"})

	// WebhookEvents counts payment webhook deliveries by event type and
	// outcome (applied|duplicate|ignored|error).
	WebhookEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtside",
		Subsystem: "payments",
		Name:      "webhook_events_total",
		Help:      "Payment webhook events received, by type and outcome.",
	}, []string{"type", "outcome"})

	// OutboxDeliveries counts email delivery attempts by result.
	OutboxDeliveries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtside",
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox email delivery attempts, by result.",
	}, []string{"result"})

	// Registrations counts accepted registrations.
	Registrations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "courtside",
		Name:      "registrations_total",
		Help:      "Registrations accepted.",
	})

	requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtside",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Middleware observes request latency labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
