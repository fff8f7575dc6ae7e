package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xavierca1/leadsync/internal/entity"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	syncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_cycles_total",
			Help: "Total number of sync cycles by final status",
		},
		[]string{"status"},
	)

	syncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadsync_cycle_duration_seconds",
			Help:    "Duration of sync cycles in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	syncLastChanges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadsync_last_cycle_leads",
			Help: "Lead counts of the last successful cycle by classification",
		},
		[]string{"kind"},
	)

	syncRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadsync_cycle_retries_total",
			Help: "Total number of cycle retries after a failure",
		},
	)

	crmReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_crm_reconciliations_total",
			Help: "Total number of CRM reconciliations by status",
		},
		[]string{"status"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		// Padrão da rota (/runs/{id}) em vez do path cru para não explodir labels
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func RecordCycle(run *entity.SyncRunResult) {
	syncCyclesTotal.WithLabelValues(string(run.Status)).Inc()
	syncCycleDuration.Observe(run.Duration.Seconds())

	if run.Succeeded() {
		syncLastChanges.WithLabelValues("processed").Set(float64(run.Processed))
		syncLastChanges.WithLabelValues("new").Set(float64(run.New))
		syncLastChanges.WithLabelValues("removed").Set(float64(run.Removed))
		syncLastChanges.WithLabelValues("unchanged").Set(float64(run.Unchanged))
	}
}

func RecordRetry() {
	syncRetriesTotal.Inc()
}

func RecordReconciliation(status entity.ProcessingStatus) {
	crmReconciliationsTotal.WithLabelValues(string(status)).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
