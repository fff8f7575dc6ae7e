package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xavierca1/leadsync/internal/infra/http/middleware"
)

func NewRouter(health *HealthHandler, monitor *MonitoringHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", monitor.HandleStats)
		r.Get("/runs", monitor.HandleRuns)
		r.Get("/consultants", monitor.HandleConsultants)
		r.Get("/bitrix/stats", monitor.HandleBitrixStats)
		r.Get("/bitrix/recent", monitor.HandleBitrixRecent)
		r.Get("/bitrix/errors", monitor.HandleBitrixErrors)
	})

	return r
}
