package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/infra/http/handlers"
	"github.com/xavierca1/gestion-leads/internal/infra/http/middleware"
)

type Config struct {
	Logger      *zap.Logger
	AdminToken  string
	CORSOrigins []string

	// TrustedProxies vazio: X-Forwarded-For é ignorado.
	TrustedProxies []netip.Prefix

	Health     *handlers.HealthHandler
	Leads      *handlers.LeadHandler
	Export     *handlers.ExportHandler
	LeadStatus *handlers.LeadStatusHandler
	Security   *handlers.SecurityHandler
}

func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	// sem Timeout aqui: o prazo da notificação fica no use case
	r.Post("/leads", cfg.Leads.Handle)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken))

		r.Get("/leads/export", cfg.Export.Handle)
		r.Patch("/leads/{id}/status", cfg.LeadStatus.Handle)

		r.Get("/security/dashboard", cfg.Security.Dashboard)
		r.Get("/security/tasks", cfg.Security.ListTasks)
		r.Delete("/security/tasks/{name}", cfg.Security.StopTask)
	})

	return r
}
