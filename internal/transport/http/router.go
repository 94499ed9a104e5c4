// Package http wires the chi router: registrar routes behind JWT auth,
// public verification routes, health, and metrics.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"landcert/internal/platform/middleware"
)

type RouterConfig struct {
	Certificates *CertificateHandler
	Verify       *VerifyHandler
	Validator    middleware.TokenValidator
	Registry     *prometheus.Registry
	Logger       *zap.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	r.Route("/certificates", func(r chi.Router) {
		cfg.Verify.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
			cfg.Certificates.Register(r)
		})
	})

	return r
}
