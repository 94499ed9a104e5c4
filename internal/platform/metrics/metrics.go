// Package metrics holds the Prometheus metrics for the service. Metrics are
// registered on an owned registry so tests can construct them repeatedly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	CertificatesIssued   prometheus.Counter
	VerificationRequests *prometheus.CounterVec
	AssetFallbacks       *prometheus.CounterVec
	NumberCollisions     prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		CertificatesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "landcert_certificates_issued_total",
			Help: "Total number of certificates issued.",
		}),
		VerificationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcert_verification_requests_total",
			Help: "Verification lookups by reported status.",
		}, []string{"result"}),
		AssetFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landcert_asset_fallbacks_total",
			Help: "Asset resolutions that degraded to the default image, by kind.",
		}, []string{"kind"}),
		NumberCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "landcert_number_collisions_total",
			Help: "Identifier collisions that triggered a regeneration.",
		}),
	}
}
