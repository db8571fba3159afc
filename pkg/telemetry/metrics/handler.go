package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler exposing the pipeline metrics in
// Prometheus exposition format. Mount it at the path from MetricsConfig
// (typically "/metrics").
//
// A nil receiver returns a handler over an empty registry, so the endpoint
// stays mountable even when metrics are not configured.
func (m *PipelineMetrics) Handler() http.Handler {
	registry := m.Registry()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
