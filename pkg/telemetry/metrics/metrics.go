package metrics

import (
	"time"

	"stratum-hq/strata/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultDurationBuckets spans fast offline stages (validate, compile run in
// milliseconds) through slow management-plane applies (seconds to tens of
// seconds).
var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// PipelineMetrics tracks Prometheus metrics for the intent pipeline.
//
// Metrics:
//   - strata_pipeline_runs_total: Pipeline runs by stage and status
//   - strata_pipeline_stage_duration_seconds: Whole-stage duration histogram
//   - strata_adapter_stage_duration_seconds: Per-adapter stage duration histogram
//   - strata_adapter_validation_issues: Validation findings by adapter and severity
//   - strata_adapter_artifacts_total: Compiled artifacts produced per adapter
//   - strata_adapter_up: Management plane reachability per adapter (1/0)
//   - strata_intent_reloads_total: Intent reloads by source (file, git, api)
//
// All recording methods are safe to call on a nil *PipelineMetrics, so
// components can carry an optional metrics handle without nil checks at
// every call site.
type PipelineMetrics struct {
	enabled  bool
	registry *prometheus.Registry

	pipelineRuns     *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	adapterDuration  *prometheus.HistogramVec
	validationIssues *prometheus.CounterVec
	artifactsTotal   *prometheus.CounterVec
	adapterUp        *prometheus.GaugeVec
	intentReloads    *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline metrics with the
// provided registry. If registry is nil, a new private registry is created;
// nothing is ever registered on the Prometheus default registry.
func NewPipelineMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "strata"
	}

	m := &PipelineMetrics{
		enabled:  cfg.Enabled,
		registry: registry,

		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline runs by stage and status",
			},
			[]string{"stage", "status"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of whole pipeline stages in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"stage"},
		),

		adapterDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "adapter_stage_duration_seconds",
				Help:      "Duration of per-adapter stage executions in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"adapter", "stage"},
		),

		validationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "adapter_validation_issues",
				Help:      "Validation findings reported by adapters, by severity",
			},
			[]string{"adapter", "severity"},
		),

		artifactsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "adapter_artifacts_total",
				Help:      "Total number of compiled artifacts produced per adapter",
			},
			[]string{"adapter"},
		),

		adapterUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "adapter_up",
				Help:      "Whether the adapter management plane is reachable (1) or not (0)",
			},
			[]string{"adapter"},
		),

		intentReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "intent_reloads_total",
				Help:      "Total number of intent reloads by source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		m.pipelineRuns,
		m.stageDuration,
		m.adapterDuration,
		m.validationIssues,
		m.artifactsTotal,
		m.adapterUp,
		m.intentReloads,
	)

	return m
}

// RecordPipelineRun records a completed pipeline stage with its outcome.
// Status is "success" or "error".
func (m *PipelineMetrics) RecordPipelineRun(stage, status string, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.pipelineRuns.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordAdapterStage records the duration of one adapter's execution of a stage.
func (m *PipelineMetrics) RecordAdapterStage(adapter, stage string, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.adapterDuration.WithLabelValues(adapter, stage).Observe(duration.Seconds())
}

// RecordValidationIssues records the error and warning counts from one
// adapter validation pass.
func (m *PipelineMetrics) RecordValidationIssues(adapter string, errors, warnings int) {
	if m == nil || !m.enabled {
		return
	}
	if errors > 0 {
		m.validationIssues.WithLabelValues(adapter, "error").Add(float64(errors))
	}
	if warnings > 0 {
		m.validationIssues.WithLabelValues(adapter, "warning").Add(float64(warnings))
	}
}

// RecordArtifacts records the number of artifacts an adapter compiled.
func (m *PipelineMetrics) RecordArtifacts(adapter string, count int) {
	if m == nil || !m.enabled {
		return
	}
	if count > 0 {
		m.artifactsTotal.WithLabelValues(adapter).Add(float64(count))
	}
}

// SetAdapterUp updates the reachability gauge for an adapter management plane.
func (m *PipelineMetrics) SetAdapterUp(adapter string, up bool) {
	if m == nil || !m.enabled {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	m.adapterUp.WithLabelValues(adapter).Set(value)
}

// RecordIntentReload records an intent reload. Source is "file", "git", or "api".
func (m *PipelineMetrics) RecordIntentReload(source string) {
	if m == nil || !m.enabled {
		return
	}
	m.intentReloads.WithLabelValues(source).Inc()
}

// Registry returns the Prometheus registry backing these metrics.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
