package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "strata.*" namespace.
const (
	AttrAdapter       = "strata.adapter"
	AttrStage         = "strata.stage"
	AttrPolicy        = "strata.policy"
	AttrPolicyVersion = "strata.policy.version"
	AttrDryRun        = "strata.dry_run"
	AttrArtifacts     = "strata.artifacts"
)

// StageAttributes returns span start options for a whole-pipeline stage span.
func StageAttributes(stage, policy, version string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrPolicy, policy),
		attribute.String(AttrPolicyVersion, version),
	)
}

// AdapterAttributes returns span start options for a per-adapter stage span.
func AdapterAttributes(adapter, stage string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String(AttrAdapter, adapter),
		attribute.String(AttrStage, stage),
	)
}

// SetArtifactCount records how many artifacts a compile produced on the span.
func SetArtifactCount(span trace.Span, count int) {
	span.SetAttributes(attribute.Int(AttrArtifacts, count))
}

// SetDryRun marks an apply span as a dry run.
func SetDryRun(span trace.Span, dryRun bool) {
	span.SetAttributes(attribute.Bool(AttrDryRun, dryRun))
}
