package adaptertest

import (
	"context"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/intent"
)

// MockAdapter is a scriptable implementation of the backend.Adapter
// interface for orchestrator tests. Each stage can be overridden through a
// function field; stages left nil succeed with minimal output.
type MockAdapter struct {
	AdapterName string

	ValidateFn func(pol *intent.Policy) *backend.ValidationResult
	CompileFn  func(pol *intent.Policy) (*backend.CompiledOutput, error)
	ApplyFn    func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error)
	ConnFn     func(ctx context.Context) error
}

// NewMockAdapter creates a mock adapter that succeeds at every stage.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{AdapterName: name}
}

// Name returns the mock adapter's name.
func (m *MockAdapter) Name() string {
	return m.AdapterName
}

// Info returns descriptive metadata for the mock.
func (m *MockAdapter) Info() backend.AdapterInfo {
	return backend.AdapterInfo{
		Name:        m.AdapterName,
		Vendor:      "mock",
		Description: "Mock adapter for tests",
	}
}

// Validate runs ValidateFn, or reports the policy valid.
func (m *MockAdapter) Validate(pol *intent.Policy) *backend.ValidationResult {
	if m.ValidateFn != nil {
		return m.ValidateFn(pol)
	}
	return backend.NewValidationResult()
}

// Compile runs CompileFn, or produces a single text artifact.
func (m *MockAdapter) Compile(pol *intent.Policy) (*backend.CompiledOutput, error) {
	if m.CompileFn != nil {
		return m.CompileFn(pol)
	}
	return &backend.CompiledOutput{
		Adapter:       m.AdapterName,
		PolicyName:    pol.Name,
		PolicyVersion: pol.Version,
		Artifacts: []backend.CompiledArtifact{
			backend.NewTextArtifact("mock", "mock config for "+pol.Name, "Mock artifact"),
		},
	}, nil
}

// Apply runs ApplyFn, or reports one successful change.
func (m *MockAdapter) Apply(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
	if m.ApplyFn != nil {
		return m.ApplyFn(ctx, out, dryRun)
	}
	result := backend.NewApplyResult(m.AdapterName, dryRun)
	detail := "Applied mock config"
	if dryRun {
		detail = "Would apply mock config"
	}
	result.AddChange("mock", "config", backend.ActionUpdate, "%s", detail)
	return result, nil
}

// TestConnection runs ConnFn, or succeeds.
func (m *MockAdapter) TestConnection(ctx context.Context) error {
	if m.ConnFn != nil {
		return m.ConnFn(ctx)
	}
	return nil
}
