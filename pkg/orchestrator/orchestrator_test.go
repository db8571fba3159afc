package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stratum-hq/strata/internal/adaptertest"
	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/backend/flexiwan"
	"stratum-hq/strata/pkg/backend/openziti"
	"stratum-hq/strata/pkg/backend/opnsense"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestOrchestrator(t *testing.T, cfg config.OrchestratorConfig, adapters []backend.Adapter, opts ...Option) *Orchestrator {
	t.Helper()
	orch, err := New(cfg, adapters, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orch
}

// realAdapters builds the three concrete adapters with no management plane
// configured, which keeps validate and compile fully offline.
func realAdapters() []backend.Adapter {
	return []backend.Adapter{
		opnsense.New(config.OPNsenseConfig{TrunkInterface: "eth2", WANInterface: "wan"}),
		openziti.New(config.OpenZitiConfig{}),
		flexiwan.New(config.FlexiWANConfig{}),
	}
}

func decodeArtifact(t *testing.T, out *backend.CompiledOutput, target string, v any) {
	t.Helper()
	art, ok := out.Artifact(target)
	if !ok {
		t.Fatalf("artifact %q not found for adapter %s", target, out.Adapter)
	}
	raw, err := json.Marshal(art.Data)
	if err != nil {
		t.Fatalf("marshaling %s artifact: %v", target, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decoding %s artifact: %v", target, err)
	}
}

func outputFor(t *testing.T, result *CompileResult, adapter string) *backend.CompiledOutput {
	t.Helper()
	for _, out := range result.Outputs {
		if out.Adapter == adapter {
			return out
		}
	}
	t.Fatalf("no compiled output for adapter %s", adapter)
	return nil
}

func TestNewRejectsDuplicateAdapters(t *testing.T) {
	_, err := New(config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("opnsense"),
		adaptertest.NewMockAdapter("opnsense"),
	})
	if err == nil {
		t.Fatal("expected error for duplicate adapter names")
	}
	if !strings.Contains(err.Error(), "duplicate adapter registration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListAdapters(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("charlie"),
		adaptertest.NewMockAdapter("alpha"),
		adaptertest.NewMockAdapter("bravo"),
	})

	infos := orch.ListAdapters()
	if len(infos) != 3 {
		t.Fatalf("ListAdapters() returned %d entries, want 3", len(infos))
	}
	want := []string{"charlie", "alpha", "bravo"}
	for i, info := range infos {
		if info.Name != want[i] {
			t.Errorf("infos[%d].Name = %q, want %q (registration order)", i, info.Name, want[i])
		}
	}
}

func TestValidateUnknownNamesSkipped(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("alpha"),
		adaptertest.NewMockAdapter("bravo"),
	})

	results := orch.Validate(adaptertest.SamplePolicy(), []string{"alpha", "nosuch"})
	if len(results) != 1 {
		t.Fatalf("Validate() returned %d results, want 1", len(results))
	}
	if _, ok := results["alpha"]; !ok {
		t.Error("missing result for alpha")
	}
	if _, ok := results["nosuch"]; ok {
		t.Error("unknown adapter should be silently skipped, not reported")
	}
}

func TestValidateEmptySelectionMeansAll(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("alpha"),
		adaptertest.NewMockAdapter("bravo"),
		adaptertest.NewMockAdapter("charlie"),
	})

	results := orch.Validate(adaptertest.SamplePolicy(), nil)
	if len(results) != 3 {
		t.Fatalf("Validate() returned %d results, want 3", len(results))
	}
	for name, res := range results {
		if !res.Valid {
			t.Errorf("adapter %s unexpectedly invalid", name)
		}
	}
}

func TestValidateNilResultTreatedAsValid(t *testing.T) {
	mock := adaptertest.NewMockAdapter("alpha")
	mock.ValidateFn = func(pol *intent.Policy) *backend.ValidationResult { return nil }

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{mock})

	results := orch.Validate(adaptertest.SamplePolicy(), nil)
	if res := results["alpha"]; res == nil || !res.Valid {
		t.Errorf("nil validation result should be normalized to valid, got %+v", res)
	}
}

func TestCompileAllValid(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("alpha"),
		adaptertest.NewMockAdapter("bravo"),
		adaptertest.NewMockAdapter("charlie"),
	})

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if !result.Success {
		t.Fatalf("Compile() success = false, errors = %v", result.Errors)
	}
	if len(result.Outputs) != 3 {
		t.Fatalf("Compile() produced %d outputs, want 3", len(result.Outputs))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, out := range result.Outputs {
		if out.Adapter != want[i] {
			t.Errorf("outputs[%d].Adapter = %q, want %q", i, out.Adapter, want[i])
		}
	}
	for _, name := range want {
		if result.States[name] != StateCompiled {
			t.Errorf("state[%s] = %s, want %s", name, result.States[name], StateCompiled)
		}
	}
}

func TestCompilePartialSuccess(t *testing.T) {
	badValidate := adaptertest.NewMockAdapter("bad-validate")
	badValidate.ValidateFn = func(pol *intent.Policy) *backend.ValidationResult {
		result := backend.NewValidationResult()
		result.AddError("segments.corp.vlan", "VLAN 5000 out of range")
		return result
	}

	badCompile := adaptertest.NewMockAdapter("bad-compile")
	badCompile.CompileFn = func(pol *intent.Policy) (*backend.CompiledOutput, error) {
		return nil, errors.New("template rendering failed")
	}

	good := adaptertest.NewMockAdapter("good")

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{badValidate, badCompile, good})

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if result.Success {
		t.Error("Compile() success = true with failing adapters")
	}
	if len(result.Outputs) != 1 || result.Outputs[0].Adapter != "good" {
		t.Fatalf("outputs = %+v, want only the good adapter's", result.Outputs)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "bad-validate: segments.corp.vlan: VLAN 5000 out of range") {
		t.Errorf("validation error not adapter-prefixed: %q", result.Errors[0])
	}
	if !strings.Contains(result.Errors[1], "bad-compile: template rendering failed") {
		t.Errorf("compile error not adapter-prefixed: %q", result.Errors[1])
	}

	wantStates := map[string]CycleState{
		"bad-validate": StateValidationFailed,
		"bad-compile":  StateCompileFailed,
		"good":         StateCompiled,
	}
	for name, want := range wantStates {
		if got := result.States[name]; got != want {
			t.Errorf("state[%s] = %s, want %s", name, got, want)
		}
	}
}

func TestCompilePanicIsolated(t *testing.T) {
	panicky := adaptertest.NewMockAdapter("panicky")
	panicky.CompileFn = func(pol *intent.Policy) (*backend.CompiledOutput, error) {
		panic("nil map write")
	}
	good := adaptertest.NewMockAdapter("good")

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{panicky, good})

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if result.Success {
		t.Error("Compile() success = true despite panic")
	}
	if len(result.Outputs) != 1 || result.Outputs[0].Adapter != "good" {
		t.Errorf("sibling adapter output missing after panic: %+v", result.Outputs)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "panicky: compile panicked: nil map write") {
		t.Errorf("panic not converted to adapter-scoped error: %v", result.Errors)
	}
	if result.States["panicky"] != StateCompileFailed {
		t.Errorf("state[panicky] = %s, want %s", result.States["panicky"], StateCompileFailed)
	}
}

func TestValidatePanicIsolated(t *testing.T) {
	panicky := adaptertest.NewMockAdapter("panicky")
	panicky.ValidateFn = func(pol *intent.Policy) *backend.ValidationResult {
		panic("index out of range")
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{panicky})

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if result.Success {
		t.Error("Compile() success = true despite validation panic")
	}
	if result.States["panicky"] != StateValidationFailed {
		t.Errorf("state[panicky] = %s, want %s", result.States["panicky"], StateValidationFailed)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "validation panicked") {
		t.Errorf("errors = %v, want validation panic message", result.Errors)
	}
}

func TestCompileNilOutputIsError(t *testing.T) {
	broken := adaptertest.NewMockAdapter("broken")
	broken.CompileFn = func(pol *intent.Policy) (*backend.CompiledOutput, error) {
		return nil, nil
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{broken})

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if result.Success {
		t.Error("Compile() success = true for adapter returning no output")
	}
	if !strings.Contains(result.Errors[0], "compile returned no output") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestCompileOrderPreservedUnderParallelism(t *testing.T) {
	names := []string{"alpha", "bravo", "charlie", "delta"}
	adapters := make([]backend.Adapter, 0, len(names))
	for i, name := range names {
		mock := adaptertest.NewMockAdapter(name)
		delay := time.Duration(len(names)-i) * 20 * time.Millisecond
		mock.CompileFn = func(pol *intent.Policy) (*backend.CompiledOutput, error) {
			time.Sleep(delay)
			return &backend.CompiledOutput{
				Adapter:       mock.AdapterName,
				PolicyName:    pol.Name,
				PolicyVersion: pol.Version,
			}, nil
		}
		adapters = append(adapters, mock)
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{Parallelism: 4}, adapters)

	result := orch.Compile(adaptertest.SamplePolicy(), nil)
	if !result.Success {
		t.Fatalf("Compile() errors = %v", result.Errors)
	}
	for i, out := range result.Outputs {
		if out.Adapter != names[i] {
			t.Errorf("outputs[%d].Adapter = %q, want %q despite completion order", i, out.Adapter, names[i])
		}
	}
}

func TestApplyGateOnCompileFailure(t *testing.T) {
	invalid := adaptertest.NewMockAdapter("invalid")
	invalid.ValidateFn = func(pol *intent.Policy) *backend.ValidationResult {
		result := backend.NewValidationResult()
		result.AddError("apps.app1.address", "application must have an address")
		return result
	}

	var applied atomic.Int32
	good := adaptertest.NewMockAdapter("good")
	good.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		applied.Add(1)
		return backend.NewApplyResult("good", dryRun), nil
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{invalid, good})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if result.Success {
		t.Error("Apply() success = true with failed compile")
	}
	if len(result.Results) != 0 {
		t.Errorf("Apply() produced %d results, want 0 when compile fails", len(result.Results))
	}
	if applied.Load() != 0 {
		t.Error("apply reached an adapter despite compile failure")
	}
	if len(result.Errors) == 0 || result.Errors[0] != "cannot apply: compilation failed" {
		t.Fatalf("errors = %v, want pipeline-level error first", result.Errors)
	}
	if !strings.Contains(strings.Join(result.Errors, "\n"), "invalid: apps.app1.address") {
		t.Errorf("compile errors not surfaced: %v", result.Errors)
	}
	if result.States["good"] != StateCompiled {
		t.Errorf("state[good] = %s, want %s (compiled but never applied)", result.States["good"], StateCompiled)
	}
	if result.States["invalid"] != StateValidationFailed {
		t.Errorf("state[invalid] = %s, want %s", result.States["invalid"], StateValidationFailed)
	}
}

func TestApplyAllSuccess(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("alpha"),
		adaptertest.NewMockAdapter("bravo"),
	})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if !result.Success {
		t.Fatalf("Apply() errors = %v", result.Errors)
	}
	if len(result.Results) != 2 {
		t.Fatalf("Apply() produced %d results, want 2", len(result.Results))
	}
	want := []string{"alpha", "bravo"}
	for i, res := range result.Results {
		if res.Adapter != want[i] {
			t.Errorf("results[%d].Adapter = %q, want %q", i, res.Adapter, want[i])
		}
		if res.DryRun {
			t.Errorf("results[%d].DryRun = true for real run", i)
		}
	}
	for _, name := range want {
		if result.States[name] != StateApplied {
			t.Errorf("state[%s] = %s, want %s", name, result.States[name], StateApplied)
		}
	}
}

func TestApplyDryRunPassThrough(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{
		adaptertest.NewMockAdapter("alpha"),
	})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, true)
	if !result.Success {
		t.Fatalf("Apply() errors = %v", result.Errors)
	}
	res := result.Results[0]
	if !res.DryRun {
		t.Error("dry-run flag not passed through to adapter")
	}
	if len(res.Changes) != 1 || !strings.HasPrefix(res.Changes[0].Detail, "Would ") {
		t.Errorf("dry-run change = %+v, want enumerated 'Would ...' detail", res.Changes)
	}
}

func TestApplyFailureAggregated(t *testing.T) {
	failing := adaptertest.NewMockAdapter("failing")
	failing.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		result := backend.NewApplyResult("failing", dryRun)
		result.AddError("ruleset rejected: syntax error")
		return result, nil
	}
	good := adaptertest.NewMockAdapter("good")

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{failing, good})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if result.Success {
		t.Error("Apply() success = true with a failed adapter")
	}
	if len(result.Results) != 2 {
		t.Fatalf("Apply() produced %d results, want both adapters", len(result.Results))
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "failing: ruleset rejected") {
		t.Errorf("errors = %v, want adapter-prefixed apply error", result.Errors)
	}
	if result.States["failing"] != StateApplied {
		t.Errorf("state[failing] = %s, want %s (terminal even on failure)", result.States["failing"], StateApplied)
	}
}

func TestApplyErrorReturnIsolated(t *testing.T) {
	erroring := adaptertest.NewMockAdapter("erroring")
	erroring.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		return nil, errors.New("connection refused")
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{erroring})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if result.Success {
		t.Error("Apply() success = true with erroring adapter")
	}
	if len(result.Results) != 1 {
		t.Fatalf("Apply() produced %d results, want 1", len(result.Results))
	}
	res := result.Results[0]
	if res.Success {
		t.Error("erroring adapter's result marked successful")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "connection refused") {
		t.Errorf("result errors = %v", res.Errors)
	}
}

func TestApplyPanicIsolated(t *testing.T) {
	panicky := adaptertest.NewMockAdapter("panicky")
	panicky.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		panic("closed channel send")
	}
	good := adaptertest.NewMockAdapter("good")

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{panicky, good})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if result.Success {
		t.Error("Apply() success = true despite panic")
	}
	if len(result.Results) != 2 {
		t.Fatalf("Apply() produced %d results, want both adapters", len(result.Results))
	}
	if !strings.Contains(result.Errors[0], "panicky: apply panicked: closed channel send") {
		t.Errorf("errors = %v", result.Errors)
	}
	if !result.Results[1].Success {
		t.Error("sibling adapter failed due to panic")
	}
}

func TestApplyTimeoutIsNormalFailure(t *testing.T) {
	slow := adaptertest.NewMockAdapter("slow")
	slow.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		time.Sleep(500 * time.Millisecond)
		return backend.NewApplyResult("slow", dryRun), nil
	}
	fast := adaptertest.NewMockAdapter("fast")

	orch := newTestOrchestrator(t, config.OrchestratorConfig{ApplyTimeout: 30 * time.Millisecond}, []backend.Adapter{slow, fast})

	start := time.Now()
	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Apply() blocked for %s on a hung adapter", elapsed)
	}

	if result.Success {
		t.Error("Apply() success = true with timed-out adapter")
	}
	if len(result.Results) != 2 {
		t.Fatalf("Apply() produced %d results, want 2", len(result.Results))
	}
	slowRes := result.Results[0]
	if slowRes.Success {
		t.Error("timed-out adapter's result marked successful")
	}
	if len(slowRes.Errors) != 1 || !strings.Contains(slowRes.Errors[0], "apply timed out after 30ms") {
		t.Errorf("slow result errors = %v", slowRes.Errors)
	}
	if !result.Results[1].Success {
		t.Error("fast sibling failed due to slow adapter")
	}
	if result.States["slow"] != StateApplied {
		t.Errorf("state[slow] = %s, want %s", result.States["slow"], StateApplied)
	}
}

func TestApplyAtMostOncePerCycle(t *testing.T) {
	var calls atomic.Int32
	flaky := adaptertest.NewMockAdapter("flaky")
	flaky.ApplyFn = func(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
		calls.Add(1)
		result := backend.NewApplyResult("flaky", dryRun)
		result.AddError("target unavailable")
		return result, nil
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{flaky})

	result := orch.Apply(context.Background(), adaptertest.SamplePolicy(), nil, false)
	if result.Success {
		t.Error("Apply() success = true with failing adapter")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("apply invoked %d times, want exactly 1 (no automatic retry)", got)
	}
}

func TestTestConnections(t *testing.T) {
	up := adaptertest.NewMockAdapter("up")
	down := adaptertest.NewMockAdapter("down")
	down.ConnFn = func(ctx context.Context) error {
		return fmt.Errorf("dial tcp: connection refused")
	}

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, []backend.Adapter{up, down})

	results := orch.TestConnections(context.Background())
	if len(results) != 2 {
		t.Fatalf("TestConnections() returned %d entries, want 2", len(results))
	}
	if results["up"] != nil {
		t.Errorf("up adapter error = %v, want nil", results["up"])
	}
	if results["down"] == nil {
		t.Error("down adapter reported reachable")
	}
}

func TestMetricsRecorded(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(config.MetricsConfig{Enabled: true}, registry)

	orch := newTestOrchestrator(t, config.OrchestratorConfig{},
		[]backend.Adapter{adaptertest.NewMockAdapter("alpha")},
		WithMetrics(m),
	)

	orch.Compile(adaptertest.SamplePolicy(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, metric := range []string{
		"strata_pipeline_runs_total",
		"strata_adapter_stage_duration_seconds",
		"strata_adapter_artifacts_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("exposition missing %s", metric)
		}
	}
}

// scenarioPolicy is the minimal intent from the cross-backend scenario: one
// corp segment, one application on port 80, one allow rule for employees.
func scenarioPolicy() *intent.Policy {
	return &intent.Policy{
		Name:    "corp-baseline",
		Version: "1.0",
		Users: []intent.UserGroup{
			{Name: "employees", Kind: intent.UserKindGroup},
		},
		Apps: []intent.Application{
			{
				Name:        "app1",
				Address:     "app1.ziti",
				HostAddress: "10.1.0.10",
				Port:        80,
				Protocol:    "tcp",
				Segment:     "corp",
				Inspection:  intent.InspectionFull,
			},
		},
		Segments: []intent.Segment{
			{Name: "corp", VLAN: 100, VRF: 1},
		},
		AccessRules: []intent.AccessRule{
			{
				Name:         "employees-to-app1",
				Users:        []string{"employees"},
				Applications: []string{"app1"},
				Action:       intent.AccessAllow,
				Priority:     100,
			},
		},
	}
}

func TestScenarioCrossBackendCompile(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, realAdapters())

	result := orch.Compile(scenarioPolicy(), nil)
	if !result.Success {
		t.Fatalf("Compile() errors = %v", result.Errors)
	}
	if len(result.Outputs) != 3 {
		t.Fatalf("Compile() produced %d outputs, want 3", len(result.Outputs))
	}

	ruleset, ok := outputFor(t, result, "opnsense").Artifact("ruleset")
	if !ok {
		t.Fatal("opnsense ruleset artifact missing")
	}
	if !strings.Contains(ruleset.Text, "chain segment_corp") {
		t.Error("firewall ruleset missing corp segment chain")
	}
	if !strings.Contains(ruleset.Text, "dport 80") {
		t.Error("firewall access chain missing port 80 rule")
	}

	zitiOut := outputFor(t, result, "openziti")
	var services []struct {
		Name string `json:"name"`
	}
	decodeArtifact(t, zitiOut, "services", &services)
	if len(services) != 1 || services[0].Name != "app1" {
		t.Errorf("overlay services = %+v, want exactly one named app1", services)
	}

	var policies []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	decodeArtifact(t, zitiOut, "service-policies", &policies)
	var dials, binds int
	for _, p := range policies {
		switch p.Type {
		case "Dial":
			dials++
		case "Bind":
			binds++
		}
	}
	if dials != 1 || binds != 1 {
		t.Errorf("overlay policies: %d dial, %d bind, want 1 and 1", dials, binds)
	}

	var segments []struct {
		Name      string `json:"name"`
		SegmentID int    `json:"segmentId"`
	}
	decodeArtifact(t, outputFor(t, result, "flexiwan"), "segments", &segments)
	if len(segments) != 1 || segments[0].Name != "corp" || segments[0].SegmentID != 1 {
		t.Errorf("sd-wan segments = %+v, want one corp entry with routing domain 1", segments)
	}
}

func TestScenarioUnknownApplicationNamed(t *testing.T) {
	pol := scenarioPolicy()
	pol.AccessRules = append(pol.AccessRules, intent.AccessRule{
		Name:         "bad-rule",
		Users:        []string{"employees"},
		Applications: []string{"ghost"},
		Action:       intent.AccessAllow,
		Priority:     200,
	})

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, realAdapters())

	results := orch.Validate(pol, []string{"openziti"})
	res := results["openziti"]
	if res == nil || res.Valid {
		t.Fatalf("overlay validation = %+v, want invalid", res)
	}
	found := false
	for _, ve := range res.Errors {
		if strings.Contains(ve.Message, "ghost") {
			found = true
		}
	}
	if !found {
		t.Errorf("no validation error names the unknown application: %+v", res.Errors)
	}
}

func TestScenarioRangeChecksDiverge(t *testing.T) {
	pol := scenarioPolicy()
	pol.Segments[0].VLAN = 5000

	orch := newTestOrchestrator(t, config.OrchestratorConfig{}, realAdapters())

	results := orch.Validate(pol, []string{"opnsense", "flexiwan"})
	if res := results["opnsense"]; res == nil || res.Valid {
		t.Errorf("firewall validation = %+v, want invalid for VLAN 5000", res)
	}
	if res := results["flexiwan"]; res == nil || !res.Valid {
		t.Errorf("sd-wan validation = %+v, want valid (VRF 1 in range)", res)
	}
}

func TestScenarioCompileDeterministic(t *testing.T) {
	orch := newTestOrchestrator(t, config.OrchestratorConfig{Parallelism: 3}, realAdapters())

	first := orch.Compile(scenarioPolicy(), nil)
	second := orch.Compile(scenarioPolicy(), nil)
	if !first.Success || !second.Success {
		t.Fatalf("compile errors: %v / %v", first.Errors, second.Errors)
	}

	a, err := json.Marshal(first.Outputs)
	if err != nil {
		t.Fatalf("marshaling first outputs: %v", err)
	}
	b, err := json.Marshal(second.Outputs)
	if err != nil {
		t.Fatalf("marshaling second outputs: %v", err)
	}
	if string(a) != string(b) {
		t.Error("recompiling the same policy produced different outputs")
	}
}
