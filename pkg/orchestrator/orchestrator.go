package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/telemetry/metrics"
	"stratum-hq/strata/pkg/telemetry/tracing"

	"golang.org/x/sync/errgroup"
)

// Orchestrator drives the validate, compile, and apply stages across the
// registered adapters. The registry is fixed after construction and safe
// for concurrent reads; every public operation converts per-adapter faults
// to data instead of letting them escape.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	registry map[string]backend.Adapter
	order    []string

	metrics *metrics.PipelineMetrics
	tracer  *tracing.Tracer
	logger  *slog.Logger
}

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMetrics attaches pipeline metrics. Without it, recording is a no-op.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer attaches a tracer for stage and per-adapter spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New builds an Orchestrator over the given adapters. Registration order is
// the slice order and determines the order of outputs and results in every
// pipeline pass. Duplicate adapter names are a construction error.
func New(cfg config.OrchestratorConfig, adapters []backend.Adapter, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:      cfg,
		registry: make(map[string]backend.Adapter, len(adapters)),
		order:    make([]string, 0, len(adapters)),
		tracer:   tracing.Noop(),
		logger:   slog.Default().With("component", "orchestrator"),
	}

	for _, adapter := range adapters {
		name := adapter.Name()
		if _, dup := o.registry[name]; dup {
			return nil, fmt.Errorf("duplicate adapter registration: %s", name)
		}
		o.registry[name] = adapter
		o.order = append(o.order, name)
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ListAdapters returns adapter metadata in registration order.
func (o *Orchestrator) ListAdapters() []backend.AdapterInfo {
	infos := make([]backend.AdapterInfo, 0, len(o.order))
	for _, name := range o.order {
		infos = append(infos, o.registry[name].Info())
	}
	return infos
}

// Validate runs every selected adapter's validation and returns the results
// keyed by adapter name. Unknown names are silently skipped so callers with
// partial adapter availability can reuse selections.
func (o *Orchestrator) Validate(pol *intent.Policy, names []string) map[string]*backend.ValidationResult {
	start := time.Now()
	ctx, span := o.tracer.Start(context.Background(), "strata.validate",
		tracing.StageAttributes("validate", policyName(pol), policyVersion(pol)))
	defer span.End()

	selected := o.selected(names)
	results := make([]*backend.ValidationResult, len(selected))

	var g errgroup.Group
	g.SetLimit(o.limit())
	for i, name := range selected {
		adapter := o.registry[name]
		g.Go(func() error {
			results[i] = o.validateOne(ctx, name, adapter, pol)
			return nil
		})
	}
	g.Wait()

	out := make(map[string]*backend.ValidationResult, len(selected))
	valid := true
	for i, name := range selected {
		out[name] = results[i]
		valid = valid && results[i].Valid
	}

	o.metrics.RecordPipelineRun("validate", statusOf(valid), time.Since(start))
	o.logger.Debug("validation finished",
		"policy", policyName(pol),
		"adapters", len(selected),
		"valid", valid,
	)
	return out
}

// Compile validates and compiles the policy for every selected adapter.
// One adapter's invalid policy or compile fault never prevents siblings
// from contributing outputs.
func (o *Orchestrator) Compile(pol *intent.Policy, names []string) *CompileResult {
	return o.compile(context.Background(), pol, names)
}

func (o *Orchestrator) compile(ctx context.Context, pol *intent.Policy, names []string) *CompileResult {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "strata.compile",
		tracing.StageAttributes("compile", policyName(pol), policyVersion(pol)))
	defer span.End()

	selected := o.selected(names)
	slots := make([]compileSlot, len(selected))

	var g errgroup.Group
	g.SetLimit(o.limit())
	for i, name := range selected {
		adapter := o.registry[name]
		g.Go(func() error {
			slots[i] = o.compileOne(ctx, name, adapter, pol)
			return nil
		})
	}
	g.Wait()

	result := &CompileResult{States: make(map[string]CycleState, len(selected))}
	for i, name := range selected {
		slot := slots[i]
		result.States[name] = slot.state
		for _, msg := range slot.errs {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", name, msg))
		}
		if slot.output != nil {
			result.Outputs = append(result.Outputs, slot.output)
		}
	}
	result.Success = len(result.Errors) == 0

	o.metrics.RecordPipelineRun("compile", statusOf(result.Success), time.Since(start))
	o.logger.Info("compile finished",
		"policy", policyName(pol),
		"adapters", len(selected),
		"outputs", len(result.Outputs),
		"errors", len(result.Errors),
	)
	return result
}

// Apply compiles the policy and, only when compilation fully succeeds,
// applies the outputs once per adapter. A partially failed compile yields a
// pipeline-level error and zero ApplyResults; applying an incomplete
// configuration set is the one failure not tolerated as partial.
func (o *Orchestrator) Apply(ctx context.Context, pol *intent.Policy, names []string, dryRun bool) *ApplyPipelineResult {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "strata.apply",
		tracing.StageAttributes("apply", policyName(pol), policyVersion(pol)))
	defer span.End()
	tracing.SetDryRun(span, dryRun)

	compiled := o.compile(ctx, pol, names)

	result := &ApplyPipelineResult{States: make(map[string]CycleState, len(compiled.States))}
	for name, state := range compiled.States {
		result.States[name] = state
	}

	if !compiled.Success {
		result.Errors = append(result.Errors, "cannot apply: compilation failed")
		result.Errors = append(result.Errors, compiled.Errors...)
		o.metrics.RecordPipelineRun("apply", "error", time.Since(start))
		o.logger.Warn("apply aborted, compilation failed",
			"policy", policyName(pol),
			"errors", len(compiled.Errors),
		)
		return result
	}

	slots := make([]*backend.ApplyResult, len(compiled.Outputs))

	var g errgroup.Group
	g.SetLimit(o.limit())
	for i, output := range compiled.Outputs {
		adapter := o.registry[output.Adapter]
		g.Go(func() error {
			slots[i] = o.applyOne(ctx, adapter, output, dryRun)
			return nil
		})
	}
	g.Wait()

	result.Results = slots
	for _, res := range slots {
		result.States[res.Adapter] = StateApplied
		for _, msg := range res.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", res.Adapter, msg))
		}
	}
	result.Success = len(result.Errors) == 0

	o.metrics.RecordPipelineRun("apply", statusOf(result.Success), time.Since(start))
	o.logger.Info("apply finished",
		"policy", policyName(pol),
		"adapters", len(slots),
		"dry_run", dryRun,
		"success", result.Success,
	)
	return result
}

// TestConnections probes every registered adapter's management plane and
// returns the outcome keyed by adapter name (nil means reachable). The
// adapter_up gauge is refreshed as a side effect.
func (o *Orchestrator) TestConnections(ctx context.Context) map[string]error {
	results := make([]error, len(o.order))

	var g errgroup.Group
	g.SetLimit(o.limit())
	for i, name := range o.order {
		adapter := o.registry[name]
		g.Go(func() error {
			results[i] = o.probeOne(ctx, adapter)
			return nil
		})
	}
	g.Wait()

	out := make(map[string]error, len(o.order))
	for i, name := range o.order {
		out[name] = results[i]
		o.metrics.SetAdapterUp(name, results[i] == nil)
	}
	return out
}

// compileSlot carries one adapter's compile outcome back to its
// registration-order slot.
type compileSlot struct {
	output *backend.CompiledOutput
	errs   []string
	state  CycleState
}

func (o *Orchestrator) compileOne(ctx context.Context, name string, adapter backend.Adapter, pol *intent.Policy) compileSlot {
	validation := o.validateOne(ctx, name, adapter, pol)
	if !validation.Valid {
		errs := make([]string, 0, len(validation.Errors))
		for _, ve := range validation.Errors {
			errs = append(errs, ve.String())
		}
		return compileSlot{state: StateValidationFailed, errs: errs}
	}

	output, err := o.compileAdapter(ctx, name, adapter, pol)
	if err != nil {
		return compileSlot{state: StateCompileFailed, errs: []string{err.Error()}}
	}

	o.metrics.RecordArtifacts(name, len(output.Artifacts))
	return compileSlot{state: StateCompiled, output: output}
}

// validateOne runs one adapter's validation, converting a panic into an
// invalid result so a faulty adapter cannot abort the pass.
func (o *Orchestrator) validateOne(ctx context.Context, name string, adapter backend.Adapter, pol *intent.Policy) (result *backend.ValidationResult) {
	_, span := o.tracer.Start(ctx, "strata.adapter.validate", tracing.AdapterAttributes(name, "validate"))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			result = backend.NewValidationResult()
			result.AddError("adapter", "validation panicked: %v", r)
		}
	}()

	start := time.Now()
	result = adapter.Validate(pol)
	o.metrics.RecordAdapterStage(name, "validate", time.Since(start))

	if result == nil {
		result = backend.NewValidationResult()
	}
	o.metrics.RecordValidationIssues(name, len(result.Errors), len(result.Warnings))
	return result
}

// compileAdapter runs one adapter's compile, converting a panic into an error.
func (o *Orchestrator) compileAdapter(ctx context.Context, name string, adapter backend.Adapter, pol *intent.Policy) (output *backend.CompiledOutput, err error) {
	_, span := o.tracer.Start(ctx, "strata.adapter.compile", tracing.AdapterAttributes(name, "compile"))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("compile panicked: %v", r)
		}
		tracing.SetStatus(span, err)
	}()

	start := time.Now()
	output, err = adapter.Compile(pol)
	o.metrics.RecordAdapterStage(name, "compile", time.Since(start))
	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, errors.New("compile returned no output")
	}
	tracing.SetArtifactCount(span, len(output.Artifacts))
	return output, nil
}

// applyOne applies one compiled output, bounded by the configured apply
// timeout. A timeout or cancellation is reported as a normal ApplyResult
// failure so one hung backend cannot stall the others; panics are caught
// at this boundary.
func (o *Orchestrator) applyOne(ctx context.Context, adapter backend.Adapter, output *backend.CompiledOutput, dryRun bool) *backend.ApplyResult {
	name := output.Adapter

	applyCtx := ctx
	if o.cfg.ApplyTimeout > 0 {
		var cancel context.CancelFunc
		applyCtx, cancel = context.WithTimeout(ctx, o.cfg.ApplyTimeout)
		defer cancel()
	}

	spanCtx, span := o.tracer.Start(applyCtx, "strata.adapter.apply", tracing.AdapterAttributes(name, "apply"))
	defer span.End()
	tracing.SetDryRun(span, dryRun)

	done := make(chan *backend.ApplyResult, 1)
	go func() {
		done <- o.invokeApply(spanCtx, name, adapter, output, dryRun)
	}()

	select {
	case result := <-done:
		return result
	case <-applyCtx.Done():
		result := backend.NewApplyResult(name, dryRun)
		if errors.Is(applyCtx.Err(), context.DeadlineExceeded) {
			result.AddError("apply timed out after %s", o.cfg.ApplyTimeout)
		} else {
			result.AddError("apply canceled: %v", applyCtx.Err())
		}
		o.logger.Warn("adapter apply did not finish", "adapter", name, "reason", applyCtx.Err())
		return result
	}
}

// invokeApply runs in its own goroutine; the recover here keeps an adapter
// panic from killing the process.
func (o *Orchestrator) invokeApply(ctx context.Context, name string, adapter backend.Adapter, output *backend.CompiledOutput, dryRun bool) (result *backend.ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			result = backend.NewApplyResult(name, dryRun)
			result.AddError("apply panicked: %v", r)
		}
	}()

	start := time.Now()
	result, err := adapter.Apply(ctx, output, dryRun)
	o.metrics.RecordAdapterStage(name, "apply", time.Since(start))

	if result == nil {
		result = backend.NewApplyResult(name, dryRun)
	}
	if err != nil {
		result.AddError("%v", err)
	}
	return result
}

func (o *Orchestrator) probeOne(ctx context.Context, adapter backend.Adapter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connection test panicked: %v", r)
		}
	}()
	return adapter.TestConnection(ctx)
}

// selected resolves requested names against the registry, preserving
// registration order. Empty input selects every adapter; unknown names are
// dropped.
func (o *Orchestrator) selected(names []string) []string {
	if len(names) == 0 {
		return o.order
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]string, 0, len(names))
	for _, name := range o.order {
		if want[name] {
			out = append(out, name)
		}
	}
	return out
}

func (o *Orchestrator) limit() int {
	if o.cfg.Parallelism > 0 {
		return o.cfg.Parallelism
	}
	return -1
}

func statusOf(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func policyName(pol *intent.Policy) string {
	if pol == nil {
		return ""
	}
	return pol.Name
}

func policyVersion(pol *intent.Policy) string {
	if pol == nil {
		return ""
	}
	return pol.Version
}
