package orchestrator

import (
	"stratum-hq/strata/pkg/backend"
)

// CycleState tracks one adapter's progress through a compile-and-apply
// cycle. VALIDATION_FAILED and COMPILE_FAILED are terminal and remove the
// adapter from the apply phase without affecting siblings. APPLIED is
// terminal regardless of the apply result's success flag; apply is attempted
// at most once per cycle.
type CycleState string

const (
	StatePending          CycleState = "PENDING"
	StateValidated        CycleState = "VALIDATED"
	StateCompiled         CycleState = "COMPILED"
	StateApplied          CycleState = "APPLIED"
	StateValidationFailed CycleState = "VALIDATION_FAILED"
	StateCompileFailed    CycleState = "COMPILE_FAILED"
)

// CompileResult aggregates one compile pass across the selected adapters.
// Success is true iff Errors is empty; Outputs holds one CompiledOutput per
// adapter that validated and compiled cleanly, in registration order. A
// partially failed pass still carries the surviving outputs.
type CompileResult struct {
	Success bool                      `json:"success"`
	Outputs []*backend.CompiledOutput `json:"outputs"`
	Errors  []string                  `json:"errors,omitempty"`
	States  map[string]CycleState     `json:"states"`
}

// ApplyPipelineResult aggregates one apply pass. When the internal compile
// is not fully successful, Errors carries a pipeline-level error plus the
// compile errors and Results is empty; no adapter's apply is attempted.
type ApplyPipelineResult struct {
	Success bool                   `json:"success"`
	Results []*backend.ApplyResult `json:"results"`
	Errors  []string               `json:"errors,omitempty"`
	States  map[string]CycleState  `json:"states"`
}
