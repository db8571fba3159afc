package backend

import (
	"context"

	"stratum-hq/strata/pkg/intent"
)

// Adapter is the contract every enforcement-point backend implements.
// Each adapter owns the translation from the intent model to one target
// system's native configuration, plus the management-plane operations to
// push it live.
//
// The policy passed to Validate and Compile is read-only; adapters must not
// mutate it. Validate and Compile are synchronous and perform no I/O; Apply
// and TestConnection may reach the target's management plane and accept a
// context for cancellation and timeout control.
type Adapter interface {
	// Name returns the adapter's registry identifier (e.g. "opnsense").
	Name() string

	// Info returns descriptive metadata for introspection. No side effects.
	Info() AdapterInfo

	// Validate checks the policy against this backend's constraints:
	// numeric ranges, required fields, and resolution of the references
	// this backend consumes. Problems are reported as entries in the
	// result, never as panics; a policy the backend cannot automate fully
	// may still be valid with warnings attached.
	Validate(pol *intent.Policy) *ValidationResult

	// Compile translates the policy into this backend's configuration
	// artifacts. It may assume the policy currently validates but must
	// degrade gracefully (best-effort output or an error) when called
	// without a prior Validate. Compile is deterministic: the same policy
	// and adapter configuration yield byte-identical output, including
	// artifact order.
	Compile(pol *intent.Policy) (*CompiledOutput, error)

	// Apply pushes compiled configuration to the target. With dryRun=true
	// it enumerates every change it would make, phrased hypothetically,
	// and touches no external state; the action of each enumerated change
	// matches what a real run would perform. With dryRun=false it calls
	// the management plane and reports actual outcomes. Limitations that
	// require manual follow-up are surfaced as notes, not errors.
	Apply(ctx context.Context, out *CompiledOutput, dryRun bool) (*ApplyResult, error)

	// TestConnection verifies the management plane is reachable with the
	// configured credentials. Adapters without a live connectivity check
	// return nil.
	TestConnection(ctx context.Context) error
}

// AdapterInfo describes a registered adapter for listings and API
// responses.
type AdapterInfo struct {
	// Name is the registry identifier.
	Name string `json:"name" yaml:"name"`

	// Vendor is the product the adapter drives.
	Vendor string `json:"vendor" yaml:"vendor"`

	// Description summarizes what the adapter translates the policy into.
	Description string `json:"description" yaml:"description"`

	// Capabilities lists the resource kinds the adapter manages.
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}
