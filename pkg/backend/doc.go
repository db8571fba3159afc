// Package backend defines the contract every enforcement-point adapter
// implements and the result types that flow through the pipeline.
//
// # Overview
//
// An Adapter translates one intent.Policy into the native configuration of
// a single enforcement target (firewall/IPS appliance, zero-trust overlay
// controller, SD-WAN controller) and can push that configuration to the
// target's management plane. The package also provides the shared HTTP
// client used by adapters to reach their management planes, with retry,
// backoff, and health tracking.
//
// # Architecture
//
//  1. Adapter interface - the validate/compile/apply contract
//  2. Result types - ValidationResult, CompiledOutput, ApplyResult
//  3. Client - base HTTP client for management-plane calls
//  4. Error types - typed errors for connection, auth, and parse failures
//
// Concrete adapters live in subpackages (opnsense, openziti, flexiwan) and
// are constructed through pkg/adapterfactory.
//
// # Contract
//
// Validate is a pure function of the policy and the adapter's fixed
// constraints; it reports problems as data and never panics on
// malformed-but-well-typed input. Compile is deterministic: the same policy
// and adapter configuration always produce byte-identical output, including
// artifact order. Apply with dryRun=true enumerates intended changes without
// touching the target; with dryRun=false it performs the management-plane
// calls. Failures inside one adapter never affect another; the orchestrator
// converts them to per-adapter errors.
//
// # Error Handling
//
// Management-plane failures surface as typed errors:
//
//   - AdapterError: general API errors with status code
//   - AuthError: credential rejection (HTTP 401/403)
//   - RateLimitError: HTTP 429 with optional Retry-After
//   - TimeoutError: request deadline exceeded
//   - ParseError: malformed management-plane response
//   - ConfigError: invalid adapter configuration
//
// # Thread Safety
//
// Adapters hold their own connection state exclusively and are safe for
// concurrent use against distinct policies. The shared Client is safe for
// concurrent use.
package backend
