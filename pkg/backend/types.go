package backend

import "fmt"

// Severity grades a validation finding.
type Severity string

const (
	// SeverityError blocks compilation for the reporting backend.
	SeverityError Severity = "error"

	// SeverityWarning is advisory; compilation proceeds.
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding from an adapter's Validate. Field is a
// dotted path into the policy document identifying the offending element
// (e.g. "segments.corp.vlan", "access_rules[2].applications").
type ValidationError struct {
	Field    string   `json:"field" yaml:"field"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult aggregates one adapter's findings for one policy.
// Valid is false iff at least one error-severity finding was recorded;
// warnings alone leave the policy valid.
type ValidationResult struct {
	Valid    bool              `json:"valid" yaml:"valid"`
	Errors   []ValidationError `json:"errors" yaml:"errors"`
	Warnings []ValidationError `json:"warnings" yaml:"warnings"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError records an error finding and marks the result invalid.
func (r *ValidationResult) AddError(field, format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

// AddWarning records an advisory finding without invalidating the result.
func (r *ValidationResult) AddWarning(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

// ContentKind tags an artifact's payload shape so a writer can serialize it
// without inspecting the content.
type ContentKind string

const (
	// KindText marks an opaque text payload (a ruleset, a rendered
	// configuration file). Stored in CompiledArtifact.Text.
	KindText ContentKind = "text"

	// KindStructured marks a tree of primitive values (maps, slices,
	// strings, numbers). Stored in CompiledArtifact.Data.
	KindStructured ContentKind = "structured"
)

// CompiledArtifact is one named configuration payload produced for a
// backend: a ruleset, a service list, a site template. Exactly one of Text
// or Data is populated, selected by Kind.
type CompiledArtifact struct {
	// Target names the sub-configuration this artifact feeds
	// (e.g. "ruleset", "services").
	Target string `json:"target" yaml:"target"`

	// Kind selects the payload field and the writer's serialization.
	Kind ContentKind `json:"kind" yaml:"kind"`

	// Text is the payload for KindText artifacts.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Data is the payload for KindStructured artifacts: maps, slices and
	// primitives only, so any encoder can serialize it.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`

	// Description is a human-readable summary of the artifact.
	Description string `json:"description" yaml:"description"`
}

// NewTextArtifact builds a KindText artifact.
func NewTextArtifact(target, text, description string) CompiledArtifact {
	return CompiledArtifact{
		Target:      target,
		Kind:        KindText,
		Text:        text,
		Description: description,
	}
}

// NewStructuredArtifact builds a KindStructured artifact.
func NewStructuredArtifact(target string, data any, description string) CompiledArtifact {
	return CompiledArtifact{
		Target:      target,
		Kind:        KindStructured,
		Data:        data,
		Description: description,
	}
}

// CompiledOutput is everything one adapter produced from one policy.
// Artifacts keep their declaration order; the slice is never re-sorted, so
// recompiling the same policy yields identical ordering. Metadata carries
// static descriptive values only (no timestamps), preserving compile
// determinism.
type CompiledOutput struct {
	Adapter       string             `json:"adapter" yaml:"adapter"`
	PolicyName    string             `json:"policy_name" yaml:"policy_name"`
	PolicyVersion string             `json:"policy_version" yaml:"policy_version"`
	Artifacts     []CompiledArtifact `json:"artifacts" yaml:"artifacts"`
	Metadata      map[string]string  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Artifact returns the artifact with the given target name, if present.
func (o *CompiledOutput) Artifact(target string) (CompiledArtifact, bool) {
	for _, a := range o.Artifacts {
		if a.Target == target {
			return a, true
		}
	}
	return CompiledArtifact{}, false
}

// ChangeAction classifies what an apply step does to one resource.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
	ActionSkip   ChangeAction = "skip"
)

// ApplyChange records one resource-level step of an apply: what kind of
// resource, which one, and what was (or would be) done to it.
type ApplyChange struct {
	// Resource is the backend resource kind ("vlan", "service",
	// "routing_policy").
	Resource string `json:"resource" yaml:"resource"`

	// Name identifies the specific resource instance.
	Name string `json:"name" yaml:"name"`

	// Action is create, update, delete, or skip.
	Action ChangeAction `json:"action" yaml:"action"`

	// Detail is the human-readable account of the step. Dry runs phrase it
	// hypothetically ("Would create ..."); real runs report what happened.
	Detail string `json:"detail" yaml:"detail"`
}

// ApplyResult is one adapter's account of one apply invocation. Changes
// preserve the order the adapter performed (or would perform) them in.
// Notes carry non-blocking limitations, such as resources the target only
// supports through manual steps; they do not affect Success.
type ApplyResult struct {
	Adapter string        `json:"adapter" yaml:"adapter"`
	Success bool          `json:"success" yaml:"success"`
	DryRun  bool          `json:"dry_run" yaml:"dry_run"`
	Changes []ApplyChange `json:"changes" yaml:"changes"`
	Errors  []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
	Notes   []string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewApplyResult returns an ApplyResult that starts successful.
func NewApplyResult(adapter string, dryRun bool) *ApplyResult {
	return &ApplyResult{
		Adapter: adapter,
		Success: true,
		DryRun:  dryRun,
	}
}

// AddChange appends one change record.
func (r *ApplyResult) AddChange(resource, name string, action ChangeAction, format string, args ...any) {
	r.Changes = append(r.Changes, ApplyChange{
		Resource: resource,
		Name:     name,
		Action:   action,
		Detail:   fmt.Sprintf(format, args...),
	})
}

// AddError records a failure and marks the result unsuccessful.
func (r *ApplyResult) AddError(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddNote records a non-blocking limitation.
func (r *ApplyResult) AddNote(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}
