package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/orchestrator"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("history record not found")

// StorageError describes a failed store operation.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage error [%s/%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// AdapterOutcome summarizes one adapter's part in a recorded run.
type AdapterOutcome struct {
	Adapter string   `json:"adapter"`
	State   string   `json:"state"`
	Success bool     `json:"success"`
	Changes int      `json:"changes,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Record captures one pipeline run for later inspection.
type Record struct {
	ID            string           `json:"id"`
	PolicyName    string           `json:"policy_name"`
	PolicyVersion string           `json:"policy_version"`
	Stage         string           `json:"stage"`
	DryRun        bool             `json:"dry_run"`
	Success       bool             `json:"success"`
	Adapters      []AdapterOutcome `json:"adapters"`
	Errors        []string         `json:"errors,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// Store persists pipeline run records.
type Store interface {
	// Save persists one record.
	Save(ctx context.Context, record *Record) error

	// List returns records ordered newest first. A non-positive limit
	// returns everything.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Prune deletes records started before the cutoff and returns how
	// many were removed.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// FromValidate builds a record from one validation pass.
func FromValidate(pol *intent.Policy, results map[string]*backend.ValidationResult, startedAt time.Time) *Record {
	rec := newRecord(pol, "validate", false, startedAt)

	names := sortedKeys(results)
	rec.Success = true
	for _, name := range names {
		res := results[name]
		state := orchestrator.StateValidated
		if !res.Valid {
			state = orchestrator.StateValidationFailed
			rec.Success = false
		}
		outcome := AdapterOutcome{Adapter: name, State: string(state), Success: res.Valid}
		for _, ve := range res.Errors {
			outcome.Errors = append(outcome.Errors, ve.String())
			rec.Errors = append(rec.Errors, name+": "+ve.String())
		}
		rec.Adapters = append(rec.Adapters, outcome)
	}
	return rec
}

// FromCompile builds a record from one compile pass.
func FromCompile(pol *intent.Policy, result *orchestrator.CompileResult, startedAt time.Time) *Record {
	rec := newRecord(pol, "compile", false, startedAt)
	rec.Success = result.Success
	rec.Errors = append(rec.Errors, result.Errors...)

	for _, name := range sortedKeys(result.States) {
		state := result.States[name]
		rec.Adapters = append(rec.Adapters, AdapterOutcome{
			Adapter: name,
			State:   string(state),
			Success: state == orchestrator.StateCompiled,
		})
	}
	return rec
}

// FromApply builds a record from one apply pass.
func FromApply(pol *intent.Policy, result *orchestrator.ApplyPipelineResult, dryRun bool, startedAt time.Time) *Record {
	rec := newRecord(pol, "apply", dryRun, startedAt)
	rec.Success = result.Success
	rec.Errors = append(rec.Errors, result.Errors...)

	applied := make(map[string]*backend.ApplyResult, len(result.Results))
	for _, res := range result.Results {
		applied[res.Adapter] = res
	}

	for _, name := range sortedKeys(result.States) {
		outcome := AdapterOutcome{Adapter: name, State: string(result.States[name])}
		if res, ok := applied[name]; ok {
			outcome.Success = res.Success
			outcome.Changes = len(res.Changes)
			outcome.Errors = append(outcome.Errors, res.Errors...)
		}
		rec.Adapters = append(rec.Adapters, outcome)
	}
	return rec
}

func newRecord(pol *intent.Policy, stage string, dryRun bool, startedAt time.Time) *Record {
	rec := &Record{
		ID:         uuid.NewString(),
		Stage:      stage,
		DryRun:     dryRun,
		StartedAt:  startedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if pol != nil {
		rec.PolicyName = pol.Name
		rec.PolicyVersion = pol.Version
	}
	return rec
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
