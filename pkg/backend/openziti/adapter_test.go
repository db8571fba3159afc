package openziti

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"stratum-hq/strata/internal/adaptertest"
	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/config"
)

func TestValidateSamplePolicy(t *testing.T) {
	adapter := newTestAdapter("")
	result := adapter.Validate(adaptertest.SamplePolicy())

	if !result.Valid {
		t.Fatalf("Valid = false, errors: %v", result.Errors)
	}
	// Neither sample app sets host_address, both draw the placeholder warning.
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2 placeholder warnings", result.Warnings)
	}
}

func TestValidateMissingAddress(t *testing.T) {
	adapter := newTestAdapter("")
	pol := adaptertest.SamplePolicy()
	pol.Apps[0].Address = ""

	result := adapter.Validate(pol)
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1", result.Errors)
	}
	if result.Errors[0].Field != "apps.app1.address" {
		t.Errorf("Field = %q", result.Errors[0].Field)
	}
}

func TestValidateAddressWarnings(t *testing.T) {
	tests := []struct {
		name    string
		address string
		warn    bool
	}{
		{"ziti domain", "app1.ziti", false},
		{"clearnet domain", "app1.example.com", true},
		{"bare hostname", "app1", false},
	}

	adapter := newTestAdapter("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := adaptertest.SamplePolicy()
			pol.Apps[0].Address = tt.address
			pol.Apps[0].HostAddress = "192.168.10.5"
			pol.Apps[1].HostAddress = "192.168.10.6"

			result := adapter.Validate(pol)
			warned := false
			for _, w := range result.Warnings {
				if w.Field == "apps.app1.address" {
					warned = true
				}
			}
			if warned != tt.warn {
				t.Errorf("address warning = %v, want %v (warnings: %v)", warned, tt.warn, result.Warnings)
			}
		})
	}
}

func TestValidateUnknownReferences(t *testing.T) {
	adapter := newTestAdapter("")
	pol := adaptertest.SamplePolicy()
	pol.AccessRules[0].Applications = append(pol.AccessRules[0].Applications, "ghost-app")
	pol.AccessRules[1].Users = append(pol.AccessRules[1].Users, "ghost-user")

	result := adapter.Validate(pol)
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}

	var appErr, userErr bool
	for _, e := range result.Errors {
		if e.Field == "access_rules[0].applications" && strings.Contains(e.Message, "ghost-app") {
			appErr = true
		}
		if e.Field == "access_rules[1].users" && strings.Contains(e.Message, "ghost-user") {
			userErr = true
		}
	}
	if !appErr {
		t.Errorf("missing unknown application error: %v", result.Errors)
	}
	if !userErr {
		t.Errorf("missing unknown user error: %v", result.Errors)
	}
}

func TestApplyDryRun(t *testing.T) {
	adapter := newTestAdapter("")
	out, err := adapter.Compile(adaptertest.SamplePolicy())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	result, err := adapter.Apply(context.Background(), out, true)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !result.Success || !result.DryRun {
		t.Errorf("Success = %v, DryRun = %v", result.Success, result.DryRun)
	}
	// 2 services + 4 policies + 2 identities
	if len(result.Changes) != 8 {
		t.Fatalf("got %d changes, want 8: %+v", len(result.Changes), result.Changes)
	}
	for _, c := range result.Changes {
		if !strings.HasPrefix(c.Detail, "Would ") {
			t.Errorf("dry-run change not hypothetical: %q", c.Detail)
		}
	}
}

// newController fakes the controller management API: password auth issuing
// a fixed token, config/service/policy creates, and identity lookup/patch.
func newController(t *testing.T, enrolled bool) (*httptest.Server, *controllerState) {
	t.Helper()
	state := &controllerState{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		switch {
		case r.URL.Path == "/edge/management/v1/authenticate":
			state.auths++
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "test-session"}})

		case r.URL.Path == "/edge/management/v1/configs" && r.Method == http.MethodPost:
			if r.Header.Get(headerSession) != "test-session" {
				http.Error(w, "no session", http.StatusUnauthorized)
				return
			}
			state.configs++
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "cfg-1"}})

		case r.URL.Path == "/edge/management/v1/services" && r.Method == http.MethodPost:
			state.services++
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "svc-1"}})

		case r.URL.Path == "/edge/management/v1/service-policies" && r.Method == http.MethodPost:
			state.policies++
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "pol-1"}})

		case r.URL.Path == "/edge/management/v1/identities" && r.Method == http.MethodGet:
			if !enrolled {
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{{"id": "ident-1"}}})

		case strings.HasPrefix(r.URL.Path, "/edge/management/v1/identities/") && r.Method == http.MethodPatch:
			state.patches++
			w.WriteHeader(http.StatusOK)

		default:
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
		}
	}))

	return server, state
}

type controllerState struct {
	mu       sync.Mutex
	auths    int
	configs  int
	services int
	policies int
	patches  int
}

func TestApplyRealRun(t *testing.T) {
	server, state := newController(t, true)
	defer server.Close()

	adapter := New(config.OpenZitiConfig{
		BaseURL:  server.URL,
		Username: "admin",
		Password: "admin",
	})

	out, err := adapter.Compile(adaptertest.SamplePolicy())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	result, err := adapter.Apply(context.Background(), out, false)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !result.Success {
		t.Fatalf("Success = false, errors: %v", result.Errors)
	}
	if len(result.Changes) != 8 {
		t.Fatalf("got %d changes, want 8: %+v", len(result.Changes), result.Changes)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.auths != 1 {
		t.Errorf("auths = %d, want 1", state.auths)
	}
	if state.configs != 4 || state.services != 2 {
		t.Errorf("configs = %d, services = %d, want 4 and 2", state.configs, state.services)
	}
	if state.policies != 4 || state.patches != 2 {
		t.Errorf("policies = %d, patches = %d, want 4 and 2", state.policies, state.patches)
	}
}

func TestApplyDryRunMatchesRealRun(t *testing.T) {
	server, state := newController(t, true)
	defer server.Close()

	adapter := New(config.OpenZitiConfig{
		BaseURL:  server.URL,
		Username: "admin",
		Password: "admin",
	})

	out, err := adapter.Compile(adaptertest.SamplePolicy())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	dry, err := adapter.Apply(context.Background(), out, true)
	if err != nil {
		t.Fatalf("Apply(dryRun=true) error = %v", err)
	}
	state.mu.Lock()
	sessions := state.auths
	state.mu.Unlock()
	if sessions != 0 {
		t.Fatalf("dry run opened %d sessions, want 0", sessions)
	}

	live, err := adapter.Apply(context.Background(), out, false)
	if err != nil {
		t.Fatalf("Apply(dryRun=false) error = %v", err)
	}

	if len(dry.Changes) != len(live.Changes) {
		t.Fatalf("dry run reported %d changes, real run %d", len(dry.Changes), len(live.Changes))
	}
	for i := range dry.Changes {
		d, l := dry.Changes[i], live.Changes[i]
		if d.Resource != l.Resource || d.Name != l.Name || d.Action != l.Action {
			t.Errorf("change[%d]: dry run %+v, real run %+v", i, d, l)
		}
	}
}

func TestApplyIdentityNotEnrolled(t *testing.T) {
	server, _ := newController(t, false)
	defer server.Close()

	adapter := New(config.OpenZitiConfig{
		BaseURL:  server.URL,
		Username: "admin",
		Password: "admin",
	})

	out, err := adapter.Compile(adaptertest.SamplePolicy())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	result, err := adapter.Apply(context.Background(), out, false)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !result.Success {
		t.Fatalf("missing enrollment must not fail apply, errors: %v", result.Errors)
	}
	skips := 0
	for _, c := range result.Changes {
		if c.Resource == "identity" && c.Action == backend.ActionSkip {
			skips++
		}
	}
	if skips != 2 {
		t.Errorf("identity skips = %d, want 2", skips)
	}
	if len(result.Notes) != 2 {
		t.Errorf("Notes = %v, want 2 enrollment notes", result.Notes)
	}
}

func TestApplyAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := New(config.OpenZitiConfig{
		BaseURL:  server.URL,
		Username: "admin",
		Password: "wrong",
	})

	out, err := adapter.Compile(adaptertest.SamplePolicy())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	result, err := adapter.Apply(context.Background(), out, false)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if result.Success {
		t.Error("Success = true after failed authentication")
	}
	if len(result.Changes) != 0 {
		t.Errorf("Changes = %+v, want none", result.Changes)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "authentication") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestTestConnection(t *testing.T) {
	server, state := newController(t, true)
	defer server.Close()

	withCreds := New(config.OpenZitiConfig{BaseURL: server.URL, Username: "admin", Password: "admin"})
	if err := withCreds.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection() error = %v", err)
	}
	state.mu.Lock()
	auths := state.auths
	state.mu.Unlock()
	if auths != 1 {
		t.Errorf("auths = %d, want 1 (credentialed probe authenticates)", auths)
	}
}

func TestTestConnectionVersionProbe(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"version": "v1.1.15"}})
	}))
	defer server.Close()

	adapter := New(config.OpenZitiConfig{BaseURL: server.URL})
	if err := adapter.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection() error = %v", err)
	}
	if path != "/edge/management/v1/version" {
		t.Errorf("probe path = %q", path)
	}
}

func TestTestConnectionUnconfigured(t *testing.T) {
	adapter := newTestAdapter("")
	err := adapter.TestConnection(context.Background())
	var cfgErr *backend.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestAdapterInfo(t *testing.T) {
	adapter := newTestAdapter("")
	if adapter.Name() != "openziti" {
		t.Errorf("Name() = %q", adapter.Name())
	}
	info := adapter.Info()
	if info.Vendor != "OpenZiti" || len(info.Capabilities) == 0 {
		t.Errorf("Info() = %+v", info)
	}
}
