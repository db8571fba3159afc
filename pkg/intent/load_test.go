package intent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPolicyYAML = `
name: branch-policy
description: Test intent document
users:
  - name: employees
  - name: alice
    kind: individual
apps:
  - name: app1
    address: app1.corp.ziti
    segment: corp
segments:
  - name: corp
    vlan: 100
    vrf: 1
  - name: guest
    vlan: 200
    vrf: 2
egress:
  corp:
    action: route-via-pop
  guest:
    action: local-breakout
    inspection: metadata
access_rules:
  - name: allow-app1
    users: [employees]
    applications: [app1]
    action: allow
`

func TestParsePolicy(t *testing.T) {
	pol, err := ParsePolicy([]byte(testPolicyYAML))
	if err != nil {
		t.Fatalf("ParsePolicy() error = %v", err)
	}

	if pol.Name != "branch-policy" {
		t.Errorf("Name = %q, want %q", pol.Name, "branch-policy")
	}
	if len(pol.Segments) != 2 {
		t.Errorf("len(Segments) = %d, want 2", len(pol.Segments))
	}
	if len(pol.Egress) != 2 {
		t.Errorf("len(Egress) = %d, want 2", len(pol.Egress))
	}
}

func TestParsePolicyDefaults(t *testing.T) {
	pol, err := ParsePolicy([]byte(testPolicyYAML))
	if err != nil {
		t.Fatalf("ParsePolicy() error = %v", err)
	}

	if pol.Version != DefaultVersion {
		t.Errorf("Version = %q, want default %q", pol.Version, DefaultVersion)
	}

	app := pol.Apps[0]
	if app.Port != DefaultPort {
		t.Errorf("app Port = %d, want default %d", app.Port, DefaultPort)
	}
	if app.Protocol != DefaultProtocol {
		t.Errorf("app Protocol = %q, want default %q", app.Protocol, DefaultProtocol)
	}
	if app.Inspection != InspectionFull {
		t.Errorf("app Inspection = %q, want %q", app.Inspection, InspectionFull)
	}

	if kind := pol.Users[0].Kind; kind != UserKindGroup {
		t.Errorf("users[0].Kind = %q, want %q", kind, UserKindGroup)
	}
	if kind := pol.Users[1].Kind; kind != UserKindIndividual {
		t.Errorf("users[1].Kind = %q, want %q", kind, UserKindIndividual)
	}

	corp := pol.Egress["corp"]
	if corp.Inspection != InspectionFull {
		t.Errorf("egress corp Inspection = %q, want %q", corp.Inspection, InspectionFull)
	}
	if corp.PreferredWAN != DefaultPreferredWAN {
		t.Errorf("egress corp PreferredWAN = %q, want %q", corp.PreferredWAN, DefaultPreferredWAN)
	}

	guest := pol.Egress["guest"]
	if guest.Inspection != InspectionMetadata {
		t.Errorf("egress guest Inspection = %q, want %q (explicit value overwritten)", guest.Inspection, InspectionMetadata)
	}

	if prio := pol.AccessRules[0].Priority; prio != DefaultRulePriority {
		t.Errorf("rule Priority = %d, want default %d", prio, DefaultRulePriority)
	}
}

func TestParsePolicyErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			yaml:    "name: [unclosed",
			wantErr: "invalid YAML",
		},
		{
			name:    "missing policy name",
			yaml:    "description: no name here",
			wantErr: "policy name is required",
		},
		{
			name: "duplicate segment name",
			yaml: `
name: p
segments:
  - name: corp
    vlan: 100
    vrf: 1
  - name: corp
    vlan: 200
    vrf: 2
`,
			wantErr: "duplicate segment name: corp",
		},
		{
			name: "duplicate application name",
			yaml: `
name: p
apps:
  - name: app1
    address: a
    segment: corp
  - name: app1
    address: b
    segment: corp
`,
			wantErr: "duplicate application name: app1",
		},
		{
			name: "unnamed access rule",
			yaml: `
name: p
access_rules:
  - users: [employees]
    applications: [app1]
`,
			wantErr: "access rule name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.yaml))
			if err == nil {
				t.Fatal("ParsePolicy() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParsePolicy() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intent.yaml")
	if err := os.WriteFile(path, []byte(testPolicyYAML), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	pol, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	if pol.Name != "branch-policy" {
		t.Errorf("Name = %q, want %q", pol.Name, "branch-policy")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadPolicy() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("error should name the file, got: %v", err)
	}
}

func TestStarterPolicy(t *testing.T) {
	pol := StarterPolicy()

	if err := pol.Validate(); err != nil {
		t.Fatalf("starter policy failed validation: %v", err)
	}
	if len(pol.Segments) == 0 || len(pol.Apps) == 0 || len(pol.AccessRules) == 0 {
		t.Error("starter policy should include segments, apps and access rules")
	}
	for _, rule := range pol.AccessRules {
		for _, appName := range rule.Applications {
			if _, ok := pol.FindApp(appName); !ok {
				t.Errorf("starter rule %q references unknown app %q", rule.Name, appName)
			}
		}
		for _, userName := range rule.Users {
			if _, ok := pol.FindUser(userName); !ok {
				t.Errorf("starter rule %q references unknown user %q", rule.Name, userName)
			}
		}
	}
}
