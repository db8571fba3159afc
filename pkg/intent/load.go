package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied to a policy after parsing.
const (
	DefaultVersion      = "1.0"
	DefaultPort         = 80
	DefaultProtocol     = "tcp"
	DefaultInspection   = InspectionFull
	DefaultUserKind     = UserKindGroup
	DefaultEgressAction = EgressRouteViaPOP
	DefaultPreferredWAN = "wan1"
	DefaultRulePriority = 100
)

// LoadPolicy reads and parses an intent document from a YAML file, applies
// defaults, and verifies the document's structural shape. Backend-specific
// constraints (numeric ranges, reference resolution) are not checked here;
// those belong to each backend's Validate.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent file %s: %w", path, err)
	}

	pol, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intent file %s: %w", path, err)
	}

	return pol, nil
}

// ParsePolicy parses an intent document from YAML bytes, applies defaults,
// and verifies the document's structural shape.
func ParsePolicy(data []byte) (*Policy, error) {
	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	pol.ApplyDefaults()

	if err := pol.Validate(); err != nil {
		return nil, err
	}

	return &pol, nil
}

// ApplyDefaults fills in defaults for optional fields left empty by the
// document author. Called by the loader before structural validation.
func (p *Policy) ApplyDefaults() {
	if p.Version == "" {
		p.Version = DefaultVersion
	}

	for i := range p.Users {
		if p.Users[i].Kind == "" {
			p.Users[i].Kind = DefaultUserKind
		}
	}

	for i := range p.Apps {
		if p.Apps[i].Port == 0 {
			p.Apps[i].Port = DefaultPort
		}
		if p.Apps[i].Protocol == "" {
			p.Apps[i].Protocol = DefaultProtocol
		}
		if p.Apps[i].Inspection == "" {
			p.Apps[i].Inspection = DefaultInspection
		}
	}

	for name, egress := range p.Egress {
		if egress.Action == "" {
			egress.Action = DefaultEgressAction
		}
		if egress.Inspection == "" {
			egress.Inspection = DefaultInspection
		}
		if egress.PreferredWAN == "" {
			egress.PreferredWAN = DefaultPreferredWAN
		}
		p.Egress[name] = egress
	}

	for i := range p.AccessRules {
		if p.AccessRules[i].Priority == 0 {
			p.AccessRules[i].Priority = DefaultRulePriority
		}
		if p.AccessRules[i].Action == "" {
			p.AccessRules[i].Action = AccessAllow
		}
	}
}

// Validate checks the structural shape of the policy: required names are
// present and collection entries are uniquely named. It does not resolve
// cross-references or enforce backend numeric ranges.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}

	seen := make(map[string]bool, len(p.Segments))
	for _, seg := range p.Segments {
		if seg.Name == "" {
			return fmt.Errorf("segment name is required")
		}
		if seen[seg.Name] {
			return fmt.Errorf("duplicate segment name: %s", seg.Name)
		}
		seen[seg.Name] = true
	}

	seen = make(map[string]bool, len(p.Apps))
	for _, app := range p.Apps {
		if app.Name == "" {
			return fmt.Errorf("application name is required")
		}
		if seen[app.Name] {
			return fmt.Errorf("duplicate application name: %s", app.Name)
		}
		seen[app.Name] = true
	}

	seen = make(map[string]bool, len(p.Users))
	for _, u := range p.Users {
		if u.Name == "" {
			return fmt.Errorf("user name is required")
		}
		if seen[u.Name] {
			return fmt.Errorf("duplicate user name: %s", u.Name)
		}
		seen[u.Name] = true
	}

	seen = make(map[string]bool, len(p.AccessRules))
	for _, rule := range p.AccessRules {
		if rule.Name == "" {
			return fmt.Errorf("access rule name is required")
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate access rule name: %s", rule.Name)
		}
		seen[rule.Name] = true
	}

	return nil
}
