// Package adaptertest provides shared fixtures for adapter and orchestrator
// tests: a representative two-segment policy and a scriptable mock adapter.
package adaptertest

import (
	"stratum-hq/strata/pkg/intent"
)

// SamplePolicy returns a two-segment policy exercising every intent
// construct: users, applications, segments, egress dispositions, and access
// rules. Values mirror what the loader would produce after defaulting, so
// adapters can be tested without going through YAML.
func SamplePolicy() *intent.Policy {
	return &intent.Policy{
		Name:        "test-policy",
		Version:     "1.0",
		Description: "Test policy",
		Users: []intent.UserGroup{
			{Name: "employees", Kind: intent.UserKindGroup, Attributes: map[string]string{"role": "employee"}},
			{Name: "contractors", Kind: intent.UserKindGroup, Attributes: map[string]string{"role": "contractor"}},
		},
		Apps: []intent.Application{
			{
				Name:       "app1",
				Address:    "app1.ziti",
				Port:       80,
				Protocol:   "tcp",
				Segment:    "corp",
				Inspection: intent.InspectionFull,
			},
			{
				Name:       "app2",
				Address:    "app2.ziti",
				Port:       80,
				Protocol:   "tcp",
				Segment:    "corp",
				Inspection: intent.InspectionMetadata,
			},
		},
		Segments: []intent.Segment{
			{Name: "corp", VLAN: 100, VRF: 1},
			{Name: "guest", VLAN: 200, VRF: 2},
		},
		Egress: map[string]intent.EgressPolicy{
			"corp":  {Action: intent.EgressRouteViaPOP, Inspection: intent.InspectionFull, PreferredWAN: "wan1"},
			"guest": {Action: intent.EgressLocalBreakout, Inspection: intent.InspectionNone, PreferredWAN: "wan1"},
		},
		AccessRules: []intent.AccessRule{
			{
				Name:         "employees-to-apps",
				Users:        []string{"employees"},
				Applications: []string{"app1", "app2"},
				Action:       intent.AccessAllow,
				Priority:     100,
			},
			{
				Name:         "contractors-limited",
				Users:        []string{"contractors"},
				Applications: []string{"app1"},
				Action:       intent.AccessAllow,
				Priority:     100,
			},
		},
	}
}
