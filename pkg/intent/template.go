package intent

// StarterPolicy returns the template written by "strata init": a minimal
// two-segment network with one internal application and one allow rule, for
// operators to edit into their own intent document.
func StarterPolicy() *Policy {
	return &Policy{
		Name:        "my-network-policy",
		Version:     "1.0",
		Description: "Network and security intent for the branch network",
		Users: []UserGroup{
			{
				Name: "employees",
				Kind: UserKindGroup,
				Attributes: map[string]string{
					"department": "all",
				},
			},
		},
		Apps: []Application{
			{
				Name:       "intranet",
				Address:    "intranet.corp.ziti",
				Port:       443,
				Protocol:   "tcp",
				Segment:    "corp",
				Inspection: InspectionFull,
			},
		},
		Segments: []Segment{
			{
				Name:        "corp",
				VLAN:        100,
				VRF:         1,
				Description: "Corporate workstations and services",
			},
			{
				Name:        "guest",
				VLAN:        200,
				VRF:         2,
				Description: "Guest Wi-Fi",
			},
		},
		Egress: map[string]EgressPolicy{
			"corp": {
				Action:       EgressRouteViaPOP,
				Inspection:   InspectionFull,
				PreferredWAN: "wan1",
			},
			"guest": {
				Action:       EgressLocalBreakout,
				Inspection:   InspectionMetadata,
				PreferredWAN: "wan2",
			},
		},
		AccessRules: []AccessRule{
			{
				Name:         "employees-to-intranet",
				Users:        []string{"employees"},
				Applications: []string{"intranet"},
				Action:       AccessAllow,
				Priority:     10,
			},
		},
	}
}
