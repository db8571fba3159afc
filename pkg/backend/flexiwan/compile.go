package flexiwan

import (
	"fmt"
	"strconv"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/intent"
)

// Artifact targets, in compile order.
const (
	targetSegments = "segments"
	targetRouting  = "routing"
	targetTemplate = "site-template"
)

// segmentColors drive the controller's topology visualization.
var segmentColors = map[string]string{
	"corp":  "#4285f4",
	"guest": "#fbbc04",
	"iot":   "#34a853",
	"voice": "#ea4335",
}

const defaultSegmentColor = "#9e9e9e"

// flexSegment is one routing domain on the controller.
type flexSegment struct {
	Name        string `json:"name"`
	SegmentID   int    `json:"segmentId"`
	VLAN        int    `json:"vlan"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// flexRoutingPolicy steers one segment's egress traffic.
type flexRoutingPolicy struct {
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	MatchSegment string `json:"matchSegment"`
	Enabled      bool   `json:"enabled"`
	Action       string `json:"action"`
	Destination  string `json:"destination,omitempty"`
	PreferredWAN string `json:"preferredWan,omitempty"`
	Inspection   string `json:"inspection,omitempty"`
}

// flexSiteTemplate is the reusable branch bring-up template. The controller
// has no import API for it; operators load it through the UI.
type flexSiteTemplate struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Interfaces  flexInterfaces    `json:"interfaces"`
	Segments    []templateSegment `json:"segments"`
	Routing     []templateRoute   `json:"routing"`
}

type flexInterfaces struct {
	WAN1 flexWANInterface `json:"wan1"`
	WAN2 flexWANInterface `json:"wan2"`
	LAN  flexLANInterface `json:"lan"`
}

type flexWANInterface struct {
	Type       string `json:"type"`
	AssignedTo string `json:"assignedTo"`
	DHCP       bool   `json:"dhcp"`
	Metric     int    `json:"metric"`
}

type flexLANInterface struct {
	Type       string         `json:"type"`
	AssignedTo string         `json:"assignedTo"`
	VLANs      []templateVLAN `json:"vlans"`
}

type templateVLAN struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Segment string `json:"segment"`
	VRF     int    `json:"vrf"`
}

type templateSegment struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

type templateRoute struct {
	Segment       string `json:"segment"`
	Action        string `json:"action"`
	PreferredPath string `json:"preferredPath,omitempty"`
}

// Compile renders the policy into controller resources: segment
// definitions, egress routing policies, and the branch site template.
// Segments follow declaration order, egress entries sort by segment name.
func (a *Adapter) Compile(pol *intent.Policy) (*backend.CompiledOutput, error) {
	return &backend.CompiledOutput{
		Adapter:       AdapterName,
		PolicyName:    pol.Name,
		PolicyVersion: pol.Version,
		Artifacts: []backend.CompiledArtifact{
			backend.NewStructuredArtifact(targetSegments, buildSegments(pol),
				"Network segment and routing domain definitions"),
			backend.NewStructuredArtifact(targetRouting, buildRoutingPolicies(pol),
				"Egress routing policies per segment"),
			backend.NewStructuredArtifact(targetTemplate, buildSiteTemplate(pol),
				"Branch site template for manual import"),
		},
		Metadata: map[string]string{
			"segment_count":         strconv.Itoa(len(pol.Segments)),
			"requires_manual_steps": "true",
		},
	}, nil
}

func buildSegments(pol *intent.Policy) []flexSegment {
	segments := make([]flexSegment, 0, len(pol.Segments))
	for _, seg := range pol.Segments {
		description := seg.Description
		if description == "" {
			description = fmt.Sprintf("%s segment", seg.Name)
		}
		segments = append(segments, flexSegment{
			Name:        seg.Name,
			SegmentID:   seg.VRF,
			VLAN:        seg.VLAN,
			Description: description,
			Color:       segmentColor(seg.Name),
		})
	}
	return segments
}

func segmentColor(name string) string {
	if color, ok := segmentColors[name]; ok {
		return color
	}
	return defaultSegmentColor
}

func buildRoutingPolicies(pol *intent.Policy) []flexRoutingPolicy {
	policies := make([]flexRoutingPolicy, 0, len(pol.Egress))
	for _, name := range pol.EgressSegments() {
		if !pol.HasSegment(name) {
			continue
		}
		egress := pol.Egress[name]

		policy := flexRoutingPolicy{
			Name:         "egress-" + name,
			Priority:     100,
			MatchSegment: name,
			Enabled:      true,
		}
		switch egress.Action {
		case intent.EgressRouteViaPOP:
			policy.Action = "route-to-hub"
			policy.Destination = "pop-gateway"
			policy.Inspection = string(egress.Inspection)
		case intent.EgressLocalBreakout:
			policy.Action = "local-breakout"
			policy.PreferredWAN = egress.PreferredWAN
		case intent.EgressDrop:
			policy.Action = "drop"
		default:
			policy.Action = "drop"
		}

		policies = append(policies, policy)
	}
	return policies
}

func buildSiteTemplate(pol *intent.Policy) flexSiteTemplate {
	template := flexSiteTemplate{
		Name:        pol.Name + "-site-template",
		Description: fmt.Sprintf("Site template from policy %s", pol.Name),
		Interfaces: flexInterfaces{
			WAN1: flexWANInterface{Type: "WAN", AssignedTo: "eth0", DHCP: true, Metric: 100},
			WAN2: flexWANInterface{Type: "WAN", AssignedTo: "eth1", Metric: 200},
			LAN:  flexLANInterface{Type: "LAN", AssignedTo: "eth2", VLANs: []templateVLAN{}},
		},
		Segments: make([]templateSegment, 0, len(pol.Segments)),
		Routing:  make([]templateRoute, 0, len(pol.Egress)),
	}

	for _, seg := range pol.Segments {
		template.Interfaces.LAN.VLANs = append(template.Interfaces.LAN.VLANs, templateVLAN{
			ID:      seg.VLAN,
			Name:    fmt.Sprintf("vlan%d", seg.VLAN),
			Segment: seg.Name,
			VRF:     seg.VRF,
		})
		template.Segments = append(template.Segments, templateSegment{
			Name: seg.Name,
			ID:   seg.VRF,
		})
	}

	for _, name := range pol.EgressSegments() {
		egress := pol.Egress[name]
		template.Routing = append(template.Routing, templateRoute{
			Segment:       name,
			Action:        string(egress.Action),
			PreferredPath: egress.PreferredWAN,
		})
	}

	return template
}
