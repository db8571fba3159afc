package opnsense

import (
	"fmt"
	"sort"
	"strings"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/intent"
)

// Artifact targets, in compile order.
const (
	targetRuleset = "ruleset"
	targetIPS     = "ips"
	targetVLANs   = "vlans"
)

// ipsSettings is the Suricata configuration payload. Mode is "inline" when
// any application requires full inspection, otherwise "ids".
type ipsSettings struct {
	PolicyName     string                `json:"policy_name"`
	Interfaces     []string              `json:"interfaces"`
	Mode           string                `json:"mode"`
	PatternMatcher string                `json:"pattern_matcher"`
	Segments       map[string]ipsSegment `json:"segments"`
	Apps           map[string]ipsApp     `json:"apps"`
}

type ipsSegment struct {
	VLAN       int    `json:"vlan"`
	Inspection string `json:"inspection"`
	Mode       string `json:"mode"`
}

type ipsApp struct {
	Port       int    `json:"port"`
	Protocol   string `json:"protocol"`
	Inspection string `json:"inspection"`
}

// vlanInterface is one 802.1Q sub-interface hung off the trunk.
type vlanInterface struct {
	Name        string `json:"name"`
	Tag         int    `json:"tag"`
	VRF         int    `json:"vrf"`
	Parent      string `json:"parent"`
	Device      string `json:"device"`
	Description string `json:"description"`
}

// Compile renders the policy into the appliance's three configuration
// artifacts: the nftables ruleset, the IPS settings, and the VLAN interface
// list. Output ordering follows policy declaration order (egress entries
// sorted by segment name), so recompiling an unchanged policy is
// byte-identical.
func (a *Adapter) Compile(pol *intent.Policy) (*backend.CompiledOutput, error) {
	segmentNames := make([]string, 0, len(pol.Segments))
	for _, seg := range pol.Segments {
		segmentNames = append(segmentNames, seg.Name)
	}

	return &backend.CompiledOutput{
		Adapter:       AdapterName,
		PolicyName:    pol.Name,
		PolicyVersion: pol.Version,
		Artifacts: []backend.CompiledArtifact{
			backend.NewTextArtifact(targetRuleset, a.buildRuleset(pol),
				"nftables ruleset enforcing segment egress and access rules"),
			backend.NewStructuredArtifact(targetIPS, a.buildIPSSettings(pol),
				"Suricata inspection settings per segment and application"),
			backend.NewStructuredArtifact(targetVLANs, a.buildVLANs(pol),
				"VLAN interface definitions on the trunk"),
		},
		Metadata: map[string]string{
			"segments": strings.Join(segmentNames, ","),
		},
	}, nil
}

// buildRuleset renders the nftables document: one chain per segment
// carrying the egress disposition, then the access_policy chain with one
// rule per access rule and application, ordered by rule priority.
func (a *Adapter) buildRuleset(pol *intent.Policy) string {
	var b strings.Builder

	b.WriteString("#!/usr/sbin/nft -f\n")
	b.WriteString("# Managed by strata. Regenerated on every compile; do not hand-edit.\n")
	fmt.Fprintf(&b, "# Policy: %s v%s\n", pol.Name, pol.Version)
	b.WriteString("\ntable inet strata {\n")

	for _, seg := range pol.Segments {
		fmt.Fprintf(&b, "\n    # Segment: %s (VLAN %d)\n", seg.Name, seg.VLAN)
		fmt.Fprintf(&b, "    chain segment_%s {\n", seg.Name)
		writeEgress(&b, pol, seg)
		b.WriteString("    }\n")
	}

	b.WriteString("\n    # Access rules\n")
	b.WriteString("    chain access_policy {\n")
	for _, rule := range rulesByPriority(pol) {
		for _, appName := range rule.Applications {
			app, ok := pol.FindApp(appName)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "        # %s: %s\n", rule.Name, app.Name)
			fmt.Fprintf(&b, "        %s dport %d %s\n", app.Protocol, app.Port, accessVerb(rule.Action))
		}
	}
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String()
}

// writeEgress emits one segment chain's body. Traffic routed via the PoP is
// marked with the segment's VRF so policy routing can steer it; a segment
// without an egress policy passes through untouched.
func writeEgress(b *strings.Builder, pol *intent.Policy, seg intent.Segment) {
	egress, ok := pol.Egress[seg.Name]
	if !ok {
		b.WriteString("        # Egress: no policy, default accept\n")
		b.WriteString("        accept\n")
		return
	}

	switch egress.Action {
	case intent.EgressRouteViaPOP:
		b.WriteString("        # Egress: route via PoP\n")
		fmt.Fprintf(b, "        meta mark set 0x%02x\n", seg.VRF)
		b.WriteString("        accept\n")
	case intent.EgressLocalBreakout:
		b.WriteString("        # Egress: local breakout\n")
		b.WriteString("        accept\n")
	case intent.EgressDrop:
		b.WriteString("        # Egress: drop\n")
		b.WriteString("        drop\n")
	default:
		fmt.Fprintf(b, "        # Egress: unrecognized action %q, fail closed\n", egress.Action)
		b.WriteString("        drop\n")
	}
}

// rulesByPriority returns the access rules ordered by ascending priority,
// ties keeping declaration order. The policy itself is left untouched.
func rulesByPriority(pol *intent.Policy) []intent.AccessRule {
	rules := make([]intent.AccessRule, len(pol.AccessRules))
	copy(rules, pol.AccessRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
	return rules
}

// accessVerb maps an access action to its nftables verb. Inspected traffic
// is queued to the userspace inspection engine. Unknown actions fail
// closed.
func accessVerb(action intent.AccessAction) string {
	switch action {
	case intent.AccessAllow:
		return "accept"
	case intent.AccessDeny:
		return "drop"
	case intent.AccessInspect:
		return "queue"
	default:
		return "drop"
	}
}

func (a *Adapter) buildIPSSettings(pol *intent.Policy) ipsSettings {
	settings := ipsSettings{
		PolicyName:     pol.Name,
		Interfaces:     []string{a.cfg.WANInterface},
		Mode:           "ids",
		PatternMatcher: "hyperscan",
		Segments:       make(map[string]ipsSegment),
		Apps:           make(map[string]ipsApp),
	}

	for _, name := range pol.EgressSegments() {
		seg, ok := pol.FindSegment(name)
		if !ok {
			continue
		}
		egress := pol.Egress[name]
		mode := "ids"
		if egress.Inspection == intent.InspectionFull {
			mode = "inline"
		}
		settings.Segments[name] = ipsSegment{
			VLAN:       seg.VLAN,
			Inspection: string(egress.Inspection),
			Mode:       mode,
		}
	}

	for _, app := range pol.Apps {
		settings.Apps[app.Name] = ipsApp{
			Port:       app.Port,
			Protocol:   app.Protocol,
			Inspection: string(app.Inspection),
		}
		if app.Inspection == intent.InspectionFull {
			settings.Mode = "inline"
		}
	}

	return settings
}

func (a *Adapter) buildVLANs(pol *intent.Policy) []vlanInterface {
	vlans := make([]vlanInterface, 0, len(pol.Segments))
	for _, seg := range pol.Segments {
		description := seg.Description
		if description == "" {
			description = fmt.Sprintf("%s segment", seg.Name)
		}
		vlans = append(vlans, vlanInterface{
			Name:        seg.Name,
			Tag:         seg.VLAN,
			VRF:         seg.VRF,
			Parent:      a.cfg.TrunkInterface,
			Device:      fmt.Sprintf("%s.%d", a.cfg.TrunkInterface, seg.VLAN),
			Description: description,
		})
	}
	return vlans
}
