package intent

import "sort"

// InspectionLevel describes how deeply traffic to or from an application
// must be inspected by enforcement points that support content inspection.
type InspectionLevel string

const (
	// InspectionFull requires full payload inspection (inline IPS).
	InspectionFull InspectionLevel = "full"

	// InspectionMetadata requires flow metadata inspection only (IDS-style,
	// no payload processing).
	InspectionMetadata InspectionLevel = "metadata"

	// InspectionNone exempts the traffic from inspection entirely.
	InspectionNone InspectionLevel = "none"
)

// EgressAction describes how traffic leaves a segment.
type EgressAction string

const (
	// EgressRouteViaPOP routes egress traffic through an inspection point
	// of presence before it reaches the internet.
	EgressRouteViaPOP EgressAction = "route-via-pop"

	// EgressLocalBreakout sends egress traffic directly out of the local
	// uplink without traversing an inspection point.
	EgressLocalBreakout EgressAction = "local-breakout"

	// EgressDrop discards all egress traffic from the segment.
	EgressDrop EgressAction = "drop"
)

// AccessAction is the decision an access rule makes for matching traffic.
type AccessAction string

const (
	// AccessAllow permits the traffic.
	AccessAllow AccessAction = "allow"

	// AccessDeny blocks the traffic.
	AccessDeny AccessAction = "deny"

	// AccessInspect permits the traffic but diverts it through content
	// inspection first.
	AccessInspect AccessAction = "inspect"
)

// UserKind distinguishes individual identities from named groups.
type UserKind string

const (
	// UserKindIndividual is a single user identity.
	UserKindIndividual UserKind = "individual"

	// UserKindGroup is a named collection of identities managed elsewhere
	// (directory, IdP). Group membership is not modeled here.
	UserKindGroup UserKind = "group"
)

// UserGroup identifies a user or group of users referenced by access rules.
// Attributes carry free-form identity metadata (department, device posture
// tag) that backends may project into their own identity models.
type UserGroup struct {
	// Name uniquely identifies the user or group within the policy.
	Name string `yaml:"name" json:"name"`

	// Kind is "individual" or "group". Defaults to "group".
	Kind UserKind `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Attributes holds free-form key/value identity metadata.
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Application describes a network-reachable workload governed by the policy.
type Application struct {
	// Name uniquely identifies the application within the policy.
	Name string `yaml:"name" json:"name"`

	// Address is the client-facing address of the application. For overlay
	// backends this is the intercept address (e.g. "intranet.corp.ziti");
	// for routed backends it is matched as a destination.
	Address string `yaml:"address" json:"address"`

	// HostAddress is the real underlay address the workload listens on.
	// Optional; overlay backends that must terminate traffic fall back to
	// a deterministic per-segment placeholder when it is unset and flag
	// the omission during validation.
	HostAddress string `yaml:"host_address,omitempty" json:"host_address,omitempty"`

	// Port is the application's listening port. Defaults to 80.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Protocol is the transport protocol ("tcp" or "udp"). Defaults to "tcp".
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"`

	// Segment names the segment the application lives in. This is a
	// reference into Policy.Segments, not an ownership edge.
	Segment string `yaml:"segment" json:"segment"`

	// Inspection is the inspection level required for traffic to this
	// application. Defaults to "full".
	Inspection InspectionLevel `yaml:"inspection,omitempty" json:"inspection,omitempty"`
}

// Segment is a logical network zone. Backends translate it into their own
// segmentation vocabulary: a VLAN plus firewall rule group, an overlay role
// attribute, or an SD-WAN routing domain.
type Segment struct {
	// Name uniquely identifies the segment within the policy.
	Name string `yaml:"name" json:"name"`

	// VLAN is the 802.1Q tag for the segment. Firewall-style backends
	// require 1-4094.
	VLAN int `yaml:"vlan" json:"vlan"`

	// VRF is the routing-domain identifier isolating the segment's
	// traffic. SD-WAN backends require 1-4096.
	VRF int `yaml:"vrf" json:"vrf"`

	// Description is free text for operators.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// EgressPolicy decides how traffic leaves one segment. Policies are keyed by
// segment name in Policy.Egress.
type EgressPolicy struct {
	// Action is the egress disposition. Defaults to "route-via-pop".
	Action EgressAction `yaml:"action" json:"action"`

	// Inspection is the inspection level applied to egress traffic.
	Inspection InspectionLevel `yaml:"inspection,omitempty" json:"inspection,omitempty"`

	// PreferredWAN names the uplink used for local breakout. Defaults to
	// "wan1".
	PreferredWAN string `yaml:"preferred_wan,omitempty" json:"preferred_wan,omitempty"`
}

// RuleConditions narrows when an access rule applies. All fields are
// optional; an empty conditions block matches always.
type RuleConditions struct {
	// TimeWindow is a free-form schedule expression (e.g. "business-hours").
	TimeWindow string `yaml:"time_window,omitempty" json:"time_window,omitempty"`

	// SourceSegment restricts the rule to traffic originating in the named
	// segment.
	SourceSegment string `yaml:"source_segment,omitempty" json:"source_segment,omitempty"`

	// Geography restricts the rule to the listed country codes.
	Geography []string `yaml:"geography,omitempty" json:"geography,omitempty"`
}

// AccessRule grants or denies a set of users access to a set of
// applications. Users and Applications hold name references resolved against
// the policy's own collections; each backend validates the subset of
// references it consumes.
type AccessRule struct {
	// Name uniquely identifies the rule within the policy.
	Name string `yaml:"name" json:"name"`

	// Users lists UserGroup names the rule applies to.
	Users []string `yaml:"users" json:"users"`

	// Applications lists Application names the rule applies to.
	Applications []string `yaml:"applications" json:"applications"`

	// Action is allow, deny, or inspect.
	Action AccessAction `yaml:"action" json:"action"`

	// Priority orders rules; lower values match first. Defaults to 100.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Conditions optionally narrows when the rule applies.
	Conditions *RuleConditions `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Policy is the backend-agnostic intent document: who may reach what, how
// segments are laid out, and how traffic egresses. A Policy is treated as an
// immutable value for the duration of one validate/compile/apply cycle; no
// backend may mutate it.
type Policy struct {
	// Name identifies the policy.
	Name string `yaml:"name" json:"name"`

	// Version is the operator-assigned policy revision. Defaults to "1.0".
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Description is free text for operators.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Users lists the identities referenced by access rules.
	Users []UserGroup `yaml:"users,omitempty" json:"users,omitempty"`

	// Apps lists the applications governed by the policy.
	Apps []Application `yaml:"apps,omitempty" json:"apps,omitempty"`

	// Segments lists the network zones. Names are unique.
	Segments []Segment `yaml:"segments,omitempty" json:"segments,omitempty"`

	// Egress maps segment name to that segment's egress policy.
	Egress map[string]EgressPolicy `yaml:"egress,omitempty" json:"egress,omitempty"`

	// AccessRules lists the access decisions, evaluated by priority.
	AccessRules []AccessRule `yaml:"access_rules,omitempty" json:"access_rules,omitempty"`
}

// FindApp returns a copy of the named application and whether it exists.
func (p *Policy) FindApp(name string) (Application, bool) {
	for _, app := range p.Apps {
		if app.Name == name {
			return app, true
		}
	}
	return Application{}, false
}

// FindSegment returns a copy of the named segment and whether it exists.
func (p *Policy) FindSegment(name string) (Segment, bool) {
	for _, seg := range p.Segments {
		if seg.Name == name {
			return seg, true
		}
	}
	return Segment{}, false
}

// FindUser returns a copy of the named user or group and whether it exists.
func (p *Policy) FindUser(name string) (UserGroup, bool) {
	for _, u := range p.Users {
		if u.Name == name {
			return u, true
		}
	}
	return UserGroup{}, false
}

// HasSegment reports whether a segment with the given name exists.
func (p *Policy) HasSegment(name string) bool {
	_, ok := p.FindSegment(name)
	return ok
}

// EgressSegments returns the egress map's segment names in sorted order.
// Backends must iterate egress policies through this so that compiled
// output ordering does not depend on map iteration order.
func (p *Policy) EgressSegments() []string {
	names := make([]string, 0, len(p.Egress))
	for name := range p.Egress {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
