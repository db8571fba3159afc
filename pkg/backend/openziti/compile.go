package openziti

import (
	"fmt"
	"sort"
	"strconv"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/intent"
)

// Artifact targets, in compile order.
const (
	targetServices = "services"
	targetPolicies = "service-policies"
	targetIdents   = "identities"
)

// zitiService is one overlay service with its intercept and host config
// pair. Clients dial the intercept address; the hosting identity binds the
// underlay address.
type zitiService struct {
	Name               string       `json:"name"`
	RoleAttributes     []string     `json:"roleAttributes"`
	TerminatorStrategy string       `json:"terminatorStrategy"`
	Configs            []zitiConfig `json:"configs"`
}

type zitiConfig struct {
	Name         string `json:"name"`
	ConfigTypeID string `json:"configTypeId"`
	Data         any    `json:"data"`
}

type interceptData struct {
	Protocols  []string    `json:"protocols"`
	Addresses  []string    `json:"addresses"`
	PortRanges []portRange `json:"portRanges"`
}

type portRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

type hostData struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
}

// zitiServicePolicy grants identities the right to dial or bind services.
// Roles prefixed with @ reference an entity by name, # by role attribute.
type zitiServicePolicy struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Semantic      string   `json:"semantic"`
	IdentityRoles []string `json:"identityRoles"`
	ServiceRoles  []string `json:"serviceRoles"`
}

// zitiIdentity maps one intent user or group onto controller identity role
// attributes.
type zitiIdentity struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	RoleAttributes []string `json:"roleAttributes"`
}

// Compile renders the policy into controller resources: services with
// their config pairs, Dial and Bind service policies, and identity role
// mappings. All collections follow policy declaration order.
func (a *Adapter) Compile(pol *intent.Policy) (*backend.CompiledOutput, error) {
	services := buildServices(pol)
	policies := buildServicePolicies(pol)
	identities := buildIdentities(pol)

	return &backend.CompiledOutput{
		Adapter:       AdapterName,
		PolicyName:    pol.Name,
		PolicyVersion: pol.Version,
		Artifacts: []backend.CompiledArtifact{
			backend.NewStructuredArtifact(targetServices, services,
				"Overlay services with intercept and host configs"),
			backend.NewStructuredArtifact(targetPolicies, policies,
				"Dial and Bind service policies"),
			backend.NewStructuredArtifact(targetIdents, identities,
				"Identity role attribute mappings"),
		},
		Metadata: map[string]string{
			"service_count": strconv.Itoa(len(services)),
			"policy_count":  strconv.Itoa(len(policies)),
		},
	}, nil
}

func buildServices(pol *intent.Policy) []zitiService {
	services := make([]zitiService, 0, len(pol.Apps))
	for _, app := range pol.Apps {
		services = append(services, zitiService{
			Name: app.Name,
			RoleAttributes: []string{
				"segment-" + app.Segment,
				"strata-managed",
			},
			TerminatorStrategy: "smartrouting",
			Configs: []zitiConfig{
				{
					Name:         app.Name + "-intercept.v1",
					ConfigTypeID: "intercept.v1",
					Data: interceptData{
						Protocols:  []string{app.Protocol},
						Addresses:  []string{app.Address},
						PortRanges: []portRange{{Low: app.Port, High: app.Port}},
					},
				},
				{
					Name:         app.Name + "-host.v1",
					ConfigTypeID: "host.v1",
					Data: hostData{
						Protocol: app.Protocol,
						Address:  hostAddress(pol, app),
						Port:     app.Port,
					},
				},
			},
		})
	}
	return services
}

// hostAddress picks the underlay address a service terminates at: the
// app's explicit host_address, or a placeholder derived from the segment's
// VRF so that compiles stay deterministic without one.
func hostAddress(pol *intent.Policy, app intent.Application) string {
	if app.HostAddress != "" {
		return app.HostAddress
	}
	seg, _ := pol.FindSegment(app.Segment)
	return fmt.Sprintf("10.%d.0.100", 200+seg.VRF)
}

// buildServicePolicies emits one Dial policy per allow rule and one Bind
// policy per application. Deny and inspect rules compile to no overlay
// policy: an overlay network is default-deny, so absence blocks.
func buildServicePolicies(pol *intent.Policy) []zitiServicePolicy {
	policies := make([]zitiServicePolicy, 0, len(pol.AccessRules)+len(pol.Apps))

	for _, rule := range pol.AccessRules {
		if rule.Action != intent.AccessAllow {
			continue
		}
		identityRoles := make([]string, 0, len(rule.Users))
		for _, user := range rule.Users {
			identityRoles = append(identityRoles, "#"+user)
		}
		serviceRoles := make([]string, 0, len(rule.Applications))
		for _, app := range rule.Applications {
			serviceRoles = append(serviceRoles, "@"+app)
		}
		policies = append(policies, zitiServicePolicy{
			Name:          rule.Name + "-dial",
			Type:          "Dial",
			Semantic:      "AnyOf",
			IdentityRoles: identityRoles,
			ServiceRoles:  serviceRoles,
		})
	}

	for _, app := range pol.Apps {
		policies = append(policies, zitiServicePolicy{
			Name:          app.Name + "-bind",
			Type:          "Bind",
			Semantic:      "AnyOf",
			IdentityRoles: []string{"#" + app.Name + "-hosts"},
			ServiceRoles:  []string{"@" + app.Name},
		})
	}

	return policies
}

func buildIdentities(pol *intent.Policy) []zitiIdentity {
	identities := make([]zitiIdentity, 0, len(pol.Users))
	for _, user := range pol.Users {
		attrs := []string{user.Name, "strata-managed"}

		keys := make([]string, 0, len(user.Attributes))
		for k := range user.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, k+"="+user.Attributes[k])
		}

		identities = append(identities, zitiIdentity{
			Name:           user.Name,
			Type:           identityType(user.Kind),
			RoleAttributes: attrs,
		})
	}
	return identities
}

// identityType maps the intent user kind onto a controller identity type:
// individuals enroll their endpoint as a Device, groups are represented by
// a Service identity carrying the group's role attributes.
func identityType(kind intent.UserKind) string {
	if kind == intent.UserKindIndividual {
		return "Device"
	}
	return "Service"
}
