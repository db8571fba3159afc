// Package flexiwan translates intent policies into flexiWAN SD-WAN
// configuration: segment definitions, egress routing policies, and a
// branch site template. The controller's automation API covers a limited
// resource set, so the adapter flags the remaining manual steps.
package flexiwan

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/intent"
)

// AdapterName is the registry identifier for this adapter.
const AdapterName = "flexiwan"

const (
	minVRF = 1
	maxVRF = 4096
)

// Controller API paths.
const (
	pathSegments      = "/api/segments"
	pathMLPolicies    = "/api/mlpolicies"
	pathOrganizations = "/api/organizations"
)

// Adapter drives a flexiWAN management controller. Validate and Compile
// work entirely offline; Apply and TestConnection use the controller API
// with bearer token authentication.
type Adapter struct {
	cfg    config.FlexiWANConfig
	client *backend.Client
}

// New creates the flexiWAN adapter. An empty base URL is allowed so the
// offline stages stay usable; Apply and TestConnection then report a
// configuration error instead of dialing.
func New(cfg config.FlexiWANConfig) *Adapter {
	headers := map[string]string{}
	if cfg.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Token
	}

	return &Adapter{
		cfg: cfg,
		client: backend.NewClient(backend.ClientConfig{
			Adapter:    AdapterName,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			VerifyTLS:  cfg.VerifyTLS,
			Headers:    headers,
		}),
	}
}

// Name returns the adapter's registry identifier.
func (a *Adapter) Name() string {
	return AdapterName
}

// Info returns descriptive metadata.
func (a *Adapter) Info() backend.AdapterInfo {
	return backend.AdapterInfo{
		Name:        AdapterName,
		Vendor:      "flexiWAN",
		Description: "SD-WAN: segments, egress routing policies, branch site template",
		Capabilities: []string{
			"segments",
			"routing_policies",
			"site_template",
		},
	}
}

// Validate checks VRF identifiers against the controller's routing domain
// range and flags the automation gaps every run inherits.
func (a *Adapter) Validate(pol *intent.Policy) *backend.ValidationResult {
	result := backend.NewValidationResult()

	for _, seg := range pol.Segments {
		if seg.VRF < minVRF || seg.VRF > maxVRF {
			result.AddError(
				fmt.Sprintf("segments.%s.vrf", seg.Name),
				"VRF %d out of range (%d-%d)", seg.VRF, minVRF, maxVRF,
			)
		}
	}

	result.AddWarning("general",
		"automation API covers a limited resource set; tunnels and site bring-up remain manual")

	return result
}

// TestConnection probes the controller's organizations endpoint, which
// requires a valid token.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if a.cfg.BaseURL == "" {
		return &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "controller base URL not configured",
		}
	}

	resp, err := a.client.Do(ctx, http.MethodGet, pathOrganizations, nil, nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// Apply pushes segments and routing policies to the controller, in
// artifact order. The site template has no import API; it is surfaced as a
// skip with a note, and never fails the run.
func (a *Adapter) Apply(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
	result := backend.NewApplyResult(AdapterName, dryRun)

	if !dryRun && a.cfg.BaseURL == "" {
		err := &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "controller base URL not configured",
		}
		result.AddError("%v", err)
		return result, nil
	}

	for _, art := range out.Artifacts {
		switch art.Target {
		case targetSegments:
			a.applySegments(ctx, art, dryRun, result)
		case targetRouting:
			a.applyRouting(ctx, art, dryRun, result)
		case targetTemplate:
			applyTemplate(art, dryRun, result)
		}
	}

	return result, nil
}

func (a *Adapter) applySegments(ctx context.Context, art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	segments, ok := art.Data.([]flexSegment)
	if !ok {
		result.AddError("segments artifact has unexpected payload type %T", art.Data)
		return
	}

	for _, seg := range segments {
		if dryRun {
			result.AddChange("segment", seg.Name, backend.ActionCreate, "Would create segment")
			continue
		}
		if err := a.client.DoJSON(ctx, http.MethodPost, pathSegments, seg, nil); err != nil {
			result.AddError("segment %s: %v", seg.Name, err)
			continue
		}
		result.AddChange("segment", seg.Name, backend.ActionCreate, "Created segment")
	}
}

func (a *Adapter) applyRouting(ctx context.Context, art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	policies, ok := art.Data.([]flexRoutingPolicy)
	if !ok {
		result.AddError("routing artifact has unexpected payload type %T", art.Data)
		return
	}

	for _, policy := range policies {
		if dryRun {
			result.AddChange("routing-policy", policy.Name, backend.ActionCreate, "Would create routing policy")
			continue
		}
		if err := a.client.DoJSON(ctx, http.MethodPost, pathMLPolicies, policy, nil); err != nil {
			result.AddError("routing policy %s: %v", policy.Name, err)
			continue
		}
		result.AddChange("routing-policy", policy.Name, backend.ActionCreate, "Created routing policy")
	}
}

func applyTemplate(art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	template, ok := art.Data.(flexSiteTemplate)
	if !ok {
		result.AddError("site-template artifact has unexpected payload type %T", art.Data)
		return
	}

	detail := "Skipped site template, manual import required"
	if dryRun {
		detail = "Would skip site template, manual import required"
	}
	result.AddChange("site-template", template.Name, backend.ActionSkip, "%s", detail)
	result.AddNote("site template %s requires manual import through the management UI", template.Name)
}
