// Package opnsense translates intent policies into OPNsense firewall and
// IPS configuration: an nftables ruleset, Suricata inspection settings, and
// VLAN interface definitions.
package opnsense

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/intent"
)

// AdapterName is the registry identifier for this adapter.
const AdapterName = "opnsense"

const (
	minVLAN = 1
	maxVLAN = 4094
)

// Management API paths. The ruleset and IPS endpoints are provided by the
// strata OPNsense plugin; the firmware status endpoint is stock.
const (
	pathRuleset     = "/api/firewall/ruleset"
	pathIPSSettings = "/api/ips/settings"
	pathVLANs       = "/api/interfaces/vlans"
	pathStatus      = "/api/core/firmware/status"
)

// Adapter drives an OPNsense appliance. Validate and Compile work entirely
// offline; Apply and TestConnection use the appliance's management API with
// API key/secret authentication.
type Adapter struct {
	cfg    config.OPNsenseConfig
	client *backend.Client
}

// New creates the OPNsense adapter. An empty base URL is allowed so the
// offline stages stay usable; Apply and TestConnection then report a
// configuration error instead of dialing.
func New(cfg config.OPNsenseConfig) *Adapter {
	headers := map[string]string{}
	if cfg.APIKey != "" || cfg.APISecret != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.APIKey + ":" + cfg.APISecret))
		headers["Authorization"] = "Basic " + creds
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
		Vendor:      "OPNsense",
		Description: "Firewall and IPS: nftables ruleset, Suricata settings, VLAN interfaces",
		Capabilities: []string{
			"firewall_ruleset",
			"ips_settings",
			"vlan_interfaces",
		},
	}
}

// Validate checks the constraints this backend enforces: VLAN tags within
// the 802.1Q range, egress policies referencing known segments, and
// inspection coverage.
func (a *Adapter) Validate(pol *intent.Policy) *backend.ValidationResult {
	result := backend.NewValidationResult()

	for _, seg := range pol.Segments {
		if seg.VLAN < minVLAN || seg.VLAN > maxVLAN {
			result.AddError(
				fmt.Sprintf("segments.%s.vlan", seg.Name),
				"VLAN %d out of range (%d-%d)", seg.VLAN, minVLAN, maxVLAN,
			)
		}
	}

	for _, name := range pol.EgressSegments() {
		if !pol.HasSegment(name) {
			result.AddError(
				fmt.Sprintf("egress.%s", name),
				"egress policy references unknown segment: %s", name,
			)
		}
	}

	for _, app := range pol.Apps {
		if app.Inspection == intent.InspectionNone {
			result.AddWarning(
				fmt.Sprintf("apps.%s.inspection", app.Name),
				"application %s is exempt from IPS inspection", app.Name,
			)
		}
	}

	inspected := false
	for _, name := range pol.EgressSegments() {
		if pol.Egress[name].Inspection != intent.InspectionNone {
			inspected = true
			break
		}
	}
	if !inspected {
		result.AddWarning("egress", "no egress traffic inspection enabled")
	}

	return result
}

// TestConnection probes the appliance's firmware status endpoint.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if a.cfg.BaseURL == "" {
		return &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "management API base URL not configured",
		}
	}

	resp, err := a.client.Do(ctx, http.MethodGet, pathStatus, nil, nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// Apply pushes the compiled ruleset, IPS settings, and VLAN interfaces to
// the appliance, in artifact order. A dry run enumerates the same changes
// without touching the management API.
func (a *Adapter) Apply(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
	result := backend.NewApplyResult(AdapterName, dryRun)

	if !dryRun && a.cfg.BaseURL == "" {
		err := &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "management API base URL not configured",
		}
		result.AddError("%v", err)
		return result, nil
	}

	for _, art := range out.Artifacts {
		switch art.Target {
		case targetRuleset:
			a.applyRuleset(ctx, art, dryRun, result)
		case targetIPS:
			a.applyIPSSettings(ctx, art, dryRun, result)
		case targetVLANs:
			a.applyVLANs(ctx, art, dryRun, result)
		}
	}

	return result, nil
}

func (a *Adapter) applyRuleset(ctx context.Context, art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	if dryRun {
		result.AddChange("firewall", "ruleset", backend.ActionUpdate, "Would update firewall ruleset")
		return
	}

	body := map[string]string{"ruleset": art.Text}
	if err := a.client.DoJSON(ctx, http.MethodPut, pathRuleset, body, nil); err != nil {
		result.AddError("firewall ruleset: %v", err)
		return
	}
	result.AddChange("firewall", "ruleset", backend.ActionUpdate, "Updated firewall ruleset")
}

func (a *Adapter) applyIPSSettings(ctx context.Context, art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	if dryRun {
		result.AddChange("ips", "settings", backend.ActionUpdate, "Would update IPS settings")
		return
	}

	if err := a.client.DoJSON(ctx, http.MethodPut, pathIPSSettings, art.Data, nil); err != nil {
		result.AddError("ips settings: %v", err)
		return
	}
	result.AddChange("ips", "settings", backend.ActionUpdate, "Updated IPS settings")
}

func (a *Adapter) applyVLANs(ctx context.Context, art backend.CompiledArtifact, dryRun bool, result *backend.ApplyResult) {
	vlans, ok := art.Data.([]vlanInterface)
	if !ok {
		result.AddError("vlans artifact has unexpected payload type %T", art.Data)
		return
	}

	for _, vlan := range vlans {
		if dryRun {
			result.AddChange("vlan", vlan.Name, backend.ActionCreate,
				"Would create VLAN interface %s", vlan.Device)
			continue
		}

		if err := a.client.DoJSON(ctx, http.MethodPost, pathVLANs, vlan, nil); err != nil {
			result.AddError("vlan %s: %v", vlan.Name, err)
			continue
		}
		result.AddChange("vlan", vlan.Name, backend.ActionCreate,
			"Created VLAN interface %s", vlan.Device)
	}
}
