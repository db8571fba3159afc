// Package openziti translates intent policies into OpenZiti controller
// resources: services with intercept/host config pairs, Dial and Bind
// service policies, and identity role mappings.
package openziti

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/intent"
)

// AdapterName is the registry identifier for this adapter.
const AdapterName = "openziti"

// Controller management API paths.
const (
	pathAuthenticate = "/edge/management/v1/authenticate?method=password"
	pathVersion      = "/edge/management/v1/version"
	pathConfigs      = "/edge/management/v1/configs"
	pathServices     = "/edge/management/v1/services"
	pathPolicies     = "/edge/management/v1/service-policies"
	pathIdentities   = "/edge/management/v1/identities"
)

// headerSession carries the controller session token on management calls.
const headerSession = "zt-session"

// Adapter drives an OpenZiti controller. Validate and Compile work
// entirely offline; Apply and TestConnection authenticate a management
// session with the configured username and password.
type Adapter struct {
	cfg    config.OpenZitiConfig
	client *backend.Client
}

// New creates the OpenZiti adapter. An empty base URL is allowed so the
// offline stages stay usable; Apply and TestConnection then report a
// configuration error instead of dialing.
func New(cfg config.OpenZitiConfig) *Adapter {
	return &Adapter{
		cfg: cfg,
		client: backend.NewClient(backend.ClientConfig{
			Adapter:    AdapterName,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			VerifyTLS:  cfg.VerifyTLS,
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
		Vendor:      "OpenZiti",
		Description: "Zero-trust overlay: services, service policies, identity roles",
		Capabilities: []string{
			"services",
			"service_policies",
			"identity_roles",
		},
	}
}

// Validate checks the constraints this backend enforces: every application
// needs an intercept address, and access rules must reference applications
// and users that exist in the policy.
func (a *Adapter) Validate(pol *intent.Policy) *backend.ValidationResult {
	result := backend.NewValidationResult()

	for _, app := range pol.Apps {
		if app.Address == "" {
			result.AddError(
				fmt.Sprintf("apps.%s.address", app.Name),
				"application must have an address",
			)
			continue
		}
		if !strings.HasSuffix(app.Address, ".ziti") && strings.Contains(app.Address, ".") {
			result.AddWarning(
				fmt.Sprintf("apps.%s.address", app.Name),
				"consider a .ziti intercept domain for %s", app.Name,
			)
		}
		if app.HostAddress == "" {
			result.AddWarning(
				fmt.Sprintf("apps.%s.host_address", app.Name),
				"no host_address set; the terminator will use placeholder %s", hostAddress(pol, app),
			)
		}
	}

	for i, rule := range pol.AccessRules {
		for _, appName := range rule.Applications {
			if _, ok := pol.FindApp(appName); !ok {
				result.AddError(
					fmt.Sprintf("access_rules[%d].applications", i),
					"unknown application: %s", appName,
				)
			}
		}
		for _, userName := range rule.Users {
			if _, ok := pol.FindUser(userName); !ok {
				result.AddError(
					fmt.Sprintf("access_rules[%d].users", i),
					"unknown user or group: %s", userName,
				)
			}
		}
	}

	return result
}

// TestConnection authenticates a management session when credentials are
// configured, otherwise probes the controller's version endpoint.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if a.cfg.BaseURL == "" {
		return &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "controller base URL not configured",
		}
	}

	if a.cfg.Username != "" {
		_, err := a.authenticate(ctx)
		return err
	}

	resp, err := a.client.Do(ctx, http.MethodGet, pathVersion, nil, nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// authenticate opens a management session and returns its token.
func (a *Adapter) authenticate(ctx context.Context) (string, error) {
	creds := map[string]string{
		"username": a.cfg.Username,
		"password": a.cfg.Password,
	}
	var session struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := a.client.DoJSON(ctx, http.MethodPost, pathAuthenticate, creds, &session); err != nil {
		return "", err
	}
	if session.Data.Token == "" {
		return "", &backend.ParseError{
			Adapter: AdapterName,
			Cause:   fmt.Errorf("authentication response carried no session token"),
		}
	}
	return session.Data.Token, nil
}

// doSessionJSON performs one JSON management call under a session token.
func (a *Adapter) doSessionJSON(ctx context.Context, method, path, token string, reqBody, respBody any) error {
	var payload []byte
	var err error
	if reqBody != nil {
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := a.client.Do(ctx, method, path, payload, map[string]string{headerSession: token})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &backend.ParseError{Adapter: AdapterName, Cause: err}
	}
	if respBody != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return &backend.ParseError{Adapter: AdapterName, RawResponse: string(raw), Cause: err}
		}
	}
	return nil
}

// createdEnvelope is the controller's create-response wrapper.
type createdEnvelope struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// listEnvelope is the controller's list-response wrapper.
type listEnvelope struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Apply pushes services, service policies, and identity role attributes to
// the controller, in artifact order. A dry run enumerates the same changes
// without opening a session.
func (a *Adapter) Apply(ctx context.Context, out *backend.CompiledOutput, dryRun bool) (*backend.ApplyResult, error) {
	result := backend.NewApplyResult(AdapterName, dryRun)

	services, policies, identities, err := artifactPayloads(out)
	if err != nil {
		result.AddError("%v", err)
		return result, nil
	}

	if dryRun {
		for _, svc := range services {
			result.AddChange("service", svc.Name, backend.ActionCreate,
				"Would create service with %d configs", len(svc.Configs))
		}
		for _, pol := range policies {
			result.AddChange("service-policy", pol.Name, backend.ActionCreate,
				"Would create %s policy", pol.Type)
		}
		for _, ident := range identities {
			result.AddChange("identity", ident.Name, backend.ActionUpdate,
				"Would update identity role attributes")
		}
		return result, nil
	}

	if a.cfg.BaseURL == "" {
		err := &backend.ConfigError{
			Adapter: AdapterName,
			Field:   "base_url",
			Message: "controller base URL not configured",
		}
		result.AddError("%v", err)
		return result, nil
	}

	token, err := a.authenticate(ctx)
	if err != nil {
		result.AddError("authentication: %v", err)
		return result, nil
	}

	for _, svc := range services {
		a.createService(ctx, token, svc, result)
	}
	for _, pol := range policies {
		if err := a.doSessionJSON(ctx, http.MethodPost, pathPolicies, token, pol, nil); err != nil {
			result.AddError("service policy %s: %v", pol.Name, err)
			continue
		}
		result.AddChange("service-policy", pol.Name, backend.ActionCreate,
			"Created %s policy", pol.Type)
	}
	for _, ident := range identities {
		a.updateIdentity(ctx, token, ident, result)
	}

	return result, nil
}

// createService creates the service's config pair first, then the service
// referencing the created config IDs.
func (a *Adapter) createService(ctx context.Context, token string, svc zitiService, result *backend.ApplyResult) {
	configIDs := make([]string, 0, len(svc.Configs))
	for _, cfg := range svc.Configs {
		var created createdEnvelope
		if err := a.doSessionJSON(ctx, http.MethodPost, pathConfigs, token, cfg, &created); err != nil {
			result.AddError("config %s: %v", cfg.Name, err)
			return
		}
		configIDs = append(configIDs, created.Data.ID)
	}

	body := map[string]any{
		"name":               svc.Name,
		"roleAttributes":     svc.RoleAttributes,
		"terminatorStrategy": svc.TerminatorStrategy,
		"configs":            configIDs,
		"encryptionRequired": true,
	}
	if err := a.doSessionJSON(ctx, http.MethodPost, pathServices, token, body, nil); err != nil {
		result.AddError("service %s: %v", svc.Name, err)
		return
	}
	result.AddChange("service", svc.Name, backend.ActionCreate,
		"Created service with %d configs", len(svc.Configs))
}

// updateIdentity patches role attributes onto an enrolled identity.
// Enrollment itself is a manual step, so a missing identity is skipped
// with a note rather than failing the apply.
func (a *Adapter) updateIdentity(ctx context.Context, token string, ident zitiIdentity, result *backend.ApplyResult) {
	filter := url.QueryEscape(fmt.Sprintf(`name="%s"`, ident.Name))
	var list listEnvelope
	if err := a.doSessionJSON(ctx, http.MethodGet, pathIdentities+"?filter="+filter, token, nil, &list); err != nil {
		result.AddError("identity %s: %v", ident.Name, err)
		return
	}

	if len(list.Data) == 0 {
		result.AddChange("identity", ident.Name, backend.ActionSkip,
			"Identity not enrolled, role attributes not applied")
		result.AddNote("identity %s is not enrolled; enroll it and re-apply to attach role attributes", ident.Name)
		return
	}

	patch := map[string]any{"roleAttributes": ident.RoleAttributes}
	if err := a.doSessionJSON(ctx, http.MethodPatch, pathIdentities+"/"+list.Data[0].ID, token, patch, nil); err != nil {
		result.AddError("identity %s: %v", ident.Name, err)
		return
	}
	result.AddChange("identity", ident.Name, backend.ActionUpdate,
		"Updated identity role attributes")
}

// artifactPayloads unpacks the three typed artifact payloads.
func artifactPayloads(out *backend.CompiledOutput) ([]zitiService, []zitiServicePolicy, []zitiIdentity, error) {
	var services []zitiService
	var policies []zitiServicePolicy
	var identities []zitiIdentity

	for _, art := range out.Artifacts {
		switch art.Target {
		case targetServices:
			payload, ok := art.Data.([]zitiService)
			if !ok {
				return nil, nil, nil, fmt.Errorf("services artifact has unexpected payload type %T", art.Data)
			}
			services = payload
		case targetPolicies:
			payload, ok := art.Data.([]zitiServicePolicy)
			if !ok {
				return nil, nil, nil, fmt.Errorf("service-policies artifact has unexpected payload type %T", art.Data)
			}
			policies = payload
		case targetIdents:
			payload, ok := art.Data.([]zitiIdentity)
			if !ok {
				return nil, nil, nil, fmt.Errorf("identities artifact has unexpected payload type %T", art.Data)
			}
			identities = payload
		}
	}

	return services, policies, identities, nil
}
