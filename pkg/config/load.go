package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path,
// applies environment variable overrides, fills in defaults, and validates
// the result.
//
// Environment variables follow the naming convention STRATA_SECTION_FIELD
// (e.g. STRATA_SERVER_PORT, STRATA_OPNSENSE_API_KEY) and take precedence
// over file values. Credentials in particular are expected to arrive
// through the environment rather than the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format STRATA_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("STRATA_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("STRATA_SERVER_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = i
		}
	}

	// Intent overrides
	if val := os.Getenv("STRATA_INTENT_PATH"); val != "" {
		cfg.Intent.Path = val
	}
	if val := os.Getenv("STRATA_INTENT_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Intent.Watch = b
		}
	}
	if val := os.Getenv("STRATA_INTENT_GIT_REPOSITORY"); val != "" {
		cfg.Intent.Git.Repository = val
	}
	if val := os.Getenv("STRATA_INTENT_GIT_BRANCH"); val != "" {
		cfg.Intent.Git.Branch = val
	}
	if val := os.Getenv("STRATA_INTENT_GIT_TOKEN"); val != "" {
		cfg.Intent.Git.Auth.Token = val
	}

	// Adapter credential overrides
	if val := os.Getenv("STRATA_OPNSENSE_BASE_URL"); val != "" {
		cfg.Adapters.OPNsense.BaseURL = val
	}
	if val := os.Getenv("STRATA_OPNSENSE_API_KEY"); val != "" {
		cfg.Adapters.OPNsense.APIKey = val
	}
	if val := os.Getenv("STRATA_OPNSENSE_API_SECRET"); val != "" {
		cfg.Adapters.OPNsense.APISecret = val
	}
	if val := os.Getenv("STRATA_OPENZITI_BASE_URL"); val != "" {
		cfg.Adapters.OpenZiti.BaseURL = val
	}
	if val := os.Getenv("STRATA_OPENZITI_USERNAME"); val != "" {
		cfg.Adapters.OpenZiti.Username = val
	}
	if val := os.Getenv("STRATA_OPENZITI_PASSWORD"); val != "" {
		cfg.Adapters.OpenZiti.Password = val
	}
	if val := os.Getenv("STRATA_FLEXIWAN_BASE_URL"); val != "" {
		cfg.Adapters.FlexiWAN.BaseURL = val
	}
	if val := os.Getenv("STRATA_FLEXIWAN_TOKEN"); val != "" {
		cfg.Adapters.FlexiWAN.Token = val
	}

	// Orchestrator overrides
	if val := os.Getenv("STRATA_ORCHESTRATOR_APPLY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Orchestrator.ApplyTimeout = d
		}
	}
	if val := os.Getenv("STRATA_ORCHESTRATOR_PARALLELISM"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.Parallelism = i
		}
	}

	// Output overrides
	if val := os.Getenv("STRATA_OUTPUT_DIR"); val != "" {
		cfg.Output.Dir = val
	}

	// History overrides
	if val := os.Getenv("STRATA_HISTORY_BACKEND"); val != "" {
		cfg.History.Backend = val
	}
	if val := os.Getenv("STRATA_HISTORY_PATH"); val != "" {
		cfg.History.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("STRATA_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("STRATA_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("STRATA_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("STRATA_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("STRATA_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
