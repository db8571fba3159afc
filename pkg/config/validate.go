package config

import "fmt"

// Validate checks the configuration for invalid or inconsistent values.
// It is called by LoadConfig after defaults are applied, so zero values
// for defaulted fields never reach it.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be debug, info, warn or error, got %q", cfg.Telemetry.Logging.Level)
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text, got %q", cfg.Telemetry.Logging.Format)
	}

	switch cfg.Telemetry.Tracing.Sampler {
	case "always", "ratio":
	default:
		return fmt.Errorf("telemetry.tracing.sampler must be always or ratio, got %q", cfg.Telemetry.Tracing.Sampler)
	}
	if cfg.Telemetry.Tracing.Enabled && cfg.Telemetry.Tracing.Endpoint == "" {
		return fmt.Errorf("telemetry.tracing.endpoint is required when tracing is enabled")
	}
	if r := cfg.Telemetry.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.tracing.sample_ratio must be 0-1, got %v", r)
	}

	switch cfg.History.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("history.backend must be memory or sqlite, got %q", cfg.History.Backend)
	}
	if cfg.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days cannot be negative")
	}

	if cfg.Adapters.OPNsense.Enabled && cfg.Adapters.OPNsense.BaseURL == "" {
		return fmt.Errorf("adapters.opnsense.base_url is required when the adapter is enabled")
	}
	if cfg.Adapters.OpenZiti.Enabled && cfg.Adapters.OpenZiti.BaseURL == "" {
		return fmt.Errorf("adapters.openziti.base_url is required when the adapter is enabled")
	}
	if cfg.Adapters.FlexiWAN.Enabled && cfg.Adapters.FlexiWAN.BaseURL == "" {
		return fmt.Errorf("adapters.flexiwan.base_url is required when the adapter is enabled")
	}

	if cfg.Intent.Git.Enabled {
		if cfg.Intent.Git.Repository == "" {
			return fmt.Errorf("intent.git.repository is required when the git source is enabled")
		}
		switch cfg.Intent.Git.Auth.Type {
		case "token", "ssh", "none":
		default:
			return fmt.Errorf("intent.git.auth.type must be token, ssh or none, got %q", cfg.Intent.Git.Auth.Type)
		}
	}

	if cfg.Orchestrator.Parallelism < 0 {
		return fmt.Errorf("orchestrator.parallelism cannot be negative")
	}

	return nil
}
