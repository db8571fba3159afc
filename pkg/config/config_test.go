package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Telemetry.Logging.Level)
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("History.Backend = %q, want memory", cfg.History.Backend)
	}
	if cfg.Adapters.OPNsense.TrunkInterface != DefaultTrunkInterface {
		t.Errorf("OPNsense.TrunkInterface = %q, want %q", cfg.Adapters.OPNsense.TrunkInterface, DefaultTrunkInterface)
	}
	if cfg.Orchestrator.ApplyTimeout != DefaultApplyTimeout {
		t.Errorf("Orchestrator.ApplyTimeout = %v, want %v", cfg.Orchestrator.ApplyTimeout, DefaultApplyTimeout)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config must validate, got: %v", err)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9000
	cfg.Telemetry.Logging.Level = "debug"
	cfg.Adapters.OPNsense.Timeout = 5 * time.Second

	ApplyDefaults(cfg)

	if cfg.Server.Port != 9000 {
		t.Errorf("explicit Server.Port overwritten: %d", cfg.Server.Port)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("explicit Logging.Level overwritten: %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Adapters.OPNsense.Timeout != 5*time.Second {
		t.Errorf("explicit OPNsense.Timeout overwritten: %v", cfg.Adapters.OPNsense.Timeout)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad history backend",
			mutate:  func(c *Config) { c.History.Backend = "postgres" },
			wantErr: "history.backend",
		},
		{
			name: "enabled adapter without base url",
			mutate: func(c *Config) {
				c.Adapters.OpenZiti.Enabled = true
				c.Adapters.OpenZiti.BaseURL = ""
			},
			wantErr: "adapters.openziti.base_url",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = ""
			},
			wantErr: "tracing.endpoint",
		},
		{
			name: "git enabled without repository",
			mutate: func(c *Config) {
				c.Intent.Git.Enabled = true
				c.Intent.Git.Repository = ""
			},
			wantErr: "intent.git.repository",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	yaml := `
server:
  port: 9999
adapters:
  opnsense:
    enabled: true
    base_url: https://fw.example.com
    api_key: key
    api_secret: secret
telemetry:
  logging:
    level: debug
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if !cfg.Adapters.OPNsense.Enabled {
		t.Error("OPNsense.Enabled = false, want true")
	}
	// Defaults fill around explicit values.
	if cfg.Server.Host != DefaultServerHost {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, DefaultServerHost)
	}
	if cfg.Adapters.OPNsense.Timeout != DefaultAdapterTimeout {
		t.Errorf("OPNsense.Timeout = %v, want default %v", cfg.Adapters.OPNsense.Timeout, DefaultAdapterTimeout)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	yaml := `
adapters:
  flexiwan:
    enabled: true
    base_url: https://manage.example.com
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("STRATA_FLEXIWAN_TOKEN", "env-token")
	t.Setenv("STRATA_SERVER_PORT", "7777")
	t.Setenv("STRATA_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Adapters.FlexiWAN.Token != "env-token" {
		t.Errorf("FlexiWAN.Token = %q, want env override", cfg.Adapters.FlexiWAN.Token)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want error")
	}
}

func TestLoadConfigInvalidAfterOverride(t *testing.T) {
	yaml := `
server:
  port: 8080
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("STRATA_HISTORY_BACKEND", "postgres")

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "history.backend") {
		t.Errorf("LoadConfig() error = %v, want history.backend validation failure", err)
	}
}
