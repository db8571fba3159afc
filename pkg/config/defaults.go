package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 8474
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Intent defaults
	DefaultIntentPath       = "./intent.yaml"
	DefaultDebounceInterval = 500 * time.Millisecond
	DefaultGitBranch        = "main"
	DefaultGitPath          = "intent.yaml"
	DefaultGitPollSchedule  = "* * * * *"
	DefaultGitTimeout       = 60 * time.Second

	// Adapter defaults
	DefaultAdapterTimeout    = 30 * time.Second
	DefaultAdapterMaxRetries = 2
	DefaultTrunkInterface    = "eth2"
	DefaultWANInterface      = "wan"

	// Orchestrator defaults
	DefaultApplyTimeout  = 60 * time.Second
	DefaultProbeSchedule = "*/5 * * * *"

	// Output defaults
	DefaultOutputDir = "./compiled"

	// History defaults
	DefaultHistoryBackend       = "memory"
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryRetentionDays = 90
	DefaultHistoryPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultLoggingOutput     = "stderr"
	DefaultMetricsNamespace  = "strata"
	DefaultMetricsPath       = "/metrics"
	DefaultTracingService    = "strata"
	DefaultTracingSampler    = "always"
	DefaultTracingRatio      = 1.0
)

// DefaultConfig returns a configuration populated entirely from defaults,
// suitable for running without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any fields left at their zero
// value. Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Intent
	if cfg.Intent.Path == "" {
		cfg.Intent.Path = DefaultIntentPath
	}
	if cfg.Intent.DebounceInterval == 0 {
		cfg.Intent.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.Intent.Git.Branch == "" {
		cfg.Intent.Git.Branch = DefaultGitBranch
	}
	if cfg.Intent.Git.Path == "" {
		cfg.Intent.Git.Path = DefaultGitPath
	}
	if cfg.Intent.Git.PollSchedule == "" {
		cfg.Intent.Git.PollSchedule = DefaultGitPollSchedule
	}
	if cfg.Intent.Git.Timeout == 0 {
		cfg.Intent.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Intent.Git.Auth.Type == "" {
		cfg.Intent.Git.Auth.Type = "none"
	}

	// Adapters
	applyOPNsenseDefaults(&cfg.Adapters.OPNsense)
	applyOpenZitiDefaults(&cfg.Adapters.OpenZiti)
	applyFlexiWANDefaults(&cfg.Adapters.FlexiWAN)

	// Orchestrator
	if cfg.Orchestrator.ApplyTimeout == 0 {
		cfg.Orchestrator.ApplyTimeout = DefaultApplyTimeout
	}
	if cfg.Orchestrator.ProbeSchedule == "" {
		cfg.Orchestrator.ProbeSchedule = DefaultProbeSchedule
	}

	// Output
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}

	// History
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLoggingOutput
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
}

func applyOPNsenseDefaults(cfg *OPNsenseConfig) {
	if cfg.TrunkInterface == "" {
		cfg.TrunkInterface = DefaultTrunkInterface
	}
	if cfg.WANInterface == "" {
		cfg.WANInterface = DefaultWANInterface
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultAdapterTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultAdapterMaxRetries
	}
}

func applyOpenZitiDefaults(cfg *OpenZitiConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultAdapterTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultAdapterMaxRetries
	}
}

func applyFlexiWANDefaults(cfg *FlexiWANConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultAdapterTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultAdapterMaxRetries
	}
}
