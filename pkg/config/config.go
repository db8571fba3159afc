package config

import "time"

// Config is the root configuration structure for Strata. It contains all
// configuration sections for the HTTP server, the enforcement-point
// adapters, the orchestrator, intent sourcing, artifact output, run
// history, and telemetry.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address, timeouts, and shutdown behavior.
	Server ServerConfig `yaml:"server"`

	// Intent configures where the intent document comes from: a local
	// file (optionally watched) or a Git repository polled on a schedule.
	Intent IntentConfig `yaml:"intent"`

	// Adapters contains per-backend connection and behavior settings.
	Adapters AdaptersConfig `yaml:"adapters"`

	// Orchestrator bounds pipeline execution: per-adapter apply timeout
	// and fan-out parallelism.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Output configures where compiled artifacts are written.
	Output OutputConfig `yaml:"output"`

	// History configures run-history recording and retention.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging, metrics, and tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Host is the listen address. Defaults to 127.0.0.1.
	Host string `yaml:"host"`

	// Port is the listen port. Defaults to 8474.
	Port int `yaml:"port"`

	// ReadTimeout bounds reading one request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown draining.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// IntentConfig configures the intent document source.
type IntentConfig struct {
	// Path is the local intent file used by serve mode and as the CLI
	// default.
	Path string `yaml:"path"`

	// Watch enables re-running the pipeline when the local intent file
	// changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events into one reload.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Git configures pulling the intent document from a Git repository
	// instead of the local file.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures the Git intent source.
type GitConfig struct {
	// Enabled turns the Git source on.
	Enabled bool `yaml:"enabled"`

	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch is the branch to track. Defaults to main.
	Branch string `yaml:"branch"`

	// Path is the intent file path inside the repository.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned. Defaults to a
	// directory under the OS temp dir.
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes any existing clone before cloning fresh.
	CleanOnStart bool `yaml:"clean_on_start"`

	// Depth is the shallow-clone depth; 0 clones full history.
	Depth int `yaml:"depth"`

	// PollSchedule is the cron expression for pulling. Defaults to
	// every minute.
	PollSchedule string `yaml:"poll_schedule"`

	// Timeout bounds each clone/pull operation.
	Timeout time.Duration `yaml:"timeout"`

	// Auth selects and configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git repository authentication.
type GitAuthConfig struct {
	// Type is "token", "ssh", or "none".
	Type string `yaml:"type"`

	// Token is the personal access token for token auth.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key path for ssh auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase is the optional key passphrase.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// AdaptersConfig groups the per-backend settings.
type AdaptersConfig struct {
	OPNsense OPNsenseConfig `yaml:"opnsense"`
	OpenZiti OpenZitiConfig `yaml:"openziti"`
	FlexiWAN FlexiWANConfig `yaml:"flexiwan"`
}

// OPNsenseConfig configures the firewall/IPS adapter.
type OPNsenseConfig struct {
	// Enabled registers the adapter with the orchestrator.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the management API base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey and APISecret authenticate against the management API.
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	// TrunkInterface is the parent interface VLAN devices hang off.
	// Defaults to eth2.
	TrunkInterface string `yaml:"trunk_interface"`

	// WANInterface is the interface the IPS engine inspects. Defaults
	// to wan.
	WANInterface string `yaml:"wan_interface"`

	// Timeout bounds each management API request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient API failures.
	MaxRetries int `yaml:"max_retries"`

	// VerifyTLS controls certificate verification. Appliances commonly
	// run self-signed certificates.
	VerifyTLS bool `yaml:"verify_tls"`
}

// OpenZitiConfig configures the zero-trust overlay adapter.
type OpenZitiConfig struct {
	// Enabled registers the adapter with the orchestrator.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the controller management API base URL.
	BaseURL string `yaml:"base_url"`

	// Username and Password authenticate the management session.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds each management API request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient API failures.
	MaxRetries int `yaml:"max_retries"`

	// VerifyTLS controls certificate verification.
	VerifyTLS bool `yaml:"verify_tls"`
}

// FlexiWANConfig configures the SD-WAN controller adapter.
type FlexiWANConfig struct {
	// Enabled registers the adapter with the orchestrator.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the controller API base URL.
	BaseURL string `yaml:"base_url"`

	// Token is the API access token.
	Token string `yaml:"token"`

	// Timeout bounds each controller API request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient API failures.
	MaxRetries int `yaml:"max_retries"`

	// VerifyTLS controls certificate verification.
	VerifyTLS bool `yaml:"verify_tls"`
}

// OrchestratorConfig bounds pipeline execution.
type OrchestratorConfig struct {
	// ApplyTimeout bounds each adapter's apply call. A timeout is
	// reported as that adapter's failure, it never stalls siblings.
	ApplyTimeout time.Duration `yaml:"apply_timeout"`

	// Parallelism caps concurrent adapter execution per stage. Zero
	// means one goroutine per adapter.
	Parallelism int `yaml:"parallelism"`

	// ProbeSchedule is the cron expression for the connectivity sweep
	// in serve mode. Empty disables probing.
	ProbeSchedule string `yaml:"probe_schedule"`
}

// OutputConfig configures artifact persistence.
type OutputConfig struct {
	// Dir is the directory compiled artifacts are written under, one
	// subdirectory per adapter.
	Dir string `yaml:"dir"`
}

// HistoryConfig configures run-history recording.
type HistoryConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the sqlite database file path.
	Path string `yaml:"path"`

	// RetentionDays prunes runs older than this many days. Zero keeps
	// everything.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning in
	// serve mode.
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`

	// AddSource includes source locations in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection and the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes all metric names. Defaults to strata.
	Namespace string `yaml:"namespace"`

	// Path is the scrape endpoint path. Defaults to /metrics.
	Path string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns span export on. Disabled uses a noop tracer.
	Enabled bool `yaml:"enabled"`

	// ServiceName is the resource service.name. Defaults to strata.
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables transport security for the exporter.
	Insecure bool `yaml:"insecure"`

	// Sampler is "always" or "ratio".
	Sampler string `yaml:"sampler"`

	// SampleRatio is the sampling probability for the ratio sampler.
	SampleRatio float64 `yaml:"sample_ratio"`
}
