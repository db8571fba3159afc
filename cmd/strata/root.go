package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata - intent-driven network configuration compiler",
	Long: `Strata translates a single network and security intent document into the
native configuration of heterogeneous enforcement points.

One intent file describes users, applications, segments, egress policies,
and access rules; strata compiles it for:
  - OPNsense firewalls (VLANs, aliases, rules, IPS policy)
  - OpenZiti zero-trust overlays (services, identities, service policies)
  - flexiWAN SD-WAN fabrics (tunnels, path selection, breakout rules)

For more information, visit: https://github.com/stratum-hq/strata`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and maps errors to exit codes: 0 success,
// 1 pipeline failure, 2 usage or config error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.NewConfigError("flags", err.Error())
	})
}

// loadConfig loads the configured file. When the default path is absent and
// the flag was not given explicitly, built-in defaults are used so the
// offline commands work without any configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd != nil && cmd.Flags().Changed("config")

	if _, err := os.Stat(cfgFile); err != nil {
		if os.IsNotExist(err) && !explicit {
			return config.DefaultConfig(), nil
		}
		return nil, cli.NewConfigError("", fmt.Sprintf("config file %s: %v", cfgFile, err))
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// setupRuntime loads configuration and installs the configured logger.
// Every command that touches the pipeline starts here.
func setupRuntime(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	return cfg, nil
}
