package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/adapterfactory"
	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/orchestrator"
)

var adaptersFlags struct {
	check  bool
	format string
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the enforcement-point adapters",
	Long: `List every adapter with its vendor, description, and capabilities.

With --check, each enabled adapter's management plane is contacted to
verify connectivity and credentials.

Examples:
  # List adapters
  strata adapters

  # Verify connectivity to the enabled backends
  strata adapters --check`,
	RunE: runAdapters,
}

func init() {
	rootCmd.AddCommand(adaptersCmd)

	adaptersCmd.Flags().BoolVar(&adaptersFlags.check, "check", false, "test connectivity to each enabled backend")
	adaptersCmd.Flags().StringVar(&adaptersFlags.format, "format", "text", "output format: text, json")
}

func runAdapters(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(adaptersFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	if adaptersFlags.check {
		return checkAdapters(cfg, format)
	}

	orch, err := orchestrator.New(cfg.Orchestrator, adapterfactory.CreateAll(cfg))
	if err != nil {
		return cli.NewCommandError("adapters", err)
	}

	infos := orch.ListAdapters()
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, infos)
	}

	for _, info := range infos {
		fmt.Printf("%s (%s)\n", info.Name, info.Vendor)
		fmt.Printf("    %s\n", info.Description)
		if len(info.Capabilities) > 0 {
			fmt.Printf("    capabilities: %s\n", strings.Join(info.Capabilities, ", "))
		}
	}
	return nil
}

func checkAdapters(cfg *config.Config, format cli.OutputFormat) error {
	adapters := adapterfactory.CreateEnabled(cfg)
	if len(adapters) == 0 {
		return cli.NewConfigError("adapters", "no adapters enabled")
	}

	orch, err := orchestrator.New(cfg.Orchestrator, adapters)
	if err != nil {
		return cli.NewCommandError("adapters", err)
	}

	ctx := cli.SetupSignalHandler()
	results := orch.TestConnections(ctx)

	if format == cli.FormatJSON {
		report := make(map[string]string, len(results))
		for name, err := range results {
			if err == nil {
				report[name] = "ok"
			} else {
				report[name] = err.Error()
			}
		}
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
			return cli.NewCommandError("adapters", err)
		}
	}

	failed := 0
	for _, name := range sortedNames(results) {
		err := results[name]
		if format == cli.FormatText {
			if err == nil {
				fmt.Printf("✓ %s: reachable\n", name)
			} else {
				fmt.Printf("✗ %s: %v\n", name, err)
			}
		}
		if err != nil {
			failed++
		}
	}

	if failed > 0 {
		return cli.NewCommandError("adapters",
			fmt.Errorf("%d of %d backends unreachable", failed, len(results)))
	}
	return nil
}
