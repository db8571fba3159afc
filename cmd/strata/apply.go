package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/adapterfactory"
	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/history"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/orchestrator"
)

var applyFlags struct {
	file     string
	adapters []string
	dryRun   bool
	format   string
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an intent document to the enforcement points",
	Long: `Compile an intent document and push the resulting configuration to every
enabled enforcement point.

Apply is gated on a fully successful compile: if any adapter fails to
compile, nothing is pushed anywhere. Once pushing starts, each adapter
succeeds or fails on its own; a failed firewall update does not roll back
the overlay.

With --dry-run each adapter reports the changes it would make without
touching its backend.

Examples:
  # Preview changes
  strata apply -f intent.yaml --dry-run

  # Apply to every enabled backend
  strata apply -f intent.yaml

  # Apply to one backend only
  strata apply -f intent.yaml --adapters opnsense`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyFlags.file, "file", "f", "", "intent file path (defaults to intent.path from config)")
	applyCmd.Flags().StringSliceVar(&applyFlags.adapters, "adapters", nil, "adapters to apply to (default all enabled)")
	applyCmd.Flags().BoolVar(&applyFlags.dryRun, "dry-run", false, "report changes without making them")
	applyCmd.Flags().StringVar(&applyFlags.format, "format", "text", "output format: text, json")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(applyFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	path := applyFlags.file
	if path == "" {
		path = cfg.Intent.Path
	}

	pol, err := intent.LoadPolicy(path)
	if err != nil {
		return cli.NewCommandError("apply", err)
	}

	adapters := adapterfactory.CreateEnabled(cfg)
	if len(adapters) == 0 {
		return cli.NewConfigError("adapters", "no adapters enabled")
	}

	orch, err := orchestrator.New(cfg.Orchestrator, adapters)
	if err != nil {
		return cli.NewCommandError("apply", err)
	}

	ctx := cli.SetupSignalHandler()
	startedAt := time.Now()
	result := orch.Apply(ctx, pol, applyFlags.adapters, applyFlags.dryRun)
	recordApply(cfg, pol, result, startedAt)

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("apply", err)
		}
	} else {
		printApplyResult(pol, result, applyFlags.dryRun)
	}

	if !result.Success {
		return cli.NewCommandError("apply",
			fmt.Errorf("apply failed with %d errors", len(result.Errors)))
	}
	return nil
}

// recordApply saves the run to the configured history store. Failures are
// logged, never fatal: the apply already happened.
func recordApply(cfg *config.Config, pol *intent.Policy, result *orchestrator.ApplyPipelineResult, startedAt time.Time) {
	store, err := history.NewStore(cfg.History)
	if err != nil {
		slog.Warn("history store unavailable, run not recorded", "error", err)
		return
	}
	defer store.Close()

	rec := history.FromApply(pol, result, applyFlags.dryRun, startedAt)
	if err := store.Save(context.Background(), rec); err != nil {
		slog.Warn("failed to record run history", "record_id", rec.ID, "error", err)
	}
}

func printApplyResult(pol *intent.Policy, result *orchestrator.ApplyPipelineResult, dryRun bool) {
	if dryRun {
		fmt.Printf("Policy %s (version %s), dry run\n\n", pol.Name, pol.Version)
	} else {
		fmt.Printf("Policy %s (version %s)\n\n", pol.Name, pol.Version)
	}

	if len(result.Results) == 0 {
		for _, msg := range result.Errors {
			fmt.Printf("✗ %s\n", msg)
		}
		return
	}

	for _, res := range result.Results {
		if res.Success {
			fmt.Printf("✓ %s: %d changes\n", res.Adapter, len(res.Changes))
		} else {
			fmt.Printf("✗ %s: failed\n", res.Adapter)
		}
		for _, ch := range res.Changes {
			fmt.Printf("    %-6s %s/%s: %s\n", ch.Action, ch.Resource, ch.Name, ch.Detail)
		}
		for _, msg := range res.Errors {
			fmt.Printf("    error  %s\n", msg)
		}
		for _, note := range res.Notes {
			fmt.Printf("    note   %s\n", note)
		}
	}

	if dryRun {
		fmt.Println("\nDry run: no backend was modified.")
	}
}
