package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/history"
)

var historyFlags struct {
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded pipeline runs",
	Long: `List pipeline runs recorded in the configured history store, newest
first.

Runs are recorded by apply invocations, the API server, and serve mode.
The memory backend only holds runs from the current process; configure
the sqlite backend to keep history across invocations.

Examples:
  # Last 20 runs
  strata history

  # Last 5 runs as JSON
  strata history --limit 5 --format json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return cli.NewConfigError("history", err.Error())
	}
	defer store.Close()

	if cfg.History.Backend == "" || cfg.History.Backend == "memory" {
		fmt.Fprintln(os.Stderr, "note: history backend is memory; no runs survive between invocations")
	}

	records, err := store.List(cmd.Context(), historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, rec := range records {
		stage := rec.Stage
		if rec.DryRun {
			stage += " (dry-run)"
		}
		status := "ok"
		if !rec.Success {
			status = "FAILED"
		}

		fmt.Printf("%s  %-16s %-6s %s@%s  %d adapters  %s  %s\n",
			rec.StartedAt.Local().Format(time.RFC3339),
			stage,
			status,
			rec.PolicyName,
			rec.PolicyVersion,
			len(rec.Adapters),
			rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond),
			shortID(rec.ID),
		)
		for _, msg := range rec.Errors {
			fmt.Printf("    error %s\n", msg)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
