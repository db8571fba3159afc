package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/adapterfactory"
	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/orchestrator"
)

var validateFlags struct {
	file     string
	adapters []string
	format   string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an intent document against every adapter",
	Long: `Check an intent document against each enforcement-point adapter's
constraints without compiling or contacting any backend.

Every adapter reports its own findings: the firewall checks VLAN and port
ranges, the overlay checks identity and service references, the SD-WAN
fabric checks egress and path policies. One adapter's findings never hide
another's.

Examples:
  # Validate against all adapters
  strata validate -f intent.yaml

  # Validate against a subset
  strata validate -f intent.yaml --adapters opnsense,openziti

  # Machine-readable output
  strata validate -f intent.yaml --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "intent file path (defaults to intent.path from config)")
	validateCmd.Flags().StringSliceVar(&validateFlags.adapters, "adapters", nil, "adapters to validate against (default all)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	path := validateFlags.file
	if path == "" {
		path = cfg.Intent.Path
	}

	pol, err := intent.LoadPolicy(path)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	orch, err := orchestrator.New(cfg.Orchestrator, adapterfactory.CreateAll(cfg))
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	results := orch.Validate(pol, validateFlags.adapters)

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, results); err != nil {
			return cli.NewCommandError("validate", err)
		}
	} else {
		printValidationResults(pol, results)
	}

	if invalid := countInvalid(results); invalid > 0 {
		return cli.NewCommandError("validate",
			fmt.Errorf("policy failed validation for %d of %d adapters", invalid, len(results)))
	}
	return nil
}

func printValidationResults(pol *intent.Policy, results map[string]*backend.ValidationResult) {
	fmt.Printf("Policy %s (version %s), %d adapters\n\n", pol.Name, pol.Version, len(results))

	for _, name := range sortedNames(results) {
		res := results[name]
		switch {
		case res.Valid && len(res.Warnings) == 0:
			fmt.Printf("✓ %s: valid\n", name)
		case res.Valid:
			fmt.Printf("✓ %s: valid, %d warnings\n", name, len(res.Warnings))
		default:
			fmt.Printf("✗ %s: %d errors\n", name, len(res.Errors))
		}

		for _, e := range res.Errors {
			fmt.Printf("    error   %s\n", e.String())
		}
		for _, w := range res.Warnings {
			fmt.Printf("    warning %s\n", w.String())
		}
	}
}

func countInvalid(results map[string]*backend.ValidationResult) int {
	invalid := 0
	for _, res := range results {
		if !res.Valid {
			invalid++
		}
	}
	return invalid
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
