package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/adapterfactory"
	"stratum-hq/strata/pkg/artifacts"
	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/orchestrator"
)

var compileFlags struct {
	file      string
	outputDir string
	adapters  []string
	format    string
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile an intent document into per-backend artifacts",
	Long: `Translate an intent document into each enforcement point's native
configuration and write the artifacts to disk, one directory per adapter.

Compilation is offline and deterministic: the same document produces the
same artifacts. An adapter that fails validation or compilation does not
stop the others; their artifacts are still written and the failure is
reported per adapter.

Examples:
  # Compile into the default output directory
  strata compile -f intent.yaml

  # Compile into a specific directory
  strata compile -f intent.yaml -o /tmp/configs

  # Compile a single backend
  strata compile -f intent.yaml --adapters flexiwan`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFlags.file, "file", "f", "", "intent file path (defaults to intent.path from config)")
	compileCmd.Flags().StringVarP(&compileFlags.outputDir, "output", "o", "", "artifact output directory (defaults to output.dir from config)")
	compileCmd.Flags().StringSliceVar(&compileFlags.adapters, "adapters", nil, "adapters to compile for (default all)")
	compileCmd.Flags().StringVar(&compileFlags.format, "format", "text", "output format: text, json")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(compileFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	path := compileFlags.file
	if path == "" {
		path = cfg.Intent.Path
	}
	outputDir := compileFlags.outputDir
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}

	pol, err := intent.LoadPolicy(path)
	if err != nil {
		return cli.NewCommandError("compile", err)
	}

	orch, err := orchestrator.New(cfg.Orchestrator, adapterfactory.CreateAll(cfg))
	if err != nil {
		return cli.NewCommandError("compile", err)
	}

	result := orch.Compile(pol, compileFlags.adapters)

	// Surviving outputs are written even when a sibling adapter failed.
	written, err := artifacts.NewWriter(outputDir).WriteAll(result.Outputs)
	if err != nil {
		return cli.NewCommandError("compile", err)
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("compile", err)
		}
	} else {
		printCompileResult(pol, result, written, outputDir)
	}

	if !result.Success {
		return cli.NewCommandError("compile",
			fmt.Errorf("compilation failed with %d errors", len(result.Errors)))
	}
	return nil
}

func printCompileResult(pol *intent.Policy, result *orchestrator.CompileResult, written []string, dir string) {
	fmt.Printf("Policy %s (version %s), %d adapters\n\n", pol.Name, pol.Version, len(result.States))

	byAdapter := make(map[string]int, len(result.Outputs))
	for _, out := range result.Outputs {
		byAdapter[out.Adapter] = len(out.Artifacts)
	}

	for _, name := range sortedNames(result.States) {
		switch result.States[name] {
		case orchestrator.StateCompiled:
			fmt.Printf("✓ %s: %d artifacts\n", name, byAdapter[name])
		case orchestrator.StateValidationFailed:
			fmt.Printf("✗ %s: validation failed\n", name)
		default:
			fmt.Printf("✗ %s: compile failed\n", name)
		}
	}

	for _, msg := range result.Errors {
		fmt.Printf("    error %s\n", msg)
	}

	if len(written) > 0 {
		fmt.Printf("\nWrote %d files under %s\n", len(written), dir)
	}
}
