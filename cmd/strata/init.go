package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/intent"
)

const starterHeader = `# Strata intent document.
#
# Describe what the network should allow; strata compiles it into each
# enforcement point's native configuration. Edit the segments, apps, and
# access rules below, then:
#
#   strata validate -f intent.yaml
#   strata compile  -f intent.yaml
#   strata apply    -f intent.yaml --dry-run
#
`

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter intent document",
	Long: `Write a minimal intent document to edit into your own: two segments,
one internal application, one user group, and one allow rule.

The default path is intent.yaml in the current directory. An existing
file is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "intent.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return cli.NewCommandError("init", fmt.Errorf("%s already exists, refusing to overwrite", path))
	}

	data, err := yaml.Marshal(intent.StarterPolicy())
	if err != nil {
		return cli.NewCommandError("init", err)
	}

	if err := os.WriteFile(path, append([]byte(starterHeader), data...), 0o644); err != nil {
		return cli.NewCommandError("init", err)
	}

	fmt.Printf("✓ Wrote starter intent to %s\n", path)
	fmt.Printf("\nNext: edit it, then run 'strata validate -f %s'\n", path)
	return nil
}
