/*
Package cli provides command-line utilities for the strata command.

Output Formatting:

Command results render as text by default; --format json switches to
indented JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Typed Errors:

Commands return ConfigError for configuration and usage problems and
CommandError for pipeline failures. ExitCode maps them to process exit
codes: 0 success, 1 pipeline failure, 2 usage or config error.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
