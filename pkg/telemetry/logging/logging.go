package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"stratum-hq/strata/pkg/config"
)

// New builds a structured logger from the telemetry logging configuration.
// The returned logger writes JSON or logfmt-style text records to stdout,
// stderr, or a file path, depending on cfg.Output.
//
// Callers typically install it as the process default:
//
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	handler, err := newHandler(cfg.Format, writer, opts)
	if err != nil {
		return nil, err
	}

	return slog.New(handler), nil
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", level)
	}
}

// newHandler builds the slog handler for the configured format.
func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch format {
	case "json", "JSON", "":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "TEXT", "console":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s (valid: json, text)", format)
	}
}

// openOutput resolves the output destination. Anything other than the
// stdout/stderr keywords is treated as a file path and opened in append mode.
func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return f, nil
	}
}
