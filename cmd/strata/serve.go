package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"stratum-hq/strata/pkg/adapterfactory"
	"stratum-hq/strata/pkg/cli"
	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/history"
	"stratum-hq/strata/pkg/intent"
	"stratum-hq/strata/pkg/intent/git"
	"stratum-hq/strata/pkg/intent/watch"
	"stratum-hq/strata/pkg/orchestrator"
	"stratum-hq/strata/pkg/server"
	"stratum-hq/strata/pkg/telemetry/metrics"
	"stratum-hq/strata/pkg/telemetry/tracing"
)

var serveFlags struct {
	listen      string
	checkConfig bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline as a long-lived service",
	Long: `Run the HTTP API and keep the enforcement points converged with the
intent document.

The intent document comes from a local file (optionally watched for
changes) or a Git repository polled on a schedule. Whenever the document
changes, the full pipeline re-runs: validate, compile, and apply to every
enabled backend. Every run lands in the history store.

Examples:
  # Serve with a config file
  strata serve -c config.yaml

  # Override the listen address
  strata serve -c config.yaml --listen 0.0.0.0:9000

  # Validate the config without starting anything
  strata serve -c config.yaml --check-config`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", "", "override listen address (host:port)")
	serveCmd.Flags().BoolVar(&serveFlags.checkConfig, "check-config", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime(cmd)
	if err != nil {
		return err
	}

	if serveFlags.listen != "" {
		host, port, err := splitListenAddress(serveFlags.listen)
		if err != nil {
			return cli.NewConfigError("listen", err.Error())
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}

	if serveFlags.checkConfig {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Strata v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx := cli.SetupSignalHandler()

	// Telemetry
	m := metrics.NewPipelineMetrics(cfg.Telemetry.Metrics, prometheus.NewRegistry())
	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer tracer.Shutdown(context.Background())

	// Adapters and orchestrator
	adapters := adapterfactory.CreateEnabled(cfg)
	if len(adapters) == 0 {
		return cli.NewConfigError("adapters", "no adapters enabled")
	}
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	fmt.Printf("✓ Adapters enabled: %s\n", strings.Join(names, ", "))

	orch, err := orchestrator.New(cfg.Orchestrator, adapters,
		orchestrator.WithMetrics(m),
		orchestrator.WithTracer(tracer),
	)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	// Run history and retention
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return cli.NewConfigError("history", err.Error())
	}
	defer store.Close()

	pruner := history.NewPruner(store, cfg.History)
	if err := pruner.Start(ctx); err != nil {
		return cli.NewConfigError("history.prune_schedule", err.Error())
	}
	defer pruner.Stop()
	fmt.Printf("✓ History store: %s\n", cfg.History.Backend)

	// Connectivity probing
	prober := orchestrator.NewProber(orch, cfg.Orchestrator.ProbeSchedule)
	if err := prober.Start(ctx); err != nil {
		return cli.NewConfigError("orchestrator.probe_schedule", err.Error())
	}
	defer prober.Stop()

	// Intent source
	intentPath, stopSource, err := startIntentSource(ctx, cfg, orch, store, m)
	if err != nil {
		return err
	}
	defer stopSource()

	// Converge once on startup; a broken document must not keep the API
	// from coming up.
	runPipeline(ctx, orch, store, m, intentPath, "startup")

	srv, err := server.New(cfg.Server, orch, serverOptions(cfg, store, m)...)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Printf("✓ Server listening on %s\n", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Println("✓ Server stopped")
	return nil
}

func serverOptions(cfg *config.Config, store history.Store, m *metrics.PipelineMetrics) []server.Option {
	opts := []server.Option{server.WithHistory(store)}
	if cfg.Telemetry.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(m, cfg.Telemetry.Metrics.Path))
	}
	return opts
}

// startIntentSource wires the configured intent source: a polled Git
// repository or a local file, optionally watched. It returns the path the
// pipeline loads the document from and a stop function.
func startIntentSource(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, store history.Store, m *metrics.PipelineMetrics) (string, func(), error) {
	if cfg.Intent.Git.Enabled {
		repo, err := git.NewRepository(cfg.Intent.Git)
		if err != nil {
			return "", nil, cli.NewConfigError("intent.git", err.Error())
		}
		if err := repo.Clone(ctx); err != nil {
			return "", nil, cli.NewCommandError("serve", fmt.Errorf("failed to clone intent repository: %w", err))
		}

		intentPath := repo.IntentPath()
		poller := git.NewPoller(repo, cfg.Intent.Git, func(ctx context.Context, result *git.PullResult) {
			runPipeline(ctx, orch, store, m, intentPath, "git")
		})
		if err := poller.Start(ctx); err != nil {
			return "", nil, cli.NewConfigError("intent.git.poll_schedule", err.Error())
		}

		fmt.Printf("✓ Intent source: git %s (branch %s)\n", cfg.Intent.Git.Repository, cfg.Intent.Git.Branch)
		return intentPath, poller.Stop, nil
	}

	intentPath := cfg.Intent.Path
	if !cfg.Intent.Watch {
		fmt.Printf("✓ Intent source: file %s\n", intentPath)
		return intentPath, func() {}, nil
	}

	watcher, err := watch.NewFileWatcher(intentPath, cfg.Intent.DebounceInterval)
	if err != nil {
		return "", nil, cli.NewConfigError("intent.path", err.Error())
	}
	go func() {
		if err := watcher.Watch(ctx, func() error {
			runPipeline(ctx, orch, store, m, intentPath, "file")
			return nil
		}); err != nil {
			slog.Error("intent watcher stopped", "error", err)
		}
	}()

	fmt.Printf("✓ Intent source: file %s (watching)\n", intentPath)
	return intentPath, func() { _ = watcher.Stop() }, nil
}

// runPipeline loads the intent document and applies it to every enabled
// backend, recording the run. Load failures keep the last applied policy
// in force.
func runPipeline(ctx context.Context, orch *orchestrator.Orchestrator, store history.Store, m *metrics.PipelineMetrics, intentPath, source string) {
	pol, err := intent.LoadPolicy(intentPath)
	if err != nil {
		slog.Error("intent load failed, keeping last applied policy",
			"path", intentPath, "source", source, "error", err)
		return
	}

	m.RecordIntentReload(source)

	startedAt := time.Now()
	result := orch.Apply(ctx, pol, nil, false)

	rec := history.FromApply(pol, result, false, startedAt)
	if err := store.Save(ctx, rec); err != nil {
		slog.Error("failed to record run history", "record_id", rec.ID, "error", err)
	}

	if result.Success {
		slog.Info("pipeline run succeeded",
			"policy", pol.Name,
			"version", pol.Version,
			"source", source,
			"adapters", len(result.Results),
		)
	} else {
		slog.Error("pipeline run failed",
			"policy", pol.Name,
			"version", pol.Version,
			"source", source,
			"errors", len(result.Errors),
		)
	}
}

func splitListenAddress(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	return host, port, nil
}
