// Package server exposes the orchestrator pipeline over HTTP. Requests
// carry an intent document; responses are the orchestrator's result
// structures rendered as JSON without reinterpretation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"stratum-hq/strata/pkg/config"
	"stratum-hq/strata/pkg/history"
	"stratum-hq/strata/pkg/orchestrator"
	"stratum-hq/strata/pkg/telemetry/metrics"
)

// Server serves the policy pipeline API.
type Server struct {
	cfg          config.ServerConfig
	orch         *orchestrator.Orchestrator
	history      history.Store
	metricsPath  string
	metrics      http.Handler
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithHistory records every pipeline run triggered through the API in the
// given store. Recording failures are logged, never surfaced to clients.
func WithHistory(store history.Store) Option {
	return func(s *Server) { s.history = store }
}

// WithMetrics exposes the pipeline metrics registry at path. An empty path
// defaults to /metrics.
func WithMetrics(m *metrics.PipelineMetrics, path string) Option {
	return func(s *Server) {
		if path == "" {
			path = "/metrics"
		}
		s.metricsPath = path
		s.metrics = m.Handler()
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l.With("component", "server") }
}

// New creates a server over the given orchestrator.
func New(cfg config.ServerConfig, orch *orchestrator.Orchestrator, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	if cfg.Host == "" {
		cfg.Host = config.DefaultServerHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultServerPort
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}

	s := &Server{
		cfg:          cfg,
		orch:         orch,
		shutdownChan: make(chan struct{}),
		logger:       slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start starts the HTTP server and blocks until shutdown. Shutdown is
// triggered by context cancellation, SIGINT/SIGTERM, or Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/policy/validate", s.handleValidate)
	mux.HandleFunc("/api/v1/policy/compile", s.handleCompile)
	mux.HandleFunc("/api/v1/policy/apply", s.handleApply)
	mux.HandleFunc("/api/v1/adapters", s.handleAdapters)
	mux.HandleFunc("/healthz", s.handleHealthz)

	if s.metrics != nil {
		mux.Handle(s.metricsPath, s.metrics)
	}

	var handler http.Handler = mux

	// Logging needs the request ID, so RequestID wraps it. Recovery is
	// outermost so panics anywhere in the chain turn into 500s.
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
