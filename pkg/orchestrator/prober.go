package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const probeTimeout = 30 * time.Second

// Prober periodically tests every adapter's management-plane connection on
// a cron schedule, keeping the adapter_up gauge and logs current. An empty
// schedule disables it.
type Prober struct {
	orch     *Orchestrator
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewProber creates a prober for the orchestrator's registered adapters.
func NewProber(orch *Orchestrator, schedule string) *Prober {
	return &Prober{
		orch:     orch,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "prober"),
	}
}

// Start begins scheduled probing and runs one sweep immediately so the
// gauge is populated before the first cron tick. The prober stops when ctx
// is canceled.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Info("probe schedule not configured, skipping prober")
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.schedule, err)
	}

	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule probing: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("connection prober started", "schedule", p.schedule)

	go p.Sweep(ctx)
	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Sweep probes every adapter once and logs the per-adapter outcome.
func (p *Prober) Sweep(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	results := p.orch.TestConnections(probeCtx)
	for name, err := range results {
		if err != nil {
			p.logger.Warn("adapter unreachable", "adapter", name, "error", err)
			continue
		}
		p.logger.Debug("adapter reachable", "adapter", name)
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		ctx := p.cron.Stop()
		<-ctx.Done()
		p.running = false
		p.logger.Info("connection prober stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
