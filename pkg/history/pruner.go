package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stratum-hq/strata/pkg/config"

	"github.com/robfig/cron/v3"
)

const pruneTimeout = time.Minute

// Pruner deletes run records older than the retention period, on a cron
// schedule in serve mode or on demand via Prune.
type Pruner struct {
	store         Store
	retentionDays int
	schedule      string

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewPruner creates a retention pruner for the given store.
func NewPruner(store Store, cfg config.HistoryConfig) *Pruner {
	return &Pruner{
		store:         store,
		retentionDays: cfg.RetentionDays,
		schedule:      cfg.PruneSchedule,
		logger:        slog.Default().With("component", "history.pruner"),
	}
}

// Prune deletes records older than the retention period. A retention of
// zero days keeps everything.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)
	pruned, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}

	if pruned == 0 {
		p.logger.Debug("no records pruned", "retention_days", p.retentionDays)
	} else {
		p.logger.Info("pruned history records",
			"deleted_count", pruned,
			"retention_days", p.retentionDays,
		)
	}
	return pruned, nil
}

// Start begins scheduled pruning. An empty schedule or zero retention
// disables the scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.schedule == "" || p.retentionDays <= 0 {
		p.logger.Info("history pruning disabled",
			"schedule", p.schedule,
			"retention_days", p.retentionDays)
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}

	p.cron = cron.New()
	_, err := p.cron.AddFunc(p.schedule, func() {
		p.runScheduled(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("history pruning scheduled",
		"schedule", p.schedule,
		"retention_days", p.retentionDays)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

func (p *Pruner) runScheduled(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	if _, err := p.Prune(pruneCtx); err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop halts scheduled pruning and waits for an in-flight run.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false

	p.logger.Info("history pruning stopped")
}

// IsRunning reports whether the scheduler is active.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
