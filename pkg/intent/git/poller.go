package git

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"stratum-hq/strata/pkg/config"
)

// ReloadFunc is invoked after a poll that moved HEAD and touched the
// configured intent path.
type ReloadFunc func(ctx context.Context, result *PullResult)

// Poller pulls the intent repository on a cron schedule and triggers a
// reload when the intent document itself changed. Commits touching only
// other files advance HEAD without a reload.
type Poller struct {
	repo     *Repository
	schedule string
	target   string
	reload   ReloadFunc

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewPoller creates a poller for the given repository.
func NewPoller(repo *Repository, cfg config.GitConfig, reload ReloadFunc) *Poller {
	return &Poller{
		repo:     repo,
		schedule: cfg.PollSchedule,
		target:   cfg.Path,
		reload:   reload,
		logger:   slog.Default().With("component", "intent.git"),
	}
}

// Start begins scheduled polling. The schedule must be a standard cron
// expression.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.schedule == "" {
		p.logger.Info("git polling disabled, no schedule configured")
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", p.schedule, err)
	}

	p.cron = cron.New()
	_, err := p.cron.AddFunc(p.schedule, func() {
		p.poll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule polling: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("git polling started",
		"schedule", p.schedule,
		"path", p.target)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

func (p *Poller) poll(ctx context.Context) {
	result, err := p.repo.Pull(ctx)
	if err != nil {
		p.logger.Error("intent pull failed", "error", err)
		return
	}

	if !result.HadChanges {
		p.logger.Debug("intent repository up to date")
		return
	}

	if !p.intentChanged(result.ChangedFiles) {
		p.logger.Info("commit does not touch intent path, skipping reload",
			"from_sha", shortSHA(result.FromSHA),
			"to_sha", shortSHA(result.ToSHA),
			"changed_files", len(result.ChangedFiles))
		return
	}

	p.logger.Info("intent changed, reloading",
		"from_sha", shortSHA(result.FromSHA),
		"to_sha", shortSHA(result.ToSHA),
		"changed_files", result.ChangedFiles)

	p.reload(ctx, result)
}

// intentChanged reports whether any changed path is the configured
// intent file or lives under it when the path names a directory.
func (p *Poller) intentChanged(files []string) bool {
	target := path.Clean(filepath.ToSlash(p.target))
	for _, file := range files {
		file = path.Clean(filepath.ToSlash(file))
		if file == target || strings.HasPrefix(file, target+"/") {
			return true
		}
	}
	return false
}

// Stop halts scheduled polling and waits for an in-flight poll.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false

	p.logger.Info("git polling stopped")
}

// IsRunning reports whether the scheduler is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
