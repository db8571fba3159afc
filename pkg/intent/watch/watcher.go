package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval coalesces editor write bursts into one reload.
const DefaultDebounceInterval = 500 * time.Millisecond

// FileWatcher watches one intent file for changes. The watch is placed
// on the parent directory, not the file itself, so it survives the
// rename-replace dance editors do on save; events are filtered back down
// to the target file.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	target   string
	debounce *Debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileWatcher creates a watcher for the given intent file.
func NewFileWatcher(path string, debounceInterval time.Duration) (*FileWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watch path cannot be empty")
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}

	if debounceInterval <= 0 {
		debounceInterval = DefaultDebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		target:   target,
		debounce: NewDebouncer(debounceInterval),
		logger:   slog.Default().With("component", "intent.watch"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called. onChange runs after the debounce interval each time
// the target file changes.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func() error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		close(fw.doneCh)
	}()

	dir := filepath.Dir(fw.target)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	fw.logger.Info("intent watcher started",
		"file", fw.target,
		"debounce_ms", fw.debounce.interval.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("intent watcher stopped, context cancelled")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("intent watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.isTargetEvent(event) {
				continue
			}

			fw.logger.Debug("intent file event",
				"path", event.Name,
				"op", event.Op.String())

			fw.debounce.Trigger(func() {
				fw.logger.Info("intent file changed, reloading", "file", fw.target)
				if err := onChange(); err != nil {
					fw.logger.Error("intent reload failed", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching through transient errors.
			fw.logger.Error("intent watcher error", "error", err)
		}
	}
}

// Stop halts the watcher and cancels any pending debounced reload.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh

	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// IsRunning reports whether the event loop is active.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// isTargetEvent filters directory events down to the watched file.
// Chmod-only events are noise.
func (fw *FileWatcher) isTargetEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == fw.target
}

// Debouncer coalesces rapid triggers: the callback runs once after a
// quiet period of the configured interval (trailing edge).
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules the callback after the quiet interval, replacing any
// pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Further triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
