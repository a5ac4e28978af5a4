package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the sources file when it changes and reconciles the
// runtime with the new contents. A file that fails to parse is ignored and
// the running configuration is kept.
type Watcher struct {
	path     string
	rt       driving.SourceRuntime
	debounce time.Duration

	mu      sync.Mutex
	current []domain.SourceConfig

	// reloaded is called after every reload attempt. Used by tests.
	reloaded func(error)
}

// NewWatcher creates a watcher for path. current is the configuration the
// runtime was started with.
func NewWatcher(path string, rt driving.SourceRuntime, current []domain.SourceConfig) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		rt:       rt,
		debounce: DefaultDebounce,
		current:  current,
	}
}

// Current returns the configuration in effect.
func (w *Watcher) Current() []domain.SourceConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.SourceConfig(nil), w.current...)
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so that atomic replace-on-save is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	logger.Debug("watching %s for changes", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher: %v", err)

		case <-fire:
			fire = nil
			w.Reload(ctx)
		}
	}
}

// Reload re-reads the sources file and reconciles the runtime.
func (w *Watcher) Reload(ctx context.Context) {
	err := w.reload(ctx)
	if err != nil {
		logger.Error("reloading %s: %v", w.path, err)
	} else {
		logger.Info("reloaded %s", w.path)
	}
	if w.reloaded != nil {
		w.reloaded(err)
	}
}

func (w *Watcher) reload(ctx context.Context) error {
	next, err := LoadSources(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	applied, err := Reconcile(ctx, w.rt, w.current, next)
	w.current = applied
	return err
}
