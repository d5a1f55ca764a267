package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the alias file watcher.
type WatcherConfig struct {
	// Path is the alias file to watch.
	Path string

	// DebounceDelay is how long to wait for more writes before reloading.
	DebounceDelay time.Duration

	// Apply receives each successfully reloaded table.
	Apply func(*AliasConfig)

	// Logger for watch events.
	Logger *slog.Logger
}

// Watcher reloads the alias file when it changes on disk. Editors replace
// files with rename-and-write sequences, so the watch covers the parent
// directory and filters on the file name.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   bool
}

// NewWatcher creates a watcher for an alias file.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
	}, nil
}

// Start begins watching. It returns after the watch is registered; reloads
// happen on a background goroutine until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.config.Path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("alias watcher started",
		"path", w.config.Path,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
				w.logger.Debug("alias file changed", "op", event.Op.String())
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("alias watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !dirty {
		return
	}

	cfg, err := LoadAliases(w.config.Path)
	if err != nil {
		// Keep serving the previous table on a bad edit.
		w.logger.Error("alias reload failed", "path", w.config.Path, "error", err)
		return
	}

	w.config.Apply(cfg)
	w.logger.Info("aliases reloaded", "path", w.config.Path)
}
