package schema

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates registry entries when schema files change on disk.
// The mtime comparison in Registry.Get already catches edits; the watcher
// shortens the window and handles editors that rewrite files via rename.
type Watcher struct {
	registry     *Registry
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	debounceTime time.Duration
}

// NewWatcher creates a watcher over the registry's schema directory.
func NewWatcher(registry *Registry, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		registry:     registry,
		watcher:      fsWatcher,
		logger:       logger,
		stopCh:       make(chan struct{}),
		debounceTime: 200 * time.Millisecond,
	}, nil
}

// Start begins watching the schema directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.registry.Dir()); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	w.logger.Info("schema watcher started", "dir", w.registry.Dir())
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	return w.watcher.Close()
}

// IsRunning reports whether the watch loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context) {
	// Debounce per tool: editors fire bursts of events for one save.
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			tool, ok := toolNameFromPath(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if t, exists := timers[tool]; exists {
				t.Stop()
			}
			timers[tool] = time.AfterFunc(w.debounceTime, func() {
				w.registry.Invalidate(tool)
				w.logger.Debug("schema cache invalidated", "tool", tool)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("schema watcher error", "error", err)

		case <-w.stopCh:
			w.logger.Info("schema watcher stopped")
			return

		case <-ctx.Done():
			w.logger.Info("schema watcher context cancelled")
			return
		}
	}
}

func toolNameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}
