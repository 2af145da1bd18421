package scripts

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"emberhold/realmd/pkg/events"
)

// WatcherConfig contains configuration for the script directory watcher.
type WatcherConfig struct {
	// Dir is the script root. Subdirectories are watched too.
	Dir string

	// DebounceInterval collapses bursts of events into one notification.
	// Default: 250ms
	DebounceInterval time.Duration

	// Extensions limits which files count as script changes. Empty means
	// every file.
	Extensions []string
}

// Watcher raises events.ScriptsChanged when files under the script
// directory change. The changed paths are passed as the event args, sorted.
// Recompiling is left to the subscribers.
//
// Watcher is a server subsystem: Init starts it and Stop shuts it down.
type Watcher struct {
	config  WatcherConfig
	bus     *events.Bus
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a stopped watcher.
func NewWatcher(cfg WatcherConfig, bus *events.Bus, logger *slog.Logger) *Watcher {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default().With("component", "scripts.watcher")
	}
	return &Watcher{
		config:  cfg,
		bus:     bus,
		logger:  logger,
		pending: make(map[string]struct{}),
	}
}

// Name implements the server subsystem interface.
func (w *Watcher) Name() string {
	return "ScriptWatcher"
}

// Init starts watching. It returns once the directories are registered.
func (w *Watcher) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("script watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := addTree(fsw, w.config.Dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.config.Dir, err)
	}

	w.watcher = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.stopCh, w.doneCh)

	w.logger.Info("script watcher started",
		"directory", w.config.Dir,
		"debounce", w.config.DebounceInterval)
	return nil
}

// Stop shuts the watcher down and drops pending notifications.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]struct{})
	fsw := w.watcher
	w.mu.Unlock()

	<-done
	if err := fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.logger.Info("script watcher stopped")
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				if isDir(ev.Name) && !hidden(ev.Name) {
					if err := addTree(fsw, ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("script file event", "path", ev.Name, "op", ev.Op.String())
			w.queue(ev.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("script watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if hidden(ev.Name) {
		return false
	}
	return hasExtension(ev.Name, w.config.Extensions)
}

// queue records path and restarts the quiet-period timer.
func (w *Watcher) queue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Info("scripts changed", "files", len(paths))
	if w.bus != nil {
		w.bus.Notify(context.Background(), events.ScriptsChanged, w, paths)
	}
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
