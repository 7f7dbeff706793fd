// Package watcher reports changes to a corpus file or directory using fsnotify. Bursts of
// events are debounced into one callback.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/imi/pkg/utils"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a corpus path and calls onChange after related files change.
//
// For a directory the whole tree is watched and only files matching the extensions count.
// For a single file its parent directory is watched, so editors that replace the file by
// rename are still seen; SQLite write-ahead log files next to it count too.
type Watcher struct {
	path       string
	isDir      bool
	extensions []string
	onChange   func()
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	started bool
	stopped bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long the watcher waits for events to settle before calling onChange.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for path. extensions filter files inside a watched
// directory (empty = all) and are ignored for a single-file path.
func NewWatcher(path string, extensions []string, onChange func(), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:       filepath.Clean(path),
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.isDir = info.IsDir()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if w.isDir {
		err = w.addTree(fsw, w.path)
	} else {
		err = fsw.Add(filepath.Dir(w.path))
	}
	if err != nil {
		_ = fsw.Close()
		return err
	}

	w.fsw = fsw
	w.started = true
	w.logger.Debug("watcher started",
		zap.String("path", w.path),
		zap.Bool("directory", w.isDir),
		zap.Strings("extensions", w.extensions))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(ev.Name)

	if !w.isDir {
		if w.relevantFile(path) {
			w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
			w.schedule()
		}
		return
	}

	if !inDir(w.path, path) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// Files copied in with the directory produce no events of their own.
			if err := w.addTree(fsw, path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			w.schedule()
			return
		}
	}
	// A removed or renamed directory has no extension; reload to drop its files.
	gone := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	if utils.HasExtension(path, w.extensions) || (gone && filepath.Ext(path) == "") {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
		w.schedule()
	}
}

func (w *Watcher) relevantFile(path string) bool {
	base := filepath.Base(w.path)
	if filepath.Dir(path) != filepath.Dir(w.path) {
		return false
	}
	name := filepath.Base(path)
	return name == base || name == base+"-wal"
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		stopped := w.stopped
		w.mu.Unlock()
		if stopped || w.onChange == nil {
			return
		}
		w.logger.Debug("corpus changed", zap.String("path", w.path))
		w.onChange()
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stop stops the watcher and releases resources. Pending callbacks are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	fsw := w.fsw
	close(w.done)
	w.mu.Unlock()

	_ = fsw.Close()
}
