// Package watch imports roast-curve exports dropped into a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ImportFunc receives the content of a settled file.
type ImportFunc func(ctx context.Context, filename string, content []byte) error

// Sub-directories receiving handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DefaultDebounce is how long a file must stay unchanged before import.
const DefaultDebounce = 500 * time.Millisecond

var defaultExtensions = []string{".alog", ".json", ".csv", ".txt"}

// Watcher imports files written to a drop directory. Imported files move to
// processed/, files whose import fails move to failed/.
type Watcher struct {
	dir        string
	importFn   ImportFunc
	logger     *zap.Logger
	debounce   time.Duration
	extensions []string

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions restricts imports to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		if len(exts) > 0 {
			w.extensions = exts
		}
	}
}

// New prepares a watcher for dir. The directory and its processed/ and
// failed/ children are created when missing.
func New(dir string, fn ImportFunc, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("watch directory is required")
	}
	if fn == nil {
		return nil, errors.New("import function is required")
	}
	w := &Watcher{
		dir:        dir,
		importFn:   fn,
		logger:     zap.NewNop(),
		debounce:   DefaultDebounce,
		extensions: defaultExtensions,
		pending:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", filepath.Join(dir, sub), err)
		}
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run watches until ctx is cancelled. Files already present when Run starts
// are queued too.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.queueExisting()
	w.logger.Info("watching roast drop directory", zap.String("dir", w.dir))

	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.touch(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-tick.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) queueExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan drop directory", zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.touch(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) touch(path string) {
	if filepath.Dir(path) != filepath.Clean(w.dir) || !w.accepts(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()
	for _, path := range ready {
		w.handle(ctx, path)
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("read dropped file", zap.String("path", path), zap.Error(err))
		}
		return
	}
	name := filepath.Base(path)
	dest := ProcessedDir
	if err := w.importFn(ctx, name, content); err != nil {
		dest = FailedDir
		w.logger.Error("import dropped file", zap.String("file", name), zap.Error(err))
	} else {
		w.logger.Info("imported dropped file", zap.String("file", name), zap.Int("bytes", len(content)))
	}
	if err := os.Rename(path, filepath.Join(w.dir, dest, name)); err != nil {
		w.logger.Warn("move dropped file", zap.String("file", name), zap.Error(err))
	}
}
