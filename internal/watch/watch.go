// Package watch reports batches of file changes under an analysis root.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"tracekit/internal/logging"
)

// DefaultDebounce is the quiet period that ends a batch of changes.
const DefaultDebounce = 300 * time.Millisecond

// Dirs are watched below the root in addition to the root itself.
var Dirs = []string{"queries", "data", "visuals"}

// Watcher watches an analysis root and its component directories.
type Watcher struct {
	root     string
	debounce time.Duration
	fw       *fsnotify.Watcher
	log      *slog.Logger
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New starts watching root. Component directories that do not exist yet are
// picked up when they are created.
func New(root string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{root: root, debounce: DefaultDebounce, fw: fw, log: logging.New("watch")}
	for _, opt := range opts {
		opt(w)
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	for _, d := range Dirs {
		w.addDir(filepath.Join(root, d))
	}
	return w, nil
}

func (w *Watcher) addDir(dir string) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return
	}
	if err := w.fw.Add(dir); err != nil {
		w.log.Warn("cannot watch directory", "dir", dir, "error", err)
		return
	}
	w.log.Debug("watching", "dir", dir)
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error { return w.fw.Close() }

// ignored filters editor swap files and the temp files of atomic writes.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}

// Run blocks until ctx ends or the watcher is closed, calling fn once per
// quiet period with the sorted paths that changed during the batch.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) && filepath.Dir(ev.Name) == filepath.Clean(w.root) &&
				slices.Contains(Dirs, filepath.Base(ev.Name)) {
				w.addDir(ev.Name)
			}
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			w.log.Debug("changes settled", "files", len(changed))
			fn(ctx, changed)
		}
	}
}
