// Package watch reports changes to schema sources on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/schemafill/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before the
// callback fires.
const DefaultDebounce = 200 * time.Millisecond

// Callback receives the source paths (relative to the watched root) that
// changed during one debounce window.
type Callback func(ctx context.Context, changed []string)

// Watcher watches a schema directory, or a single schema file, for changes.
type Watcher struct {
	root     string
	only     string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher on path, which must exist.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: stat: %w", err)
	}
	w := &Watcher{root: abs, debounce: DefaultDebounce, logger: slog.Default()}
	if !info.IsDir() {
		w.root, w.only = filepath.Dir(abs), filepath.Base(abs)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file change events until ctx is cancelled. Changes are
// coalesced and cb is called once per debounce window. Directories created
// at runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context, cb Callback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if w.only != "" {
		err = fw.Add(w.root)
	} else {
		err = addDirsRecursive(fw, w.root)
	}
	if err != nil {
		return fmt.Errorf("watch: add %s: %w", w.root, err)
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending = make(map[string]struct{})
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
			return
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.logger.Debug("watcher: changes", slog.Any("paths", changed))
			if cb != nil {
				cb(ctx, changed)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && w.only == "" {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if storage.SkipDir(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
						continue
					}
					w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					w.collectDir(ev.Name, pending)
					schedule()
					continue
				}
			}
			rel, relevant := w.relevant(ev.Name)
			if !relevant || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant maps an absolute event path to its root-relative form and
// reports whether it names a watched schema source.
func (w *Watcher) relevant(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.only != "" {
		return rel, rel == w.only
	}
	return rel, storage.IsSource(rel)
}

// collectDir records schema sources already present in a new directory.
func (w *Watcher) collectDir(dir string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.relevant(p); ok {
			pending[rel] = struct{}{}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping excluded directories.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && storage.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
