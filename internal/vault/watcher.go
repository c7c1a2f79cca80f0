package vault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/elcuervo/otq/internal/live"
	"github.com/elcuervo/otq/internal/task"
)

// DefaultDebounce is how long the watcher waits after the last change before
// reloading.
const DefaultDebounce = 150 * time.Millisecond

// Publisher receives a fresh task collection after files change.
type Publisher interface {
	Publish(tasks []*task.Task) live.Snapshot
}

// WatcherOptions configure a Watcher.
type WatcherOptions struct {
	Debounce time.Duration
	Clock    live.Clock
	Logger   *zap.Logger
}

// Watcher wraps fsnotify to watch vault directories for changes. Changed
// files are dropped from the store and, once events settle, the vault is
// reloaded and published.
type Watcher struct {
	watcher   *fsnotify.Watcher
	store     *Store
	publisher Publisher
	debouncer *live.Debouncer
	logger    *zap.Logger
}

// NewWatcher creates a new file watcher for the store's vault
func NewWatcher(store *Store, publisher Publisher, opts WatcherOptions) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher := &Watcher{
		watcher:   w,
		store:     store,
		publisher: publisher,
		debouncer: live.NewDebouncer(opts.Clock, opts.Debounce),
		logger:    logger.With(zap.String("vault", store.Root())),
	}

	if err := watcher.addTree(store.Root()); err != nil {
		w.Close()
		return nil, err
	}

	return watcher, nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != w.store.Root() {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			w.debouncer.Trigger(w.Reload)
			return
		}
	}

	// Only care about .md files
	if !isMarkdown(event.Name) {
		return
	}

	if rel, err := w.store.Rel(event.Name); err == nil {
		w.store.Invalidate(rel)
	}

	w.logger.Debug("file changed",
		zap.String("path", event.Name),
		zap.Bool("deleted", event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)))
	w.debouncer.Trigger(w.Reload)
}

// Reload rereads changed files and publishes the result.
func (w *Watcher) Reload() {
	tasks, err := w.store.Load()
	if err != nil {
		w.logger.Error("reload failed", zap.Error(err))
		return
	}
	snap := w.publisher.Publish(tasks)
	w.logger.Debug("published snapshot", zap.Uint64("version", snap.Version), zap.Int("tasks", len(tasks)))
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	err := w.watcher.Close()
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
