package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// fileWatcher calls run for a watched file once its changes settle.
// Directories are watched rather than files, since editors often replace
// a file instead of writing it in place.
type fileWatcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *log.Logger
	run      func(ctx context.Context, path string) error

	runs atomic.Int64
}

// newFileWatcher watches paths. The caller must Close it.
func newFileWatcher(paths []string, debounce time.Duration, logger *log.Logger, run func(context.Context, string) error) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &fileWatcher{
		fsw:      fsw,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		logger:   logger,
		run:      run,
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("watching directory", "path", dir)
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *fileWatcher) Close() error { return w.fsw.Close() }

// Runs returns how many times run has been called.
func (w *fileWatcher) Runs() int64 { return w.runs.Load() }

// Loop dispatches settled changes until ctx ends or the watcher closes.
// Failures of run are logged, not returned.
func (w *fileWatcher) Loop(ctx context.Context) error {
	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.files[ev.Name] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			for _, p := range paths {
				if ctx.Err() != nil {
					return nil
				}
				w.dispatch(ctx, p)
			}
		}
	}
}

func (w *fileWatcher) dispatch(ctx context.Context, path string) {
	w.runs.Add(1)
	if err := w.run(ctx, path); err != nil {
		w.logger.Error("run failed", "path", path, "error", err)
	}
}
