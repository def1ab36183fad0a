// Package watch reports changes to the files relayctl manages so that edits
// made by another operator or tool show up without re-running a command.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// DefaultDebounce coalesces the burst of events an atomic replace produces.
const DefaultDebounce = 100 * time.Millisecond

// stopGrace bounds how long Run waits for the event loop after cancellation.
const stopGrace = time.Second

// Watcher calls onChange for each watched file that was written, replaced or
// removed. Parent directories are watched rather than the files themselves,
// so files that do not exist yet and files replaced by rename are covered.
type Watcher struct {
	paths    map[string]struct{}
	dirs     []string
	onChange func(path string)
	logger   *slog.Logger

	// Debounce is the quiet period after the last event before onChange runs.
	Debounce time.Duration
}

// New creates a Watcher for paths. onChange is called from a single goroutine,
// once per changed path per debounce window.
func New(paths []string, onChange func(path string), logger *slog.Logger) *Watcher {
	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		onChange: onChange,
		logger:   logger.With("component", "watch"),
		Debounce: DefaultDebounce,
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		w.paths[p] = struct{}{}
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	sort.Strings(w.dirs)
	return w
}

// Run watches until ctx is cancelled. Directories that do not exist are
// skipped; it is an error if none of them can be watched.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}

	added := 0
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.logger.Debug("directory missing, not watched", "dir", dir)
				continue
			}
			_ = fw.Close()
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", "dir", dir)
		added++
	}
	if added == 0 {
		_ = fw.Close()
		return fmt.Errorf("watch: none of %v exist", w.dirs)
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = fw.Close()
	})
	sctx.Go(func(sctx *stopper.Context) error {
		return w.loop(sctx, fw)
	})

	<-ctx.Done()
	sctx.Stop(stopGrace)
	if err := sctx.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// loop collects events for watched paths and flushes them once no further
// event arrived for Debounce.
func (w *Watcher) loop(sctx *stopper.Context, fw *fsnotify.Watcher) error {
	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-sctx.Stopping():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			pending[filepath.Clean(ev.Name)] = struct{}{}
			timer.Reset(w.Debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			sort.Strings(changed)
			for _, p := range changed {
				if sctx.IsStopping() {
					return nil
				}
				w.onChange(p)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if _, ok := w.paths[filepath.Clean(ev.Name)]; !ok {
		return false
	}
	// Permission or timestamp changes alone do not alter content.
	return ev.Op != fsnotify.Chmod
}
