// Package watch re-runs a callback when any of a fixed set of source files changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when NewWatcher is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls back once a watched file has been quiet for the debounce
// period. Parent directories are watched rather than the files themselves
// so that editors which save by renaming a temp file are still seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	files     map[string]string // absolute path -> path as given

	mu       sync.Mutex
	callback func(path string)
	timers   map[string]*pendingRun // absolute path -> scheduled run
	stopped  bool

	runMu sync.Mutex // callbacks never overlap
}

// pendingRun is one scheduled callback. A run only fires while it is still
// the map entry for its path.
type pendingRun struct {
	timer *time.Timer
}

// NewWatcher creates a watcher for files. Duplicates are watched once.
func NewWatcher(files []string, debounce time.Duration) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to watch")
	}

	tracked := make(map[string]string, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		tracked[abs] = f
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		debounce:  debounce,
		files:     tracked,
		timers:    make(map[string]*pendingRun),
	}, nil
}

// SetCallback sets the function to call when a file changes.
// The callback receives the path as it was passed to NewWatcher.
func (w *Watcher) SetCallback(cb func(path string)) {
	w.mu.Lock()
	w.callback = cb
	w.mu.Unlock()
}

// Start registers the directories and dispatches events until ctx is done
// or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs() {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	color.Cyan("Watching %d file(s) for changes...", len(w.files))
	color.Cyan("Press Ctrl+C to stop")
	fmt.Println()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.Red("Watch error: %v", err)
		}
	}
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for abs := range w.files {
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// handleEvent schedules a run for writes to watched files, pushing back a
// run that is already pending.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.schedule(path)
}

// schedule (re)starts the debounce period for path. w.mu must be held.
// A timer that already expired may have its run waiting on w.mu; replacing
// the map entry makes that run a no-op.
func (w *Watcher) schedule(path string) {
	if w.stopped {
		return
	}
	if run, ok := w.timers[path]; ok && run.timer.Stop() {
		run.timer.Reset(w.debounce)
		return
	}
	run := &pendingRun{}
	run.timer = time.AfterFunc(w.debounce, func() { w.fire(path, run) })
	w.timers[path] = run
}

// fire runs the callback for a file whose timer expired.
func (w *Watcher) fire(path string, run *pendingRun) {
	w.mu.Lock()
	if w.stopped || w.timers[path] != run {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	cb := w.callback
	w.mu.Unlock()

	if cb == nil {
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	color.Yellow("\nFile changed: %s", w.files[path])
	fmt.Println(strings.Repeat("-", 40))
	cb(w.files[path])
	fmt.Println()
}

// pending reports whether a run is scheduled for the absolute path.
func (w *Watcher) pending(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.timers[path]
	return ok
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, run := range w.timers {
		run.timer.Stop()
		delete(w.timers, path)
	}
}

// Stop cancels pending runs and closes the OS watcher.
func (w *Watcher) Stop() error {
	w.cancelPending()
	return w.fsWatcher.Close()
}

// Files returns the watched files as given to NewWatcher, sorted.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for _, f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// WatchedDirs returns the directories registered with the OS watcher.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
