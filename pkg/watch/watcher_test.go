package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func sourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("      call helper(1)\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewWatcher(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, 500 * time.Millisecond},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWatcher([]string{file}, tt.debounce)
			if err != nil {
				t.Fatalf("NewWatcher() error = %v", err)
			}
			defer w.Stop()

			if w.fsWatcher == nil {
				t.Error("fsWatcher should not be nil")
			}
			if w.timers == nil {
				t.Error("timers map should be initialized")
			}
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestNewWatcher_NoFiles(t *testing.T) {
	if _, err := NewWatcher(nil, 0); err == nil {
		t.Error("NewWatcher() should fail without files")
	}
}

func TestWatcher_Files(t *testing.T) {
	dir := t.TempDir()
	a := sourceFile(t, dir, "a.f")
	b := sourceFile(t, dir, "b.f")

	w, err := NewWatcher([]string{b, a, a}, time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	files := w.Files()
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("Files() = %v, want [%s %s]", files, a, b)
	}
	if dirs := w.dirs(); len(dirs) != 1 {
		t.Errorf("dirs() = %v, want one shared directory", dirs)
	}
}

// clearTimers drops scheduled runs without marking the watcher stopped.
func clearTimers(w *Watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, run := range w.timers {
		run.timer.Stop()
		delete(w.timers, path)
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	dir := t.TempDir()
	file := sourceFile(t, dir, "main.f")

	w, err := NewWatcher([]string{file}, time.Hour)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write to watched file", fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"create of watched file", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"remove ignored", fsnotify.Event{Name: file, Op: fsnotify.Remove}, false},
		{"chmod ignored", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"sibling file ignored", fsnotify.Event{Name: filepath.Join(dir, "other.f"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTimers(w)
			w.handleEvent(tt.event)

			if got := w.pending(tt.event.Name); got != tt.wantPending {
				t.Errorf("pending(%v) = %v, want %v", tt.event.Name, got, tt.wantPending)
			}
		})
	}
}

func TestWatcher_fire(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	done := make(chan string, 1)
	w.SetCallback(func(path string) { done <- path })

	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})

	select {
	case got := <-done:
		if got != file {
			t.Errorf("callback path = %v, want %v", got, file)
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not called")
	}

	if w.pending(file) {
		t.Error("timer should be dropped once it fires")
	}
}

func TestWatcher_NotReady(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, time.Hour)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var called atomic.Bool
	w.SetCallback(func(string) { called.Store(true) })

	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})
	time.Sleep(20 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not be called before the debounce period")
	}
	if !w.pending(file) {
		t.Error("run should still be scheduled")
	}
}

func TestWatcher_WriteAtDeadlineRunsOnce(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var count int32
	w.SetCallback(func(string) { atomic.AddInt32(&count, 1) })

	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})

	// Hold the lock past the deadline so the expired run is waiting on it
	// when the next write is scheduled.
	w.mu.Lock()
	time.Sleep(60 * time.Millisecond)
	w.schedule(file)
	w.mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("callback count = %d, want 1 for a write landing at the deadline", got)
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var called atomic.Bool
	w.SetCallback(func(string) { called.Store(true) })

	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not run after Stop")
	}

	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})
	if w.pending(file) {
		t.Error("stopped watcher should not schedule new runs")
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	dir := t.TempDir()
	file := sourceFile(t, dir, "main.f")

	w, err := NewWatcher([]string{file}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var callbackCount int32
	var lastPath string
	var mu sync.Mutex

	w.SetCallback(func(path string) {
		atomic.AddInt32(&callbackCount, 1)
		mu.Lock()
		lastPath = path
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	// Unwatched sibling: no callback.
	sourceFile(t, dir, "other.f")
	if err := os.WriteFile(file, []byte("      call changed(1)\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if atomic.LoadInt32(&callbackCount) == 0 {
		t.Fatal("callback should be called when the watched file changes")
	}

	mu.Lock()
	gotPath := lastPath
	mu.Unlock()
	if gotPath != file {
		t.Errorf("callback path = %v, want %v", gotPath, file)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	file := sourceFile(t, t.TempDir(), "main.f")

	w, err := NewWatcher([]string{file}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var count int32
	w.SetCallback(func(string) { atomic.AddInt32(&count, 1) })

	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("callback count = %d, want 1 after a burst of writes", got)
	}
}
