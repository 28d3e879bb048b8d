package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recorder) onChange(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, path)
}

func (r *recorder) onRemove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *recorder) changedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changed)
}

func (r *recorder) removedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.removed)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func startWatcher(t *testing.T, dir string, exts []string, rec *recorder) *Watcher {
	t.Helper()
	w := New([]string{dir}, exts, true, rec.onChange, rec.onRemove, zap.NewNop())
	w.debounce = 50 * time.Millisecond
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_detectsWrite(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)

	path := filepath.Join(dir, "limitation_act.txt")
	if err := os.WriteFile(path, []byte("Section 3. Three years."), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.changedCount() > 0 }, "write was never reported")
}

func TestWatcher_ignoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)

	if err := os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if rec.changedCount() != 0 {
		t.Errorf("filtered extension should not fire, got %d events", rec.changedCount())
	}
}

func TestWatcher_debouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)

	path := filepath.Join(dir, "act.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("burst"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitFor(t, func() bool { return rec.changedCount() > 0 }, "burst was never reported")
	time.Sleep(200 * time.Millisecond)
	if rec.changedCount() != 1 {
		t.Errorf("burst should collapse to one event, got %d", rec.changedCount())
	}
}

func TestWatcher_detectsRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "act.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	startWatcher(t, dir, []string{".txt"}, rec)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.removedCount() > 0 }, "remove was never reported")
}
