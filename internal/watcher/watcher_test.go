package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const settle = 50 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, path string, exts []string, calls *atomic.Int32) *Watcher {
	t.Helper()
	w := NewWatcher(path, exts, func() { calls.Add(1) }, WithDebounce(settle))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_directoryDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, []string{".txt"}, &calls)

	for i := 0; i < 5; i++ {
		if err := writeFile(filepath.Join(dir, "f.txt"), "hello"); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(3 * settle)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one debounced callback, got %d", n)
	}
}

func TestWatcher_directoryIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, []string{".txt"}, &calls)

	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(6 * settle)
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no callback, got %d", n)
	}
}

func TestWatcher_newSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, []string{".md"}, &calls)

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	before := calls.Load()

	time.Sleep(3 * settle)
	if err := writeFile(filepath.Join(nested, "deep.md"), "deep"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() > before })
}

func TestWatcher_singleFile(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "items.yaml")
	if err := writeFile(corpus, "[]"); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	startWatcher(t, corpus, nil, &calls)

	if err := writeFile(filepath.Join(dir, "other.yaml"), "[]"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(6 * settle)
	if n := calls.Load(); n != 0 {
		t.Fatalf("sibling file should not trigger, got %d", n)
	}

	if err := writeFile(corpus, "- id: a\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestWatcher_missingPath(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil, func() {})
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestWatcher_stopIsIdempotentAndSilences(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := startWatcher(t, dir, nil, &calls)
	w.Stop()
	w.Stop()

	if err := writeFile(filepath.Join(dir, "late.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(6 * settle)
	if n := calls.Load(); n != 0 {
		t.Errorf("stopped watcher fired %d times", n)
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
