package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestWatcherImportsAndMovesFiles(t *testing.T) {
	dir := t.TempDir()
	var (
		mu       sync.Mutex
		imported = map[string]string{}
	)
	fn := func(_ context.Context, name string, content []byte) error {
		mu.Lock()
		defer mu.Unlock()
		imported[name] = string(content)
		if name == "broken.csv" {
			return errors.New("bad export")
		}
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, "early.csv"), []byte("time,bt\n0,180\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := New(dir, fn, WithDebounce(40*time.Millisecond))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	for name, body := range map[string]string{
		"probat_0412.csv": "Time;BeanTemp\n00:10;150\n",
		"broken.csv":      "garbage",
		"notes.md":        "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(imported) == 3
	})
	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, FailedDir, "broken.csv"))
		return err == nil
	})
	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ProcessedDir, "probat_0412.csv"))
		return err == nil
	})
	if _, err := os.Stat(filepath.Join(dir, "notes.md")); err != nil {
		t.Fatalf("expected ignored file to stay: %v", err)
	}
	mu.Lock()
	if imported["early.csv"] == "" {
		t.Fatalf("expected pre-existing file imported")
	}
	mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", func(context.Context, string, []byte) error { return nil }); err == nil {
		t.Fatalf("expected directory error")
	}
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Fatalf("expected import func error")
	}
}
