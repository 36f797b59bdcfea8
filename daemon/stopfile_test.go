package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStopFileWatcher_Watch(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "stoppp")

	watcher := NewStopFileWatcher(testLogger{}, path, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- watcher.Watch(ctx, func() { close(stopped) })
	}()

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("stop was not requested")
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("stop file should have been renamed")
	}

	if _, err := os.Stat(filepath.Join(directory, "_stoppp")); err != nil {
		t.Errorf("renamed stop file not found: [%v]", err)
	}
}

func TestStopFileWatcher_Watch_ContextDone(t *testing.T) {
	watcher := NewStopFileWatcher(
		testLogger{},
		filepath.Join(t.TempDir(), "stoppp"),
		10*time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stopCalled := false
	if err := watcher.Watch(ctx, func() { stopCalled = true }); err != nil {
		t.Fatal(err)
	}

	if stopCalled {
		t.Errorf("stop should not be requested without stop file")
	}
}
