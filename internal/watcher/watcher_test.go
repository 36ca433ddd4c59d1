package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelevantFiltersEventStream(t *testing.T) {
	w := New(t.TempDir(), time.Second, 0, nil, discard())

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/live/01.000001.txt", fsnotify.Create, true},
		{"/live/01.000001.txt", fsnotify.Write, true},
		{"/live/01.000001.txt", fsnotify.Rename, true},
		{"/live/01.000001.txt", fsnotify.Remove, false},
		{"/live/01.000001.txt", fsnotify.Chmod, false},
		{"/live/notes.txt", fsnotify.Create, false},
		{"/live/3.45.txt", fsnotify.Create, false},
		{"/live/01.000001.csv", fsnotify.Create, false},
	}
	for _, tt := range tests {
		got := w.relevant(fsnotify.Event{Name: tt.name, Op: tt.op})
		assert.Equal(t, tt.want, got, "%s %s", tt.op, tt.name)
	}
}

func TestWatcherCoalescesBurstIntoOneTrigger(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	trigger := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	w := New(dir, 100*time.Millisecond, 0, trigger, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	for i := 1; i <= 5; i++ {
		name := filepath.Join(dir, "01.00000"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// The window closed once; no further triggers without activity.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherPollFallback(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	trigger := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	w := New(dir, time.Hour, 50*time.Millisecond, trigger, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx) }()

	// No filesystem activity at all; the poll ticker still fires.
	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), time.Second, 0, nil, discard())
	err := w.Run(context.Background())
	require.Error(t, err)
}
