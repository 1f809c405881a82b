package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()

	w, err := New(slog.New(slog.NewTextHandler(os.Stdout, nil)), Options{SettleDelay: 30 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx) //nolint:errcheck // Test goroutine

	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()
	assert.Equal(t, 100*time.Millisecond, opts.SettleDelay)

	opts = Options{SettleDelay: time.Second}
	opts.setDefaults()
	assert.Equal(t, time.Second, opts.SettleDelay)
}

func TestWatcher_ModifiedAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(path))

	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x"}`), 0o644))

	ev := waitEvent(t, w)
	assert.Equal(t, EventModified, ev.Type)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, int64(10), ev.Size)
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.json")

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	ev := waitEvent(t, w)
	assert.Equal(t, path, ev.Path)
}

func TestWatcher_Removed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(path))

	require.NoError(t, os.Remove(path))

	ev := waitEvent(t, w)
	assert.Equal(t, EventRemoved, ev.Type)
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "modified", EventModified.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
