package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirebus/wirebus/internal/event"
)

func TestWatcher_EmitsConfigUpdated(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus()

	w, err := NewWatcher(dir, bus)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	done := make(chan event.Event, 1)
	go func() {
		e, err := bus.WaitFor(context.Background(), event.ConfigUpdated, 5*time.Second)
		if err == nil {
			done <- e
		}
		close(done)
	}()

	// Give the waiter and the watch loop a moment to settle.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "wirebus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 7777}}`), 0o644))

	e, ok := <-done
	require.True(t, ok, "expected a config.updated event")
	assert.Equal(t, "config-watcher", e.Source)

	cfg, ok := e.Data.(*Config)
	require.True(t, ok)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus()

	w, err := NewWatcher(dir, bus)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	var count int
	bus.On(event.ConfigUpdated, func(e event.Event) error {
		count++
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, count)
}

func TestWatcher_StopIsIdempotentBeforeStart(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, event.NewBus())
	require.NoError(t, err)
	w.Stop()
}
