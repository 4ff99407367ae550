package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/wirebus/wirebus/internal/event"
	"github.com/wirebus/wirebus/internal/logging"
)

// Watcher reloads the project configuration when a config file changes and
// republishes it as a config.updated event, so subsystems pick up changes by
// subscribing instead of polling the filesystem.
type Watcher struct {
	watcher   *fsnotify.Watcher
	directory string
	bus       *event.Bus
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

// NewWatcher creates a watcher over the given working directory. Reloaded
// configs are emitted on bus as config.updated with source "config-watcher".
func NewWatcher(directory string, bus *event.Bus) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the files: editors replace config files on
	// save, which drops a watch registered on the file itself.
	if err := w.Add(directory); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher:   w,
		directory: directory,
		bus:       bus,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins watching for config changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop stops watching and waits for the watch loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !isConfigFile(ev.Name) {
				continue
			}
			w.reload(ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload(path string) {
	cfg, err := Load(w.directory)
	if err != nil {
		logging.Warn().Err(err).Str("file", path).Msg("config reload failed")
		return
	}

	logging.Info().Str("file", filepath.Base(path)).Msg("config reloaded")
	w.bus.Emit(event.ConfigUpdated, "config-watcher", cfg)
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range fileNames {
		if base == name {
			return true
		}
	}
	return base == ".env"
}
