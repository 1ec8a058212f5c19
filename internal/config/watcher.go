package config

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one file and invokes a reload callback when it
// changes. Writes are debounced so editors that save in several
// operations trigger a single reload.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   func() error
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
}

// NewWatcher creates a watcher for path. reload is called after each
// debounced change; its error is logged, not fatal.
func NewWatcher(path string, debounce time.Duration, reload func() error, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		reload:   reload,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins watching.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if addErr := fsw.Add(w.path); addErr != nil {
		fsw.Close()
		return addErr
	}
	w.fsw = fsw

	w.logger.Info("File watcher started", "path", w.path, "debounce", w.debounce)
	go w.loop()
	return nil
}

// Stop stops watching and releases the inotify handle.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Write for in-place saves, Create for editors that
			// replace the file.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			w.logger.Info("File changed, reloading", "path", w.path)
			if err := w.reload(); err != nil {
				w.logger.Warn("Reload failed, keeping previous state", "path", w.path, "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}
