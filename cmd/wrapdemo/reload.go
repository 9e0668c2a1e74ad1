package main

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/byte4ever/wrappers"
)

// reloader serves the current app and rebuilds it when the configuration
// file changes. Reads of the active app are lock-free.
type reloader struct {
	current atomic.Pointer[app]
	build   func() (*app, error)
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	path    string
	done    chan struct{}
}

// newReloader builds the first app. If watch is set it also starts
// watching path; the parent directory is watched because editors often
// replace files instead of writing them in place.
func newReloader(path string, watch bool, build func() (*app, error), logger *slog.Logger) (*reloader, error) {
	first, err := build()
	if err != nil {
		return nil, err
	}

	rl := &reloader{
		build:  build,
		logger: logger,
		path:   filepath.Clean(path),
		done:   make(chan struct{}),
	}
	rl.current.Store(first)

	if !watch {
		close(rl.done)
		return rl, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(filepath.Dir(rl.path)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	rl.watcher = fw

	go rl.loop()

	return rl, nil
}

// ServeHTTP delegates to the active app.
func (rl *reloader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rl.current.Load().handler.ServeHTTP(w, r)
}

// Registry returns the registry of the active app.
func (rl *reloader) Registry() *wrappers.Registry {
	return rl.current.Load().registry
}

// Close stops the watcher and closes the active app.
func (rl *reloader) Close() error {
	var err error

	if rl.watcher != nil {
		err = rl.watcher.Close()
		<-rl.done
	}

	rl.current.Load().Close()

	return err
}

func (rl *reloader) loop() {
	defer close(rl.done)

	// Debounce: editors emit several events per save.
	const debounce = 200 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case ev, ok := <-rl.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != rl.path {
				continue
			}

			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-rl.watcher.Errors:
			if !ok {
				return
			}

			rl.logger.Error("config watcher error", slog.Any("error", err))
		case <-timer.C:
			rl.reload()
		}
	}
}

func (rl *reloader) reload() {
	next, err := rl.build()
	if err != nil {
		rl.logger.Error("config reload failed, keeping previous stack",
			slog.String("path", rl.path),
			slog.Any("error", err),
		)

		return
	}

	rl.current.Swap(next).Close()
	rl.logger.Info("config reloaded", slog.String("path", rl.path))
}
