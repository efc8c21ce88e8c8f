// Package watcher reports filesystem activity in watched media directories
// so dropped videos get registered and removed ones get marked missing.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

type Watcher interface {
	Watch(ctx context.Context, dir string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

// FilterFunc decides whether a path is worth reporting. Paths it rejects
// never reach the callback.
type FilterFunc func(path string) bool

// FSWatcher watches directories with fsnotify and forwards events for
// matching files. Watching the directory rather than individual files
// survives the rename-and-replace pattern most encoders use when writing
// output.
type FSWatcher struct {
	logger *slog.Logger
	filter FilterFunc

	mu       sync.Mutex
	inner    *fsnotify.Watcher
	dirs     map[string]bool
	callback func(path string, event EventType)
	started  bool
}

func NewFSWatcher(logger *slog.Logger, filter FilterFunc) (*FSWatcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSWatcher{
		logger: logger,
		filter: filter,
		inner:  inner,
		dirs:   make(map[string]bool),
	}, nil
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch adds a directory to the watch set. The event loop starts on the
// first call and exits when ctx is cancelled.
func (w *FSWatcher) Watch(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[abs] {
		if err := w.inner.Add(abs); err != nil {
			return err
		}
		w.dirs[abs] = true
		w.logger.Debug("watching directory", "dir", abs)
	}

	if !w.started {
		w.started = true
		go w.run(ctx)
	}
	return nil
}

func (w *FSWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			w.dispatch(event)
		case err, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *FSWatcher) dispatch(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if w.filter != nil && !w.filter(abs) {
		return
	}

	w.mu.Lock()
	callback := w.callback
	w.mu.Unlock()
	if callback == nil {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		callback(abs, EventDelete)
	case event.Op.Has(fsnotify.Create):
		callback(abs, EventCreate)
	case event.Op.Has(fsnotify.Write):
		callback(abs, EventModify)
	}
}

func (w *FSWatcher) Stop() error {
	return w.inner.Close()
}

// StubWatcher is used when filesystem watching is disabled.
type StubWatcher struct {
	logger   *slog.Logger
	callback func(path string, event EventType)
}

func NewStubWatcher(logger *slog.Logger) *StubWatcher {
	return &StubWatcher{logger: logger}
}

func (w *StubWatcher) Watch(ctx context.Context, dir string) error {
	w.logger.Info("watcher stub: watch requested", "dir", dir)
	return nil
}

func (w *StubWatcher) Stop() error {
	return nil
}

func (w *StubWatcher) OnChange(callback func(path string, event EventType)) {
	w.callback = callback
}
