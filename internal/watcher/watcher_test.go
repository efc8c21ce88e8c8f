package watcher

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
)

type recordedEvent struct {
	path  string
	event EventType
}

func videoFilter(path string) bool {
	return strings.HasSuffix(path, ".mp4")
}

func newTestWatcher(t *testing.T, filter FilterFunc) *FSWatcher {
	t.Helper()
	w, err := NewFSWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), filter)
	if err != nil {
		t.Fatalf("NewFSWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestDispatch_MapsOperations(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "match.mp4")

	tests := []struct {
		name string
		op   fsnotify.Op
		want EventType
	}{
		{"create", fsnotify.Create, EventCreate},
		{"write", fsnotify.Write, EventModify},
		{"remove", fsnotify.Remove, EventDelete},
		{"rename", fsnotify.Rename, EventDelete},
		{"remove wins over write", fsnotify.Remove | fsnotify.Write, EventDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, videoFilter)

			var got []recordedEvent
			w.OnChange(func(path string, event EventType) {
				got = append(got, recordedEvent{path, event})
			})
			if err := w.Watch(context.Background(), dir); err != nil {
				t.Fatalf("Watch() error = %v", err)
			}

			w.dispatch(fsnotify.Event{Name: target, Op: tt.op})

			if len(got) != 1 {
				t.Fatalf("callback invoked %d times, want 1", len(got))
			}
			if got[0].path != target || got[0].event != tt.want {
				t.Errorf("dispatch = {%s, %d}, want {%s, %d}", got[0].path, got[0].event, target, tt.want)
			}
		})
	}
}

func TestDispatch_FiltersNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, videoFilter)

	var calls int
	w.OnChange(func(path string, event EventType) { calls++ })
	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	w.dispatch(fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Create})
	w.dispatch(fsnotify.Event{Name: filepath.Join(dir, ".clip.mp4.part"), Op: fsnotify.Write})

	if calls != 0 {
		t.Errorf("callback invoked %d times for filtered files, want 0", calls)
	}
}

func TestDispatch_NoCallbackIsSafe(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, nil)
	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Must not panic without a registered callback.
	w.dispatch(fsnotify.Event{Name: filepath.Join(dir, "clip.mp4"), Op: fsnotify.Remove})
}

func TestWatch_DirectoryAddedOnce(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, nil)

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.dirs) != 1 {
		t.Errorf("watched dirs = %d, want 1", len(w.dirs))
	}
}

func TestStubWatcher(t *testing.T) {
	w := NewStubWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.OnChange(func(path string, event EventType) {})
	if err := w.Watch(context.Background(), "/tmp/media"); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
