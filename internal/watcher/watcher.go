// Package watcher implements the File Watcher & Change Detector: it watches
// the spec tree recursively with fsnotify, debounces bursts per path, and
// hands each settled change to the Change Detector for classification.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mark3labs/specflow/internal/eventbus"
	"github.com/mark3labs/specflow/internal/logger"
)

// Watcher watches Root recursively and feeds debounced path changes to the
// Detector for analysis, publishing file_change and change_analyzed events
// on Bus as it goes.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Bus      *eventbus.Bus
	Detector *Detector

	fw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	queue  chan rawEvent
}

type rawEvent struct {
	path string
	op   fsnotify.Op
}

// New constructs a Watcher over root, publishing through bus and
// classifying settled changes with detector.
func New(root string, debounce time.Duration, bus *eventbus.Bus, detector *Detector) *Watcher {
	return &Watcher{
		Root: root, Debounce: debounce, Bus: bus, Detector: detector,
		timers: make(map[string]*time.Timer),
		queue:  make(chan rawEvent, 256),
	}
}

// Run watches the tree and dispatches settled changes until ctx is
// cancelled. It blocks; callers run it on the dedicated watcher task.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fw = fw
	defer fw.Close()

	if err := addRecursive(fw, w.Root); err != nil {
		return err
	}

	go w.dispatchLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.onRawEvent(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "err", err)
		}
	}
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// onRawEvent resets the per-path debounce timer so a burst of events for
// the same path collapses into a single settled analysis after Debounce.
func (w *Watcher) onRawEvent(ctx context.Context, event fsnotify.Event) {
	_ = w.Bus.Publish(ctx, eventbus.TopicFileChange, map[string]any{"path": event.Name, "op": event.Op.String()})

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[event.Name]; ok {
		t.Stop()
	}
	w.timers[event.Name] = time.AfterFunc(w.Debounce, func() {
		w.queue <- rawEvent{path: event.Name, op: event.Op}
	})

	if event.Op&fsnotify.Create != 0 {
		info, err := statIsDir(event.Name)
		if err == nil && info {
			_ = w.fw.Add(event.Name)
		}
	}
}

// dispatchLoop is the single-threaded cooperative loop that performs
// analysis, so the in-memory Spec Graph is never mutated concurrently.
// Events for distinct paths interleave in arrival order; the debounce
// timer already serializes repeats of the same path.
func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.queue:
			analysis, err := w.Detector.Analyze(ev.path, ev.op)
			if err != nil {
				logger.Warn("change detector failed", "path", ev.path, "err", err)
				continue
			}
			if err := w.Bus.Publish(ctx, eventbus.TopicChangeAnalyzed, analysis); err != nil {
				logger.Warn("publishing change_analyzed failed", "path", ev.path, "err", err)
			}
		}
	}
}

func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
