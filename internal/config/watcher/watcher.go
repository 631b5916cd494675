// Package watcher polls settings files for changes.
//
// Settings files are small and often live on network home directories
// where inotify is unreliable, so they are polled by modification time
// instead of using fsnotify.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates the file appeared.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// Watcher polls a set of files.
type Watcher struct {
	mu sync.Mutex

	// Watched files and their last modification times; zero means absent.
	files map[string]time.Time

	handlers []Handler
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// New creates a new polling watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		files:    make(map[string]time.Time),
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch adds a file to the watch list. The file need not exist yet.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var mod time.Time
	if info, err := os.Stat(absPath); err == nil {
		mod = info.ModTime()
	} else if !os.IsNotExist(err) {
		return err
	}

	w.mu.Lock()
	w.files[absPath] = mod
	w.mu.Unlock()
	return nil
}

// OnChange registers a handler for file change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	w.mu.Unlock()
}

// Start begins polling. Calling Start on a running watcher does nothing.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.pollLoop(ctx)
}

// Stop stops polling and waits for the poll goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		w.wg.Wait()
	}
}

// IsRunning returns whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll checks every watched file once and dispatches events.
func (w *Watcher) Poll() {
	w.mu.Lock()
	var events []Event
	for path, last := range w.files {
		var cur time.Time
		if info, err := os.Stat(path); err == nil {
			cur = info.ModTime()
		} else if !os.IsNotExist(err) {
			continue
		}

		switch {
		case last.IsZero() && !cur.IsZero():
			events = append(events, Event{Path: path, Op: OpCreate})
		case !last.IsZero() && cur.IsZero():
			events = append(events, Event{Path: path, Op: OpRemove})
		case !cur.Equal(last):
			events = append(events, Event{Path: path, Op: OpWrite})
		default:
			continue
		}
		w.files[path] = cur
	}
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			safeCall(h, ev)
		}
	}
}

// safeCall keeps a panicking handler from killing the poll goroutine.
func safeCall(h Handler, ev Event) {
	defer func() { _ = recover() }()
	h(ev)
}
