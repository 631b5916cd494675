// Package fswatch notifies about content changes and renames of a single
// file, backed by fsnotify.
//
// The parent directory is watched rather than the file itself so editors
// that save through a temporary file and rename it over the original are
// still observed.
package fswatch

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op is the kind of change observed on the watched file.
type Op uint8

const (
	// OpChange indicates the file content was written or the file was recreated.
	OpChange Op = iota + 1
	// OpRename indicates the file was renamed or replaced by a rename.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpChange:
		return "CHANGE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Handler receives change notifications. It runs on the watcher goroutine.
type Handler func(path string, op Op)

// FileWatcher watches one file.
type FileWatcher interface {
	// Close stops the watcher. It is safe to call Close multiple times.
	Close() error
}

// Factory creates a FileWatcher for path.
type Factory func(path string, h Handler) (FileWatcher, error)

// Watcher is the fsnotify-backed FileWatcher.
type Watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	path    string
	handler Handler
	onError func(error)

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithErrorHandler sets a callback for errors reported by fsnotify.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New starts watching path. The file must exist.
func New(path string, h Handler, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		path:    absPath,
		handler: h,
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// NewFactory returns a Factory producing fsnotify watchers.
func NewFactory(opts ...Option) Factory {
	return func(path string, h Handler) (FileWatcher, error) {
		return New(path, h, opts...)
	}
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}

	op := convertOp(ev.Op)
	if op == 0 {
		return
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	w.handler(w.path, op)
}

// convertOp maps fsnotify operations onto the two kinds callers care about.
// Removal and chmod are not reported.
func convertOp(fsOp fsnotify.Op) Op {
	switch {
	case fsOp.Has(fsnotify.Rename):
		return OpRename
	case fsOp.Has(fsnotify.Write), fsOp.Has(fsnotify.Create):
		return OpChange
	default:
		return 0
	}
}

var _ FileWatcher = (*Watcher)(nil)
