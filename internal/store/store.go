// Package store provides a persisted, watched, JSON-shaped document store.
//
// A Store owns exactly one in-memory document of type T backed by one
// file. Its life cycle is:
//
//	Unloaded --Load--> Loaded --Watch--> Watching
//	   ^                 |  ^               |
//	   |                 |  +--reload-------+  (external change or rename)
//	   +-----Close-------+------------------+
//
// Every load and every mutation raises an EventDataChanged notification.
// External modifications of the backing file are debounced and reload the
// document; the store's own writes are not observed because the watcher is
// closed before writing and re-armed after a settle delay.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/dshills/crossbuild/internal/config/notify"
	"github.com/dshills/crossbuild/internal/debounce"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/fswatch"
)

// Event names raised by a Store.
const (
	// EventDataChanged fires after every load, reload and mutation.
	EventDataChanged = "dataChanged"

	// EventFileChanged fires after the document was reloaded because the
	// backing file changed outside the store.
	EventFileChanged = "fileChanged"
)

// Payload values carried by EventDataChanged for store-driven changes.
const (
	ReasonLoad   = "load"
	ReasonReload = "reload"
)

// State is the life-cycle state of a Store.
type State int

const (
	// StateUnloaded means no document is held.
	StateUnloaded State = iota
	// StateLoaded means a document is held but the file is not watched.
	StateLoaded
	// StateWatching means the backing file is watched for external changes.
	StateWatching
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// DefaultFunc synthesizes the default document for a project kind.
type DefaultFunc[T any] func(kind string) (T, error)

// Default timings.
const (
	DefaultSettleDelay = 400 * time.Millisecond
	DefaultChangeDelay = 100 * time.Millisecond
)

// Options configures a Store.
type Options[T any] struct {
	// Path is the backing file.
	Path string

	// Kind is passed to Defaults.
	Kind string

	// Defaults synthesizes a document when the backing file is absent.
	Defaults DefaultFunc[T]

	// AfterLoad runs once per load with the decoded document and a view of
	// the file as found on disk. An error aborts the load.
	AfterLoad func(doc *T, raw Raw) error

	// Encode produces the persisted JSON form of the document. Defaults to
	// encoding/json.
	Encode func(doc *T) ([]byte, error)

	// KeepUnknown preserves top-level keys that the in-memory shape does
	// not know about instead of pruning them on load.
	KeepUnknown bool

	// RequireForce makes Save refuse unless forced.
	RequireForce bool

	// SettleDelay is how long after a save the watcher is re-armed.
	SettleDelay time.Duration

	// ChangeDelay coalesces bursts of external change notifications.
	ChangeDelay time.Duration

	// Watch creates file watchers. Defaults to fsnotify.
	Watch fswatch.Factory

	// Notifier receives the store's events. A new one is created if nil.
	Notifier *notify.Notifier

	// Logger is the diagnostic sink. Defaults to diag.Default().
	Logger *diag.Logger
}

// Store is a versioned configuration store for documents of type T.
type Store[T any] struct {
	mu sync.Mutex

	id     string
	opts   Options[T]
	log    *diag.Logger
	events *notify.Notifier

	doc   *T
	extra map[string]json.RawMessage
	state State

	watchWanted bool
	watcher     fswatch.FileWatcher
	rearm       debounce.Slot
	change      debounce.Slot
}

// New creates an unloaded Store.
func New[T any](opts Options[T]) *Store[T] {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.ChangeDelay <= 0 {
		opts.ChangeDelay = DefaultChangeDelay
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New()
	}

	id := uuid.NewString()
	log := diag.OrDefault(opts.Logger).Component("store").
		With("path", filepath.Base(opts.Path)).
		With("store", id)
	if opts.Watch == nil {
		opts.Watch = fswatch.NewFactory(fswatch.WithErrorHandler(func(err error) {
			log.Debug("watch error: %v", err)
		}))
	}
	return &Store[T]{
		id:     id,
		opts:   opts,
		log:    log,
		events: opts.Notifier,
		state:  StateUnloaded,
	}
}

// ID returns a unique identifier for this store instance.
func (s *Store[T]) ID() string {
	return s.id
}

// Path returns the backing file path.
func (s *Store[T]) Path() string {
	return s.opts.Path
}

// State returns the current life-cycle state.
func (s *Store[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the store's notifier.
func (s *Store[T]) Events() *notify.Notifier {
	return s.events
}

// Doc returns the in-memory document, or nil when unloaded. Callers may
// mutate fields through the pointer; structural replacement goes through
// Replace.
func (s *Store[T]) Doc() *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Load reads the backing file, or synthesizes and persists defaults when
// it does not exist.
func (s *Store[T]) Load() error {
	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", s.opts.Path, err)
		}
		return s.loadDefaults(true)
	}

	doc, extra, err := s.decode(data)
	if err != nil {
		// Leave the user's file alone; work on defaults in memory.
		s.log.Warn("malformed document, using defaults: %v", err)
		return s.loadDefaults(false)
	}

	if s.opts.AfterLoad != nil {
		if err := s.opts.AfterLoad(doc, NewRaw(data)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.doc = doc
	s.extra = extra
	if s.state == StateUnloaded {
		s.state = StateLoaded
	}
	s.mu.Unlock()

	s.events.Notify(EventDataChanged, ReasonLoad)
	return nil
}

func (s *Store[T]) loadDefaults(persist bool) error {
	if s.opts.Defaults == nil {
		return fmt.Errorf("%w for %q", ErrNoDefaultFactory, s.opts.Kind)
	}
	def, err := s.opts.Defaults(s.opts.Kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = &def
	s.extra = nil
	if s.state == StateUnloaded {
		s.state = StateLoaded
	}
	s.mu.Unlock()

	if persist {
		if err := s.Save(true); err != nil {
			return err
		}
	}

	s.events.Notify(EventDataChanged, ReasonLoad)
	return nil
}

// decode parses data into a fresh document and collects unknown top-level
// keys when they are kept.
func (s *Store[T]) decode(data []byte) (*T, map[string]json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, errors.New("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, nil, errors.New("document is not an object")
	}

	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, nil, err
	}

	if !s.opts.KeepUnknown {
		return doc, nil, nil
	}

	known, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	extra := make(map[string]json.RawMessage)
	gjson.ParseBytes(data).ForEach(func(k, v gjson.Result) bool {
		if !gjson.GetBytes(known, EscapeKey(k.String())).Exists() {
			extra[k.String()] = json.RawMessage(v.Raw)
		}
		return true
	})
	return doc, extra, nil
}

// Save writes the document to the backing file.
func (s *Store[T]) Save(force bool) error {
	if s.opts.RequireForce && !force {
		return ErrReadOnly
	}

	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	doc := s.doc
	extra := s.extra
	s.mu.Unlock()

	data, err := s.encode(doc, extra)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.opts.Path, err)
	}

	s.pauseWatch()
	defer s.scheduleRearm()

	if err := os.MkdirAll(filepath.Dir(s.opts.Path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(s.opts.Path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", s.opts.Path, err)
	}
	return nil
}

func (s *Store[T]) encode(doc *T, extra map[string]json.RawMessage) ([]byte, error) {
	var data []byte
	var err error
	if s.opts.Encode != nil {
		data, err = s.opts.Encode(doc)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, err
	}

	for k, v := range extra {
		if gjson.GetBytes(data, EscapeKey(k)).Exists() {
			continue
		}
		data, err = SetRawKey(data, k, v)
		if err != nil {
			return nil, err
		}
	}

	return Format(data), nil
}

// Marshal returns the persisted form of the current document.
func (s *Store[T]) Marshal() ([]byte, error) {
	s.mu.Lock()
	doc, extra := s.doc, s.extra
	s.mu.Unlock()
	if doc == nil {
		return nil, ErrNotLoaded
	}
	return s.encode(doc, extra)
}

// Update mutates the document and raises EventDataChanged with args.
func (s *Store[T]) Update(fn func(doc *T), args ...any) error {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	if doc == nil {
		return ErrNotLoaded
	}

	fn(doc)
	s.events.Notify(EventDataChanged, args...)
	return nil
}

// Replace swaps in a new document value and raises EventDataChanged.
func (s *Store[T]) Replace(doc T, args ...any) {
	s.mu.Lock()
	s.doc = &doc
	if s.state == StateUnloaded {
		s.state = StateLoaded
	}
	s.mu.Unlock()

	s.events.Notify(EventDataChanged, args...)
}

// Emit raises EventDataChanged for a change made directly through Doc.
func (s *Store[T]) Emit(args ...any) {
	s.events.Notify(EventDataChanged, args...)
}

// BeginMerge opens a merge window on the store's events.
func (s *Store[T]) BeginMerge() { s.events.BeginMerge() }

// EndMerge closes a merge window on the store's events.
func (s *Store[T]) EndMerge() { s.events.EndMerge() }

// Watch starts watching the backing file for external changes.
func (s *Store[T]) Watch() error {
	s.mu.Lock()
	switch s.state {
	case StateUnloaded:
		s.mu.Unlock()
		return ErrNotLoaded
	case StateWatching:
		s.mu.Unlock()
		return nil
	}
	s.watchWanted = true
	s.state = StateWatching
	s.mu.Unlock()

	return s.arm()
}

func (s *Store[T]) arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.watchWanted || s.watcher != nil {
		return nil
	}
	w, err := s.opts.Watch(s.opts.Path, s.onFileChange)
	if err != nil {
		return fmt.Errorf("watching %s: %w", s.opts.Path, err)
	}
	s.watcher = w
	return nil
}

func (s *Store[T]) pauseWatch() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	s.rearm.Cancel()
	if w != nil {
		_ = w.Close()
	}
}

func (s *Store[T]) scheduleRearm() {
	s.mu.Lock()
	wanted := s.watchWanted
	s.mu.Unlock()
	if !wanted {
		return
	}

	s.rearm.Schedule(func() {
		if err := s.arm(); err != nil {
			s.log.Debug("re-arming watcher: %v", err)
		}
	}, s.opts.SettleDelay)
}

func (s *Store[T]) onFileChange(_ string, _ fswatch.Op) {
	s.change.Schedule(s.reload, s.opts.ChangeDelay)
}

// reload re-reads the backing file after an external change. Failures keep
// the current document.
func (s *Store[T]) reload() {
	s.mu.Lock()
	if s.state != StateWatching {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		s.log.Debug("reload skipped: %v", err)
		return
	}
	doc, extra, err := s.decode(data)
	if err != nil {
		s.log.Debug("reload skipped, malformed document: %v", err)
		return
	}
	if s.opts.AfterLoad != nil {
		if err := s.opts.AfterLoad(doc, NewRaw(data)); err != nil {
			s.log.Warn("reload rejected: %v", err)
			return
		}
	}

	s.mu.Lock()
	s.doc = doc
	s.extra = extra
	s.mu.Unlock()

	s.events.Merge(func() {
		s.events.Notify(EventDataChanged, ReasonReload)
		s.events.Notify(EventFileChanged)
	})
}

// Close stops watching and drops the document.
func (s *Store[T]) Close() error {
	s.rearm.Cancel()
	s.change.Cancel()

	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchWanted = false
	s.doc = nil
	s.extra = nil
	s.state = StateUnloaded
	s.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}
