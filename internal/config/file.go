package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/crossbuild/internal/config/loader"
	"github.com/dshills/crossbuild/internal/config/notify"
	"github.com/dshills/crossbuild/internal/config/watcher"
	"github.com/dshills/crossbuild/internal/diag"
)

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "CROSSBUILD_"

// FileSettings serves settings from a TOML file with environment
// overrides, reloading when the file changes.
type FileSettings struct {
	values  *MapSettings
	toml    *loader.TOMLLoader
	env     *loader.EnvLoader
	watcher *watcher.Watcher
	log     *diag.Logger

	mu     sync.Mutex
	closed bool
}

// FileOption configures FileSettings.
type FileOption func(*FileSettings)

// WithPollInterval sets how often the settings file is checked.
func WithPollInterval(d time.Duration) FileOption {
	return func(f *FileSettings) {
		f.watcher = watcher.New(watcher.WithInterval(d))
	}
}

// WithLogger sets the diagnostic sink.
func WithLogger(l *diag.Logger) FileOption {
	return func(f *FileSettings) {
		f.log = l
	}
}

// WithEnvMapping maps an extra environment variable onto a key.
func WithEnvMapping(envVar, key string) FileOption {
	return func(f *FileSettings) {
		f.env.AddMapping(envVar, key)
	}
}

// DefaultSettingsPath returns ~/.config/crossbuild/settings.toml, or a
// path relative to the working directory when no home is available.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".crossbuild", "settings.toml")
	}
	return filepath.Join(dir, "crossbuild", "settings.toml")
}

// OpenFile loads settings from path. A missing file yields empty settings
// that fill in once the file appears. Parse errors are logged and leave
// the settings empty.
func OpenFile(path string, opts ...FileOption) (*FileSettings, error) {
	f := &FileSettings{
		values:  NewMapSettings(nil),
		toml:    loader.NewTOMLLoader(path),
		env:     loader.NewEnvLoader(EnvPrefix),
		watcher: watcher.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = diag.OrDefault(f.log).Component("settings")

	f.Reload()

	if err := f.watcher.Watch(path); err != nil {
		return nil, err
	}
	f.watcher.OnChange(func(watcher.Event) { f.Reload() })
	f.watcher.Start()

	return f, nil
}

// Path returns the settings file.
func (f *FileSettings) Path() string {
	return f.toml.Path()
}

// Get returns the value for key.
func (f *FileSettings) Get(key string) (string, bool) {
	return f.values.Get(key)
}

// OnChange registers fn to receive the keys that changed.
func (f *FileSettings) OnChange(fn func(keys []string)) *notify.Subscription {
	return f.values.OnChange(fn)
}

// Reload re-reads the file and notifies about changed keys.
func (f *FileSettings) Reload() {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	values, err := f.toml.Load()
	if err != nil {
		f.log.Warn("settings not reloaded: %v", err)
		return
	}
	f.values.Replace(f.env.Overlay(values))
}

// Close stops watching the settings file.
func (f *FileSettings) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.watcher.Stop()
	return nil
}

var _ Settings = (*FileSettings)(nil)
