package app

import (
	"io"
	"sync"
	"time"

	"github.com/dshills/crossbuild/internal/config"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/fswatch"
	"github.com/dshills/crossbuild/internal/project"
	"github.com/dshills/crossbuild/internal/toolchain"
)

// Application owns the settings, the toolchain registry and the open
// project.
type Application struct {
	mu sync.Mutex

	log      *diag.Logger
	settings config.Settings
	closer   io.Closer
	registry *toolchain.Registry
	project  *project.Configuration

	warnings []*toolchain.FallbackWarning
	closed   bool

	opts Options
}

// Options configures the application.
type Options struct {
	// SettingsPath is the TOML settings file. Ignored when Settings is set.
	SettingsPath string

	// Settings replaces the settings file.
	Settings config.Settings

	// SettingsPollInterval is how often the settings file is checked.
	SettingsPollInterval time.Duration

	// Root is the project directory. No project is opened when empty.
	Root string

	// Kind is the project kind used when the project is created.
	Kind toolchain.Kind

	// Name is the project name used when the project is created.
	Name string

	// Watch reloads the project document when it changes on disk.
	Watch bool

	// WatchFactory creates file watchers for the project document.
	WatchFactory fswatch.Factory

	// Runner executes compilers for macro introspection.
	Runner toolchain.CommandRunner

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogOutput receives diagnostics. Defaults to stderr.
	LogOutput io.Writer

	// Logger replaces the logger built from LogLevel and LogOutput.
	Logger *diag.Logger
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *diag.Logger {
	return app.log
}

// Settings returns the settings store.
func (app *Application) Settings() config.Settings {
	return app.settings
}

// Registry returns the toolchain registry.
func (app *Application) Registry() *toolchain.Registry {
	return app.registry
}

// Project returns the open project.
func (app *Application) Project() (*project.Configuration, error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return nil, ErrClosed
	}
	if app.project == nil {
		return nil, ErrNoProject
	}
	return app.project, nil
}

// Warnings returns the toolchain fallbacks seen so far.
func (app *Application) Warnings() []*toolchain.FallbackWarning {
	app.mu.Lock()
	defer app.mu.Unlock()
	return append([]*toolchain.FallbackWarning(nil), app.warnings...)
}

func (app *Application) warn(w *toolchain.FallbackWarning) {
	app.mu.Lock()
	app.warnings = append(app.warnings, w)
	app.mu.Unlock()
}

// Close stops watchers and releases every component. It does not save
// the project.
func (app *Application) Close() error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	app.mu.Unlock()

	var errs ErrorList
	if app.project != nil {
		errs.Add(app.project.Close())
	}
	if app.registry != nil {
		app.registry.Close()
	}
	if app.closer != nil {
		errs.Add(app.closer.Close())
	}
	return errs.AsError()
}
