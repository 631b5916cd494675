package app

import (
	"github.com/dshills/crossbuild/internal/config"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/project"
	"github.com/dshills/crossbuild/internal/toolchain"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 4),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initLogger,
		b.initSettings,
		b.initRegistry,
		b.initProject,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

func (b *bootstrapper) initLogger() error {
	log := b.opts.Logger
	if log == nil {
		cfg := diag.DefaultConfig()
		cfg.Level = diag.ParseLevel(b.opts.LogLevel)
		if b.opts.LogOutput != nil {
			cfg.Output = b.opts.LogOutput
		}
		log = diag.New(cfg)
	}
	b.app.log = log
	b.initOrder = append(b.initOrder, "logger")
	return nil
}

// initSettings opens the settings file unless settings were injected.
func (b *bootstrapper) initSettings() error {
	if b.opts.Settings != nil {
		b.app.settings = b.opts.Settings
		b.initOrder = append(b.initOrder, "settings")
		return nil
	}

	path := b.opts.SettingsPath
	if path == "" {
		path = config.DefaultSettingsPath()
	}
	fileOpts := []config.FileOption{config.WithLogger(b.app.log)}
	if b.opts.SettingsPollInterval > 0 {
		fileOpts = append(fileOpts, config.WithPollInterval(b.opts.SettingsPollInterval))
	}
	fs, err := config.OpenFile(path, fileOpts...)
	if err != nil {
		return &InitError{Component: "settings", Err: err}
	}
	b.app.settings = fs
	b.app.closer = fs
	b.initOrder = append(b.initOrder, "settings")
	return nil
}

func (b *bootstrapper) initRegistry() error {
	env := toolchain.Env{
		Settings: b.app.settings,
		Runner:   b.opts.Runner,
		Logger:   b.app.log,
	}
	b.app.registry = toolchain.NewRegistry(env,
		toolchain.WithLogger(b.app.log),
		toolchain.WithWarningHandler(b.app.warn),
	)
	b.initOrder = append(b.initOrder, "registry")
	return nil
}

// initProject opens the project when a root was given.
func (b *bootstrapper) initProject() error {
	if b.opts.Root == "" {
		return nil
	}
	cfg, err := project.Open(project.Options{
		Root:     b.opts.Root,
		Kind:     b.opts.Kind,
		Name:     b.opts.Name,
		Registry: b.app.registry,
		Logger:   b.app.log,
		Watch:    b.opts.WatchFactory,
	})
	if err != nil {
		return &InitError{Component: "project", Err: err}
	}
	b.app.project = cfg
	b.initOrder = append(b.initOrder, "project")

	if b.opts.Watch {
		if err := cfg.Watch(); err != nil {
			return &InitError{Component: "project watcher", Err: err}
		}
	}
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
	b.initOrder = b.initOrder[:0]
}

func (b *bootstrapper) cleanupComponent(name string) {
	switch name {
	case "project":
		if b.app.project != nil {
			_ = b.app.project.Close()
			b.app.project = nil
		}
	case "registry":
		if b.app.registry != nil {
			b.app.registry.Close()
			b.app.registry = nil
		}
	case "settings":
		if b.app.closer != nil {
			_ = b.app.closer.Close()
			b.app.closer = nil
		}
		b.app.settings = nil
	}
}
