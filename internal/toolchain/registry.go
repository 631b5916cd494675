package toolchain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/crossbuild/internal/config/notify"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/store"
)

// EventChanged is raised with the Name of every rebuilt descriptor.
const EventChanged = "changed"

// Factory builds a descriptor from its environment.
type Factory func(env Env) Descriptor

// builtinFactories holds the descriptors every registry starts with.
var builtinFactories = map[Name]Factory{
	KeilC51:    newKeilC51,
	SDCC:       newSDCC,
	IARSTM8:    newIARSTM8,
	CosmicSTM8: newCosmicSTM8,
	AC5:        newAC5,
	AC6:        newAC6,
	GCC:        gccFactory(GCC),
	IARARM:     newIARARM,
	LLVMARM:    gccFactory(LLVMARM),
	RISCVGCC:   gccFactory(RISCVGCC),
	MIPSGCC:    gccFactory(MIPSGCC),
	AnyGCC:     gccFactory(AnyGCC),
}

// Registry owns one live descriptor per toolchain name.
type Registry struct {
	mu        sync.RWMutex
	env       Env
	log       *diag.Logger
	factories map[Name]Factory
	instances map[Name]Descriptor

	events    *notify.Notifier
	settings  *notify.Subscription
	onWarning func(*FallbackWarning)
}

// Option configures a Registry.
type Option func(*Registry)

// WithWarningHandler receives recoverable resolution warnings.
func WithWarningHandler(fn func(*FallbackWarning)) Option {
	return func(r *Registry) {
		r.onWarning = fn
	}
}

// WithLogger sets the diagnostic sink used by the registry and its
// descriptors.
func WithLogger(l *diag.Logger) Option {
	return func(r *Registry) {
		r.env.Logger = l
	}
}

// NewRegistry builds every built-in descriptor and subscribes to settings
// changes.
func NewRegistry(env Env, opts ...Option) *Registry {
	r := &Registry{
		env:       env,
		factories: make(map[Name]Factory, len(builtinFactories)),
		instances: make(map[Name]Descriptor, len(builtinFactories)),
		events:    notify.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env.Runner == nil {
		r.env.Runner = ExecRunner{}
	}
	r.env.Logger = diag.OrDefault(r.env.Logger)
	r.log = r.env.Logger.Component("registry")

	for name, f := range builtinFactories {
		r.Register(name, f)
	}

	if r.env.Settings != nil {
		r.settings = r.env.Settings.OnChange(r.settingsChanged)
	}
	return r
}

// Register adds or replaces the descriptor for name.
func (r *Registry) Register(name Name, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.instances[name] = f(r.env)
	r.mu.Unlock()
}

// ByName returns the live descriptor for name.
func (r *Registry) ByName(name Name) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.instances[name]
	return d, ok
}

// Names returns every registered toolchain, sorted.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.instances))
	for n := range r.instances {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// AllowedNames lists the toolchains selectable for a kind, default first.
func (r *Registry) AllowedNames(kind Kind) []Name {
	return append([]Name(nil), kindToolchains[kind]...)
}

// Describe returns display text for a toolchain, or "" when unknown.
func (r *Registry) Describe(name Name) string {
	return Describe(name)
}

// Resolve picks the descriptor for a project kind. Kinds with a single
// toolchain ignore requested. For other kinds an invalid request falls back
// to the kind's default and reports a FallbackWarning.
func (r *Registry) Resolve(kind Kind, requested Name) (Descriptor, error) {
	allowed, ok := kindToolchains[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjectKind, kind)
	}

	name := allowed[0]
	switch {
	case len(allowed) == 1, requested == None, requested == "":
	case contains(allowed, requested):
		name = requested
	default:
		w := &FallbackWarning{Kind: kind, Requested: requested, Fallback: name}
		r.log.Warn("%v", w)
		if r.onWarning != nil {
			r.onWarning(w)
		}
	}

	d, ok := r.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolchain, name)
	}
	return d, nil
}

func contains(names []Name, n Name) bool {
	for _, x := range names {
		if x == n {
			return true
		}
	}
	return false
}

// ExecutableFolder returns the bin directory of a toolchain as configured
// right now.
func (r *Registry) ExecutableFolder(name Name) (string, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	dir := f(r.env).BinDir()
	return dir, dir != ""
}

// MigrateOptions migrates an in-memory option document.
func (r *Registry) MigrateOptions(doc *OptionDocument, d Descriptor) bool {
	from := doc.Version
	applied, ok := migrate(doc, d)
	if ok {
		r.log.Debug("migrated %s options v%d -> v%d (rules: %s)", d.Name(), from, doc.Version, strings.Join(applied, ","))
	}
	return ok
}

// MigrateOptionFile brings the option file at path up to d's schema. An
// absent file receives d's factory defaults; a current file is left
// untouched. Failures are logged and never returned.
func (r *Registry) MigrateOptionFile(path string, d Descriptor) {
	log := r.log.With("file", path)

	onDisk := -1
	st := store.New(store.Options[OptionDocument]{
		Path: path,
		Kind: string(d.Category()),
		Defaults: func(string) (OptionDocument, error) {
			return d.FactoryDefaults(), nil
		},
		AfterLoad: func(_ *OptionDocument, raw store.Raw) error {
			onDisk = int(raw.Get("version").Int())
			return nil
		},
		Encode:      MarshalOptions,
		KeepUnknown: true,
		Logger:      r.env.Logger,
	})
	defer st.Close()

	if err := st.Load(); err != nil {
		log.Warn("option file migration failed: %v", err)
		return
	}
	if onDisk < 0 || onDisk >= d.Version() {
		return
	}

	if !r.MigrateOptions(st.Doc(), d) {
		return
	}
	if err := st.Save(true); err != nil {
		log.Warn("writing migrated option file: %v", err)
	}
}

// OnChanged subscribes fn to descriptor rebuilds.
func (r *Registry) OnChanged(fn func(Name)) *notify.Subscription {
	return r.events.SubscribeName(EventChanged, func(ev notify.Event) {
		for _, a := range ev.Args {
			if n, ok := a.(Name); ok {
				fn(n)
			}
		}
	})
}

// settingsChanged rebuilds every descriptor whose settings changed.
func (r *Registry) settingsChanged(keys []string) {
	var rebuilt []Name

	r.mu.Lock()
	for name, f := range r.factories {
		if !affects(name, keys) {
			continue
		}
		r.instances[name] = f(r.env)
		rebuilt = append(rebuilt, name)
	}
	r.mu.Unlock()

	if len(rebuilt) == 0 {
		return
	}
	sort.Slice(rebuilt, func(i, j int) bool { return rebuilt[i] < rebuilt[j] })
	r.events.Merge(func() {
		for _, n := range rebuilt {
			r.log.Debug("rebuilt descriptor %s", n)
			r.events.Notify(EventChanged, n)
		}
	})
}

func affects(name Name, keys []string) bool {
	prefix := SettingsKeyFor(name) + "."
	for _, k := range keys {
		if k == SettingTemplatesDir || strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Close detaches the registry from settings.
func (r *Registry) Close() {
	if r.settings != nil {
		r.settings.Unsubscribe()
		r.settings = nil
	}
	r.events.Close()
}

// MapFileReport runs the map report of the toolchain, if it has one.
func (r *Registry) MapFileReport(name Name, path string) ([]string, error) {
	d, ok := r.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolchain, name)
	}
	mr, ok := d.(MapReporter)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrMapUnsupported)
	}
	return mr.MapFileReport(path)
}
