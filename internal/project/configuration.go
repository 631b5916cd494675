package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/dshills/crossbuild/internal/config/notify"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/fswatch"
	"github.com/dshills/crossbuild/internal/store"
	"github.com/dshills/crossbuild/internal/toolchain"
)

// Events raised on Events() besides the store's dataChanged and
// fileChanged.
const (
	EventProjectFileChanged = "projectFileChanged"
	EventTargetChanged      = "targetChanged"
	EventToolchainChanged   = "toolchainChanged"
	EventUploaderChanged    = "uploaderChanged"
)

// Options configures a Configuration.
type Options struct {
	// Root is the project root directory.
	Root string

	// Kind is used when the document is created or lacks a type.
	Kind toolchain.Kind

	// Name is used when the document is created. Defaults to the root's
	// base name.
	Name string

	// Registry resolves toolchains. Required.
	Registry *toolchain.Registry

	// Logger is the diagnostic sink.
	Logger *diag.Logger

	// Watch, SettleDelay and ChangeDelay are passed to the store.
	Watch       fswatch.Factory
	SettleDelay time.Duration
	ChangeDelay time.Duration
}

// Configuration is a loaded project document.
type Configuration struct {
	paths Paths
	name  string
	kind  toolchain.Kind
	reg   *toolchain.Registry
	log   *diag.Logger

	store   *store.Store[ProjectConfigData]
	events  *notify.Notifier
	fileSub *notify.Subscription

	mu      sync.Mutex
	compile *Model
	upload  *Model
}

// Open loads the project at opts.Root, creating the document when it does
// not exist.
func Open(opts Options) (*Configuration, error) {
	if opts.Registry == nil {
		return nil, errors.New("project: registry is required")
	}

	c := &Configuration{
		paths:  NewPaths(opts.Root),
		name:   opts.Name,
		kind:   opts.Kind,
		reg:    opts.Registry,
		log:    diag.OrDefault(opts.Logger).Component("project"),
		events: notify.New(),
	}
	if c.name == "" {
		c.name = filepath.Base(c.paths.Root())
	}

	c.store = store.New(store.Options[ProjectConfigData]{
		Path:        filepath.Join(c.paths.Root(), MetaDir, ProjectFileName),
		Kind:        string(opts.Kind),
		Defaults:    c.defaults,
		AfterLoad:   c.afterLoad,
		Encode:      c.encode,
		SettleDelay: opts.SettleDelay,
		ChangeDelay: opts.ChangeDelay,
		Watch:       opts.Watch,
		Notifier:    c.events,
		Logger:      opts.Logger,
	})
	c.fileSub = c.events.SubscribeName(store.EventFileChanged, func(notify.Event) {
		c.fileChanged()
	})

	if err := c.store.Load(); err != nil {
		c.events.Close()
		return nil, err
	}

	doc := c.store.Doc()
	c.compile = newModel(string(doc.Toolchain))
	c.upload = newModel(doc.Uploader)
	WriteUserContext(c.paths.Root(), UserContext{Target: doc.Mode}, c.log)
	return c, nil
}

// Root returns the absolute project root.
func (c *Configuration) Root() string { return c.paths.Root() }

// Paths returns the root-relative path policy.
func (c *Configuration) Paths() Paths { return c.paths }

// FilePath returns the project document path.
func (c *Configuration) FilePath() string { return c.store.Path() }

// Data returns the in-memory document.
func (c *Configuration) Data() *ProjectConfigData { return c.store.Doc() }

// Events returns the notifier carrying document and project events.
func (c *Configuration) Events() *notify.Notifier { return c.events }

// CompileModel returns the live model of the active toolchain.
func (c *Configuration) CompileModel() *Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compile
}

// UploadModel returns the live model of the active uploader.
func (c *Configuration) UploadModel() *Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upload
}

// swapModels replaces the compile and upload models whose names no longer
// match the document.
func (c *Configuration) swapModels(toolchainName, uploader string) {
	var swapped []*Model
	c.mu.Lock()
	if c.compile != nil && c.compile.Name() != toolchainName {
		c.compile = c.compile.replace(toolchainName)
		swapped = append(swapped, c.compile)
	}
	if c.upload != nil && c.upload.Name() != uploader {
		c.upload = c.upload.replace(uploader)
		swapped = append(swapped, c.upload)
	}
	c.mu.Unlock()

	for _, m := range swapped {
		m.changed(ModelReplaced)
	}
}

// Descriptor returns the descriptor of the active toolchain.
func (c *Configuration) Descriptor() (toolchain.Descriptor, bool) {
	doc := c.store.Doc()
	if doc == nil {
		return nil, false
	}
	return c.reg.ByName(doc.Toolchain)
}

// Save writes the document.
func (c *Configuration) Save() error { return c.store.Save(false) }

// Watch reloads the document when the file changes on disk.
func (c *Configuration) Watch() error { return c.store.Watch() }

// Close stops watching and releases listeners.
func (c *Configuration) Close() error {
	err := c.store.Close()
	c.fileSub.Unsubscribe()
	c.mu.Lock()
	c.compile.close()
	c.upload.close()
	c.mu.Unlock()
	c.events.Close()
	return err
}

func (c *Configuration) defaults(kind string) (ProjectConfigData, error) {
	d, err := c.reg.Resolve(toolchain.Kind(kind), toolchain.None)
	if err != nil {
		return ProjectConfigData{}, err
	}
	doc, err := NewDocument(c.name, toolchain.Kind(kind), d)
	if err != nil {
		return ProjectConfigData{}, err
	}
	c.adopt(&doc, d, emptyDependence(CustomDepName))
	return doc, nil
}

// afterLoad brings a document read from disk into its in-memory shape.
func (c *Configuration) afterLoad(doc *ProjectConfigData, raw store.Raw) error {
	if doc.Targets == nil {
		doc.Targets = map[string]ProjectTargetInfo{}
	}
	custom, err := c.unpackActive(doc, raw)
	if err != nil {
		return err
	}

	kind := doc.Type
	if kind == "" {
		kind = c.kind
	}
	d, err := c.reg.Resolve(kind, doc.Toolchain)
	if err != nil {
		return err
	}
	def, err := NewDocument(c.name, kind, d)
	if err != nil {
		return err
	}
	for key, fill := range backfill {
		if !raw.Has(key) && !isTargetSpecific(key) {
			fill(doc, &def)
		}
	}
	doc.Type = kind
	doc.Toolchain = d.Name()

	if hasOptions(doc.CompileConfig.Options) {
		c.reg.MigrateOptions(&doc.CompileConfig.Options, d)
	} else {
		doc.CompileConfig.Options = d.FactoryDefaults()
	}
	for name, t := range doc.Targets {
		td, ok := c.reg.ByName(t.Toolchain)
		if !ok {
			continue
		}
		if !hasOptions(t.CompileConfig.Options) {
			t.CompileConfig.Options = td.FactoryDefaults()
			doc.Targets[name] = t
		} else if c.reg.MigrateOptions(&t.CompileConfig.Options, td) {
			doc.Targets[name] = t
		}
	}

	if doc.Uploader == "" {
		doc.Uploader = def.Uploader
	}
	if doc.UploadConfig == nil {
		doc.UploadConfig, _ = DefaultUploadConfig(doc.Uploader)
		if doc.UploadConfig == nil {
			doc.UploadConfig = UploadConfig{}
		}
	}
	if doc.UploadConfigMap == nil {
		doc.UploadConfigMap = map[string]UploadConfig{}
	}
	doc.ExcludeList = orEmpty(doc.ExcludeList)
	doc.SrcDirs = orEmpty(doc.SrcDirs)
	if doc.Version < SchemaVersion {
		doc.Version = SchemaVersion
	}

	c.adopt(doc, d, custom)
	return nil
}

func hasOptions(o toolchain.OptionDocument) bool {
	return o.Version > 0 || o.Global != nil || o.Compiler != nil || o.Assembler != nil || o.Linker != nil
}

// unpackActive settles which target is active and removes it from the
// catalog. It returns the active target's custom dependence.
//
// Documents written before targets existed carry no mode. Their target is
// recovered from the user context, or from the catalog when it holds a
// single target. A document with neither is already in single-target
// form.
func (c *Configuration) unpackActive(doc *ProjectConfigData, raw store.Raw) (Dependence, error) {
	if raw.Has("mode") && doc.Mode != "" {
		custom := emptyDependence(CustomDepName)
		if info, ok := doc.Targets[doc.Mode]; ok {
			custom = info.CustomDep
			delete(doc.Targets, doc.Mode)
		}
		return custom, nil
	}

	if len(doc.Targets) == 0 {
		doc.Mode = DefaultTargetName
		return emptyDependence(CustomDepName), nil
	}

	name := ReadUserContext(c.paths.Root(), c.log).Target
	if name == "" && len(doc.Targets) == 1 {
		for n := range doc.Targets {
			name = n
		}
	}
	if name == "" {
		doc.Mode = uniqueTargetName(doc.Targets, DefaultTargetName)
		return emptyDependence(CustomDepName), nil
	}

	info, ok := doc.Targets[name]
	if !ok {
		return Dependence{}, &TargetError{Target: name, Err: ErrUnknownTarget}
	}
	c.log.Info("recovered active target %q", name)
	doc.Mode = name
	if info.Toolchain == "" {
		info.Toolchain = doc.Toolchain
	}
	if info.Uploader == "" {
		info.Uploader, info.UploadConfig = doc.Uploader, doc.UploadConfig
	}
	doc.unpack(info)
	delete(doc.Targets, name)
	return info.CustomDep, nil
}

func uniqueTargetName(targets map[string]ProjectTargetInfo, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := targets[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

// adopt converts document paths to absolute form and rebuilds the reserved
// dependence groups.
func (c *Configuration) adopt(doc *ProjectConfigData, d toolchain.Descriptor, custom Dependence) {
	abs := c.paths.ToAbsolute
	doc.ExcludeList = c.paths.absList(doc.ExcludeList)
	doc.SrcDirs = c.paths.absList(doc.SrcDirs)
	doc.OutDir = abs(doc.OutDir)
	doc.VirtualFolder = c.paths.virtualFolder(doc.VirtualFolder, abs)
	for i, g := range doc.DependenceList {
		for j, dep := range g.DepList {
			doc.DependenceList[i].DepList[j] = c.paths.dependence(dep, abs)
		}
	}
	for name, t := range doc.Targets {
		doc.Targets[name] = c.paths.target(t, abs)
	}
	doc.DependenceList = withReservedGroups(doc.DependenceList, d, c.paths.dependence(custom, abs))
}

// encode produces the on-disk form: root-relative paths, no reserved
// groups, and only the custom dependence in the active target's slot.
func (c *Configuration) encode(doc *ProjectConfigData) ([]byte, error) {
	rel := c.paths.ToRelative
	out := *doc
	out.ExcludeList = c.paths.relList(doc.ExcludeList)
	out.SrcDirs = c.paths.relList(doc.SrcDirs)
	out.OutDir = rel(doc.OutDir)
	out.VirtualFolder = c.paths.virtualFolder(doc.VirtualFolder, rel)

	groups := persistedGroups(doc.DependenceList)
	out.DependenceList = make([]DependenceGroup, len(groups))
	for i, g := range groups {
		deps := make([]Dependence, len(g.DepList))
		for j, dep := range g.DepList {
			deps[j] = c.paths.dependence(dep, rel)
		}
		out.DependenceList[i] = DependenceGroup{GroupName: g.GroupName, DepList: deps}
	}

	out.Targets = make(map[string]ProjectTargetInfo, len(doc.Targets))
	for name, t := range doc.Targets {
		if name != doc.Mode {
			out.Targets[name] = c.paths.target(t, rel)
		}
	}

	data, err := json.Marshal(&out)
	if err != nil {
		return nil, err
	}
	slot, err := json.Marshal(map[string]Dependence{
		"custom_dep": c.paths.dependence(doc.CustomDep(), rel),
	})
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(data, "targets."+store.EscapeKey(doc.Mode), slot)
}

func (c *Configuration) fileChanged() {
	doc := c.store.Doc()
	if doc == nil {
		return
	}
	c.swapModels(string(doc.Toolchain), doc.Uploader)
	c.events.Notify(EventProjectFileChanged, c.store.Path())
}

// Targets returns every target name, sorted.
func (c *Configuration) Targets() []string {
	return c.store.Doc().TargetNames()
}

// SwitchTarget makes name the active target. The current target is frozen
// into the catalog; name is restored from the catalog or created from the
// active toolchain's factory defaults.
func (c *Configuration) SwitchTarget(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return &TargetError{Target: name, Err: ErrInvalidTargetName}
	}
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	if name == doc.Mode {
		return nil
	}

	next := *doc
	next.Targets = make(map[string]ProjectTargetInfo, len(doc.Targets)+1)
	for n, t := range doc.Targets {
		next.Targets[n] = t
	}
	next.Targets[doc.Mode] = doc.snapshot()

	info, ok := next.Targets[name]
	if ok {
		delete(next.Targets, name)
	} else {
		info = c.newTarget(doc)
	}

	d, err := c.reg.Resolve(doc.Type, info.Toolchain)
	if err != nil {
		return err
	}
	info.Toolchain = d.Name()
	next.Mode = name
	next.unpack(info)
	next.DependenceList = withReservedGroups(doc.DependenceList, d, info.CustomDep)

	c.store.BeginMerge()
	c.store.Replace(next, "mode", name)
	c.events.Notify(EventTargetChanged, name)
	c.swapModels(string(next.Toolchain), next.Uploader)
	c.store.EndMerge()

	WriteUserContext(c.paths.Root(), UserContext{Target: name}, c.log)
	return nil
}

// newTarget synthesizes a target that keeps the active toolchain and
// uploader with their defaults.
func (c *Configuration) newTarget(doc *ProjectConfigData) ProjectTargetInfo {
	options := doc.CompileConfig.Options.Clone()
	if d, ok := c.reg.ByName(doc.Toolchain); ok {
		options = d.FactoryDefaults()
	}
	upload, ok := DefaultUploadConfig(doc.Uploader)
	if !ok {
		upload = doc.UploadConfig.Clone()
	}
	return ProjectTargetInfo{
		ExcludeList: []string{},
		Toolchain:   doc.Toolchain,
		CompileConfig: CompileConfig{
			CPUType:    doc.CompileConfig.CPUType,
			DeviceName: doc.CompileConfig.DeviceName,
			Options:    options,
		},
		Uploader:        doc.Uploader,
		UploadConfig:    upload,
		UploadConfigMap: map[string]UploadConfig{},
		CustomDep:       emptyDependence(CustomDepName),
	}
}

// DeleteTarget removes a frozen target from the catalog.
func (c *Configuration) DeleteTarget(name string) error {
	doc := c.store.Doc()
	if name == doc.Mode {
		return &TargetError{Target: name, Err: ErrActiveTarget}
	}
	if _, ok := doc.Targets[name]; !ok {
		return &TargetError{Target: name, Err: ErrUnknownTarget}
	}
	return c.store.Update(func(doc *ProjectConfigData) {
		delete(doc.Targets, name)
	}, "targets", name)
}

func (c *Configuration) optionsPath(target string, name toolchain.Name) string {
	return filepath.Join(c.paths.Root(), MetaDir, fmt.Sprintf("%s.%s.options.json", target, name))
}

// SetToolchain changes the active target's toolchain. The outgoing option
// document is parked next to the project file and the incoming one is
// loaded from its parked file, migrated or created as needed.
func (c *Configuration) SetToolchain(name toolchain.Name) error {
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	d, err := c.reg.Resolve(doc.Type, name)
	if err != nil {
		return err
	}
	if d.Name() == doc.Toolchain {
		return nil
	}

	parked := c.optionsPath(doc.Mode, doc.Toolchain)
	data, err := toolchain.MarshalOptions(&doc.CompileConfig.Options)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(parked), 0755)
	}
	if err == nil {
		err = os.WriteFile(parked, data, 0644)
	}
	if err != nil {
		return &PathError{Op: "park", Path: parked, Err: err}
	}

	incoming := c.optionsPath(doc.Mode, d.Name())
	c.reg.MigrateOptionFile(incoming, d)
	options := d.FactoryDefaults()
	if data, err := os.ReadFile(incoming); err != nil {
		c.log.Debug("reading %s: %v", incoming, err)
	} else if parsed, err := toolchain.UnmarshalOptions(data); err != nil {
		c.log.Warn("malformed option file %s: %v", incoming, err)
	} else {
		options = *parsed
	}

	next := *doc
	next.Toolchain = d.Name()
	next.CompileConfig = doc.CompileConfig.Clone()
	next.CompileConfig.Options = options
	next.DependenceList = withReservedGroups(doc.DependenceList, d, doc.CustomDep())

	c.store.BeginMerge()
	c.store.Replace(next, "toolchain", string(d.Name()))
	c.events.Notify(EventToolchainChanged, d.Name())
	c.swapModels(string(d.Name()), next.Uploader)
	c.store.EndMerge()
	return nil
}

// SetUploader changes the active target's uploader. The outgoing
// uploader's configuration is remembered in uploadConfigMap.
func (c *Configuration) SetUploader(name string) error {
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	def, ok := DefaultUploadConfig(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUploader, name)
	}
	if name == doc.Uploader {
		return nil
	}

	next := *doc
	next.UploadConfigMap = cloneConfigMap(doc.UploadConfigMap)
	next.UploadConfigMap[doc.Uploader] = doc.UploadConfig.Clone()
	next.Uploader = name
	next.UploadConfig = def
	if saved, ok := next.UploadConfigMap[name]; ok {
		next.UploadConfig = saved
		delete(next.UploadConfigMap, name)
	}

	c.store.BeginMerge()
	c.store.Replace(next, "uploader", name)
	c.events.Notify(EventUploaderChanged, name)
	c.swapModels(string(next.Toolchain), name)
	c.store.EndMerge()
	return nil
}

// SetOption sets one option of the active option document.
func (c *Configuration) SetOption(region, key string, value any) error {
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	r := doc.CompileConfig.Options.Region(region)
	if r == nil {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	r[key] = value
	c.store.Emit("compileConfig", region+"."+key)
	c.CompileModel().changed(region + "." + key)
	return nil
}

// SetUploadOption sets one key of the active uploader's configuration.
func (c *Configuration) SetUploadOption(key string, value any) error {
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	if doc.UploadConfig == nil {
		doc.UploadConfig = UploadConfig{}
	}
	doc.UploadConfig[key] = value
	c.store.Emit("uploadConfig", key)
	c.UploadModel().changed(key)
	return nil
}

// PrepareBuild returns the active option document normalized for a build.
// The project document itself is not modified.
func (c *Configuration) PrepareBuild() (toolchain.OptionDocument, error) {
	doc := c.store.Doc()
	if doc == nil {
		return toolchain.OptionDocument{}, store.ErrNotLoaded
	}
	d, ok := c.reg.ByName(doc.Toolchain)
	if !ok {
		return toolchain.OptionDocument{}, fmt.Errorf("%w: %q", toolchain.ErrUnknownToolchain, doc.Toolchain)
	}

	options := doc.CompileConfig.Options.Clone()
	info := toolchain.ProjectInfo{
		RootDir:    c.paths.Root(),
		OutDir:     doc.OutDir,
		Name:       doc.Name,
		TargetName: doc.Mode,
	}
	if err := d.NormalizeOptions(info, &options); err != nil {
		return toolchain.OptionDocument{}, fmt.Errorf("normalizing %s options: %w", d.Name(), err)
	}
	return options, nil
}

// AnalysisConfig projects the active target for code-intelligence tools.
func (c *Configuration) AnalysisConfig() toolchain.AnalysisConfig {
	doc := c.store.Doc()
	merged := c.MergedDependence()
	cfg := toolchain.AnalysisConfig{
		Name:         doc.Mode,
		IncludePaths: merged.IncList,
		Defines:      merged.DefineList,
	}

	d, ok := c.reg.ByName(doc.Toolchain)
	if !ok {
		return cfg
	}
	options := doc.CompileConfig.Options.Clone()
	cfg.IncludePaths = dedupe(append(cfg.IncludePaths, d.SystemIncludePaths(&options)...))
	cfg.Defines = dedupe(append(cfg.Defines, d.PredefinedMacros(&options)...))
	cfg.ForcedIncludes = d.ForcedIncludeHeaders()
	d.ProjectAnalysisConfig(&options, &cfg)
	return cfg
}
