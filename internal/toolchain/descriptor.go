package toolchain

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/dshills/crossbuild/internal/config"
	"github.com/dshills/crossbuild/internal/diag"
)

// SettingTemplatesDir is the settings key of the directory holding
// placeholder artifacts and forced-include headers.
const SettingTemplatesDir = "templates.dir"

// Env is what a descriptor needs from its host.
type Env struct {
	// Settings supplies installation directories and tool prefixes.
	Settings config.Settings

	// Runner invokes compilers for macro introspection.
	Runner CommandRunner

	// Logger receives best-effort failures.
	Logger *diag.Logger
}

func (e Env) setting(key string) string {
	return strings.TrimSpace(config.GetString(e.Settings, key, ""))
}

// ProjectInfo identifies the project being built.
type ProjectInfo struct {
	// RootDir is the absolute project root.
	RootDir string
	// OutDir is the build output directory, absolute or root-relative.
	OutDir string
	// Name is the project name.
	Name string
	// TargetName is the active build target.
	TargetName string
}

// OutputDir returns the absolute output directory.
func (p ProjectInfo) OutputDir() string {
	if filepath.IsAbs(p.OutDir) {
		return filepath.Clean(p.OutDir)
	}
	return filepath.Join(p.RootDir, p.OutDir)
}

// AnalysisConfig is the code-model projection consumed by IDE tooling.
type AnalysisConfig struct {
	Name             string   `json:"name"`
	IncludePaths     []string `json:"includePath"`
	Defines          []string `json:"defines"`
	CompilerPath     string   `json:"compilerPath,omitempty"`
	CompilerArgs     []string `json:"compilerArgs,omitempty"`
	CArgs            []string `json:"cCompilerArgs,omitempty"`
	CppArgs          []string `json:"cppCompilerArgs,omitempty"`
	ForcedIncludes   []string `json:"forcedInclude,omitempty"`
	CStandard        string   `json:"cStandard,omitempty"`
	CppStandard      string   `json:"cppStandard,omitempty"`
	IntelliSenseMode string   `json:"intelliSenseMode,omitempty"`
}

// Descriptor is the uniform contract every compiler family implements.
type Descriptor interface {
	// Name identifies the family.
	Name() Name

	// Category is the project kind the family belongs to.
	Category() Kind

	// Version is the current option document schema version.
	Version() int

	// SettingsKey is the prefix of the family's settings keys.
	SettingsKey() string

	// InstallDir is the installation root from settings, or "".
	InstallDir() string

	// BinDir is the directory holding the executables, or "".
	BinDir() string

	// SystemIncludePaths lists the family's system headers. They are
	// informational and never passed to the compiler.
	SystemIncludePaths(doc *OptionDocument) []string

	// DefaultIncludePaths lists the compiler's search paths.
	DefaultIncludePaths() []string

	// LibraryDirs lists library search directories.
	LibraryDirs() []string

	// ForcedIncludeHeaders lists headers prepended for analysis only. Nil
	// means the family has none.
	ForcedIncludeHeaders() []string

	// PredefinedMacros returns "NAME=VALUE" expressions. Introspection
	// failures yield an empty list.
	PredefinedMacros(doc *OptionDocument) []string

	// CustomMacros returns macros appended regardless of introspection.
	CustomMacros() []string

	// NormalizeOptions fills derived fields before a build. File system
	// side-effect failures are returned.
	NormalizeOptions(info ProjectInfo, doc *OptionDocument) error

	// ProjectAnalysisConfig fills the family's part of cfg. It never fails.
	ProjectAnalysisConfig(doc *OptionDocument, cfg *AnalysisConfig)

	// FactoryDefaults returns the seed option document.
	FactoryDefaults() OptionDocument
}

// MapReporter is implemented by families that can summarize a linker map.
type MapReporter interface {
	MapFileReport(path string) ([]string, error)
}

// base carries the identity and settings snapshot shared by all families.
// Settings are read once at construction; the registry rebuilds the
// descriptor when they change.
type base struct {
	env      Env
	log      *diag.Logger
	name     Name
	kind     Kind
	version  int
	binSub   string
	install  string
	prefix   string
	template string
	macros   []string
}

func newBase(env Env, name Name, kind Kind, version int, binSub string) base {
	b := base{
		env:     env,
		log:     diag.OrDefault(env.Logger).Component("toolchain").With("name", string(name)),
		name:    name,
		kind:    kind,
		version: version,
		binSub:  binSub,
	}
	key := SettingsKeyFor(name)
	if dir := env.setting(key + ".installDir"); dir != "" {
		b.install = filepath.Clean(dir)
	}
	b.prefix = env.setting(key + ".prefix")
	b.macros = config.GetList(env.Settings, key+".macros")
	if dir := env.setting(SettingTemplatesDir); dir != "" {
		b.template = filepath.Clean(dir)
	}
	return b
}

// SettingsKeyFor returns the settings key prefix of a toolchain.
func SettingsKeyFor(name Name) string {
	return "toolchains." + strings.ToLower(string(name))
}

func (b *base) Name() Name          { return b.name }
func (b *base) Category() Kind      { return b.kind }
func (b *base) Version() int        { return b.version }
func (b *base) SettingsKey() string { return SettingsKeyFor(b.name) }
func (b *base) InstallDir() string  { return b.install }

func (b *base) BinDir() string {
	if b.install == "" {
		return ""
	}
	return filepath.Join(b.install, b.binSub)
}

func (b *base) SystemIncludePaths(*OptionDocument) []string {
	return b.underInstall("include")
}

func (b *base) DefaultIncludePaths() []string {
	return b.underInstall("include")
}

func (b *base) LibraryDirs() []string {
	return b.underInstall("lib")
}

func (b *base) ForcedIncludeHeaders() []string { return nil }

func (b *base) CustomMacros() []string { return slices.Clone(b.macros) }

func (b *base) NormalizeOptions(ProjectInfo, *OptionDocument) error { return nil }

// underInstall joins each rel onto the installation root. It returns nil
// when the family is not installed.
func (b *base) underInstall(rel ...string) []string {
	if b.install == "" {
		return nil
	}
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		out = append(out, filepath.Join(b.install, filepath.FromSlash(r)))
	}
	return out
}

// executable returns the path of a program in BinDir, or the bare program
// name when the family is not installed.
func (b *base) executable(program string) string {
	if dir := b.BinDir(); dir != "" {
		return filepath.Join(dir, program)
	}
	return program
}

// introspect runs the compiler and parses its macro dump.
func (b *base) introspect(program string, args []string) []string {
	if b.env.Runner == nil {
		return []string{}
	}
	out, err := b.env.Runner.Run(program, args, nil)
	if err != nil {
		b.log.Debug("macro introspection failed: %v", err)
		return []string{}
	}
	macros := ParseMacroDump(out)
	if macros == nil {
		return []string{}
	}
	return macros
}

// newDoc builds a factory document at the family's version.
func (b *base) newDoc(global, compiler, asm, linker Region) OptionDocument {
	doc := OptionDocument{
		Version:   b.version,
		Global:    global,
		Compiler:  compiler,
		Assembler: asm,
		Linker:    linker,
	}
	doc.ensureRegions()
	return doc
}

// optimizationFlag maps the common "level-N" vocabulary onto -ON flags.
func optimizationFlag(level string) string {
	switch level {
	case "level-0":
		return "-O0"
	case "level-1":
		return "-O1"
	case "level-2":
		return "-O2"
	case "level-3":
		return "-O3"
	case "level-size":
		return "-Os"
	case "level-debug":
		return "-Og"
	case "level-fast":
		return "-Ofast"
	case "level-image-size":
		return "-Oz"
	default:
		return ""
	}
}
