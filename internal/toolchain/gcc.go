package toolchain

import (
	"path/filepath"
	"strings"
	"sync"
)

// gccVariant is the per-family data of the GCC-compatible descriptors.
type gccVariant struct {
	name          Name
	kind          Kind
	version       int
	defaultPrefix string
	compiler      string
	targetArgs    []string
	intelliSense  string
	globals       func() Region
	abiArgs       func(global Region) []string
}

var gccVariants = map[Name]gccVariant{
	GCC: {
		name: GCC, kind: KindARM, version: 5,
		defaultPrefix: "arm-none-eabi-", compiler: "gcc", intelliSense: "gcc-arm",
		globals: func() Region {
			return Region{"output-debug-info": "enable", "floating-point-hardware": "none", "misc-control": "--specs=nosys.specs"}
		},
		abiArgs: armFloatArgs,
	},
	LLVMARM: {
		name: LLVMARM, kind: KindARM, version: 1,
		compiler: "clang", targetArgs: []string{"--target=arm-none-eabi"}, intelliSense: "clang-arm",
		globals: func() Region {
			return Region{"output-debug-info": "enable", "floating-point-hardware": "none", "misc-control": ""}
		},
		abiArgs: armFloatArgs,
	},
	RISCVGCC: {
		name: RISCVGCC, kind: KindRISCV, version: 3,
		defaultPrefix: "riscv-none-embed-", compiler: "gcc", intelliSense: "gcc-x64",
		globals: func() Region {
			return Region{"output-debug-info": "enable", "arch": "rv32imac", "abi": "ilp32", "misc-control": ""}
		},
		abiArgs: riscvArgs,
	},
	MIPSGCC: {
		name: MIPSGCC, kind: KindMIPS, version: 2,
		defaultPrefix: "mips-mti-elf-", compiler: "gcc", intelliSense: "gcc-x64",
		globals: func() Region {
			return Region{"output-debug-info": "enable", "arch": "mips32r2", "floating-point-hardware": "none", "misc-control": ""}
		},
		abiArgs: mipsArgs,
	},
	AnyGCC: {
		name: AnyGCC, kind: KindAnyGCC, version: 2,
		compiler: "gcc", intelliSense: "gcc-x64",
		globals: func() Region {
			return Region{"output-debug-info": "enable", "misc-control": ""}
		},
		abiArgs: func(Region) []string { return nil },
	},
}

// isGCCFamily reports whether a toolchain takes GCC-style linker flags.
func isGCCFamily(name Name) bool {
	_, ok := gccVariants[name]
	return ok
}

func armFloatArgs(g Region) []string {
	switch g.String("floating-point-hardware") {
	case "single":
		return []string{"-mfloat-abi=hard", "-mfpu=fpv4-sp-d16"}
	case "double":
		return []string{"-mfloat-abi=hard", "-mfpu=fpv5-d16"}
	default:
		return []string{"-mfloat-abi=soft"}
	}
}

func riscvArgs(g Region) []string {
	var args []string
	if arch := g.String("arch"); arch != "" {
		args = append(args, "-march="+arch)
	}
	if abi := g.String("abi"); abi != "" {
		args = append(args, "-mabi="+abi)
	}
	return args
}

func mipsArgs(g Region) []string {
	var args []string
	if arch := g.String("arch"); arch != "" {
		args = append(args, "-march="+arch)
	}
	switch g.String("floating-point-hardware") {
	case "single":
		args = append(args, "-msingle-float")
	case "double":
		args = append(args, "-mhard-float")
	default:
		args = append(args, "-msoft-float")
	}
	return args
}

// gccFamily implements every GCC-compatible toolchain. Macro dumps are
// cached per argument list for the lifetime of the descriptor.
type gccFamily struct {
	base
	variant gccVariant

	mu     sync.Mutex
	macros map[string][]string
}

func gccFactory(name Name) Factory {
	return func(env Env) Descriptor {
		v := gccVariants[name]
		return &gccFamily{
			base:    newBase(env, v.name, v.kind, v.version, "bin"),
			variant: v,
			macros:  make(map[string][]string),
		}
	}
}

func (g *gccFamily) toolPrefix() string {
	if g.prefix != "" {
		return g.prefix
	}
	return g.variant.defaultPrefix
}

func (g *gccFamily) compilerPath() string {
	return g.executable(g.toolPrefix() + g.variant.compiler)
}

func (g *gccFamily) SystemIncludePaths(*OptionDocument) []string {
	triple := strings.TrimSuffix(g.toolPrefix(), "-")
	if triple == "" {
		return g.underInstall("include")
	}
	return g.underInstall(filepath.ToSlash(filepath.Join(triple, "include")))
}

func (g *gccFamily) DefaultIncludePaths() []string {
	return nil
}

func (g *gccFamily) LibraryDirs() []string {
	triple := strings.TrimSuffix(g.toolPrefix(), "-")
	if triple == "" {
		return g.underInstall("lib")
	}
	return g.underInstall(triple + "/lib")
}

func (g *gccFamily) FactoryDefaults() OptionDocument {
	return g.newDoc(
		g.variant.globals(),
		Region{"optimization": "level-debug", "language-c": "c11", "language-cpp": "c++11", "C_FLAGS": "", "CXX_FLAGS": ""},
		Region{"ASM_FLAGS": ""},
		Region{"output-format": "elf", "LD_FLAGS": "", "LIB_FLAGS": ""},
	)
}

func (g *gccFamily) analysisArgs(doc *OptionDocument) []string {
	args := append([]string(nil), g.variant.targetArgs...)
	if doc == nil {
		return args
	}
	return append(args, g.variant.abiArgs(doc.Region(RegionGlobal))...)
}

func (g *gccFamily) PredefinedMacros(doc *OptionDocument) []string {
	args := []string{"-E", "-dM", "-x", "c"}
	args = append(args, g.analysisArgs(doc)...)
	args = append(args, "-")

	key := strings.Join(args, "\x00")
	g.mu.Lock()
	cached, ok := g.macros[key]
	g.mu.Unlock()
	if ok {
		return append([]string(nil), cached...)
	}

	macros := g.introspect(g.compilerPath(), args)
	if len(macros) > 0 {
		g.mu.Lock()
		g.macros[key] = macros
		g.mu.Unlock()
	}
	return append([]string{}, macros...)
}

func (g *gccFamily) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	cc := doc.Region(RegionCompiler)
	if flag := optimizationFlag(cc.String("optimization")); flag != "" {
		cc["$optimization"] = flag
	} else {
		delete(cc, "$optimization")
	}

	global := doc.Region(RegionGlobal)
	if args := g.variant.abiArgs(global); len(args) > 0 {
		global["$analysis-args"] = args
	} else {
		delete(global, "$analysis-args")
	}
	return nil
}

func (g *gccFamily) ProjectAnalysisConfig(doc *OptionDocument, cfg *AnalysisConfig) {
	cfg.CompilerPath = g.compilerPath()
	cfg.IntelliSenseMode = g.variant.intelliSense
	cfg.CStandard = "c11"
	cfg.CppStandard = "c++11"
	cfg.CompilerArgs = append(cfg.CompilerArgs, g.analysisArgs(doc)...)
	if doc == nil {
		return
	}
	cc := doc.Region(RegionCompiler)
	cfg.CStandard = orDefault(cc.String("language-c"), cfg.CStandard)
	cfg.CppStandard = orDefault(cc.String("language-cpp"), cfg.CppStandard)
	cfg.CArgs = append(cfg.CArgs, cc.Strings("C_FLAGS")...)
	cfg.CppArgs = append(cfg.CppArgs, cc.Strings("CXX_FLAGS")...)
}

func (g *gccFamily) MapFileReport(path string) ([]string, error) {
	return MapReport(path)
}

var _ MapReporter = (*gccFamily)(nil)
