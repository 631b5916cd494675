package toolchain

import "strings"

type iarSTM8 struct {
	base
}

func newIARSTM8(env Env) Descriptor {
	return &iarSTM8{base: newBase(env, IARSTM8, KindC51, 2, "stm8/bin")}
}

func (i *iarSTM8) DefaultIncludePaths() []string {
	return i.underInstall("stm8/inc", "stm8/inc/c")
}

func (i *iarSTM8) SystemIncludePaths(*OptionDocument) []string {
	return i.underInstall("stm8/inc", "stm8/inc/c")
}

func (i *iarSTM8) LibraryDirs() []string {
	return i.underInstall("stm8/lib")
}

func (i *iarSTM8) FactoryDefaults() OptionDocument {
	return i.newDoc(
		Region{"code-mode": "small", "data-mode": "medium"},
		Region{"optimization": "medium", "optimization-target": "balanced", "c-flags": ""},
		Region{},
		Region{"output-format": "elf", "ld-flags": ""},
	)
}

func (i *iarSTM8) PredefinedMacros(doc *OptionDocument) []string {
	g := Region{}
	if doc != nil {
		g = doc.Region(RegionGlobal)
	}
	return []string{
		"__ICCSTM8__=1",
		"__IAR_SYSTEMS_ICC__=9",
		"__CODE_MODEL__=__" + strings.ToUpper(orDefault(g.String("code-mode"), "small")) + "_CODE_MODEL__",
		"__DATA_MODEL__=__" + strings.ToUpper(orDefault(g.String("data-mode"), "medium")) + "_DATA_MODEL__",
	}
}

func (i *iarSTM8) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	setIAROptimization(doc)
	return nil
}

func (i *iarSTM8) ProjectAnalysisConfig(_ *OptionDocument, cfg *AnalysisConfig) {
	cfg.CStandard = "c99"
	cfg.CppStandard = "c++14"
	cfg.IntelliSenseMode = "clang-x86"
}

// setIAROptimization combines the two-part IAR optimization setting into
// one -O flag.
func setIAROptimization(doc *OptionDocument) {
	cc := doc.Region(RegionCompiler)
	cc["$optimization"] = iarOptimizationFlag(cc.String("optimization"), cc.String("optimization-target"))
}

func iarOptimizationFlag(level, target string) string {
	switch level {
	case "none":
		return "-On"
	case "low":
		return "-Ol"
	case "high":
		switch target {
		case "speed":
			return "-Ohs"
		case "size":
			return "-Ohz"
		default:
			return "-Oh"
		}
	default:
		return "-Om"
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type cosmicSTM8 struct {
	base
}

func newCosmicSTM8(env Env) Descriptor {
	return &cosmicSTM8{base: newBase(env, CosmicSTM8, KindC51, 1, "")}
}

func (c *cosmicSTM8) DefaultIncludePaths() []string {
	return c.underInstall("Hstm8")
}

func (c *cosmicSTM8) SystemIncludePaths(*OptionDocument) []string {
	return c.underInstall("Hstm8")
}

func (c *cosmicSTM8) LibraryDirs() []string {
	return c.underInstall("Lib")
}

func (c *cosmicSTM8) FactoryDefaults() OptionDocument {
	return c.newDoc(
		Region{"model": "mods0", "output-debug-info": true},
		Region{"optimization": "size", "c-flags": ""},
		Region{},
		Region{"output-format": "elf", "ld-flags": ""},
	)
}

func (c *cosmicSTM8) PredefinedMacros(*OptionDocument) []string {
	return []string{"__CSMC__=1"}
}

// cosmicLibs returns the runtime libraries matching a memory model.
func cosmicLibs(model string) []string {
	switch model {
	case "modsl0":
		return []string{"libisl0.sm8", "libm0.sm8"}
	case "mods":
		return []string{"libis.sm8", "libm.sm8"}
	case "modsl":
		return []string{"libisl.sm8", "libm.sm8"}
	default:
		return []string{"libis0.sm8", "libm0.sm8"}
	}
}

func (c *cosmicSTM8) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	doc.Region(RegionLinker)["$libs"] = cosmicLibs(doc.Region(RegionGlobal).String("model"))
	return nil
}

func (c *cosmicSTM8) ProjectAnalysisConfig(_ *OptionDocument, cfg *AnalysisConfig) {
	cfg.CStandard = "c99"
	cfg.IntelliSenseMode = "clang-x86"
}
