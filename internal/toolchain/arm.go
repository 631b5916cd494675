package toolchain

import "strings"

// uvisionVersion is expected by vendor device headers written for Keil
// MDK.
const uvisionVersion = "__UVISION_VERSION=526"

type ac5 struct {
	base
}

func newAC5(env Env) Descriptor {
	return &ac5{base: newBase(env, AC5, KindARM, 4, "bin")}
}

func (a *ac5) DefaultIncludePaths() []string {
	return a.underInstall("include")
}

func (a *ac5) FactoryDefaults() OptionDocument {
	return a.newDoc(
		Region{"use-microLIB": false, "output-debug-info": "enable"},
		Region{"optimization": "level-0", "one-elf-section-per-function": true, "C_FLAGS": "", "CXX_FLAGS": ""},
		Region{"ASM_FLAGS": ""},
		Region{"output-format": "elf", "LD_FLAGS": ""},
	)
}

func (a *ac5) PredefinedMacros(doc *OptionDocument) []string {
	macros := []string{"__CC_ARM=1", "__arm__=1", "__ARMCC_VERSION=5060750"}
	if doc != nil && doc.Region(RegionGlobal).Bool("use-microLIB") {
		macros = append(macros, "__MICROLIB=1")
	}
	return macros
}

func (a *ac5) CustomMacros() []string {
	return append([]string{uvisionVersion}, a.macros...)
}

func (a *ac5) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	cc := doc.Region(RegionCompiler)
	cc["$optimization"] = optimizationFlag(cc.String("optimization"))
	return nil
}

func (a *ac5) ProjectAnalysisConfig(doc *OptionDocument, cfg *AnalysisConfig) {
	cfg.CompilerPath = a.executable("armcc")
	cfg.CStandard = "c99"
	cfg.CppStandard = "c++11"
	cfg.IntelliSenseMode = "gcc-arm"
	if doc != nil {
		cc := doc.Region(RegionCompiler)
		cfg.CArgs = append(cfg.CArgs, cc.Strings("C_FLAGS")...)
		cfg.CppArgs = append(cfg.CppArgs, cc.Strings("CXX_FLAGS")...)
	}
}

type ac6 struct {
	base
}

func newAC6(env Env) Descriptor {
	return &ac6{base: newBase(env, AC6, KindARM, 3, "bin")}
}

func (a *ac6) DefaultIncludePaths() []string {
	return a.underInstall("include", "include/libcxx")
}

func (a *ac6) FactoryDefaults() OptionDocument {
	return a.newDoc(
		Region{"use-microLIB": false, "output-debug-info": "enable", "floating-point-hardware": "none"},
		Region{"optimization": "level-0", "language-c": "c99", "language-cpp": "c++11", "C_FLAGS": "", "CXX_FLAGS": ""},
		Region{"ASM_FLAGS": ""},
		Region{"output-format": "elf", "LD_FLAGS": ""},
	)
}

func (a *ac6) PredefinedMacros(doc *OptionDocument) []string {
	args := []string{"--target=arm-arm-none-eabi", "-E", "-dM", "-x", "c"}
	if doc != nil {
		args = append(args, armFloatArgs(doc.Region(RegionGlobal))...)
	}
	return a.introspect(a.executable("armclang"), append(args, "-"))
}

func (a *ac6) CustomMacros() []string {
	return append([]string{uvisionVersion}, a.macros...)
}

func (a *ac6) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	cc := doc.Region(RegionCompiler)
	cc["$optimization"] = optimizationFlag(cc.String("optimization"))
	return nil
}

func (a *ac6) ProjectAnalysisConfig(doc *OptionDocument, cfg *AnalysisConfig) {
	cfg.CompilerPath = a.executable("armclang")
	cfg.CompilerArgs = append(cfg.CompilerArgs, "--target=arm-arm-none-eabi")
	cfg.CStandard = "c99"
	cfg.CppStandard = "c++11"
	cfg.IntelliSenseMode = "clang-arm"
	if doc == nil {
		return
	}
	cc := doc.Region(RegionCompiler)
	cfg.CStandard = orDefault(cc.String("language-c"), cfg.CStandard)
	cfg.CppStandard = orDefault(cc.String("language-cpp"), cfg.CppStandard)
	cfg.CArgs = append(cfg.CArgs, cc.Strings("C_FLAGS")...)
	cfg.CppArgs = append(cfg.CppArgs, cc.Strings("CXX_FLAGS")...)
}

type iarARM struct {
	base
}

func newIARARM(env Env) Descriptor {
	return &iarARM{base: newBase(env, IARARM, KindARM, 2, "arm/bin")}
}

func (i *iarARM) DefaultIncludePaths() []string {
	return i.underInstall("arm/inc", "arm/inc/c")
}

func (i *iarARM) SystemIncludePaths(*OptionDocument) []string {
	return i.underInstall("arm/inc", "arm/inc/c", "arm/inc/cpp")
}

func (i *iarARM) LibraryDirs() []string {
	return i.underInstall("arm/lib")
}

func (i *iarARM) FactoryDefaults() OptionDocument {
	return i.newDoc(
		Region{"endian-mode": "little", "printf-formatter": "auto", "scanf-formatter": "auto"},
		Region{"optimization": "low", "optimization-target": "balanced", "c-flags": "", "cxx-flags": ""},
		Region{"asm-flags": ""},
		Region{"output-format": "elf", "ld-flags": ""},
	)
}

func (i *iarARM) PredefinedMacros(doc *OptionDocument) []string {
	macros := []string{"__ICCARM__=1", "__IAR_SYSTEMS_ICC__=9"}
	if doc != nil && strings.EqualFold(doc.Region(RegionGlobal).String("endian-mode"), "big") {
		macros = append(macros, "__BIG_ENDIAN__=1")
	} else {
		macros = append(macros, "__LITTLE_ENDIAN__=1")
	}
	return macros
}

func (i *iarARM) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	setIAROptimization(doc)
	return nil
}

func (i *iarARM) ProjectAnalysisConfig(_ *OptionDocument, cfg *AnalysisConfig) {
	cfg.CStandard = "c11"
	cfg.CppStandard = "c++14"
	cfg.IntelliSenseMode = "clang-arm"
}
