package toolchain

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type keilC51 struct {
	base
}

func newKeilC51(env Env) Descriptor {
	return &keilC51{base: newBase(env, KeilC51, KindC51, 2, "BIN")}
}

func (k *keilC51) DefaultIncludePaths() []string {
	return k.underInstall("INC")
}

func (k *keilC51) SystemIncludePaths(*OptionDocument) []string {
	return k.underInstall("INC")
}

func (k *keilC51) LibraryDirs() []string {
	return k.underInstall("LIB")
}

func (k *keilC51) ForcedIncludeHeaders() []string {
	if k.template == "" {
		return nil
	}
	return []string{filepath.Join(k.template, "include", "c51.h")}
}

var c51MemoryModels = map[string]string{
	"SMALL":   "0",
	"COMPACT": "1",
	"LARGE":   "2",
}

func (k *keilC51) PredefinedMacros(doc *OptionDocument) []string {
	model := c51MemoryModels["SMALL"]
	if doc != nil {
		if m, ok := c51MemoryModels[strings.ToUpper(doc.Region(RegionGlobal).String("ram-mode"))]; ok {
			model = m
		}
	}
	return []string{"__C51__=960", "__MODEL__=" + model}
}

func (k *keilC51) FactoryDefaults() OptionDocument {
	return k.newDoc(
		Region{"ram-mode": "SMALL", "rom-mode": "LARGE"},
		Region{"optimization-type": "SPEED", "optimization-level": "level-8"},
		Region{},
		Region{"remove-unused": true, "output-format": "elf"},
	)
}

func (k *keilC51) NormalizeOptions(info ProjectInfo, doc *OptionDocument) error {
	cc := doc.Region(RegionCompiler)
	level := strings.TrimPrefix(cc.String("optimization-level"), "level-")
	if level == "" {
		level = "8"
	}
	kind := strings.ToUpper(cc.String("optimization-type"))
	if kind == "" {
		kind = "SPEED"
	}
	cc["$optimization"] = fmt.Sprintf("OPTIMIZE (%s,%s)", level, kind)

	if doc.Region(RegionLinker).String("output-format") != "lib" {
		return nil
	}
	return k.createPlaceholderLib(info)
}

// createPlaceholderLib replaces <out>/<name>.LIB with an empty library
// copied from the template directory. The linker requires the archive to
// exist before any object is added.
func (k *keilC51) createPlaceholderLib(info ProjectInfo) error {
	if k.template == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingTemplate, SettingTemplatesDir)
	}
	src := filepath.Join(k.template, "empty.LIB")
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingTemplate, src)
		}
		return err
	}
	defer in.Close()

	outDir := info.OutputDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	dst := filepath.Join(outDir, info.Name+".LIB")
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return out.Close()
}

func (k *keilC51) ProjectAnalysisConfig(_ *OptionDocument, cfg *AnalysisConfig) {
	cfg.CStandard = "c89"
	cfg.IntelliSenseMode = "msvc-x86"
}

type sdcc struct {
	base
}

func newSDCC(env Env) Descriptor {
	return &sdcc{base: newBase(env, SDCC, KindC51, 3, "bin")}
}

func (s *sdcc) DefaultIncludePaths() []string {
	return s.underInstall("include")
}

func (s *sdcc) SystemIncludePaths(doc *OptionDocument) []string {
	dirs := s.underInstall("include")
	if len(dirs) == 0 {
		return nil
	}
	return append(dirs, filepath.Join(dirs[0], sdccDevice(doc)))
}

func (s *sdcc) FactoryDefaults() OptionDocument {
	return s.newDoc(
		Region{"device": "mcs51", "stack-auto": false, "use-external-stack": false},
		Region{"optimize-type": "speed", "language-c": "c99", "c-flags": ""},
		Region{"asm-flags": ""},
		Region{"output-format": "hex", "ld-flags": ""},
	)
}

func sdccDevice(doc *OptionDocument) string {
	if doc == nil {
		return "mcs51"
	}
	if d := doc.Region(RegionGlobal).String("device"); d != "" {
		return d
	}
	return "mcs51"
}

func (s *sdcc) PredefinedMacros(doc *OptionDocument) []string {
	return s.introspect(s.executable("sdcc"), []string{"-m" + sdccDevice(doc), "-E", "-dM", "-"})
}

// sdccAssembler returns the assembler shipped for a device.
func sdccAssembler(device string) string {
	switch device {
	case "mcs51", "ds390", "ds400":
		return "sdas8051"
	case "stm8":
		return "sdasstm8"
	case "z80", "z180", "r2k", "r2ka", "r3ka", "ez80_z80", "z80n":
		return "sdasz80"
	case "gbz80", "sm83":
		return "sdasgb"
	case "hc08", "s08":
		return "sdas6808"
	case "pdk13", "pdk14", "pdk15":
		return "sdas" + device
	default:
		return "sdas8051"
	}
}

func (s *sdcc) NormalizeOptions(_ ProjectInfo, doc *OptionDocument) error {
	doc.Region(RegionAssembler)["$toolName"] = sdccAssembler(sdccDevice(doc))

	cc := doc.Region(RegionCompiler)
	switch cc.String("optimize-type") {
	case "speed":
		cc["$optimization"] = "--opt-code-speed"
	case "size":
		cc["$optimization"] = "--opt-code-size"
	default:
		delete(cc, "$optimization")
	}
	return nil
}

func (s *sdcc) ProjectAnalysisConfig(doc *OptionDocument, cfg *AnalysisConfig) {
	cfg.CompilerPath = s.executable("sdcc")
	cfg.CompilerArgs = append(cfg.CompilerArgs, "-m"+sdccDevice(doc))
	cfg.CStandard = "c99"
	if doc != nil {
		if std := doc.Region(RegionCompiler).String("language-c"); std != "" {
			cfg.CStandard = std
		}
	}
	cfg.IntelliSenseMode = "gcc-x86"
}
