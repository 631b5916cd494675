package toolchain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/crossbuild/internal/store"
)

// Region keys of an option document.
const (
	RegionGlobal    = "global"
	RegionCompiler  = "c/cpp-compiler"
	RegionAssembler = "asm-compiler"
	RegionLinker    = "linker"
)

// Task is a user command run before or after a build.
type Task struct {
	Name             string `json:"name"`
	Disable          bool   `json:"disable,omitempty"`
	AbortAfterFailed bool   `json:"abortAfterFailed,omitempty"`
	Command          string `json:"command"`
}

// Region is an open mapping of option keys to string, bool, number or
// string-list values.
type Region map[string]any

// String returns the value at key as a string; non-strings are formatted.
func (r Region) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value at key as a bool.
func (r Region) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// Strings returns the value at key as a string list. A plain string is
// split on whitespace.
func (r Region) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

// Has reports whether key is present.
func (r Region) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// OptionDocument is the persisted compiler, assembler and linker
// configuration of one build target.
type OptionDocument struct {
	Version          int    `json:"version"`
	BeforeBuildTasks []Task `json:"beforeBuildTasks"`
	AfterBuildTasks  []Task `json:"afterBuildTasks"`
	Global           Region `json:"global"`
	Compiler         Region `json:"c/cpp-compiler"`
	Assembler        Region `json:"asm-compiler"`
	Linker           Region `json:"linker"`
}

// Region returns the region with the given key, creating it if needed.
func (d *OptionDocument) Region(key string) Region {
	d.ensureRegions()
	switch key {
	case RegionGlobal:
		return d.Global
	case RegionCompiler:
		return d.Compiler
	case RegionAssembler:
		return d.Assembler
	case RegionLinker:
		return d.Linker
	default:
		return nil
	}
}

func (d *OptionDocument) ensureRegions() {
	if d.Global == nil {
		d.Global = Region{}
	}
	if d.Compiler == nil {
		d.Compiler = Region{}
	}
	if d.Assembler == nil {
		d.Assembler = Region{}
	}
	if d.Linker == nil {
		d.Linker = Region{}
	}
	if d.BeforeBuildTasks == nil {
		d.BeforeBuildTasks = []Task{}
	}
	if d.AfterBuildTasks == nil {
		d.AfterBuildTasks = []Task{}
	}
}

// Clone returns a deep copy of the document.
func (d OptionDocument) Clone() OptionDocument {
	out := OptionDocument{
		Version:          d.Version,
		BeforeBuildTasks: append([]Task{}, d.BeforeBuildTasks...),
		AfterBuildTasks:  append([]Task{}, d.AfterBuildTasks...),
		Global:           cloneRegion(d.Global),
		Compiler:         cloneRegion(d.Compiler),
		Assembler:        cloneRegion(d.Assembler),
		Linker:           cloneRegion(d.Linker),
	}
	out.ensureRegions()
	return out
}

func cloneRegion(r Region) Region {
	if r == nil {
		return Region{}
	}
	out := make(Region, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalOptions encodes a document in its on-disk form.
func MarshalOptions(doc *OptionDocument) ([]byte, error) {
	doc.ensureRegions()
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return store.Format(data), nil
}

// UnmarshalOptions decodes an on-disk option document.
func UnmarshalOptions(data []byte) (*OptionDocument, error) {
	var doc OptionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.ensureRegions()
	return &doc, nil
}
