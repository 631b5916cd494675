package project

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/crossbuild/internal/store"
	"github.com/dshills/crossbuild/internal/toolchain"
)

// SchemaVersion is the current project document version.
const SchemaVersion = 3

// DefaultTargetName is used when a document carries no recoverable target.
const DefaultTargetName = "Debug"

// Reserved dependence groups.
const (
	BuiltInGroup = "built-in"
	CustomGroup  = "custom"

	// CustomDepName names the single dependence of the custom group.
	CustomDepName = "default"
)

// Dependence is a named bundle of include paths, library directories,
// source roots and defines.
type Dependence struct {
	Name          string   `json:"name"`
	IncList       []string `json:"incList"`
	LibList       []string `json:"libList"`
	SourceDirList []string `json:"sourceDirList"`
	DefineList    []string `json:"defineList"`
}

// Clone returns a deep copy.
func (d Dependence) Clone() Dependence {
	return Dependence{
		Name:          d.Name,
		IncList:       cloneStrings(d.IncList),
		LibList:       cloneStrings(d.LibList),
		SourceDirList: cloneStrings(d.SourceDirList),
		DefineList:    cloneStrings(d.DefineList),
	}
}

// DependenceGroup is an ordered, named collection of dependences.
type DependenceGroup struct {
	GroupName string       `json:"groupName"`
	DepList   []Dependence `json:"depList"`
}

// IsReservedGroup reports whether a group is rebuilt at load time.
func IsReservedGroup(name string) bool {
	return name == BuiltInGroup || name == CustomGroup
}

// CompileConfig is the compiler configuration of a target. Keys the
// engine does not model are kept in Extra and written back unchanged.
type CompileConfig struct {
	CPUType    string
	DeviceName string
	Options    toolchain.OptionDocument
	Extra      map[string]json.RawMessage
}

type compileConfigJSON struct {
	CPUType    string                   `json:"cpuType,omitempty"`
	DeviceName string                   `json:"deviceName,omitempty"`
	Options    toolchain.OptionDocument `json:"options"`
}

var compileConfigKeys = map[string]bool{"cpuType": true, "deviceName": true, "options": true}

// MarshalJSON implements json.Marshaler.
func (c CompileConfig) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(compileConfigJSON{CPUType: c.CPUType, DeviceName: c.DeviceName, Options: c.Options})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if data, err = sjson.SetRawBytes(data, store.EscapeKey(k), c.Extra[k]); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CompileConfig) UnmarshalJSON(data []byte) error {
	var j compileConfigJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.CPUType, c.DeviceName, c.Options = j.CPUType, j.DeviceName, j.Options
	c.Extra = nil
	gjson.ParseBytes(data).ForEach(func(k, v gjson.Result) bool {
		if !compileConfigKeys[k.String()] {
			if c.Extra == nil {
				c.Extra = make(map[string]json.RawMessage)
			}
			c.Extra[k.String()] = json.RawMessage(v.Raw)
		}
		return true
	})
	return nil
}

// Clone returns a deep copy.
func (c CompileConfig) Clone() CompileConfig {
	out := CompileConfig{CPUType: c.CPUType, DeviceName: c.DeviceName, Options: c.Options.Clone()}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// UploadConfig is the open configuration of one uploader.
type UploadConfig map[string]any

// Clone returns a deep copy.
func (u UploadConfig) Clone() UploadConfig {
	if u == nil {
		return nil
	}
	out := make(UploadConfig, len(u))
	for k, v := range u {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneConfigMap(m map[string]UploadConfig) map[string]UploadConfig {
	out := make(map[string]UploadConfig, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// ProjectTargetInfo is the frozen state of a non-active target.
type ProjectTargetInfo struct {
	ExcludeList     []string                `json:"excludeList"`
	Toolchain       toolchain.Name          `json:"toolchain"`
	CompileConfig   CompileConfig           `json:"compileConfig"`
	Uploader        string                  `json:"uploader"`
	UploadConfig    UploadConfig            `json:"uploadConfig"`
	UploadConfigMap map[string]UploadConfig `json:"uploadConfigMap"`
	CustomDep       Dependence              `json:"custom_dep"`
}

// Clone returns a deep copy.
func (t ProjectTargetInfo) Clone() ProjectTargetInfo {
	return ProjectTargetInfo{
		ExcludeList:     cloneStrings(t.ExcludeList),
		Toolchain:       t.Toolchain,
		CompileConfig:   t.CompileConfig.Clone(),
		Uploader:        t.Uploader,
		UploadConfig:    t.UploadConfig.Clone(),
		UploadConfigMap: cloneConfigMap(t.UploadConfigMap),
		CustomDep:       t.CustomDep.Clone(),
	}
}

// VirtualFile is a file placed in the virtual source tree.
type VirtualFile struct {
	Path string `json:"path"`
}

// VirtualFolder is a node of the virtual source tree.
type VirtualFolder struct {
	Name    string          `json:"name"`
	Files   []VirtualFile   `json:"files"`
	Folders []VirtualFolder `json:"folders"`
}

// ProjectConfigData is the project document.
type ProjectConfigData struct {
	Name            string                       `json:"name"`
	Type            toolchain.Kind               `json:"type"`
	Mode            string                       `json:"mode"`
	ExcludeList     []string                     `json:"excludeList"`
	Toolchain       toolchain.Name               `json:"toolchain"`
	CompileConfig   CompileConfig                `json:"compileConfig"`
	Uploader        string                       `json:"uploader"`
	UploadConfig    UploadConfig                 `json:"uploadConfig"`
	UploadConfigMap map[string]UploadConfig      `json:"uploadConfigMap"`
	Targets         map[string]ProjectTargetInfo `json:"targets"`
	DependenceList  []DependenceGroup            `json:"dependenceList"`
	SrcDirs         []string                     `json:"srcDirs"`
	VirtualFolder   VirtualFolder                `json:"virtualFolder"`
	OutDir          string                       `json:"outDir"`
	Version         int                          `json:"version"`
}

// targetSpecificKeys are the root keys that belong to the active target.
// They are restored from the catalog, never backfilled from defaults, and
// stripped from the active target's catalog slot on save.
var targetSpecificKeys = []string{
	"mode", "excludeList", "toolchain", "compileConfig",
	"uploader", "uploadConfig", "uploadConfigMap",
}

func isTargetSpecific(key string) bool {
	for _, k := range targetSpecificKeys {
		if k == key {
			return true
		}
	}
	return false
}

// group returns the group with the given name.
func (p *ProjectConfigData) group(name string) (*DependenceGroup, bool) {
	for i := range p.DependenceList {
		if p.DependenceList[i].GroupName == name {
			return &p.DependenceList[i], true
		}
	}
	return nil, false
}

// CustomDep returns a copy of the active target's custom dependence.
func (p *ProjectConfigData) CustomDep() Dependence {
	if g, ok := p.group(CustomGroup); ok && len(g.DepList) > 0 {
		return normalizeDependence(g.DepList[0].Clone())
	}
	return emptyDependence(CustomDepName)
}

// snapshot freezes the active target.
func (p *ProjectConfigData) snapshot() ProjectTargetInfo {
	info := ProjectTargetInfo{
		ExcludeList:     orEmpty(p.ExcludeList),
		Toolchain:       p.Toolchain,
		CompileConfig:   p.CompileConfig,
		Uploader:        p.Uploader,
		UploadConfig:    p.UploadConfig,
		UploadConfigMap: p.UploadConfigMap,
		CustomDep:       p.CustomDep(),
	}
	return info.Clone()
}

// unpack makes info the active target's root state. The custom
// dependence is installed separately with the reserved groups.
func (p *ProjectConfigData) unpack(info ProjectTargetInfo) {
	info = info.Clone()
	p.ExcludeList = orEmpty(info.ExcludeList)
	p.Toolchain = info.Toolchain
	p.CompileConfig = info.CompileConfig
	p.Uploader = info.Uploader
	p.UploadConfig = info.UploadConfig
	p.UploadConfigMap = info.UploadConfigMap
	if p.UploadConfigMap == nil {
		p.UploadConfigMap = map[string]UploadConfig{}
	}
}

// TargetNames returns every target, the active one included, sorted.
func (p *ProjectConfigData) TargetNames() []string {
	names := make([]string, 0, len(p.Targets)+1)
	if p.Mode != "" {
		names = append(names, p.Mode)
	}
	for n := range p.Targets {
		if n != p.Mode {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func emptyDependence(name string) Dependence {
	return Dependence{Name: name, IncList: []string{}, LibList: []string{}, SourceDirList: []string{}, DefineList: []string{}}
}

func normalizeDependence(d Dependence) Dependence {
	d.IncList = orEmpty(d.IncList)
	d.LibList = orEmpty(d.LibList)
	d.SourceDirList = orEmpty(d.SourceDirList)
	d.DefineList = orEmpty(d.DefineList)
	return d
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneAny(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneAny(item)
		}
		return out
	default:
		return v
	}
}
