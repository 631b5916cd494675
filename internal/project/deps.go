package project

import (
	"fmt"
	"strings"

	"github.com/dshills/crossbuild/internal/toolchain"
)

// MergeDependences flattens groups into one dependence. An exclude entry
// names either a whole group ("group") or one dependence ("group.dep").
// Every list keeps the first occurrence of each value.
func MergeDependences(groups []DependenceGroup, excludes []string) Dependence {
	skipGroup := make(map[string]bool)
	skipDep := make(map[string]bool)
	for _, e := range excludes {
		if i := strings.IndexByte(e, '.'); i > 0 {
			skipDep[e] = true
			continue
		}
		skipGroup[e] = true
	}

	merged := emptyDependence("merged")
	for _, g := range groups {
		if skipGroup[g.GroupName] {
			continue
		}
		for _, d := range g.DepList {
			if skipDep[g.GroupName+"."+d.Name] {
				continue
			}
			merged.IncList = append(merged.IncList, d.IncList...)
			merged.LibList = append(merged.LibList, d.LibList...)
			merged.SourceDirList = append(merged.SourceDirList, d.SourceDirList...)
			merged.DefineList = append(merged.DefineList, d.DefineList...)
		}
	}

	merged.IncList = dedupe(merged.IncList)
	merged.LibList = dedupe(merged.LibList)
	merged.SourceDirList = dedupe(merged.SourceDirList)
	merged.DefineList = dedupe(merged.DefineList)
	return merged
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// builtInGroup lists what the toolchain contributes on its own.
func builtInGroup(d toolchain.Descriptor) DependenceGroup {
	dep := emptyDependence("toolchain")
	dep.IncList = append(dep.IncList, d.DefaultIncludePaths()...)
	dep.DefineList = append(dep.DefineList, d.CustomMacros()...)
	return DependenceGroup{GroupName: BuiltInGroup, DepList: []Dependence{dep}}
}

// withReservedGroups returns groups with the reserved groups rebuilt in
// front: built-in from d and custom from custom.
func withReservedGroups(groups []DependenceGroup, d toolchain.Descriptor, custom Dependence) []DependenceGroup {
	custom.Name = CustomDepName
	out := []DependenceGroup{
		builtInGroup(d),
		{GroupName: CustomGroup, DepList: []Dependence{normalizeDependence(custom)}},
	}
	for _, g := range groups {
		if !IsReservedGroup(g.GroupName) {
			out = append(out, g)
		}
	}
	return out
}

// persistedGroups drops the reserved groups.
func persistedGroups(groups []DependenceGroup) []DependenceGroup {
	out := make([]DependenceGroup, 0, len(groups))
	for _, g := range groups {
		if !IsReservedGroup(g.GroupName) {
			out = append(out, g)
		}
	}
	return out
}

// CustomField selects a list of the custom dependence.
type CustomField int

// Custom dependence lists.
const (
	IncludePaths CustomField = iota
	LibraryPaths
	SourceDirs
	Defines
)

// String returns the JSON name of the field.
func (f CustomField) String() string {
	switch f {
	case IncludePaths:
		return "incList"
	case LibraryPaths:
		return "libList"
	case SourceDirs:
		return "sourceDirList"
	case Defines:
		return "defineList"
	default:
		return fmt.Sprintf("CustomField(%d)", int(f))
	}
}

func (f CustomField) isPath() bool {
	return f != Defines
}

func (f CustomField) list(d *Dependence) *[]string {
	switch f {
	case IncludePaths:
		return &d.IncList
	case LibraryPaths:
		return &d.LibList
	case SourceDirs:
		return &d.SourceDirList
	default:
		return &d.DefineList
	}
}
