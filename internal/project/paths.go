package project

import (
	"path/filepath"
	"regexp"
	"strings"
)

// envPlaceholder matches ${VAR}, $(VAR) and %VAR% references.
var envPlaceholder = regexp.MustCompile(`\$\{[^}]+\}|\$\([^)]+\)|%[A-Za-z_][A-Za-z0-9_]*%`)

// HasPlaceholder reports whether path references an environment variable.
func HasPlaceholder(path string) bool {
	return envPlaceholder.MatchString(path)
}

// Paths converts between absolute paths and paths relative to a project
// root. Relative paths use forward slashes so documents are portable.
type Paths struct {
	root string
}

// NewPaths anchors a Paths at root.
func NewPaths(root string) Paths {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Paths{root: filepath.Clean(root)}
}

// Root returns the absolute project root.
func (p Paths) Root() string {
	return p.root
}

// ToAbsolute resolves a document path against the root.
func (p Paths) ToAbsolute(path string) string {
	if path == "" || HasPlaceholder(path) {
		return path
	}
	native := filepath.FromSlash(path)
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	return filepath.Join(p.root, native)
}

// ToRelative expresses path relative to the root. Paths outside the root
// stay absolute.
func (p Paths) ToRelative(path string) string {
	if path == "" || HasPlaceholder(path) {
		return path
	}
	native := filepath.FromSlash(path)
	if !filepath.IsAbs(native) {
		return filepath.ToSlash(filepath.Clean(native))
	}
	native = filepath.Clean(native)
	rel, err := filepath.Rel(p.root, native)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return native
	}
	return filepath.ToSlash(rel)
}

// Contains reports whether path lies inside the root.
func (p Paths) Contains(path string) bool {
	abs := p.ToAbsolute(path)
	if abs == p.root {
		return true
	}
	return strings.HasPrefix(abs, p.root+string(filepath.Separator))
}

func (p Paths) absList(list []string) []string {
	return mapList(list, p.ToAbsolute)
}

func (p Paths) relList(list []string) []string {
	return mapList(list, p.ToRelative)
}

func mapList(list []string, fn func(string) string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = fn(s)
	}
	return out
}

func (p Paths) dependence(d Dependence, fn func(string) string) Dependence {
	return Dependence{
		Name:          d.Name,
		IncList:       mapList(d.IncList, fn),
		LibList:       mapList(d.LibList, fn),
		SourceDirList: mapList(d.SourceDirList, fn),
		DefineList:    append([]string{}, d.DefineList...),
	}
}

func (p Paths) virtualFolder(f VirtualFolder, fn func(string) string) VirtualFolder {
	out := VirtualFolder{
		Name:    f.Name,
		Files:   make([]VirtualFile, len(f.Files)),
		Folders: make([]VirtualFolder, len(f.Folders)),
	}
	for i, file := range f.Files {
		out.Files[i] = VirtualFile{Path: fn(file.Path)}
	}
	for i, sub := range f.Folders {
		out.Folders[i] = p.virtualFolder(sub, fn)
	}
	return out
}

func (p Paths) target(t ProjectTargetInfo, fn func(string) string) ProjectTargetInfo {
	t = t.Clone()
	t.ExcludeList = mapList(t.ExcludeList, fn)
	t.CustomDep = p.dependence(t.CustomDep, fn)
	return t
}
