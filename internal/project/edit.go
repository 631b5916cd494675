package project

import (
	"fmt"
	"slices"

	"github.com/dshills/crossbuild/internal/store"
)

// MergedDependence flattens every dependence group of the active target.
// See MergeDependences for the exclude syntax.
func (c *Configuration) MergedDependence(excludes ...string) Dependence {
	doc := c.store.Doc()
	if doc == nil {
		return emptyDependence("merged")
	}
	return MergeDependences(doc.DependenceList, excludes)
}

// AddDependenceGroup appends an empty group. Adding an existing group is a
// no-op.
func (c *Configuration) AddDependenceGroup(name string) error {
	if IsReservedGroup(name) {
		return fmt.Errorf("%w: %q", ErrReservedGroup, name)
	}
	return c.store.Update(func(doc *ProjectConfigData) {
		if _, ok := doc.group(name); ok {
			return
		}
		doc.DependenceList = append(doc.DependenceList, DependenceGroup{GroupName: name, DepList: []Dependence{}})
	}, "dependenceList", name)
}

// RemoveDependenceGroup deletes a group and its dependences.
func (c *Configuration) RemoveDependenceGroup(name string) error {
	if IsReservedGroup(name) {
		return fmt.Errorf("%w: %q", ErrReservedGroup, name)
	}
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	if _, ok := doc.group(name); !ok {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, name)
	}
	return c.store.Update(func(doc *ProjectConfigData) {
		doc.DependenceList = slices.DeleteFunc(doc.DependenceList, func(g DependenceGroup) bool {
			return g.GroupName == name
		})
	}, "dependenceList", name)
}

// AddDependence adds dep to group, replacing a dependence of the same
// name. The group is created when missing. Paths are stored absolute.
func (c *Configuration) AddDependence(group string, dep Dependence) error {
	if IsReservedGroup(group) {
		return fmt.Errorf("%w: %q", ErrReservedGroup, group)
	}
	dep = normalizeDependence(c.paths.dependence(dep, c.paths.ToAbsolute))
	return c.store.Update(func(doc *ProjectConfigData) {
		g, ok := doc.group(group)
		if !ok {
			doc.DependenceList = append(doc.DependenceList, DependenceGroup{GroupName: group})
			g = &doc.DependenceList[len(doc.DependenceList)-1]
		}
		for i := range g.DepList {
			if g.DepList[i].Name == dep.Name {
				g.DepList[i] = dep
				return
			}
		}
		g.DepList = append(g.DepList, dep)
	}, "dependenceList", group+"."+dep.Name)
}

// RemoveDependence deletes one dependence from a group.
func (c *Configuration) RemoveDependence(group, name string) error {
	if IsReservedGroup(group) {
		return fmt.Errorf("%w: %q", ErrReservedGroup, group)
	}
	doc := c.store.Doc()
	if doc == nil {
		return store.ErrNotLoaded
	}
	g, ok := doc.group(group)
	if !ok {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, group)
	}
	i := slices.IndexFunc(g.DepList, func(d Dependence) bool { return d.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: %s.%s", ErrDependenceNotFound, group, name)
	}
	return c.store.Update(func(*ProjectConfigData) {
		g.DepList = slices.Delete(g.DepList, i, i+1)
	}, "dependenceList", group+"."+name)
}

// AddCustom appends values to one list of the active target's custom
// dependence, skipping values already present.
func (c *Configuration) AddCustom(field CustomField, values ...string) error {
	return c.editCustom(field, func(list []string) []string {
		for _, v := range c.customValues(field, values) {
			if !slices.Contains(list, v) {
				list = append(list, v)
			}
		}
		return list
	})
}

// RemoveCustom removes values from one list of the custom dependence.
func (c *Configuration) RemoveCustom(field CustomField, values ...string) error {
	return c.editCustom(field, func(list []string) []string {
		drop := c.customValues(field, values)
		return slices.DeleteFunc(list, func(v string) bool { return slices.Contains(drop, v) })
	})
}

func (c *Configuration) customValues(field CustomField, values []string) []string {
	if !field.isPath() {
		return values
	}
	return c.paths.absList(values)
}

func (c *Configuration) editCustom(field CustomField, fn func([]string) []string) error {
	return c.store.Update(func(doc *ProjectConfigData) {
		g, ok := doc.group(CustomGroup)
		if !ok || len(g.DepList) == 0 {
			return
		}
		list := field.list(&g.DepList[0])
		*list = fn(orEmpty(*list))
	}, "dependenceList", CustomGroup+"."+field.String())
}

// AddSrcDir adds a source root. Directories outside the project root are
// accepted and stored absolute.
func (c *Configuration) AddSrcDir(dir string) error {
	abs := c.paths.ToAbsolute(dir)
	if !c.paths.Contains(abs) {
		c.log.Debug("source directory %s is outside the project root", abs)
	}
	return c.store.Update(func(doc *ProjectConfigData) {
		if !slices.Contains(doc.SrcDirs, abs) {
			doc.SrcDirs = append(doc.SrcDirs, abs)
		}
	}, "srcDirs", abs)
}

// RemoveSrcDir removes a source root.
func (c *Configuration) RemoveSrcDir(dir string) error {
	abs := c.paths.ToAbsolute(dir)
	return c.store.Update(func(doc *ProjectConfigData) {
		doc.SrcDirs = slices.DeleteFunc(doc.SrcDirs, func(s string) bool { return s == abs })
	}, "srcDirs", abs)
}

// Exclude adds a path to the active target's exclude list.
func (c *Configuration) Exclude(path string) error {
	abs := c.paths.ToAbsolute(path)
	return c.store.Update(func(doc *ProjectConfigData) {
		if !slices.Contains(doc.ExcludeList, abs) {
			doc.ExcludeList = append(doc.ExcludeList, abs)
		}
	}, "excludeList", abs)
}

// Include removes a path from the active target's exclude list.
func (c *Configuration) Include(path string) error {
	abs := c.paths.ToAbsolute(path)
	return c.store.Update(func(doc *ProjectConfigData) {
		doc.ExcludeList = slices.DeleteFunc(doc.ExcludeList, func(s string) bool { return s == abs })
	}, "excludeList", abs)
}
