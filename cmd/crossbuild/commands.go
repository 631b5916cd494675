package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/crossbuild/internal/app"
	"github.com/dshills/crossbuild/internal/project"
	"github.com/dshills/crossbuild/internal/store"
	"github.com/dshills/crossbuild/internal/toolchain"
)

type cmdContext struct {
	app  *app.Application
	args []string
	out  io.Writer
}

func (c *cmdContext) project() (*project.Configuration, error) {
	return c.app.Project()
}

type command struct {
	usage   string
	help    string
	minArgs int
	project bool
	run     func(*cmdContext) error
}

var commands = map[string]command{
	"info": {
		help: "Show the active target", project: true, run: runInfo,
	},
	"targets": {
		help: "List targets", project: true, run: runTargets,
	},
	"toolchains": {
		usage: "[kind]", help: "List toolchains, optionally for one kind", run: runToolchains,
	},
	"switch-target": {
		usage: "<name>", help: "Make a target active, creating it if needed", minArgs: 1, project: true, run: runSwitchTarget,
	},
	"delete-target": {
		usage: "<name>", help: "Delete an inactive target", minArgs: 1, project: true, run: runDeleteTarget,
	},
	"set-toolchain": {
		usage: "<name>", help: "Change the active target's toolchain", minArgs: 1, project: true, run: runSetToolchain,
	},
	"set-uploader": {
		usage: "<name>", help: "Change the active target's uploader", minArgs: 1, project: true, run: runSetUploader,
	},
	"set-option": {
		usage: "<region> <key> <value>", help: "Set a compiler option of the active target", minArgs: 3, project: true, run: runSetOption,
	},
	"add-include": {
		usage: "<path>...", help: "Add include paths to the custom dependence", minArgs: 1, project: true, run: customEdit(project.IncludePaths, true),
	},
	"add-define": {
		usage: "<macro>...", help: "Add defines to the custom dependence", minArgs: 1, project: true, run: customEdit(project.Defines, true),
	},
	"remove-include": {
		usage: "<path>...", help: "Remove include paths from the custom dependence", minArgs: 1, project: true, run: customEdit(project.IncludePaths, false),
	},
	"remove-define": {
		usage: "<macro>...", help: "Remove defines from the custom dependence", minArgs: 1, project: true, run: customEdit(project.Defines, false),
	},
	"deps": {
		usage: "[exclude]...", help: "Show the merged dependence", project: true, run: runDeps,
	},
	"analysis": {
		help: "Print the code-intelligence configuration as JSON", project: true, run: runAnalysis,
	},
	"build-options": {
		help: "Print the normalized option document as JSON", project: true, run: runBuildOptions,
	},
	"migrate": {
		usage: "<options.json> <toolchain>", help: "Migrate an option file in place", minArgs: 2, run: runMigrate,
	},
	"mapreport": {
		usage: "<file.map> [toolchain]", help: "Show per-module section sizes of a linker map", minArgs: 1, run: runMapReport,
	},
}

func newTable(out io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func runInfo(c *cmdContext) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	doc := p.Data()
	t := newTable(c.out, table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Name", doc.Name},
		{"Kind", doc.Type},
		{"Target", doc.Mode},
		{"Toolchain", fmt.Sprintf("%s (%s)", doc.Toolchain, toolchain.Describe(doc.Toolchain))},
		{"Uploader", doc.Uploader},
		{"Output", p.Paths().ToRelative(doc.OutDir)},
		{"Project file", p.FilePath()},
	})
	t.Render()
	return nil
}

func runTargets(c *cmdContext) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	doc := p.Data()
	t := newTable(c.out, table.Row{"", "Target", "Toolchain", "Uploader"})
	for _, name := range p.Targets() {
		if name == doc.Mode {
			t.AppendRow(table.Row{"*", name, doc.Toolchain, doc.Uploader})
			continue
		}
		info := doc.Targets[name]
		t.AppendRow(table.Row{"", name, info.Toolchain, info.Uploader})
	}
	t.Render()
	return nil
}

func runToolchains(c *cmdContext) error {
	reg := c.app.Registry()
	kinds := toolchain.Kinds()
	if len(c.args) > 0 {
		kind := toolchain.Kind(c.args[0])
		if !toolchain.ValidKind(kind) {
			return fmt.Errorf("%w: %q", toolchain.ErrUnknownProjectKind, kind)
		}
		kinds = []toolchain.Kind{kind}
	}

	t := newTable(c.out, table.Row{"Kind", "Toolchain", "Description", "Bin"})
	for _, kind := range kinds {
		def, _ := toolchain.DefaultFor(kind)
		for _, name := range reg.AllowedNames(kind) {
			label := string(name)
			if name == def {
				label += " (default)"
			}
			bin, _ := reg.ExecutableFolder(name)
			t.AppendRow(table.Row{kind, label, reg.Describe(name), bin})
		}
	}
	t.Render()
	return nil
}

// mutate runs fn against the project and saves it.
func mutate(c *cmdContext, op, target string, fn func(*project.Configuration) error) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return &app.OperationError{Op: op, Target: target, Err: err}
	}
	return p.Save()
}

func runSwitchTarget(c *cmdContext) error {
	name := c.args[0]
	return mutate(c, "switch-target", name, func(p *project.Configuration) error {
		return p.SwitchTarget(name)
	})
}

func runDeleteTarget(c *cmdContext) error {
	name := c.args[0]
	return mutate(c, "delete-target", name, func(p *project.Configuration) error {
		return p.DeleteTarget(name)
	})
}

func runSetToolchain(c *cmdContext) error {
	name := c.args[0]
	return mutate(c, "set-toolchain", name, func(p *project.Configuration) error {
		return p.SetToolchain(toolchain.Name(name))
	})
}

func runSetUploader(c *cmdContext) error {
	name := c.args[0]
	return mutate(c, "set-uploader", name, func(p *project.Configuration) error {
		return p.SetUploader(name)
	})
}

func runSetOption(c *cmdContext) error {
	region, key := c.args[0], c.args[1]
	value := optionValue(strings.Join(c.args[2:], " "))
	return mutate(c, "set-option", region+"."+key, func(p *project.Configuration) error {
		return p.SetOption(region, key, value)
	})
}

// optionValue decodes JSON literals and keeps anything else as a string.
func optionValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func customEdit(field project.CustomField, add bool) func(*cmdContext) error {
	return func(c *cmdContext) error {
		op := "remove-" + field.String()
		if add {
			op = "add-" + field.String()
		}
		return mutate(c, op, "", func(p *project.Configuration) error {
			if add {
				return p.AddCustom(field, c.args...)
			}
			return p.RemoveCustom(field, c.args...)
		})
	}
}

func runDeps(c *cmdContext) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	merged := p.MergedDependence(c.args...)
	t := newTable(c.out, table.Row{"List", "Entry"})
	add := func(label string, values []string, paths bool) {
		for _, v := range values {
			if paths {
				v = p.Paths().ToRelative(v)
			}
			t.AppendRow(table.Row{label, v})
		}
	}
	add("include", merged.IncList, true)
	add("library", merged.LibList, true)
	add("source", merged.SourceDirList, true)
	add("define", merged.DefineList, false)
	t.Render()
	return nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = out.Write(store.Format(data))
	return err
}

func runAnalysis(c *cmdContext) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	return writeJSON(c.out, p.AnalysisConfig())
}

func runBuildOptions(c *cmdContext) error {
	p, err := c.project()
	if err != nil {
		return err
	}
	opts, err := p.PrepareBuild()
	if err != nil {
		return err
	}
	return writeJSON(c.out, opts)
}

func runMigrate(c *cmdContext) error {
	path, name := c.args[0], toolchain.Name(c.args[1])
	d, ok := c.app.Registry().ByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", toolchain.ErrUnknownToolchain, name)
	}
	c.app.Registry().MigrateOptionFile(path, d)
	fmt.Fprintf(c.out, "%s: %s options v%d\n", path, name, d.Version())
	return nil
}

func runMapReport(c *cmdContext) error {
	name := toolchain.GCC
	if len(c.args) > 1 {
		name = toolchain.Name(c.args[1])
	}
	lines, err := c.app.Registry().MapFileReport(name, c.args[0])
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(c.out, line)
	}
	return nil
}
