package toolchain

import (
	"slices"
	"strings"
)

// migrationRule rewrites a stale option document into the current shape.
// It reports whether it changed anything.
type migrationRule struct {
	name    string
	applies func(Name) bool
	apply   func(doc *OptionDocument, d Descriptor) bool
}

// migrationRules run in this order. Each rule converts the old shape
// straight to the current one; rules are not chained per version.
var migrationRules = []migrationRule{
	{
		name:    "output-lib",
		applies: func(Name) bool { return true },
		apply:   migrateOutputLib,
	},
	{
		name:    "executable-format",
		applies: func(n Name) bool { return n == KeilC51 || n == SDCC },
		apply:   migrateExecutableFormat,
	},
	{
		name:    "misc-control",
		applies: func(n Name) bool { return n == AC5 },
		apply:   migrateMiscControl,
	},
	{
		name:    "memory-model",
		applies: func(n Name) bool { return n == IARSTM8 },
		apply:   migrateMemoryModel,
	},
	{
		name:    "specs",
		applies: isGCCFamily,
		apply:   migrateSpecs,
	},
}

// Migrate rewrites doc to d's current schema when its version is older.
// The version is then set to d.Version(); it is never decreased.
func Migrate(doc *OptionDocument, d Descriptor) bool {
	_, ok := migrate(doc, d)
	return ok
}

// migrate is Migrate that also returns the rules that changed the document.
func migrate(doc *OptionDocument, d Descriptor) ([]string, bool) {
	if doc.Version >= d.Version() {
		return nil, false
	}
	doc.ensureRegions()
	var applied []string
	for _, r := range migrationRules {
		if r.applies(d.Name()) && r.apply(doc, d) {
			applied = append(applied, r.name)
		}
	}
	doc.Version = d.Version()
	return applied, true
}

func migrateOutputLib(doc *OptionDocument, _ Descriptor) bool {
	ld := doc.Region(RegionLinker)
	if !ld.Has("output-lib") {
		return false
	}
	if ld.Bool("output-lib") {
		ld["output-format"] = "lib"
	}
	delete(ld, "output-lib")
	return true
}

func migrateExecutableFormat(doc *OptionDocument, _ Descriptor) bool {
	ld := doc.Region(RegionLinker)
	v, ok := ld["executable-format"]
	if !ok {
		return false
	}
	ld["output-format"] = v
	delete(ld, "executable-format")
	return true
}

func migrateMiscControl(doc *OptionDocument, _ Descriptor) bool {
	cc := doc.Region(RegionCompiler)
	if !cc.Has("misc-control") {
		return false
	}
	misc := strings.TrimSpace(cc.String("misc-control"))
	flags := strings.TrimSpace(cc.String("C_FLAGS"))
	cc["C_FLAGS"] = strings.TrimSpace(misc + " " + flags)
	delete(cc, "misc-control")
	return true
}

func migrateMemoryModel(doc *OptionDocument, d Descriptor) bool {
	cc := doc.Region(RegionCompiler)
	global := doc.Region(RegionGlobal)
	defaults := d.FactoryDefaults()

	changed := false
	for _, key := range []string{"code-mode", "data-mode"} {
		v, ok := cc[key]
		if ok {
			delete(cc, key)
			changed = true
		}
		if global.Has(key) {
			continue
		}
		if !ok {
			v = defaults.Region(RegionGlobal)[key]
		}
		if v != nil {
			global[key] = v
			changed = true
		}
	}
	return changed
}

func migrateSpecs(doc *OptionDocument, _ Descriptor) bool {
	ld := doc.Region(RegionLinker)
	if !ld.Has("LD_FLAGS") {
		return false
	}

	var specs, rest []string
	for _, tok := range ld.Strings("LD_FLAGS") {
		if strings.HasPrefix(tok, "--specs=") {
			specs = append(specs, tok)
		} else {
			rest = append(rest, tok)
		}
	}
	if len(specs) == 0 {
		return false
	}

	ld["LD_FLAGS"] = strings.Join(rest, " ")
	global := doc.Region(RegionGlobal)
	misc := strings.Fields(global.String("misc-control"))
	for _, tok := range specs {
		if !slices.Contains(misc, tok) {
			misc = append(misc, tok)
		}
	}
	global["misc-control"] = strings.Join(misc, " ")
	return true
}
