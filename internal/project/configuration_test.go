package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/crossbuild/internal/config"
	"github.com/dshills/crossbuild/internal/config/notify"
	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/fswatch"
	"github.com/dshills/crossbuild/internal/toolchain"
)

func newTestRegistry(t *testing.T) *toolchain.Registry {
	t.Helper()
	env := toolchain.Env{
		Settings: config.NewMapSettings(map[string]string{
			"toolchains.ac5.installDir": filepath.Join(t.TempDir(), "ARMCC"),
		}),
		Runner: toolchain.RunnerFunc(func(string, []string, []byte) ([]byte, error) {
			return nil, errors.New("no compiler in tests")
		}),
		Logger: diag.Nop(),
	}
	r := toolchain.NewRegistry(env, toolchain.WithLogger(diag.Nop()))
	t.Cleanup(r.Close)
	return r
}

func openTest(t *testing.T, root string, kind toolchain.Kind, mutate func(*Options)) *Configuration {
	t.Helper()
	c, err := openErr(t, root, kind, mutate)
	require.NoError(t, err)
	return c
}

func openErr(t *testing.T, root string, kind toolchain.Kind, mutate func(*Options)) (*Configuration, error) {
	t.Helper()
	opts := Options{
		Root:     root,
		Kind:     kind,
		Name:     "demo",
		Registry: newTestRegistry(t),
		Logger:   diag.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := Open(opts)
	if err == nil {
		t.Cleanup(func() { _ = c.Close() })
	}
	return c, err
}

func writeProjectFile(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, MetaDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, MetaDir, ProjectFileName), []byte(content), 0644))
}

func readProjectFile(t *testing.T, c *Configuration) gjson.Result {
	t.Helper()
	data, err := os.ReadFile(c.FilePath())
	require.NoError(t, err)
	return gjson.ParseBytes(data)
}

func TestOpen_CreatesDocument(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)

	doc := c.Data()
	assert.Equal(t, DefaultTargetName, doc.Mode)
	assert.Equal(t, toolchain.AC5, doc.Toolchain)
	assert.Equal(t, UploaderJLink, doc.Uploader)
	assert.Equal(t, filepath.Join(root, DefaultOutDir), doc.OutDir)
	require.GreaterOrEqual(t, len(doc.DependenceList), 2)
	assert.Equal(t, BuiltInGroup, doc.DependenceList[0].GroupName)
	assert.Equal(t, CustomGroup, doc.DependenceList[1].GroupName)

	file := readProjectFile(t, c)
	assert.Equal(t, "Debug", file.Get("mode").String())
	assert.Equal(t, "build", file.Get("outDir").String())
	assert.Empty(t, file.Get("dependenceList").Array())
	assert.True(t, file.Get("targets.Debug.custom_dep").Exists())

	assert.Equal(t, "Debug", ReadUserContext(root, diag.Nop()).Target)
}

func TestOpen_RequiresRegistry(t *testing.T) {
	_, err := Open(Options{Root: t.TempDir(), Kind: toolchain.KindARM})
	assert.Error(t, err)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := openErr(t, t.TempDir(), "Z80", nil)
	assert.ErrorIs(t, err, toolchain.ErrUnknownProjectKind)
}

func TestSwitchTarget_Lossless(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)

	require.NoError(t, c.SetOption(toolchain.RegionCompiler, "optimization", "level-3"))
	require.NoError(t, c.AddCustom(IncludePaths, "inc/a"))
	require.NoError(t, c.AddCustom(Defines, "BOARD=1"))
	require.NoError(t, c.Exclude("src/unused.c"))
	before := c.Data().snapshot()

	require.NoError(t, c.SwitchTarget("Release"))
	doc := c.Data()
	assert.Equal(t, "Release", doc.Mode)
	assert.Equal(t, "level-0", doc.CompileConfig.Options.Compiler.String("optimization"))
	assert.Empty(t, doc.CustomDep().IncList)
	assert.Empty(t, doc.ExcludeList)
	assert.Contains(t, doc.Targets, "Debug")
	assert.Equal(t, []string{"Debug", "Release"}, c.Targets())
	assert.Equal(t, "Release", ReadUserContext(root, diag.Nop()).Target)

	require.NoError(t, c.SwitchTarget("Debug"))
	after := c.Data().snapshot()
	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("target changed across switch (-before +after):\n%s", diff)
	}
	assert.Equal(t, []string{filepath.Join(root, "inc", "a")}, c.Data().CustomDep().IncList)
	assert.NotContains(t, c.Data().Targets, "Debug")
	assert.Contains(t, c.Data().Targets, "Release")
}

func TestSwitchTarget_Events(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)

	var names []string
	c.Events().Subscribe(func(ev notify.Event) { names = append(names, ev.Name) })

	require.NoError(t, c.SwitchTarget("Release"))
	assert.ElementsMatch(t, []string{"dataChanged", EventTargetChanged}, names)

	names = nil
	require.NoError(t, c.SwitchTarget("Release"))
	assert.Empty(t, names)
}

func TestSwitchTarget_InvalidName(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	for _, name := range []string{"", "  ", "a/b"} {
		err := c.SwitchTarget(name)
		assert.ErrorIs(t, err, ErrInvalidTargetName, name)
	}
}

func TestDeleteTarget(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	require.NoError(t, c.SwitchTarget("Release"))

	assert.ErrorIs(t, c.DeleteTarget("Release"), ErrActiveTarget)
	assert.True(t, IsUnknownTarget(c.DeleteTarget("Missing")))
	require.NoError(t, c.DeleteTarget("Debug"))
	assert.Equal(t, []string{"Release"}, c.Targets())
}

func TestSave_PersistedShape(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)
	require.NoError(t, c.AddCustom(IncludePaths, "inc/a"))
	require.NoError(t, c.AddDependence("sdk", Dependence{Name: "hal", IncList: []string{"hal/inc"}}))
	require.NoError(t, c.AddSrcDir("src"))
	require.NoError(t, c.SwitchTarget("Release"))
	require.NoError(t, c.Save())

	file := readProjectFile(t, c)
	assert.Equal(t, "Release", file.Get("mode").String())

	slot := file.Get("targets.Release").Map()
	assert.Len(t, slot, 1)
	assert.Contains(t, slot, "custom_dep")

	assert.Equal(t, "AC5", file.Get("targets.Debug.toolchain").String())
	assert.Equal(t, "inc/a", file.Get("targets.Debug.custom_dep.incList.0").String())

	groups := file.Get("dependenceList").Array()
	require.Len(t, groups, 1)
	assert.Equal(t, "sdk", groups[0].Get("groupName").String())
	assert.Equal(t, "hal/inc", groups[0].Get("depList.0.incList.0").String())
	assert.Equal(t, "src", file.Get("srcDirs.0").String())
}

func TestOpen_ReopenRoundTrip(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)
	require.NoError(t, c.AddCustom(IncludePaths, "inc/a"))
	require.NoError(t, c.SwitchTarget("Release"))
	require.NoError(t, c.AddCustom(Defines, "NDEBUG"))
	require.NoError(t, c.Save())
	want := c.Data().snapshot()
	require.NoError(t, c.Close())

	c2 := openTest(t, root, toolchain.KindARM, nil)
	assert.Equal(t, "Release", c2.Data().Mode)
	assert.Equal(t, []string{"NDEBUG"}, c2.Data().CustomDep().DefineList)
	assert.Empty(t, cmp.Diff(want.CustomDep, c2.Data().snapshot().CustomDep, cmpopts.EquateEmpty()))

	require.NoError(t, c2.SwitchTarget("Debug"))
	assert.Equal(t, []string{filepath.Join(root, "inc", "a")}, c2.Data().CustomDep().IncList)
}

const compatProject = `{
    "name": "legacy",
    "type": "ARM",
    "toolchain": "AC5",
    "compileConfig": {"options": {"version": 4}},
    "uploader": "JLink",
    "uploadConfig": {},
    "targets": {
        "Debug": {
            "excludeList": [],
            "toolchain": "GCC",
            "compileConfig": {
                "cpuType": "Cortex-M4",
                "options": {
                    "version": 5,
                    "global": {"output-debug-info": "enable", "misc-control": "--specs=nosys.specs"},
                    "c/cpp-compiler": {"optimization": "level-2"}
                }
            },
            "uploader": "STLink",
            "uploadConfig": {"speed": 4000},
            "uploadConfigMap": {},
            "custom_dep": {"name": "default", "incList": ["inc"], "libList": [], "sourceDirList": [], "defineList": ["USE_HAL"]}
        }
    },
    "dependenceList": [],
    "srcDirs": ["src"],
    "outDir": "build",
    "version": 2
}`

func TestOpen_CompatRecoversSoleTarget(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, compatProject)
	c := openTest(t, root, toolchain.KindARM, nil)

	doc := c.Data()
	assert.Equal(t, "Debug", doc.Mode)
	assert.Equal(t, toolchain.GCC, doc.Toolchain)
	assert.Equal(t, UploaderSTLink, doc.Uploader)
	assert.Empty(t, doc.Targets)
	assert.Equal(t, SchemaVersion, doc.Version)
	assert.Equal(t, []string{filepath.Join(root, "inc")}, doc.CustomDep().IncList)
	assert.Equal(t, []string{"USE_HAL"}, doc.CustomDep().DefineList)

	var frozen CompileConfig
	require.NoError(t, json.Unmarshal([]byte(gjson.Get(compatProject, "targets.Debug.compileConfig").Raw), &frozen))
	if diff := cmp.Diff(frozen, doc.CompileConfig, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("root compileConfig differs from recovered target (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Debug", ReadUserContext(root, diag.Nop()).Target)
}

func TestOpen_CompatUsesUserContext(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "type": "ARM",
        "targets": {
            "Debug": {"toolchain": "AC5", "compileConfig": {"options": {"version": 4}}},
            "Release": {"toolchain": "AC6", "compileConfig": {"options": {"version": 3}}}
        }
    }`)
	WriteUserContext(root, UserContext{Target: "Release"}, diag.Nop())

	c := openTest(t, root, toolchain.KindARM, nil)
	assert.Equal(t, "Release", c.Data().Mode)
	assert.Equal(t, toolchain.AC6, c.Data().Toolchain)
	assert.Contains(t, c.Data().Targets, "Debug")
}

func TestOpen_CompatUnknownRecoveredTarget(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, compatProject)
	WriteUserContext(root, UserContext{Target: "Release"}, diag.Nop())

	_, err := openErr(t, root, toolchain.KindARM, nil)
	require.Error(t, err)
	assert.True(t, IsUnknownTarget(err))

	var te *TargetError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Release", te.Target)
}

func TestOpen_CompatUnrecoverableUsesFreshName(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "type": "ARM",
        "toolchain": "AC5",
        "targets": {
            "Debug": {"toolchain": "AC5"},
            "Release": {"toolchain": "AC6"}
        }
    }`)

	c := openTest(t, root, toolchain.KindARM, nil)
	assert.Equal(t, "Debug1", c.Data().Mode)
	assert.Len(t, c.Data().Targets, 2)
}

func TestOpen_Backfill(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "mode": "Debug",
        "toolchain": "GCC",
        "uploader": "OpenOCD",
        "excludeList": ["src/old.c"]
    }`)

	c := openTest(t, root, toolchain.KindARM, nil)
	doc := c.Data()
	assert.Equal(t, "demo", doc.Name)
	assert.Equal(t, toolchain.KindARM, doc.Type)
	assert.Equal(t, toolchain.GCC, doc.Toolchain)
	assert.Equal(t, UploaderOpenOCD, doc.Uploader)
	assert.Equal(t, filepath.Join(root, DefaultOutDir), doc.OutDir)
	assert.Equal(t, "<virtual_root>", doc.VirtualFolder.Name)
	assert.Equal(t, []string{filepath.Join(root, "src", "old.c")}, doc.ExcludeList)
	assert.NotNil(t, doc.SrcDirs)
	assert.Equal(t, 5, doc.CompileConfig.Options.Version)
	assert.Equal(t, "level-debug", doc.CompileConfig.Options.Compiler.String("optimization"))
}

func TestOpen_MigratesEmbeddedOptions(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "mode": "Debug",
        "type": "ARM",
        "toolchain": "GCC",
        "compileConfig": {"options": {
            "version": 4,
            "global": {"misc-control": ""},
            "linker": {"LD_FLAGS": "--specs=nano.specs -lm", "output-lib": true}
        }},
        "targets": {
            "Release": {"toolchain": "GCC", "compileConfig": {"options": {
                "version": 4,
                "linker": {"LD_FLAGS": "--specs=rdimon.specs"}
            }}}
        }
    }`)

	c := openTest(t, root, toolchain.KindARM, nil)
	opts := c.Data().CompileConfig.Options
	assert.Equal(t, 5, opts.Version)
	assert.Equal(t, "--specs=nano.specs", opts.Global.String("misc-control"))
	assert.Equal(t, "-lm", opts.Linker.String("LD_FLAGS"))
	assert.Equal(t, "lib", opts.Linker.String("output-format"))
	assert.False(t, opts.Linker.Has("output-lib"))

	frozen := c.Data().Targets["Release"].CompileConfig.Options
	assert.Equal(t, 5, frozen.Version)
	assert.Equal(t, "--specs=rdimon.specs", frozen.Global.String("misc-control"))
}

func TestOpen_SeedsFrozenTargetWithoutOptions(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "mode": "Debug",
        "type": "ARM",
        "toolchain": "AC5",
        "targets": {
            "Release": {"toolchain": "GCC", "compileConfig": {"cpuType": "Cortex-M4"}}
        }
    }`)

	c := openTest(t, root, toolchain.KindARM, nil)
	gcc, ok := c.reg.ByName(toolchain.GCC)
	require.True(t, ok)
	want := gcc.FactoryDefaults()

	frozen := c.Data().Targets["Release"].CompileConfig
	assert.Equal(t, "Cortex-M4", frozen.CPUType)
	assert.Equal(t, want.Version, frozen.Options.Version)

	require.NoError(t, c.SwitchTarget("Release"))
	doc := c.Data()
	assert.Equal(t, toolchain.GCC, doc.Toolchain)
	assert.Equal(t, want.Version, doc.CompileConfig.Options.Version)
	if diff := cmp.Diff(want.Global, doc.CompileConfig.Options.Global, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("global region not seeded from factory defaults (-want +got):\n%s", diff)
	}
	_, err := c.PrepareBuild()
	require.NoError(t, err)
}

func TestSave_KeepsNewerVersion(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{"mode": "Debug", "type": "ARM", "toolchain": "AC5", "version": 7}`)

	c := openTest(t, root, toolchain.KindARM, nil)
	assert.Equal(t, 7, c.Data().Version)
	require.NoError(t, c.Save())

	assert.Equal(t, int64(7), readProjectFile(t, c).Get("version").Int())
}

func TestOpen_KeepsUnknownCompileConfigKeys(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, `{
        "mode": "Debug",
        "type": "ARM",
        "toolchain": "AC5",
        "compileConfig": {"cpuType": "Cortex-M3", "scatterFilePath": "link.sct", "options": {"version": 4}},
        "unknownRootKey": 1
    }`)

	c := openTest(t, root, toolchain.KindARM, nil)
	require.NoError(t, c.Save())

	file := readProjectFile(t, c)
	assert.Equal(t, "link.sct", file.Get("compileConfig.scatterFilePath").String())
	assert.Equal(t, "Cortex-M3", file.Get("compileConfig.cpuType").String())
	assert.False(t, file.Get("unknownRootKey").Exists())
}

func TestSetToolchain_ParksAndRestores(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)
	require.NoError(t, c.SetOption(toolchain.RegionCompiler, "optimization", "level-3"))

	var changed []any
	c.Events().SubscribeName(EventToolchainChanged, func(ev notify.Event) { changed = append(changed, ev.Args...) })

	require.NoError(t, c.SetToolchain(toolchain.GCC))
	assert.Equal(t, toolchain.GCC, c.Data().Toolchain)
	assert.Equal(t, "level-debug", c.Data().CompileConfig.Options.Compiler.String("optimization"))
	assert.Equal(t, []any{toolchain.GCC}, changed)

	parked, err := os.ReadFile(filepath.Join(root, MetaDir, "Debug.AC5.options.json"))
	require.NoError(t, err)
	assert.Equal(t, "level-3", gjson.GetBytes(parked, "c/cpp-compiler.optimization").String())
	assert.FileExists(t, filepath.Join(root, MetaDir, "Debug.GCC.options.json"))

	builtIn := c.Data().DependenceList[0]
	assert.Equal(t, BuiltInGroup, builtIn.GroupName)
	assert.NotContains(t, builtIn.DepList[0].DefineList, "__UVISION_VERSION=526")

	require.NoError(t, c.SetToolchain(toolchain.AC5))
	assert.Equal(t, "level-3", c.Data().CompileConfig.Options.Compiler.String("optimization"))
	assert.Contains(t, c.Data().DependenceList[0].DepList[0].DefineList, "__UVISION_VERSION=526")
}

func TestSetToolchain_FallsBackForKind(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	require.NoError(t, c.SetToolchain(toolchain.GCC))
	require.NoError(t, c.SetToolchain(toolchain.SDCC))
	assert.Equal(t, toolchain.AC5, c.Data().Toolchain)
}

func TestSetUploader(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	require.NoError(t, c.SetUploadOption("speed", 1000))

	require.NoError(t, c.SetUploader(UploaderSTLink))
	doc := c.Data()
	assert.Equal(t, UploaderSTLink, doc.Uploader)
	assert.Equal(t, "SWD", doc.UploadConfig["proType"])
	assert.Equal(t, 1000, doc.UploadConfigMap[UploaderJLink]["speed"])

	require.NoError(t, c.SetUploader(UploaderJLink))
	assert.Equal(t, 1000, c.Data().UploadConfig["speed"])
	assert.Contains(t, c.Data().UploadConfigMap, UploaderSTLink)
	assert.NotContains(t, c.Data().UploadConfigMap, UploaderJLink)

	assert.ErrorIs(t, c.SetUploader("Z-Flash"), ErrUnknownUploader)
}

func TestModel_ListenersFollowSwitch(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)

	var keys []string
	first := c.CompileModel()
	sub := first.OnChange(func(key string) { keys = append(keys, key) })

	require.NoError(t, c.SetOption(toolchain.RegionCompiler, "optimization", "level-1"))
	require.NoError(t, c.SetToolchain(toolchain.GCC))

	second := c.CompileModel()
	assert.NotSame(t, first, second)
	assert.Equal(t, "GCC", second.Name())
	assert.Equal(t, 0, first.Listeners())
	assert.Equal(t, 1, second.Listeners())
	assert.Equal(t, []string{"c/cpp-compiler.optimization", ModelReplaced}, keys)

	require.NoError(t, c.SetOption(toolchain.RegionLinker, "LD_FLAGS", "-lm"))
	assert.Equal(t, "linker.LD_FLAGS", keys[len(keys)-1])

	sub.Unsubscribe()
	assert.Equal(t, 0, second.Listeners())
}

func TestModel_UploadSwitchMovesListeners(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	var keys []string
	c.UploadModel().OnChange(func(key string) { keys = append(keys, key) })

	require.NoError(t, c.SwitchTarget("Release"))
	require.NoError(t, c.SetUploader(UploaderPyOCD))
	assert.Equal(t, []string{ModelReplaced}, keys)
	assert.Equal(t, UploaderPyOCD, c.UploadModel().Name())
}

func TestSetOption_UnknownRegion(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	assert.ErrorIs(t, c.SetOption("archiver", "x", 1), ErrUnknownRegion)
}

func TestDependenceEdits(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)

	assert.ErrorIs(t, c.AddDependenceGroup(BuiltInGroup), ErrReservedGroup)
	assert.ErrorIs(t, c.AddDependence(CustomGroup, Dependence{Name: "x"}), ErrReservedGroup)

	require.NoError(t, c.AddDependence("sdk", Dependence{Name: "hal", IncList: []string{"inc/foo", "hal/inc"}}))
	require.NoError(t, c.AddDependence("sdk", Dependence{Name: "rtos", IncList: []string{"inc/foo"}, DefineList: []string{"RTOS"}}))
	require.NoError(t, c.AddCustom(IncludePaths, "inc/foo"))

	merged := c.MergedDependence()
	foo := filepath.Join(root, "inc", "foo")
	count := 0
	for _, inc := range merged.IncList {
		if inc == foo {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, merged.IncList, filepath.Join(root, "hal", "inc"))
	assert.Contains(t, merged.DefineList, "RTOS")
	assert.Contains(t, merged.DefineList, "__UVISION_VERSION=526")

	assert.NotContains(t, c.MergedDependence("sdk.rtos").DefineList, "RTOS")
	assert.NotContains(t, c.MergedDependence(BuiltInGroup).DefineList, "__UVISION_VERSION=526")

	assert.ErrorIs(t, c.RemoveDependence("sdk", "missing"), ErrDependenceNotFound)
	require.NoError(t, c.RemoveDependence("sdk", "rtos"))
	assert.NotContains(t, c.MergedDependence().DefineList, "RTOS")

	require.NoError(t, c.RemoveCustom(IncludePaths, "inc/foo"))
	assert.Empty(t, c.Data().CustomDep().IncList)

	assert.ErrorIs(t, c.RemoveDependenceGroup("nope"), ErrGroupNotFound)
	require.NoError(t, c.RemoveDependenceGroup("sdk"))
	assert.NotContains(t, c.MergedDependence().IncList, filepath.Join(root, "hal", "inc"))
}

func TestSrcDirs(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)

	require.NoError(t, c.AddSrcDir("src"))
	require.NoError(t, c.AddSrcDir("src"))
	assert.Equal(t, []string{filepath.Join(root, "src")}, c.Data().SrcDirs)

	require.NoError(t, c.RemoveSrcDir(filepath.Join(root, "src")))
	assert.Empty(t, c.Data().SrcDirs)
}

func TestPrepareBuild_NormalizesCopy(t *testing.T) {
	c := openTest(t, t.TempDir(), toolchain.KindARM, nil)
	require.NoError(t, c.SetToolchain(toolchain.GCC))
	require.NoError(t, c.SetOption(toolchain.RegionGlobal, "floating-point-hardware", "single"))

	opts, err := c.PrepareBuild()
	require.NoError(t, err)
	assert.Equal(t, "-Og", opts.Compiler.String("$optimization"))
	assert.Equal(t, []string{"-mfloat-abi=hard", "-mfpu=fpv4-sp-d16"}, opts.Global.Strings("$analysis-args"))

	assert.False(t, c.Data().CompileConfig.Options.Compiler.Has("$optimization"))
}

func TestPrepareBuild_PropagatesFailure(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindC51, nil)
	require.NoError(t, c.SetOption(toolchain.RegionLinker, "output-format", "lib"))

	_, err := c.PrepareBuild()
	assert.ErrorIs(t, err, toolchain.ErrMissingTemplate)
}

func TestAnalysisConfig(t *testing.T) {
	root := t.TempDir()
	c := openTest(t, root, toolchain.KindARM, nil)
	require.NoError(t, c.AddCustom(IncludePaths, "inc"))
	require.NoError(t, c.AddCustom(Defines, "BOARD=2"))

	cfg := c.AnalysisConfig()
	assert.Equal(t, "Debug", cfg.Name)
	assert.Contains(t, cfg.IncludePaths, filepath.Join(root, "inc"))
	assert.Contains(t, cfg.Defines, "BOARD=2")
	assert.Contains(t, cfg.Defines, "__UVISION_VERSION=526")
	assert.Contains(t, cfg.Defines, "__CC_ARM=1")
	assert.Equal(t, "c99", cfg.CStandard)
}

// fakeWatch lets tests fire change notifications for the project file.
type fakeWatch struct {
	mu       sync.Mutex
	handlers []fswatch.Handler
}

type fakeHandle struct{}

func (fakeHandle) Close() error { return nil }

func (fw *fakeWatch) factory(_ string, h fswatch.Handler) (fswatch.FileWatcher, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.handlers = append(fw.handlers, h)
	return fakeHandle{}, nil
}

func (fw *fakeWatch) fire(path string) {
	fw.mu.Lock()
	h := fw.handlers[len(fw.handlers)-1]
	fw.mu.Unlock()
	h(path, fswatch.OpChange)
}

func TestWatch_SingleProjectFileChanged(t *testing.T) {
	root := t.TempDir()
	fw := &fakeWatch{}
	c := openTest(t, root, toolchain.KindARM, func(o *Options) {
		o.Watch = fw.factory
		o.ChangeDelay = 20 * time.Millisecond
	})
	require.NoError(t, c.Watch())

	var mu sync.Mutex
	events := 0
	c.Events().SubscribeName(EventProjectFileChanged, func(notify.Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})
	var replaced []string
	c.CompileModel().OnChange(func(key string) {
		mu.Lock()
		replaced = append(replaced, key)
		mu.Unlock()
	})

	writeProjectFile(t, root, `{"name":"edited","mode":"Debug","type":"ARM","toolchain":"GCC"}`)
	for i := 0; i < 5; i++ {
		fw.fire(c.FilePath())
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return events == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, events)
	assert.Equal(t, []string{ModelReplaced}, replaced)
	mu.Unlock()
	assert.Equal(t, "edited", c.Data().Name)
	assert.Equal(t, toolchain.GCC, c.Data().Toolchain)
}
