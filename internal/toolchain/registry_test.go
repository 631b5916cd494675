package toolchain

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/crossbuild/internal/config"
	"github.com/dshills/crossbuild/internal/diag"
)

func newTestRegistry(t *testing.T, values map[string]string, opts ...Option) (*Registry, *config.MapSettings) {
	t.Helper()
	settings := config.NewMapSettings(values)
	env := Env{
		Settings: settings,
		Runner: RunnerFunc(func(string, []string, []byte) ([]byte, error) {
			return nil, errors.New("no compiler in tests")
		}),
		Logger: diag.Nop(),
	}
	r := NewRegistry(env, opts...)
	t.Cleanup(r.Close)
	return r, settings
}

func TestRegistry_ResolveInvalidFallsBackWithWarning(t *testing.T) {
	var warnings []*FallbackWarning
	r, _ := newTestRegistry(t, nil, WithWarningHandler(func(w *FallbackWarning) {
		warnings = append(warnings, w)
	}))

	d, err := r.Resolve(KindARM, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, AC5, d.Name())
	require.Len(t, warnings, 1)
	assert.Equal(t, Name("XYZ"), warnings[0].Requested)
	assert.Equal(t, AC5, warnings[0].Fallback)
	assert.Equal(t, KindARM, warnings[0].Kind)
}

func TestRegistry_Resolve(t *testing.T) {
	warned := false
	r, _ := newTestRegistry(t, nil, WithWarningHandler(func(*FallbackWarning) { warned = true }))

	tests := []struct {
		kind      Kind
		requested Name
		want      Name
	}{
		{KindARM, GCC, GCC},
		{KindARM, None, AC5},
		{KindARM, "", AC5},
		{KindC51, SDCC, SDCC},
		{KindC51, None, KeilC51},
		{KindRISCV, GCC, RISCVGCC},
		{KindMIPS, "whatever", MIPSGCC},
		{KindAnyGCC, None, AnyGCC},
	}
	for _, tt := range tests {
		d, err := r.Resolve(tt.kind, tt.requested)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Name(), "Resolve(%s, %s)", tt.kind, tt.requested)
	}
	assert.False(t, warned, "no warning expected for valid or single-toolchain kinds")
}

func TestRegistry_ResolveUnknownKind(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, err := r.Resolve("Z80", GCC)
	assert.ErrorIs(t, err, ErrUnknownProjectKind)
}

func TestRegistry_LookupHelpers(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, ok := r.ByName("XYZ")
	assert.False(t, ok)

	d, ok := r.ByName(IARSTM8)
	require.True(t, ok)
	assert.Equal(t, KindC51, d.Category())

	assert.Equal(t, []Name{AC5, AC6, GCC, IARARM, LLVMARM}, r.AllowedNames(KindARM))
	assert.Equal(t, []Name{RISCVGCC}, r.AllowedNames(KindRISCV))
	assert.Empty(t, r.AllowedNames("nope"))

	assert.Equal(t, "", r.Describe("XYZ"))
	assert.NotEmpty(t, r.Describe(SDCC))
	assert.Len(t, r.Names(), 12)
}

func TestRegistry_RegisterReplacesDescriptor(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	r.Register(AC5, newAC6)

	d, ok := r.ByName(AC5)
	require.True(t, ok)
	assert.Equal(t, AC6, d.Name())
	assert.Len(t, r.Names(), 12)
}

func TestRegistry_FactoryDefaultsCarryCurrentVersion(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	for _, name := range r.Names() {
		d, _ := r.ByName(name)
		doc := d.FactoryDefaults()
		assert.Equal(t, d.Version(), doc.Version, "%s", name)
		assert.NotNil(t, doc.Global, "%s", name)
		assert.NotNil(t, doc.Linker, "%s", name)
		for _, region := range []Region{doc.Global, doc.Compiler, doc.Assembler, doc.Linker} {
			for k := range region {
				assert.NotEqual(t, '$', rune(k[0]), "%s: derived key %q in defaults", name, k)
			}
		}
	}
}

func TestRegistry_ExecutableFolder(t *testing.T) {
	install := filepath.Join(t.TempDir(), "iar")
	r, settings := newTestRegistry(t, map[string]string{
		"toolchains.iar_stm8.installDir": install,
	})

	dir, ok := r.ExecutableFolder(IARSTM8)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(install, "stm8", "bin"), dir)

	_, ok = r.ExecutableFolder(AC6)
	assert.False(t, ok)

	settings.Set("toolchains.ac6.installDir", "/opt/armclang")
	dir, ok = r.ExecutableFolder(AC6)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/opt/armclang", "bin"), dir)
}

func TestRegistry_SettingsChangeRebuildsDescriptor(t *testing.T) {
	r, settings := newTestRegistry(t, map[string]string{
		"toolchains.gcc.installDir": "/opt/gcc",
	})

	var changed []Name
	r.OnChanged(func(n Name) { changed = append(changed, n) })

	gccBefore, _ := r.ByName(GCC)
	ac5Before, _ := r.ByName(AC5)
	assert.Equal(t, "/opt/gcc", gccBefore.InstallDir())

	settings.Set("toolchains.gcc.installDir", "/opt/gcc2")

	gccAfter, _ := r.ByName(GCC)
	ac5After, _ := r.ByName(AC5)
	assert.True(t, gccBefore != gccAfter, "descriptor should be replaced")
	assert.True(t, ac5Before == ac5After, "unrelated descriptor should be kept")
	assert.Equal(t, "/opt/gcc2", gccAfter.InstallDir())
	assert.Equal(t, "/opt/gcc", gccBefore.InstallDir(), "old instance is not mutated")
	assert.Equal(t, []Name{GCC}, changed)

	settings.Set("editor.theme", "dark")
	assert.Equal(t, []Name{GCC}, changed)
}

func TestRegistry_MapFileReportUnsupported(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, err := r.MapFileReport(KeilC51, "x.map")
	assert.ErrorIs(t, err, ErrMapUnsupported)

	_, err = r.MapFileReport("XYZ", "x.map")
	assert.ErrorIs(t, err, ErrUnknownToolchain)
}
