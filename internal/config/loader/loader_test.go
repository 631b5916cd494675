package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	if s, ok := m[path]; ok {
		return []byte(s), nil
	}
	return nil, fs.ErrNotExist
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	return nil, fs.ErrNotExist
}

func TestTOMLLoader_Flattens(t *testing.T) {
	fsys := memFS{"/s.toml": `
[toolchains.gcc]
installDir = "/opt/gcc"
prefix = "arm-none-eabi-"

[toolchains.sdcc]
installDir = "/opt/sdcc"
libDirs = ["a", "b"]

[general]
verbose = true
`}

	got, err := NewTOMLLoaderWithFS(fsys, "/s.toml").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{
		"toolchains.gcc.installDir":  "/opt/gcc",
		"toolchains.gcc.prefix":      "arm-none-eabi-",
		"toolchains.sdcc.installDir": "/opt/sdcc",
		"toolchains.sdcc.libDirs":    "a;b",
		"general.verbose":            "true",
	}
	if len(got) != len(want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestTOMLLoader_MissingFile(t *testing.T) {
	got, err := NewTOMLLoader(filepath.Join(t.TempDir(), "none.toml")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[broken\nkey = "), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewTOMLLoader(path).Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
	}
}

func TestEnvLoader_Overlay(t *testing.T) {
	env := map[string]string{
		"CROSSBUILD_TOOLCHAINS_GCC_INSTALLDIR": "/env/gcc",
		"CB_SDCC":                              "/env/sdcc",
	}
	l := NewEnvLoader("CROSSBUILD_")
	l.lookup = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	l.AddMapping("CB_SDCC", "toolchains.sdcc.installDir")

	base := map[string]string{
		"toolchains.gcc.installDir": "/opt/gcc",
		"toolchains.gcc.prefix":     "arm-none-eabi-",
	}
	got := l.Overlay(base)

	if got["toolchains.gcc.installDir"] != "/env/gcc" {
		t.Errorf("gcc installDir = %q, want /env/gcc", got["toolchains.gcc.installDir"])
	}
	if got["toolchains.gcc.prefix"] != "arm-none-eabi-" {
		t.Errorf("gcc prefix = %q, want unchanged", got["toolchains.gcc.prefix"])
	}
	if got["toolchains.sdcc.installDir"] != "/env/sdcc" {
		t.Errorf("sdcc installDir = %q, want /env/sdcc", got["toolchains.sdcc.installDir"])
	}
	if base["toolchains.gcc.installDir"] != "/opt/gcc" {
		t.Error("Overlay modified base map")
	}
}

func TestFlatten_Nested(t *testing.T) {
	out := make(map[string]string)
	Flatten("", map[string]any{
		"a": map[string]any{"b": map[string]any{"c": int64(3)}},
		"d": time.Duration(0).String(),
	}, out)

	if out["a.b.c"] != "3" {
		t.Errorf("a.b.c = %q, want 3", out["a.b.c"])
	}
	if out["d"] != "0s" {
		t.Errorf("d = %q, want 0s", out["d"])
	}
}
