// Package loader reads settings sources into flat key→value maps.
//
// Settings keys are dot-separated paths such as
// "toolchains.gcc.installDir". Nested tables in a TOML file and
// prefixed environment variables are both flattened to that form.
package loader

import (
	"io/fs"
	"os"
)

// Loader is the interface for settings sources.
type Loader interface {
	// Load returns the flattened settings. A missing source yields an
	// empty map and no error.
	Load() (map[string]string, error)
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}
