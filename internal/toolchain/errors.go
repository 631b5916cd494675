package toolchain

import (
	"errors"
	"fmt"
)

// Errors returned by toolchain operations.
var (
	// ErrUnknownProjectKind indicates a project kind with no toolchain table.
	ErrUnknownProjectKind = errors.New("unknown project kind")

	// ErrUnknownToolchain indicates a name with no registered descriptor.
	ErrUnknownToolchain = errors.New("unknown toolchain")

	// ErrMapFileNotFound indicates the linker map file does not exist.
	ErrMapFileNotFound = errors.New("map file not found")

	// ErrNoMapData indicates the map file yielded no module sizes.
	ErrNoMapData = errors.New("no parseable rows in map file")

	// ErrMapUnsupported indicates a toolchain without a map file report.
	ErrMapUnsupported = errors.New("map file report not supported")

	// ErrMissingTemplate indicates a template needed for a placeholder
	// artifact is missing.
	ErrMissingTemplate = errors.New("template file not found")
)

// FallbackWarning reports that a requested toolchain was not valid for a
// project kind and the kind's default was used instead.
type FallbackWarning struct {
	// Kind is the project kind being resolved.
	Kind Kind
	// Requested is the toolchain that was asked for.
	Requested Name
	// Fallback is the toolchain that was returned.
	Fallback Name
}

// Error implements the error interface.
func (w *FallbackWarning) Error() string {
	return fmt.Sprintf("toolchain %q is not valid for %s projects, using %q", w.Requested, w.Kind, w.Fallback)
}
