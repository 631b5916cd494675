package project

import (
	"errors"
	"fmt"
)

// Standard errors returned by the project package.
var (
	// ErrUnknownTarget indicates a target name with no entry in the catalog.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrActiveTarget indicates an operation that cannot apply to the
	// active target.
	ErrActiveTarget = errors.New("target is active")

	// ErrInvalidTargetName indicates an empty or malformed target name.
	ErrInvalidTargetName = errors.New("invalid target name")

	// ErrUnknownUploader indicates an uploader name with no defaults.
	ErrUnknownUploader = errors.New("unknown uploader")

	// ErrReservedGroup indicates an edit of a group rebuilt at load time.
	ErrReservedGroup = errors.New("dependence group is reserved")

	// ErrGroupNotFound indicates a missing dependence group.
	ErrGroupNotFound = errors.New("dependence group not found")

	// ErrDependenceNotFound indicates a missing dependence in a group.
	ErrDependenceNotFound = errors.New("dependence not found")

	// ErrUnknownRegion indicates an option region that does not exist.
	ErrUnknownRegion = errors.New("unknown option region")
)

// PathError represents an error associated with a file path.
type PathError struct {
	Op   string // Operation that failed (park, read, write)
	Path string // File path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// TargetError represents an error related to one build target.
type TargetError struct {
	Target string // Target name
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *TargetError) Error() string {
	return fmt.Sprintf("target %q: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *TargetError) Unwrap() error {
	return e.Err
}

// IsUnknownTarget returns true if the error names a target missing from
// the catalog.
func IsUnknownTarget(err error) bool {
	return errors.Is(err, ErrUnknownTarget)
}
