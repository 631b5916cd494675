// Package app wires the settings store, the toolchain registry and a
// project configuration into one application.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrNoProject indicates an operation that needs an open project.
	ErrNoProject = errors.New("no project open")

	// ErrClosed indicates the application was closed.
	ErrClosed = errors.New("application closed")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "switch-target", "set-toolchain")
	Target string // Target of the operation (e.g., target or toolchain name)
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ErrorList collects errors from shutting down several components.
type ErrorList struct {
	errs []error
}

// Add appends err if it is not nil.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

// AsError returns nil, the single error, or all errors joined.
func (e *ErrorList) AsError() error {
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return errors.Join(e.errs...)
	}
}
