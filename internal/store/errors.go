package store

import "errors"

// Errors returned by store operations.
var (
	// ErrNoDefaultFactory indicates the store has no way to synthesize a
	// document for a missing backing file.
	ErrNoDefaultFactory = errors.New("no default document factory")

	// ErrReadOnly indicates a save was refused because the store does not
	// own the backing file exclusively and the save was not forced.
	ErrReadOnly = errors.New("store refuses unforced save")

	// ErrNotLoaded indicates an operation that needs a loaded document.
	ErrNotLoaded = errors.New("store not loaded")

	// ErrClosed indicates the store was disposed.
	ErrClosed = errors.New("store closed")
)
