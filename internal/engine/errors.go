package engine

import (
	"errors"

	"github.com/dshills/docstorm/internal/engine/history"
)

// Errors returned by engine operations. Data conditions such as an
// illegal nesting are not errors: the operation leaves the document and
// selection as they were.
var (
	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("engine is closed")

	// ErrReadOnly indicates a write on a read-only session.
	ErrReadOnly = errors.New("engine is read-only")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo

	// ErrUnknownOperation indicates a record names no known operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidPath indicates a serialized position that does not resolve.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidTemplate indicates template markup that does not sanitize
	// to exactly one node.
	ErrInvalidTemplate = errors.New("invalid template")
)
