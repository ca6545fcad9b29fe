package tree

import "errors"

// Errors returned by tree operations.
var (
	// ErrInvalidHandle indicates a handle that does not address a node.
	ErrInvalidHandle = errors.New("invalid node handle")

	// ErrInvalidPath indicates a path that does not resolve to a node.
	ErrInvalidPath = errors.New("invalid node path")

	// ErrMarkup indicates markup that could not be parsed.
	ErrMarkup = errors.New("malformed markup")
)
