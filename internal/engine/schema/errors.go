package schema

import "errors"

// Errors returned at rule registration time. They indicate caller bugs,
// not document data problems.
var (
	// ErrReservedName indicates a rule for a structural name the engine
	// synthesizes itself.
	ErrReservedName = errors.New("reserved node name")

	// ErrInvalidRule indicates a rule without a name or category.
	ErrInvalidRule = errors.New("invalid schema rule")

	// ErrConflictingRule indicates a rule whose category differs from an
	// already registered rule of the same name.
	ErrConflictingRule = errors.New("conflicting schema rule")

	// ErrUnknownBuiltin indicates a rule file referencing an unknown
	// built-in predicate.
	ErrUnknownBuiltin = errors.New("unknown builtin predicate")
)
