package history

import (
	"time"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Operation records one undoable edit as snapshots of the document taken
// before and after it.
type Operation struct {
	Before *tree.Tree
	After  *tree.Tree

	// Selection before and after the edit
	RangeBefore cursor.Range
	RangeAfter  cursor.Range

	Timestamp time.Time
}

// NewOperation creates an operation from two snapshots.
func NewOperation(before, after *tree.Tree, rb, ra cursor.Range) *Operation {
	return &Operation{
		Before:      before,
		After:       after,
		RangeBefore: rb,
		RangeAfter:  ra,
		Timestamp:   time.Now(),
	}
}

// Changed reports whether the edit altered the document.
func (op *Operation) Changed() bool {
	return op.Before.String(op.Before.Root()) != op.After.String(op.After.Root())
}

// NodesDelta returns the change in the number of allocated nodes.
func (op *Operation) NodesDelta() int {
	return op.After.Size() - op.Before.Size()
}

// Invert returns an operation that undoes this one.
func (op *Operation) Invert() *Operation {
	return &Operation{
		Before:      op.After,
		After:       op.Before,
		RangeBefore: op.RangeAfter,
		RangeAfter:  op.RangeBefore,
		Timestamp:   time.Now(),
	}
}

// OperationInfo provides read-only info about an undo entry.
type OperationInfo struct {
	Description string
	Timestamp   time.Time
}
