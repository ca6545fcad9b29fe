package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries bounds the undo stack when no limit is given.
const DefaultMaxEntries = 500

type entry struct {
	command   Command
	timestamp time.Time
}

func (e *entry) info() OperationInfo {
	return OperationInfo{Description: e.command.Description(), Timestamp: e.timestamp}
}

// History manages the undo and redo stacks of one document.
type History struct {
	mu sync.Mutex

	undo []*entry
	redo []*entry

	grouping bool
	group    *CompoundCommand

	maxEntries int
}

// NewHistory creates a history keeping at most maxEntries undo entries.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{maxEntries: maxEntries}
}

// Execute runs cmd and pushes it.
func (h *History) Execute(cmd Command, doc *tree.Tree, sel *cursor.Range) error {
	if err := cmd.Execute(doc, sel); err != nil {
		return err
	}
	h.Push(cmd)
	return nil
}

// Push adds an executed command to the undo stack and clears the redo
// stack. While a group is open the command joins the group instead.
func (h *History) Push(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		h.group.Add(cmd)
		return
	}
	h.pushLocked(cmd)
}

func (h *History) pushLocked(cmd Command) {
	h.undo = append(h.undo, &entry{command: cmd, timestamp: time.Now()})
	h.redo = nil
	if excess := len(h.undo) - h.maxEntries; excess > 0 {
		h.undo = h.undo[excess:]
	}
}

// Undo reverses the last command.
func (h *History) Undo(doc *tree.Tree, sel *cursor.Range) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	if err := e.command.Undo(doc, sel); err != nil {
		return err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	return nil
}

// Redo re-executes the last undone command.
func (h *History) Redo(doc *tree.Tree, sel *cursor.Range) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}
	e := h.redo[len(h.redo)-1]
	if err := e.command.Execute(doc, sel); err != nil {
		return err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
	return nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	return h.UndoCount() > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	return h.RedoCount() > 0
}

// UndoCount returns the number of undo entries.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// RedoCount returns the number of redo entries.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

// BeginGroup starts a command group. Nested calls are ignored.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return
	}
	h.grouping = true
	h.group = NewCompoundCommand(name)
}

// EndGroup closes the group and pushes its commands as one entry.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false
	if !h.group.IsEmpty() {
		h.pushLocked(h.group)
	}
	h.group = nil
}

// CancelGroup drops the open group without recording it. Commands already
// executed keep their effect on the document.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.group = nil
}

// IsGrouping returns true if a group is open.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undo, h.redo = nil, nil
	h.grouping, h.group = false, nil
}

// UndoInfo describes the undo stack, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undo)
}

// RedoInfo describes the redo stack, oldest first.
func (h *History) RedoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redo)
}

func infos(es []*entry) []OperationInfo {
	out := make([]OperationInfo, len(es))
	for i, e := range es {
		out[i] = e.info()
	}
	return out
}

// PeekUndo describes the next undo entry without removing it.
func (h *History) PeekUndo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return OperationInfo{}, false
	}
	return h.undo[len(h.undo)-1].info(), true
}

// MaxEntries returns the maximum number of undo entries.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
