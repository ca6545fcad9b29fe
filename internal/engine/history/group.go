package history

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// GroupScope closes a group with defer:
//
//	defer h.GroupScope("Paste").End()
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{history: h, active: true}
}

// End ends the group scope. Only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Transaction runs fn inside a group. When fn fails the commands it pushed
// are undone and the group is dropped.
func (h *History) Transaction(name string, doc *tree.Tree, sel *cursor.Range, fn func() error) error {
	h.BeginGroup(name)
	if err := fn(); err != nil {
		h.mu.Lock()
		group := h.group
		h.mu.Unlock()
		h.CancelGroup()
		if group != nil {
			_ = group.Undo(doc, sel)
		}
		return err
	}
	h.EndGroup()
	return nil
}

// Checkpoint marks a depth of the undo stack.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current depth.
func (h *History) CreateCheckpoint() Checkpoint {
	return Checkpoint{undoDepth: h.UndoCount()}
}

// UndoToCheckpoint undoes every entry pushed since cp.
func (h *History) UndoToCheckpoint(cp Checkpoint, doc *tree.Tree, sel *cursor.Range) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(doc, sel); err != nil {
			return err
		}
	}
	return nil
}
