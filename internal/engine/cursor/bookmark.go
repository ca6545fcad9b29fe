package cursor

import (
	"github.com/google/uuid"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Placeholder node names.
const (
	AnchorName = "anchor"
	FocusName  = "focus"
	CursorName = "cursor"
)

// BookmarkAttr holds the bookmark id on placeholder nodes.
const BookmarkAttr = "data-bookmark"

// Bookmark holds the placeholder nodes marking a range during a mutation.
// A collapsed range uses a single cursor placeholder for both ends.
type Bookmark struct {
	ID     string
	Anchor tree.Handle
	Focus  tree.Handle
}

// Collapsed reports whether the bookmark marks a collapsed range.
func (b Bookmark) Collapsed() bool {
	return b.Anchor == b.Focus
}

// IsPlaceholder reports whether h is a bookmark placeholder.
func IsPlaceholder(t *tree.Tree, h tree.Handle) bool {
	if !t.IsInline(h) {
		return false
	}
	_, ok := t.Attr(h, BookmarkAttr)
	return ok
}

func newPlaceholder(t *tree.Tree, name, id string) tree.Handle {
	h := t.NewElement(tree.KindInline, name)
	t.SetAttr(h, BookmarkAttr, id)
	return h
}

// CreateBookmark splices placeholders into the tree at the boundaries of r.
// Text nodes at the boundaries are split as needed.
func CreateBookmark(t *tree.Tree, r Range) Bookmark {
	id := uuid.NewString()
	if r.Collapsed() {
		c := newPlaceholder(t, CursorName, id)
		insertAt(t, r.Start, c)
		return Bookmark{ID: id, Anchor: c, Focus: c}
	}
	anchor := newPlaceholder(t, AnchorName, id)
	focus := newPlaceholder(t, FocusName, id)
	// the end goes in first so the start offsets stay valid
	insertAt(t, r.End, focus)
	insertAt(t, r.Start, anchor)
	return Bookmark{ID: id, Anchor: anchor, Focus: focus}
}

// insertAt places h at the boundary point p.
func insertAt(t *tree.Tree, p Position, h tree.Handle) {
	switch {
	case t.IsText(p.Node):
		switch {
		case p.Offset <= 0:
			t.InsertBefore(p.Node, h)
		case p.Offset >= t.Len(p.Node):
			t.InsertAfter(p.Node, h)
		default:
			t.SplitText(p.Node, p.Offset)
			t.InsertAfter(p.Node, h)
		}
	case t.IsCard(p.Node):
		if p.Offset <= 0 {
			t.InsertBefore(p.Node, h)
		} else {
			t.InsertAfter(p.Node, h)
		}
	default:
		t.Insert(p.Node, p.Offset, h)
	}
}

// InsertAt places h at the boundary point p, splitting a text node when p
// falls inside one, and returns the position right after h.
func InsertAt(t *tree.Tree, p Position, h tree.Handle) Position {
	insertAt(t, p, h)
	return After(t, h)
}

// MoveToBookmark reads the placeholder locations back into a range and
// removes the placeholders. Text split around a placeholder is merged
// again and the resulting position is expressed inside the text when
// possible.
func MoveToBookmark(t *tree.Tree, b Bookmark) Range {
	start := resolvePlaceholder(t, b.Anchor)
	if b.Collapsed() {
		return Collapsed(start)
	}
	end := resolvePlaceholder(t, b.Focus)
	if Compare(t, start, end) > 0 {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Remove detaches the placeholders without computing a range.
func (b Bookmark) Remove(t *tree.Tree) {
	for _, h := range []tree.Handle{b.Anchor, b.Focus} {
		if h != tree.Nil && t.Parent(h) != tree.Nil {
			prev, next := t.Prev(h), t.Next(h)
			t.Remove(h)
			if t.IsText(prev) && t.IsText(next) {
				t.MergeText(prev, next)
			}
		}
	}
}

func resolvePlaceholder(t *tree.Tree, h tree.Handle) Position {
	if !t.Attached(h) {
		lost := Lost(t, h)
		if t.Parent(h) != tree.Nil {
			t.Remove(h)
		}
		return lost
	}
	parent, idx := t.Parent(h), t.Index(h)
	prev, next := t.Prev(h), t.Next(h)
	t.Remove(h)

	switch {
	case t.IsText(prev) && t.IsText(next):
		offset := t.Len(prev)
		t.MergeText(prev, next)
		return Position{Node: prev, Offset: offset}
	case t.IsText(prev):
		return Position{Node: prev, Offset: t.Len(prev)}
	case t.IsText(next):
		return Position{Node: next}
	}
	return Position{Node: parent, Offset: idx}
}

// Lost returns the nearest surviving boundary for a node that is no longer
// attached: its former place in the closest ancestor that still is, or the
// start of the document.
func Lost(t *tree.Tree, h tree.Handle) Position {
	node, idx := h, -1
	for node != tree.Nil && !t.Attached(node) {
		if p := t.Parent(node); p != tree.Nil {
			node, idx = p, t.Index(node)
			continue
		}
		if owner := t.Owner(node); owner != tree.Nil {
			// a region of a detached card
			node, idx = owner, -1
			continue
		}
		node, idx = t.Former(node)
	}
	if node == tree.Nil {
		return Position{Node: t.Root()}
	}
	if idx < 0 {
		return Position{Node: node}
	}
	return Position{Node: node, Offset: min(idx, t.Len(node))}
}

// Reattach returns p when it is valid in t, clamping its offset, or the
// nearest surviving boundary when its node is no longer attached.
func Reattach(t *tree.Tree, p Position) Position {
	if !t.Valid(p.Node) {
		return Position{Node: t.Root()}
	}
	if !t.Attached(p.Node) {
		return Lost(t, p.Node)
	}
	limit := t.Len(p.Node)
	if t.IsCard(p.Node) {
		// 0 is before the card, 1 after it
		limit = 1
	}
	p.Offset = max(0, min(p.Offset, limit))
	return p
}

// ReattachRange applies Reattach to both ends of r and reorders them.
func ReattachRange(t *tree.Tree, r Range) Range {
	return NewRange(t, Reattach(t, r.Start), Reattach(t, r.End))
}
