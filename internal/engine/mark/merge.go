package mark

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Merge canonicalizes the marks around r and returns the range over the
// same content.
func (e *Engine) Merge(r cursor.Range) cursor.Range {
	r = cursor.Normalize(e.tree, r)
	bm := cursor.CreateBookmark(e.tree, r)
	e.mergeAround(bm)
	return cursor.MoveToBookmark(e.tree, bm)
}

// MergeNode canonicalizes the marks below h.
func (e *Engine) MergeNode(h tree.Handle) {
	e.mergeNode(h)
}

// mergeAround merges below the nearest non-mark node containing both
// placeholders.
func (e *Engine) mergeAround(bm cursor.Bookmark) {
	t := e.tree
	c := t.CommonAncestor(bm.Anchor, bm.Focus)
	for c != tree.Nil && (t.IsMark(c) || t.IsInline(c) && cursor.IsPlaceholder(t, c)) {
		c = t.Parent(c)
	}
	if c != tree.Nil {
		e.mergeNode(c)
	}
}

func (e *Engine) mergeNode(h tree.Handle) {
	if h == tree.Nil {
		return
	}
	for e.mergePass(h) {
	}
	e.tree.Normalize(h)
}

// mergePass runs one canonicalization sweep below h and reports whether it
// changed anything.
func (e *Engine) mergePass(h tree.Handle) bool {
	t := e.tree
	changed := false
	for i := 0; i < t.ChildCount(h); i++ {
		c := t.Child(h, i)
		if !t.IsMark(c) {
			if t.Kind(c).IsElement() && e.mergePass(c) {
				changed = true
			}
			continue
		}
		if !e.hasContent(c) {
			t.Remove(c)
			i--
			changed = true
			continue
		}
		if e.redundant(c) {
			t.Unwrap(c)
			i--
			changed = true
			continue
		}
		if e.mergePass(c) {
			changed = true
		}
		if prev, between := e.identicalBefore(c); prev != tree.Nil {
			for _, ph := range between {
				t.Append(prev, ph)
			}
			t.MoveChildren(c, prev, 0)
			t.Remove(c)
			i -= 1 + len(between)
			changed = true
		}
	}
	return changed
}

// redundant reports whether mark h sits inside an identical mark.
func (e *Engine) redundant(h tree.Handle) bool {
	t := e.tree
	for p := t.Parent(h); t.IsMark(p); p = t.Parent(p) {
		if t.SameMarkup(p, h) {
			return true
		}
	}
	return false
}

// identicalBefore returns the preceding sibling identical to mark h,
// looking past bookmark placeholders, and the placeholders in between.
func (e *Engine) identicalBefore(h tree.Handle) (tree.Handle, []tree.Handle) {
	t := e.tree
	var between []tree.Handle
	prev := t.Prev(h)
	for cursor.IsPlaceholder(t, prev) {
		between = append([]tree.Handle{prev}, between...)
		prev = t.Prev(prev)
	}
	if t.IsMark(prev) && t.SameMarkup(prev, h) {
		return prev, between
	}
	return tree.Nil, nil
}
