package block

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// DeleteContent removes the content covered by r and returns the caret
// where it was. Ends of r on element boundaries are first moved into the
// neighbouring text. Blocks cut open at both ends of the range are merged
// back together at the seam, recursively through nested blocks; blocks the
// deletion leaves blank after the caret are removed. A block left blank
// at the caret gets a line break and a marker carrying the marks that were
// active at the start of the range; a document left without blocks gets a
// new paragraph.
func (e *Engine) DeleteContent(r cursor.Range) cursor.Range {
	t := e.tree
	r = cursor.Normalize(t, r)
	if r.Collapsed() {
		return r
	}
	r = e.settleRange(r)

	carried := e.carry(r.Start)
	bm := cursor.CreateBookmark(t, r)
	left, right := cursor.Prune(t, bm.Anchor, bm.Focus)
	if e.cut(left, bm.Anchor) && e.cut(right, bm.Focus) {
		e.deepMerge(left, right)
	}
	caret := e.dropFocus(bm)
	host := e.hostOf(caret.Anchor)
	e.unwrapEmptyMarks(host)
	e.marks.MergeNode(host)
	e.mergeLists(t.Scope(caret.Anchor))

	if t.IsRoot(host) && !e.hasBlocks(host) && e.blank(host) {
		blk := e.paragraph()
		t.InsertBefore(caret.Anchor, blk)
		t.Append(blk, caret.Anchor)
		host = blk
	}
	if t.IsBlock(host) && !e.container(host) && e.blank(host) {
		if pos, ok := e.fill(host, carried); ok {
			caret.Remove(t)
			return cursor.Collapsed(pos)
		}
	}
	out := cursor.MoveToBookmark(t, caret)
	return cursor.Collapsed(cursor.ShrinkToText(t, out.Start, true))
}

// cut reports whether side is a block the placeholder ph split inside its
// inline content. Only such blocks are merged at the seam.
func (e *Engine) cut(side, ph tree.Handle) bool {
	t := e.tree
	if !t.IsBlock(side) {
		return false
	}
	p := t.Parent(ph)
	switch {
	case t.IsMark(p):
		return true
	case !t.IsBlock(p) || e.IsList(p):
		return false
	}
	return !e.hasBlocks(p) || e.inlineBeside(ph)
}

// inlineBeside reports whether a sibling next to h, looking past
// placeholders, is inline content.
func (e *Engine) inlineBeside(h tree.Handle) bool {
	t := e.tree
	for _, step := range []func(tree.Handle) tree.Handle{t.Prev, t.Next} {
		n := step(h)
		for cursor.IsPlaceholder(t, n) {
			n = step(n)
		}
		if n != tree.Nil && !t.IsBlock(n) && !t.IsCard(n) {
			return true
		}
	}
	return false
}

// dropFocus removes the focus placeholder of bm and the blocks around it
// that the deletion left blank, up to the first block holding the anchor.
// It returns bm collapsed onto its anchor.
func (e *Engine) dropFocus(bm cursor.Bookmark) cursor.Bookmark {
	t := e.tree
	caret := cursor.Bookmark{ID: bm.ID, Anchor: bm.Anchor, Focus: bm.Anchor}
	if bm.Collapsed() {
		return caret
	}
	chain := t.Ancestors(bm.Focus)
	cursor.Bookmark{Anchor: bm.Focus}.Remove(t)
	for _, b := range chain {
		if !t.IsBlock(b) || t.Contains(b, bm.Anchor) || !e.blank(b) {
			break
		}
		t.Remove(b)
	}
	return caret
}

// hostOf returns the block holding placeholder ph, or its scope outside
// blocks. Lists holding nothing but ph are removed on the way up.
func (e *Engine) hostOf(ph tree.Handle) tree.Handle {
	t := e.tree
	for {
		host := cursor.ClosestBlock(t, t.Parent(ph))
		if host == tree.Nil {
			return t.Scope(ph)
		}
		if !e.IsList(host) || !e.husk(host) {
			return host
		}
		t.InsertBefore(host, ph)
		t.Remove(host)
	}
}

// deepMerge joins block b into block a, which directly precedes it. The
// innermost last block of a takes the content of the innermost first block
// of b, and the blocks emptied by that are removed. When a and b are
// containers of the same name, the rest of b moves into a.
func (e *Engine) deepMerge(a, b tree.Handle) {
	t := e.tree
	la, fb := e.innermost(a, false), e.innermost(b, true)
	t.MoveChildren(fb, la, 0)

	for n := fb; ; {
		p := t.Parent(n)
		t.Remove(n)
		if n == b || p == tree.Nil || t.ChildCount(p) > 0 {
			break
		}
		n = p
	}
	if t.Parent(b) != tree.Nil && t.Name(a) == t.Name(b) && e.hasBlocks(a) && e.hasBlocks(b) {
		t.MoveChildren(b, a, 0)
		t.Remove(b)
	}
}

// innermost descends from block h through its first or last child while
// that child is a block. Placeholders are skipped.
func (e *Engine) innermost(h tree.Handle, first bool) tree.Handle {
	t := e.tree
	for {
		kids := t.Children(h)
		c := tree.Nil
		for i := range kids {
			k := kids[i]
			if !first {
				k = kids[len(kids)-1-i]
			}
			if !cursor.IsPlaceholder(t, k) {
				c = k
				break
			}
		}
		if !t.IsBlock(c) {
			return h
		}
		h = c
	}
}
