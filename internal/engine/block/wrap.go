package block

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// WrapBlock wraps the run of sibling blocks touched by r in a copy of
// template. When the blocks may not sit inside the template, the run moves
// up to their ancestors until they can. Simple blocks wrapped in a list
// become list items. A run already wrapped in a block of the template's
// name is left alone.
func (e *Engine) WrapBlock(r cursor.Range, template tree.Handle) cursor.Range {
	t := e.tree
	if !e.blockTemplate(template) {
		return r
	}
	r = cursor.Normalize(t, r)
	blocks := e.blocksIn(r)
	if len(blocks) == 0 {
		return r
	}
	name := t.Name(template)

	first, last := blocks[0], blocks[len(blocks)-1]
	parent := t.Parent(first)
	if first != last {
		parent = t.CommonAncestor(first, last)
	}
	s, l := childUnder(t, first, parent), childUnder(t, last, parent)
	for !e.canWrap(parent, s, l, name) {
		if t.IsRoot(parent) || t.Parent(parent) == tree.Nil {
			return r
		}
		s, l, parent = parent, parent, t.Parent(parent)
	}
	if t.Name(parent) == name {
		return r
	}

	bm := cursor.CreateBookmark(t, r)
	w := t.Clone(template, false)
	if e.schema != nil {
		e.schema.Filter(t, w)
	}
	t.InsertBefore(s, w)
	for n := s; n != tree.Nil; {
		next := t.Next(n)
		t.Append(w, n)
		if n == l {
			break
		}
		n = next
	}
	e.adoptItems(w)
	e.mergeLists(t.Parent(w))
	return cursor.MoveToBookmark(t, bm)
}

// childUnder returns the ancestor of h, or h, whose parent is p.
func childUnder(t *tree.Tree, h, p tree.Handle) tree.Handle {
	for h != tree.Nil && t.Parent(h) != p {
		h = t.Parent(h)
	}
	return h
}

// canWrap reports whether a wrapper named name may take the place of the
// children s through l of parent.
func (e *Engine) canWrap(parent, s, l tree.Handle, name string) bool {
	t := e.tree
	if !e.allowed(name, parent) {
		return false
	}
	item := e.itemOf(name)
	for n := s; n != tree.Nil; n = t.Next(n) {
		if t.IsBlock(n) && !e.allowedChild(n, name, item) {
			return false
		}
		if n == l {
			break
		}
	}
	return true
}

func (e *Engine) allowedChild(n tree.Handle, wrapper, item string) bool {
	t := e.tree
	if item != "" {
		return t.Name(n) == item || !e.hasBlocks(n)
	}
	if e.schema == nil {
		return true
	}
	return e.schema.AllowedIn(t.Name(n), wrapper)
}

// adoptItems renames the simple blocks of list w to its item name.
func (e *Engine) adoptItems(w tree.Handle) {
	t := e.tree
	item := e.itemOf(t.Name(w))
	if item == "" {
		return
	}
	for _, c := range t.Children(w) {
		if t.IsBlock(c) && t.Name(c) != item && !e.hasBlocks(c) {
			t.SetName(c, item)
			if e.schema != nil {
				e.schema.Filter(t, c)
			}
		}
	}
}

// UnwrapBlock removes the nearest ancestor matching template from the
// blocks touched by r, promoting its children. Only the touched children
// are promoted: the untouched ones before and after stay in copies of the
// ancestor. A template matches blocks of the same name that carry every
// attribute key of the template. Promoted blocks that may not sit in their
// new parent become paragraphs.
func (e *Engine) UnwrapBlock(r cursor.Range, template tree.Handle) cursor.Range {
	t := e.tree
	if !t.Valid(template) || !t.IsBlock(template) {
		return r
	}
	r = e.settleRange(cursor.Normalize(t, r))

	type run struct{ wrapper, first, last tree.Handle }
	var runs []run
	for _, b := range e.blocksIn(r) {
		child, w := b, t.Parent(b)
		for w != tree.Nil && !t.IsRoot(w) && !e.matchesBlock(w, template) {
			child, w = w, t.Parent(w)
		}
		if w == tree.Nil || t.IsRoot(w) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].wrapper == w {
			runs[n-1].last = child
			continue
		}
		runs = append(runs, run{w, child, child})
	}
	if len(runs) == 0 {
		return r
	}

	bm := cursor.CreateBookmark(t, r)
	for _, ru := range runs {
		e.unwrapRun(ru.wrapper, ru.first, ru.last)
	}
	e.mergeLists(t.Scope(bm.Anchor))
	return cursor.MoveToBookmark(t, bm)
}

func (e *Engine) matchesBlock(h, template tree.Handle) bool {
	t := e.tree
	if !t.IsBlock(h) || t.Name(h) != t.Name(template) {
		return false
	}
	for k := range t.Attrs(template) {
		if _, ok := t.Attr(h, k); !ok {
			return false
		}
	}
	return true
}

// unwrapRun promotes the children first through last of w. Copies of w
// split off around them that hold only placeholders are dropped.
func (e *Engine) unwrapRun(w, first, last tree.Handle) {
	t := e.tree
	after := tree.Nil
	if i := t.Index(last); i < t.ChildCount(w)-1 {
		after = t.SplitAt(w, w, i+1)
	}
	mid := w
	if i := t.Index(first); i > 0 {
		mid = t.SplitAt(w, w, i)
	}
	parent := t.Parent(mid)
	kids := t.Children(mid)
	t.Unwrap(mid)
	for _, c := range kids {
		if t.IsBlock(c) && !e.allowed(t.Name(c), parent) {
			e.demote(c)
		}
	}
	if after != tree.Nil {
		e.dropHusk(after)
	}
	if mid != w {
		e.dropHusk(w)
	}
}

// demote turns block h into a paragraph, keeping the attributes allowed
// there.
func (e *Engine) demote(h tree.Handle) {
	t := e.tree
	if e.hasBlocks(h) {
		t.Unwrap(h)
		return
	}
	t.SetName(h, "p")
	if e.schema != nil {
		e.schema.Filter(t, h)
	}
}

// SetBlocks renames the simple blocks touched by r after template and
// copies its attributes and styles, so paragraphs become headings and
// back. Attributes the new name does not allow are dropped. List items
// and other blocks bound to a container are skipped.
func (e *Engine) SetBlocks(r cursor.Range, template tree.Handle) cursor.Range {
	t := e.tree
	if !e.blockTemplate(template) {
		return r
	}
	name := t.Name(template)
	if e.schema != nil && !e.schema.IsRootBlock(name) {
		return r
	}
	r = cursor.Normalize(t, r)
	for _, b := range e.blocksIn(r) {
		if e.schema != nil && !e.schema.IsRootBlock(t.Name(b)) {
			continue
		}
		if e.schema == nil && t.Name(b) == e.itemOf(t.Name(t.Parent(b))) {
			continue
		}
		t.SetName(b, name)
		for k, v := range t.Attrs(template) {
			t.SetAttr(b, k, v)
		}
		for k, v := range t.Styles(template) {
			t.SetStyle(b, k, v)
		}
		if e.schema != nil {
			e.schema.Filter(t, b)
		}
	}
	return r
}
