package mark

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Wrap applies the mark template to r and returns the range over the same
// content. Templates that are not marks, or that the schema rejects, leave
// the tree untouched and r is returned unchanged.
//
// On a collapsed range Wrap inserts a zero-width marker carrying the
// template so the next typed text picks up the format.
func (e *Engine) Wrap(r cursor.Range, template tree.Handle) cursor.Range {
	tpl, ok := e.template(template)
	if !ok {
		return r
	}
	t := e.tree
	r = cursor.Normalize(t, r)
	if r.Collapsed() {
		return e.wrapCollapsed(r.Start, tpl)
	}

	bm := e.splitExpanded(r)
	for _, leaf := range e.leavesBetween(bm.Anchor, bm.Focus) {
		for _, m := range tpl {
			e.wrapByNode(leaf, m)
		}
	}
	e.mergeAround(bm)
	return cursor.MoveToBookmark(t, bm)
}

func (e *Engine) wrapCollapsed(p cursor.Position, tpl []tree.Handle) cursor.Range {
	t := e.tree
	if e.allActive(p, tpl) {
		return cursor.Collapsed(p)
	}

	r := e.splitCollapsed(p, nil)
	zw := r.Start.Node
	if !t.IsZeroWidth(zw) {
		zw = t.NewText(tree.ZeroWidth)
		cursor.InsertAt(t, r.Start, zw)
	}
	for _, m := range tpl {
		e.wrapByNode(zw, m)
	}
	top := zw
	for t.IsMark(t.Parent(top)) {
		top = t.Parent(top)
	}
	e.dropZeroWidthAround(top)

	bm := cursor.CreateBookmark(t, cursor.Collapsed(cursor.At(zw, 1)))
	e.mergeNode(e.host(top))
	return cursor.MoveToBookmark(t, bm)
}

// allActive reports whether every template mark is already applied at p.
func (e *Engine) allActive(p cursor.Position, tpl []tree.Handle) bool {
	active := e.marksOf(cursor.ShrinkToText(e.tree, p, false).Node)
	for _, m := range tpl {
		if !e.containsIdentical(active, m) {
			return false
		}
	}
	return true
}

func (e *Engine) containsIdentical(marks []tree.Handle, m tree.Handle) bool {
	for _, a := range marks {
		if e.tree.SameMarkup(a, m) {
			return true
		}
	}
	return false
}

// rank orders marks for nesting: level first, then format identity.
func (e *Engine) outranks(a, b tree.Handle) bool {
	t := e.tree
	la, lb := e.formats.Lookup(t, a).MergeLevel, e.formats.Lookup(t, b).MergeLevel
	if la != lb {
		return la > lb
	}
	return nodeIdentity(t, a) > nodeIdentity(t, b)
}

// wrapByNode applies mark m to leaf. An identical mark ancestor makes it a
// no-op. The new mark is placed above every mark ancestor it outranks and
// below the rest.
//
// An ancestor of the same format carries the same keys with other values.
// With CombineValueByWrap the ancestor takes m's values where it stands;
// otherwise it is removed and m is placed by rank. Both leave leaf with
// m's values, so the policies differ only for an ancestor nested out of
// MergeLevel order, which combining keeps in place.
func (e *Engine) wrapByNode(leaf, m tree.Handle) {
	t := e.tree
	ancestors := e.marksOf(leaf)
	if e.containsIdentical(ancestors, m) {
		return
	}

	f := e.formats.Lookup(t, m)
	for _, a := range ancestors {
		if !t.SameKeys(a, m) {
			continue
		}
		if f.CombineValueByWrap {
			for k, v := range t.Attrs(m) {
				t.SetAttr(a, k, v)
			}
			for k, v := range t.Styles(m) {
				t.SetStyle(a, k, v)
			}
			return
		}
		t.Unwrap(a)
	}

	target := leaf
	for p := t.Parent(target); t.IsMark(p) && e.outranks(m, p); p = t.Parent(target) {
		target = p
	}
	t.Wrap(target, t.Clone(m, false))
}

// Unwrap removes the marks matched by filter from r; a Nil filter removes
// every mark. A filter carrying attribute or style keys only strips those
// keys from marks that carry others as well.
//
// On a collapsed range the formats are split off at the caret: a
// zero-width marker carrying the remaining marks is inserted, so the next
// typed text no longer gets the removed format.
func (e *Engine) Unwrap(r cursor.Range, filter tree.Handle) cursor.Range {
	t := e.tree
	if filter != tree.Nil && (!t.Valid(filter) || !t.IsMark(filter)) {
		return r
	}
	r = cursor.Normalize(t, r)
	if r.Collapsed() {
		for _, m := range e.marksOf(cursor.ShrinkToText(t, r.Start, false).Node) {
			if e.matches(m, filter) {
				return e.splitCollapsed(r.Start, func(m tree.Handle) bool {
					return e.matches(m, filter) && e.strip(m, filter)
				})
			}
		}
		return r
	}

	bm := e.splitExpanded(r)
	for _, m := range e.marksBetween(bm.Anchor, bm.Focus) {
		if e.matches(m, filter) {
			e.strip(m, filter)
		}
	}
	e.mergeAround(bm)
	return cursor.MoveToBookmark(t, bm)
}
