package mark

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Split cuts the marks crossing the boundaries of r.
//
// On an expanded range the returned range spans exactly the content that
// was selected, with both ends between whole marks. On a collapsed range
// the marks around the caret are split and a zero-width marker wrapped in
// copies of those marks is inserted between the two halves; marks matched
// by remove are left out of the marker, which is bare text when none
// remain. The caret ends after the marker. A caret outside any mark is
// returned as is.
func (e *Engine) Split(r cursor.Range, remove tree.Handle) cursor.Range {
	r = cursor.Normalize(e.tree, r)
	if r.Collapsed() {
		var drop func(tree.Handle) bool
		if remove != tree.Nil {
			drop = func(m tree.Handle) bool {
				return e.matches(m, remove) && e.strip(m, remove)
			}
		}
		return e.splitCollapsed(r.Start, drop)
	}
	bm := e.splitExpanded(r)
	return cursor.MoveToBookmark(e.tree, bm)
}

// splitExpanded bookmarks r and splits the marks at both placeholders. The
// placeholders are left in the tree at the level of their nearest non-mark
// ancestor.
func (e *Engine) splitExpanded(r cursor.Range) cursor.Bookmark {
	t := e.tree
	bm := cursor.CreateBookmark(t, r)
	if t.Contains(e.host(bm.Anchor), e.host(bm.Focus)) {
		e.splitAt(bm.Anchor)
		e.splitAt(bm.Focus)
	} else {
		e.splitAt(bm.Focus)
		e.splitAt(bm.Anchor)
	}
	return bm
}

// splitAt splits the mark chain above placeholder ph and moves ph between
// the two halves. Halves left without content are removed.
func (e *Engine) splitAt(ph tree.Handle) {
	t := e.tree
	top := e.topMark(ph)
	if top == tree.Nil {
		return
	}
	right := t.SplitAt(top, t.Parent(ph), t.Index(ph))
	t.InsertAfter(top, ph)
	e.removeEmptyMarks(top)
	e.removeEmptyMarks(right)
}

// splitCollapsed splits the marks at p and inserts the marker. drop
// reports whether a copied mark should be left out of the marker; it may
// strip keys from the copy instead.
func (e *Engine) splitCollapsed(p cursor.Position, drop func(tree.Handle) bool) cursor.Range {
	t := e.tree
	bm := cursor.CreateBookmark(t, cursor.Collapsed(p))
	ph := bm.Anchor

	chain := e.marksOf(ph)
	if len(chain) == 0 {
		return cursor.MoveToBookmark(t, bm)
	}
	templates := make([]tree.Handle, 0, len(chain))
	for _, m := range chain {
		templates = append(templates, t.Clone(m, false))
	}

	e.splitAt(ph)

	var marker, inner tree.Handle
	for _, m := range templates {
		if drop != nil && drop(m) {
			continue
		}
		if marker == tree.Nil {
			marker = m
		} else {
			t.Append(inner, m)
		}
		inner = m
	}
	zw := t.NewText(tree.ZeroWidth)
	if marker == tree.Nil {
		marker = zw
	} else {
		t.Append(inner, zw)
	}
	t.InsertBefore(ph, marker)
	e.dropZeroWidthAround(marker)
	bm.Remove(t)
	return cursor.Collapsed(cursor.At(zw, 1))
}
