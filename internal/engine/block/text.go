package block

import (
	"unicode/utf8"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// InsertText types s at the caret and puts the caret after it. Text typed
// on a zero-width marker replaces the marker, so it picks up the marks the
// marker carries. Typing into a blank block drops its line break filler.
// A caret between the blocks of a list or quote types into the block beside
// it. An expanded range is deleted first.
func (e *Engine) InsertText(r cursor.Range, s string) cursor.Range {
	t := e.tree
	if s == "" {
		return r
	}
	r = cursor.Normalize(t, r)
	if !r.Collapsed() {
		r = e.DeleteContent(r)
	}
	p := cursor.ShrinkToText(t, e.enter(r.Start), false)
	n := utf8.RuneCountInString(s)

	if !t.IsText(p.Node) {
		h := t.NewText(s)
		e.place(p, h)
		return cursor.Collapsed(cursor.At(h, n))
	}

	host := cursor.ClosestBlock(t, t.Parent(p.Node))
	blank := host != tree.Nil && !e.container(host) && e.blank(host)
	if t.IsZeroWidth(p.Node) {
		t.SetText(p.Node, s)
		p.Offset = 0
	} else {
		t.SetText(p.Node, tree.InsertRunes(t.Text(p.Node), p.Offset, s))
	}
	if blank {
		e.dropFiller(host)
	}
	return cursor.Collapsed(cursor.At(p.Node, p.Offset+n))
}
