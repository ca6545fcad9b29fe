package block

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// SplitBlock splits the block around the caret in two and puts the caret
// at the start of the second block. An expanded range is deleted first.
// Neither half is left blank: a blank half gets a line break, and the half
// holding the caret also gets a marker carrying the marks that were active
// there. Halves of list containers left empty are removed instead. A caret
// between the blocks of a container splits the block beside it.
//
// A caret outside any block moves to the next sibling boundary.
func (e *Engine) SplitBlock(r cursor.Range) cursor.Range {
	t := e.tree
	r = cursor.Normalize(t, r)
	if !r.Collapsed() {
		r = e.DeleteContent(r)
	}
	p := e.enter(r.Start)
	block := cursor.ClosestBlock(t, cursor.Container(t, p))
	if block == tree.Nil {
		return e.nextBoundary(p)
	}

	carried := e.carry(p)
	bm := cursor.CreateBookmark(t, cursor.Collapsed(p))
	ph := bm.Anchor
	right := t.SplitAt(block, t.Parent(ph), t.Index(ph))
	e.tidy(block, true)
	e.tidy(right, false)

	var caret cursor.Position
	marked := false
	for _, half := range []tree.Handle{block, right} {
		if !e.blank(half) {
			continue
		}
		holds := t.Contains(half, ph)
		if e.container(half) {
			e.dropHusk(half)
			continue
		}
		var marks []tree.Handle
		if holds {
			marks = carried
		}
		if pos, ok := e.fill(half, marks); ok {
			caret, marked = pos, true
		}
	}
	if marked {
		bm.Remove(t)
		return cursor.Collapsed(caret)
	}
	out := cursor.MoveToBookmark(t, bm)
	return cursor.Collapsed(cursor.ShrinkToText(t, out.Start, true))
}

// nextBoundary moves a caret that is not inside a block past the next
// sibling of its container.
func (e *Engine) nextBoundary(p cursor.Position) cursor.Range {
	t := e.tree
	c, idx := p.Node, p.Offset
	if t.IsText(c) {
		c, idx = t.Parent(c), t.Index(c)
	}
	if c == tree.Nil {
		return cursor.Collapsed(p)
	}
	return cursor.Collapsed(cursor.At(c, min(idx+1, t.ChildCount(c))))
}

// InsertBlock inserts a deep copy of template at the caret. The block
// around the caret is split and the new block goes between the halves;
// blank halves are dropped, and a blank block at the caret is replaced.
// The template may be a block or a block card. The caret ends at the end
// of the inserted block, or after an inserted card.
//
// Templates that are neither, or that may not be placed at the caret,
// leave the tree untouched.
func (e *Engine) InsertBlock(r cursor.Range, template tree.Handle) cursor.Range {
	if !e.blockTemplate(template) && !e.cardTemplate(template) {
		return r
	}
	return e.insertBlock(r, template, true)
}

// PlaceBlock is like InsertBlock but inserts the detached node h itself
// instead of a copy. It is used for card nodes whose instance is bound to
// the node.
func (e *Engine) PlaceBlock(r cursor.Range, h tree.Handle) cursor.Range {
	t := e.tree
	if t.Parent(h) != tree.Nil || (!e.blockTemplate(h) && !e.cardTemplate(h)) {
		return r
	}
	return e.insertBlock(r, h, false)
}

func (e *Engine) insertBlock(r cursor.Range, template tree.Handle, clone bool) cursor.Range {
	t := e.tree
	r = cursor.Normalize(t, r)
	if !r.Collapsed() {
		r = e.DeleteContent(r)
	}
	p := e.enter(r.Start)
	name := t.Name(template)

	start := cursor.ClosestBlock(t, cursor.Container(t, p))
	host := start
	for host != tree.Nil && !e.allowed(name, t.Parent(host)) {
		host = cursor.ClosestBlock(t, t.Parent(host))
	}
	if host == tree.Nil && start != tree.Nil {
		return r
	}
	if host == tree.Nil && !e.allowed(name, cursor.Container(t, p)) {
		return r
	}

	blk := template
	if clone {
		blk = t.Clone(template, true)
	}
	if e.schema != nil {
		e.schema.Filter(t, blk)
	}
	switch {
	case host == tree.Nil:
		cursor.InsertAt(t, cursor.EnlargeToElement(t, p), blk)
	case e.blank(host):
		t.ReplaceWith(host, blk)
	default:
		bm := cursor.CreateBookmark(t, cursor.Collapsed(p))
		right := t.SplitAt(host, t.Parent(bm.Anchor), t.Index(bm.Anchor))
		t.InsertAfter(host, blk)
		bm.Remove(t)
		e.tidy(host, true)
		e.tidy(right, false)
		e.trimSeam(host, true)
		e.trimSeam(right, false)
		for _, h := range []tree.Handle{host, right} {
			if e.blank(h) {
				t.Remove(h)
			}
		}
	}

	e.mergeLists(t.Parent(blk))
	if t.IsBlock(blk) && !e.container(blk) && e.blank(blk) {
		e.fill(blk, nil)
		return cursor.Collapsed(cursor.StartOf(blk))
	}
	return e.caretAfter(blk)
}

// trimSeam removes the nested blocks along the split edge of half that
// the split left blank, innermost first. half itself is kept.
func (e *Engine) trimSeam(half tree.Handle, atEnd bool) {
	t := e.tree
	for b := e.innermost(half, !atEnd); b != half && e.blank(b); {
		p := t.Parent(b)
		t.Remove(b)
		b = p
	}
}

// cardTemplate reports whether h is a card that may be placed as a block.
func (e *Engine) cardTemplate(h tree.Handle) bool {
	t := e.tree
	if !t.Valid(h) || !t.IsCard(h) {
		return false
	}
	if v, _ := t.Attr(h, "data-card-type"); v == "inline" {
		return false
	}
	return e.schema == nil || e.schema.Check(t, h, schema.CategoryCard)
}

// InsertInline inserts h at the caret and puts the caret after it. h may
// be an inline element or an inline card. A caret outside any block gets a
// new paragraph to hold h. An expanded range is deleted first.
func (e *Engine) InsertInline(r cursor.Range, h tree.Handle) cursor.Range {
	t := e.tree
	if !t.Valid(h) || cursor.IsPlaceholder(t, h) {
		return r
	}
	switch {
	case t.IsInline(h):
		if e.schema != nil && !e.schema.Check(t, h, schema.CategoryInline) {
			return r
		}
	case t.IsCard(h):
		if e.schema != nil && !e.schema.Check(t, h, schema.CategoryCard) {
			return r
		}
	default:
		return r
	}
	r = cursor.Normalize(t, r)
	if !r.Collapsed() {
		r = e.DeleteContent(r)
	}
	e.place(r.Start, h)
	return cursor.Collapsed(cursor.After(t, h))
}

// place inserts h at p. A position between the blocks of a container
// moves into the block beside it; with no block there, h gets a new item
// or paragraph. Outside any block h gets a new paragraph. A blank block
// loses its line break filler.
func (e *Engine) place(p cursor.Position, h tree.Handle) {
	t := e.tree
	p = e.enter(p)
	host := cursor.ClosestBlock(t, cursor.Container(t, p))
	if host == tree.Nil || e.container(host) {
		name := "p"
		if host != tree.Nil {
			if item := e.itemOf(t.Name(host)); item != "" {
				name = item
			}
		}
		blk := t.NewElement(tree.KindBlock, name)
		if host == tree.Nil {
			p = cursor.EnlargeToElement(t, p)
		}
		cursor.InsertAt(t, p, blk)
		t.Append(blk, h)
		return
	}
	if e.blank(host) {
		e.dropFiller(host)
	}
	cursor.InsertAt(t, p, h)
}

// enter moves a position lying between the child blocks of a container
// into the block after it, or else the block before it.
func (e *Engine) enter(p cursor.Position) cursor.Position {
	t := e.tree
	if !t.IsBlock(p.Node) || !e.container(p.Node) {
		return p
	}
	for _, forward := range []bool{true, false} {
		q := e.settle(p, forward)
		if q == p {
			continue
		}
		if b := cursor.ClosestBlock(t, cursor.Container(t, q)); b != tree.Nil && !e.container(b) {
			return q
		}
	}
	return p
}

// dropFiller removes the line breaks directly under block h.
func (e *Engine) dropFiller(h tree.Handle) {
	t := e.tree
	for _, c := range t.Children(h) {
		if t.IsInline(c) && t.Name(c) == "br" {
			t.Remove(c)
		}
	}
}
