package cursor

import "github.com/dshills/docstorm/internal/engine/tree"

// EnlargeToElement lifts p out of text nodes and marks while it sits on
// their edge, so that it is expressed between element children. Positions
// strictly inside text stay where they are. Blocks and roots are never
// left.
func EnlargeToElement(t *tree.Tree, p Position) Position {
	for {
		n := p.Node
		if t.Parent(n) == tree.Nil {
			return p
		}
		if !t.IsText(n) && !t.IsMark(n) {
			return p
		}
		switch {
		case p.Offset <= 0:
			p = Before(t, n)
		case p.Offset >= t.Len(n):
			p = After(t, n)
		default:
			return p
		}
	}
}

// EnlargeRangeToElement applies EnlargeToElement to both ends of r.
func EnlargeRangeToElement(t *tree.Tree, r Range) Range {
	return Range{Start: EnlargeToElement(t, r.Start), End: EnlargeToElement(t, r.End)}
}

// ShrinkToElement descends an element boundary into the deepest non-card
// element at that point. Forward positions enter the following element at
// its start; backward ones enter the preceding element at its end.
func ShrinkToElement(t *tree.Tree, p Position, forward bool) Position {
	for !t.IsText(p.Node) && !t.IsCard(p.Node) {
		var c tree.Handle
		if forward {
			c = t.Child(p.Node, p.Offset)
		} else {
			c = t.Child(p.Node, p.Offset-1)
		}
		if c == tree.Nil || !t.Kind(c).IsElement() || IsPlaceholder(t, c) {
			return p
		}
		if forward {
			p = StartOf(c)
		} else {
			p = EndOf(t, c)
		}
	}
	return p
}

// ShrinkRangeToElement shrinks the start forward and the end backward.
// A collapsed range shrinks forward as a whole.
func ShrinkRangeToElement(t *tree.Tree, r Range) Range {
	if r.Collapsed() {
		return Collapsed(ShrinkToElement(t, r.Start, true))
	}
	out := Range{Start: ShrinkToElement(t, r.Start, true), End: ShrinkToElement(t, r.End, false)}
	if Compare(t, out.Start, out.End) > 0 {
		return r
	}
	return out
}

// ShrinkToText moves an element boundary into adjacent text, descending
// through marks. Forward positions prefer the following node; backward ones
// the preceding node. Positions with no text on either side are returned
// unchanged.
func ShrinkToText(t *tree.Tree, p Position, forward bool) Position {
	for !t.IsText(p.Node) && !t.IsCard(p.Node) {
		next := t.Child(p.Node, p.Offset)
		prev := t.Child(p.Node, p.Offset-1)
		if !forward {
			next, prev = prev, next
		}
		switch {
		case t.IsText(next):
			return edge(t, next, forward)
		case t.IsMark(next):
			p = edge(t, next, forward)
		case t.IsText(prev):
			return edge(t, prev, !forward)
		case t.IsMark(prev):
			p = edge(t, prev, !forward)
		default:
			return p
		}
	}
	return p
}

// edge returns the first or last position inside h.
func edge(t *tree.Tree, h tree.Handle, atStart bool) Position {
	if atStart {
		return StartOf(h)
	}
	return EndOf(t, h)
}

// ShrinkRangeToText shrinks the start forward and the end backward into
// text. A collapsed range shrinks forward as a whole.
func ShrinkRangeToText(t *tree.Tree, r Range) Range {
	if r.Collapsed() {
		return Collapsed(ShrinkToText(t, r.Start, true))
	}
	out := Range{Start: ShrinkToText(t, r.Start, true), End: ShrinkToText(t, r.End, false)}
	if Compare(t, out.Start, out.End) > 0 {
		return r
	}
	return out
}

// Normalize makes r safe for editing operations:
//
//   - detached boundaries fall back to the nearest surviving boundary;
//   - boundaries on a card move before or after it;
//   - an end in a different scope than the start is lifted out of its card
//     regions into the start's scope, or clamped to the end of the start's
//     region, so a range never spans a card boundary.
func Normalize(t *tree.Tree, r Range) Range {
	start := outsideCard(t, Reattach(t, r.Start))
	end := outsideCard(t, Reattach(t, r.End))
	if Compare(t, start, end) > 0 {
		start, end = end, start
	}
	scope := t.Scope(start.Node)
	if t.Scope(end.Node) != scope {
		if lifted, ok := liftToScope(t, end, scope); ok {
			end = lifted
		} else {
			end = EndOf(t, scope)
		}
	}
	return Range{Start: start, End: end}
}

// outsideCard moves a boundary set on a card node to the matching side of
// the card in its parent.
func outsideCard(t *tree.Tree, p Position) Position {
	if !t.IsCard(p.Node) || t.Parent(p.Node) == tree.Nil {
		return p
	}
	if ComparePoint(t, p, p.Node, 0) <= 0 {
		return Before(t, p.Node)
	}
	return After(t, p.Node)
}

// liftToScope moves p up through the cards owning its regions until it is
// inside scope, landing after the card.
func liftToScope(t *tree.Tree, p Position, scope tree.Handle) (Position, bool) {
	for t.Scope(p.Node) != scope {
		card := t.Owner(t.Scope(p.Node))
		if card == tree.Nil || t.Parent(card) == tree.Nil {
			return p, false
		}
		p = After(t, card)
	}
	return p, true
}
