package cursor

import (
	"slices"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Position is a boundary point in a tree.
type Position struct {
	Node   tree.Handle
	Offset int
}

// At returns the position (node, offset).
func At(node tree.Handle, offset int) Position {
	return Position{Node: node, Offset: offset}
}

// Before returns the position immediately before h in its parent.
func Before(t *tree.Tree, h tree.Handle) Position {
	return Position{Node: t.Parent(h), Offset: t.Index(h)}
}

// After returns the position immediately after h in its parent.
func After(t *tree.Tree, h tree.Handle) Position {
	return Position{Node: t.Parent(h), Offset: t.Index(h) + 1}
}

// StartOf returns the first position inside h.
func StartOf(h tree.Handle) Position {
	return Position{Node: h}
}

// EndOf returns the last position inside h.
func EndOf(t *tree.Tree, h tree.Handle) Position {
	return Position{Node: h, Offset: t.Len(h)}
}

// IsZero reports whether p addresses nothing.
func (p Position) IsZero() bool {
	return p.Node == tree.Nil
}

// Range is an ordered pair of positions.
type Range struct {
	Start Position
	End   Position
}

// Collapsed returns the empty range at p.
func Collapsed(p Position) Range {
	return Range{Start: p, End: p}
}

// NewRange returns the range between a and b, ordering them.
func NewRange(t *tree.Tree, a, b Position) Range {
	if Compare(t, a, b) > 0 {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Select returns the range covering h.
func Select(t *tree.Tree, h tree.Handle) Range {
	return Range{Start: Before(t, h), End: After(t, h)}
}

// SelectContents returns the range covering the contents of h.
func SelectContents(t *tree.Tree, h tree.Handle) Range {
	return Range{Start: StartOf(h), End: EndOf(t, h)}
}

// Collapsed reports whether the range is empty.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// Collapse returns the empty range at the start (or end) of r.
func (r Range) Collapse(toStart bool) Range {
	if toStart {
		return Collapsed(r.Start)
	}
	return Collapsed(r.End)
}

// orderKey returns the document order key of a boundary point: the child
// indices from the document root, with region steps ordered before the
// children of their card, followed by the offset.
func orderKey(t *tree.Tree, p Position) ([]int, bool) {
	key := []int{p.Offset}
	h := p.Node
	for {
		if parent := t.Parent(h); parent != tree.Nil {
			key = append(key, t.Index(h))
			h = parent
			continue
		}
		if h == t.Root() {
			break
		}
		card := t.Owner(h)
		if card == tree.Nil {
			return nil, false
		}
		regions := t.Regions(card)
		key = append(key, slices.Index(regions, h)-len(regions))
		h = card
	}
	slices.Reverse(key)
	return key, true
}

// Compare returns -1, 0 or 1 as a is before, equal to or after b in
// document order. Positions in detached subtrees sort before attached
// ones.
func Compare(t *tree.Tree, a, b Position) int {
	if a == b {
		return 0
	}
	ka, okA := orderKey(t, a)
	kb, okB := orderKey(t, b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return slices.Compare(ka, kb)
}

// ComparePoint compares p with the boundary point (node, offset).
func ComparePoint(t *tree.Tree, p Position, node tree.Handle, offset int) int {
	return Compare(t, p, Position{Node: node, Offset: offset})
}

// Contains reports whether p lies inside r, boundaries included.
func (r Range) Contains(t *tree.Tree, p Position) bool {
	return Compare(t, r.Start, p) <= 0 && Compare(t, p, r.End) <= 0
}

// Container returns the element holding p: the parent of a text node, or
// the node itself.
func Container(t *tree.Tree, p Position) tree.Handle {
	if t.IsText(p.Node) || t.IsCard(p.Node) {
		return t.Parent(p.Node)
	}
	return p.Node
}

// ClosestBlock returns the nearest block at or above h, or Nil.
func ClosestBlock(t *tree.Tree, h tree.Handle) tree.Handle {
	return t.Closest(h, tree.KindBlock)
}

// NodeAfter returns the node following the boundary p, descending to the
// first leaf. It returns Nil at the end of p's scope.
func NodeAfter(t *tree.Tree, p Position) tree.Handle {
	if t.IsText(p.Node) {
		if p.Offset < t.Len(p.Node) {
			return p.Node
		}
		return t.NextSkipping(p.Node, t.Scope(p.Node))
	}
	if c := t.Child(p.Node, p.Offset); c != tree.Nil {
		return c
	}
	return t.NextSkipping(p.Node, t.Scope(p.Node))
}
