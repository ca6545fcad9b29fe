package cursor

import "github.com/dshills/docstorm/internal/engine/tree"

// Prune removes everything between two placeholders that share a scope,
// anchor before focus. Nodes partially covered are kept: everything after
// the anchor inside the anchor's ancestors and everything before the focus
// inside the focus's ancestors is removed, along with the siblings between
// the two ancestor chains. It returns the ancestors of anchor and focus
// that are children of their common ancestor; they end up adjacent.
func Prune(t *tree.Tree, anchor, focus tree.Handle) (left, right tree.Handle) {
	common := t.CommonAncestor(anchor, focus)
	if common == tree.Nil {
		return tree.Nil, tree.Nil
	}

	left = anchor
	for t.Parent(left) != common {
		for n := t.Next(left); n != tree.Nil; n = t.Next(left) {
			t.Remove(n)
		}
		left = t.Parent(left)
	}
	right = focus
	for t.Parent(right) != common {
		for n := t.Prev(right); n != tree.Nil; n = t.Prev(right) {
			t.Remove(n)
		}
		right = t.Parent(right)
	}
	for n := t.Next(left); n != tree.Nil && n != right; n = t.Next(left) {
		t.Remove(n)
	}
	return left, right
}

// DeleteContents removes the content covered by r and returns the collapsed
// range where it was. Partially covered elements are kept, so deleting
// across two paragraphs leaves both paragraphs with their remaining
// content; merging them is up to the caller.
func DeleteContents(t *tree.Tree, r Range) Range {
	if r.Collapsed() {
		return r
	}
	bm := CreateBookmark(t, r)
	Prune(t, bm.Anchor, bm.Focus)
	out := MoveToBookmark(t, bm)
	return Collapsed(out.Start)
}
