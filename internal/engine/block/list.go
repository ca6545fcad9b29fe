package block

import (
	"strconv"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// MergeAdjacentList merges adjacent lists of the same name and indent in
// the scope of r and renumbers ordered lists, returning r as it maps onto
// the merged tree.
func (e *Engine) MergeAdjacentList(r cursor.Range) cursor.Range {
	t := e.tree
	r = cursor.Normalize(t, r)
	bm := cursor.CreateBookmark(t, r)
	e.mergeLists(t.Scope(bm.Anchor))
	return cursor.MoveToBookmark(t, bm)
}

// MergeLists merges adjacent lists below h and renumbers ordered lists.
func (e *Engine) MergeLists(h tree.Handle) {
	e.mergeLists(h)
}

func (e *Engine) mergeLists(h tree.Handle) {
	t := e.tree
	if h == tree.Nil || !t.Kind(h).IsElement() {
		return
	}
	for i := 0; i < t.ChildCount(h); i++ {
		c := t.Child(h, i)
		if !t.IsBlock(c) {
			continue
		}
		if !e.IsList(c) {
			e.mergeLists(c)
			continue
		}
		for {
			next, between := e.listAfter(c)
			if next == tree.Nil {
				break
			}
			for _, ph := range between {
				t.Append(c, ph)
			}
			t.MoveChildren(next, c, 0)
			t.Remove(next)
		}
	}
	e.renumber(h)
}

// listAfter returns the following sibling of list h when it is a list of
// the same name and indent, looking past placeholders, and the
// placeholders in between.
func (e *Engine) listAfter(h tree.Handle) (tree.Handle, []tree.Handle) {
	t := e.tree
	var between []tree.Handle
	next := t.Next(h)
	for cursor.IsPlaceholder(t, next) {
		between = append(between, next)
		next = t.Next(next)
	}
	if !e.IsList(next) || t.Name(next) != t.Name(h) ||
		intAttr(t, next, IndentAttr, 0) != intAttr(t, h, IndentAttr, 0) {
		return tree.Nil, nil
	}
	return next, between
}

// renumber continues the numbering of ordered lists across a run of
// sibling lists: an ordered list following another of the same indent,
// with only deeper lists in between, starts where the earlier one ended.
// The first list of a run keeps its start value.
func (e *Engine) renumber(h tree.Handle) {
	t := e.tree
	next := make(map[int]int)
	for _, c := range t.Children(h) {
		if cursor.IsPlaceholder(t, c) {
			continue
		}
		if !e.IsList(c) {
			clear(next)
			continue
		}
		level := intAttr(t, c, IndentAttr, 0)
		for k := range next {
			if k > level {
				delete(next, k)
			}
		}
		if !e.ordered(c) {
			delete(next, level)
			continue
		}
		n, ok := next[level]
		if ok {
			if n == 1 {
				t.RemoveAttr(c, StartAttr)
			} else {
				t.SetAttr(c, StartAttr, strconv.Itoa(n))
			}
		} else {
			n = intAttr(t, c, StartAttr, 1)
		}
		next[level] = n + e.items(c)
	}
}

// items counts the item blocks of list h.
func (e *Engine) items(h tree.Handle) int {
	n := 0
	for _, c := range e.tree.Children(h) {
		if e.tree.IsBlock(c) {
			n++
		}
	}
	return n
}
