package tree

import (
	"maps"
	"slices"
)

// Insert places child at index among parent's children, detaching it from
// its current parent first. The index is clamped to the valid range.
func (t *Tree) Insert(parent Handle, index int, child Handle) {
	if t.n(child).parent != Nil {
		t.Remove(child)
	}
	p := t.n(parent)
	if index < 0 {
		index = 0
	}
	if index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, Nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = child
	t.nodes[child].parent = parent
}

// Append adds child as the last child of parent.
func (t *Tree) Append(parent, child Handle) {
	t.Insert(parent, t.ChildCount(parent), child)
}

// Prepend adds child as the first child of parent.
func (t *Tree) Prepend(parent, child Handle) {
	t.Insert(parent, 0, child)
}

// InsertBefore places child immediately before ref.
func (t *Tree) InsertBefore(ref, child Handle) {
	if child == ref {
		return
	}
	if t.n(child).parent != Nil {
		t.Remove(child)
	}
	t.Insert(t.Parent(ref), t.Index(ref), child)
}

// InsertAfter places child immediately after ref.
func (t *Tree) InsertAfter(ref, child Handle) {
	if child == ref {
		return
	}
	if t.n(child).parent != Nil {
		t.Remove(child)
	}
	t.Insert(t.Parent(ref), t.Index(ref)+1, child)
}

// Remove detaches h from its parent. The node and its subtree remain in
// the arena and remember where they were.
func (t *Tree) Remove(h Handle) {
	nd := t.n(h)
	if nd.parent == Nil {
		return
	}
	p := t.n(nd.parent)
	idx := -1
	for i, c := range p.children {
		if c == h {
			idx = i
			break
		}
	}
	if idx >= 0 {
		p.children = append(p.children[:idx], p.children[idx+1:]...)
	}
	nd.formerParent = nd.parent
	nd.formerIndex = idx
	nd.parent = Nil
}

// ReplaceWith puts repl in old's place and detaches old.
func (t *Tree) ReplaceWith(old, repl Handle) {
	if old == repl || t.Parent(old) == Nil {
		return
	}
	t.InsertBefore(old, repl)
	t.Remove(old)
}

// Unwrap replaces h by its children and returns the first and last moved
// child (Nil when h had none).
func (t *Tree) Unwrap(h Handle) (first, last Handle) {
	p := t.Parent(h)
	if p == Nil {
		return Nil, Nil
	}
	idx := t.Index(h)
	children := t.Children(h)
	for i, c := range children {
		t.Insert(p, idx+i, c)
	}
	t.Remove(h)
	if len(children) == 0 {
		return Nil, Nil
	}
	return children[0], children[len(children)-1]
}

// Wrap puts wrapper in h's place and moves h into it as the last child.
func (t *Tree) Wrap(h, wrapper Handle) {
	if t.Parent(h) != Nil {
		t.InsertBefore(h, wrapper)
	}
	t.Append(wrapper, h)
}

// MoveChildren moves from's children starting at index start to the end
// of to's child list.
func (t *Tree) MoveChildren(from, to Handle, start int) {
	children := t.Children(from)
	if start < 0 {
		start = 0
	}
	for _, c := range children[min(start, len(children)):] {
		t.Append(to, c)
	}
}

// Clone copies h. A deep clone copies the whole subtree, including the
// editable regions of cards. The clone is detached.
func (t *Tree) Clone(h Handle, deep bool) Handle {
	src := t.nodes[h]
	c := t.alloc(node{
		kind:   src.kind,
		name:   src.name,
		text:   src.text,
		attrs:  maps.Clone(src.attrs),
		styles: maps.Clone(src.styles),
	})
	if !deep {
		return c
	}
	for _, child := range t.Children(h) {
		t.Append(c, t.Clone(child, true))
	}
	for _, region := range t.regions[h] {
		t.AttachRegion(c, t.Clone(region, true))
	}
	return c
}

// Import copies the subtree at h of src into t, including the editable
// regions of cards, and returns the detached copy.
func (t *Tree) Import(src *Tree, h Handle) Handle {
	n := src.nodes[h]
	c := t.alloc(node{
		kind:   n.kind,
		name:   n.name,
		text:   n.text,
		attrs:  maps.Clone(n.attrs),
		styles: maps.Clone(n.styles),
	})
	for _, child := range src.Children(h) {
		t.Append(c, t.Import(src, child))
	}
	for _, region := range src.regions[h] {
		t.AttachRegion(c, t.Import(src, region))
	}
	return c
}

// SplitText splits a text node at a rune offset and returns the new right
// node, inserted after h when h is attached.
func (t *Tree) SplitText(h Handle, offset int) Handle {
	left, right := splitRunes(t.Text(h), offset)
	t.SetText(h, left)
	r := t.NewText(right)
	if t.Parent(h) != Nil {
		t.InsertAfter(h, r)
	}
	return r
}

// SplitAt splits the subtree rooted at top at the boundary point
// (container, offset). Everything after the point moves into clones of the
// nodes between the point and top; the clone of top is inserted right after
// top and returned. Text nodes are split without producing empty halves.
func (t *Tree) SplitAt(top, container Handle, offset int) Handle {
	if t.IsText(container) {
		p, idx := t.Parent(container), t.Index(container)
		switch {
		case offset <= 0:
			container, offset = p, idx
		case offset >= t.Len(container):
			container, offset = p, idx+1
		default:
			t.SplitText(container, offset)
			container, offset = p, idx+1
		}
	}
	node, idx := container, offset
	for {
		clone := t.Clone(node, false)
		t.MoveChildren(node, clone, idx)
		if t.Parent(node) != Nil {
			t.InsertAfter(node, clone)
		}
		if node == top || t.Parent(node) == Nil {
			return clone
		}
		idx = t.Index(clone)
		node = t.Parent(node)
	}
}

// MergeText appends b's text to a and detaches b.
func (t *Tree) MergeText(a, b Handle) {
	t.SetText(a, t.Text(a)+t.Text(b))
	t.Remove(b)
}

// Normalize merges adjacent text nodes and drops empty text nodes in the
// subtree rooted at h.
func (t *Tree) Normalize(h Handle) {
	if !t.Kind(h).IsElement() {
		return
	}
	for i := 0; i < t.ChildCount(h); {
		c := t.Child(h, i)
		if t.IsText(c) {
			if t.Text(c) == "" {
				t.Remove(c)
				continue
			}
			if prev := t.Child(h, i-1); prev != Nil && t.IsText(prev) {
				t.MergeText(prev, c)
				continue
			}
		} else {
			t.Normalize(c)
		}
		i++
	}
}

// AttachRegion registers region as an editable region of card. The region
// must be a detached KindRoot node.
func (t *Tree) AttachRegion(card, region Handle) {
	if t.Parent(region) != Nil {
		t.Remove(region)
	}
	t.n(region).owner = card
	t.regions[card] = append(t.regions[card], region)
}

// Regions returns the editable region roots of a card.
func (t *Tree) Regions(card Handle) []Handle {
	r := t.regions[card]
	out := make([]Handle, len(r))
	copy(out, r)
	return out
}

// Snapshot returns a deep copy of the tree. Handles valid in t address the
// same nodes in the copy.
func (t *Tree) Snapshot() *Tree {
	c := &Tree{
		nodes:   make([]node, len(t.nodes)),
		free:    slices.Clone(t.free),
		root:    t.root,
		regions: make(map[Handle][]Handle, len(t.regions)),
	}
	for i, nd := range t.nodes {
		nd.attrs = maps.Clone(nd.attrs)
		nd.styles = maps.Clone(nd.styles)
		if nd.children != nil {
			nd.children = append([]Handle(nil), nd.children...)
		}
		c.nodes[i] = nd
	}
	for k, v := range t.regions {
		c.regions[k] = append([]Handle(nil), v...)
	}
	return c
}

// Restore replaces the contents of t with those of snap.
func (t *Tree) Restore(snap *Tree) {
	s := snap.Snapshot()
	t.nodes, t.free, t.root, t.regions = s.nodes, s.free, s.root, s.regions
}

// Compact releases the slots of nodes that cannot be reached from the root,
// directly or through card regions, so new nodes reuse them. Released
// handles become invalid; callers must not hold detached nodes across a
// call. Free slots at the end of the arena are dropped. It returns the
// number of nodes released.
func (t *Tree) Compact() int {
	live := make([]bool, len(t.nodes))
	stack := []Handle{t.root}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		live[h] = true
		stack = append(stack, t.nodes[h].children...)
		stack = append(stack, t.regions[h]...)
	}

	released := 0
	for i := 1; i < len(t.nodes); i++ {
		if live[i] || t.nodes[i].free {
			continue
		}
		t.nodes[i] = node{free: true}
		delete(t.regions, Handle(i))
		released++
	}

	n := len(t.nodes)
	for n > 1 && t.nodes[n-1].free {
		n--
	}
	t.nodes = t.nodes[:n]
	t.free = t.free[:0]
	for i := n - 1; i > 0; i-- {
		if t.nodes[i].free {
			t.free = append(t.free, Handle(i))
		}
	}
	return released
}
