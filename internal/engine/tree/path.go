package tree

import "fmt"

// Path returns the child indices leading from the document root to h.
// Entering the k-th editable region of a card is encoded as the step -(k+1).
func (t *Tree) Path(h Handle) ([]int, error) {
	if !t.Valid(h) {
		return nil, ErrInvalidHandle
	}
	var rev []int
	for h != t.root {
		p := t.Parent(h)
		if p != Nil {
			rev = append(rev, t.Index(h))
			h = p
			continue
		}
		owner := t.Owner(h)
		if owner == Nil {
			return nil, fmt.Errorf("%w: node %d is detached", ErrInvalidPath, h)
		}
		k := -1
		for i, r := range t.regions[owner] {
			if r == h {
				k = i
				break
			}
		}
		rev = append(rev, -(k + 1))
		h = owner
	}
	path := make([]int, len(rev))
	for i, step := range rev {
		path[len(rev)-1-i] = step
	}
	return path, nil
}

// Resolve returns the node addressed by a path produced by Path.
func (t *Tree) Resolve(path []int) (Handle, error) {
	h := t.root
	for depth, step := range path {
		if step < 0 {
			regions := t.regions[h]
			k := -step - 1
			if k >= len(regions) {
				return Nil, fmt.Errorf("%w: no region %d at depth %d", ErrInvalidPath, k, depth)
			}
			h = regions[k]
			continue
		}
		c := t.Child(h, step)
		if c == Nil {
			return Nil, fmt.Errorf("%w: no child %d at depth %d", ErrInvalidPath, step, depth)
		}
		h = c
	}
	return h, nil
}
