package tree

// Action tells Walk how to proceed after visiting a node.
type Action uint8

const (
	// ActionContinue descends into the node's children.
	ActionContinue Action = iota

	// ActionSkip continues with the next sibling without descending.
	ActionSkip

	// ActionStop ends the walk.
	ActionStop

	// ActionReplace swaps the node for Visit.With and continues after it.
	ActionReplace
)

// Visit is the result of a walk callback.
type Visit struct {
	Action Action
	With   Handle
}

// Visit values for walk callbacks.
var (
	Continue     = Visit{Action: ActionContinue}
	SkipChildren = Visit{Action: ActionSkip}
	Stop         = Visit{Action: ActionStop}
)

// ReplaceWith returns a Visit that replaces the visited node by h.
func ReplaceWith(h Handle) Visit {
	return Visit{Action: ActionReplace, With: h}
}

// Walk visits h and its descendants in document order. It returns false
// when a callback stopped the walk.
func (t *Tree) Walk(h Handle, fn func(Handle) Visit) bool {
	v := fn(h)
	switch v.Action {
	case ActionStop:
		return false
	case ActionSkip:
		return true
	case ActionReplace:
		if v.With != Nil && v.With != h {
			t.ReplaceWith(h, v.With)
		}
		return true
	}
	// children are visited from a snapshot; nodes moved out of h by a
	// callback are skipped and nodes added during the walk are not visited
	for _, c := range t.Children(h) {
		if t.Parent(c) != h {
			continue
		}
		if !t.Walk(c, fn) {
			return false
		}
	}
	return true
}

// Leaves returns the text, inline and card nodes under h in document order.
func (t *Tree) Leaves(h Handle) []Handle {
	var out []Handle
	t.Walk(h, func(n Handle) Visit {
		switch t.Kind(n) {
		case KindText, KindCard:
			out = append(out, n)
			return SkipChildren
		case KindInline:
			if t.ChildCount(n) == 0 {
				out = append(out, n)
				return SkipChildren
			}
		}
		return Continue
	})
	return out
}

// NextInOrder returns the node following h in document order within
// scope, descending into children first. Returns Nil at the end.
func (t *Tree) NextInOrder(h, scope Handle) Handle {
	if c := t.FirstChild(h); c != Nil {
		return c
	}
	return t.NextSkipping(h, scope)
}

// NextSkipping returns the node following h's subtree in document order
// within scope, or Nil at the end.
func (t *Tree) NextSkipping(h, scope Handle) Handle {
	for h != Nil && h != scope {
		if n := t.Next(h); n != Nil {
			return n
		}
		h = t.Parent(h)
	}
	return Nil
}

// Closest returns the nearest node starting at h and walking up whose
// kind is one of kinds, or Nil.
func (t *Tree) Closest(h Handle, kinds ...Kind) Handle {
	for ; h != Nil; h = t.Parent(h) {
		k := t.Kind(h)
		for _, want := range kinds {
			if k == want {
				return h
			}
		}
	}
	return Nil
}
