package tree

import (
	"maps"
	"sort"
	"unicode/utf8"
)

// Handle addresses a node in a Tree's arena.
type Handle uint32

// Nil is the zero handle; it never addresses a node.
const Nil Handle = 0

// node is an arena entry.
type node struct {
	kind     Kind
	name     string
	text     string
	attrs    map[string]string
	styles   map[string]string
	parent   Handle
	children []Handle

	// Last placement, kept after the node is detached so that positions
	// can fall back to the nearest surviving boundary.
	formerParent Handle
	formerIndex  int

	// Card owning this node when it is an editable region root.
	owner Handle

	// Slot released by Compact and waiting for reuse.
	free bool
}

// Tree is an arena of nodes rooted at a document Root node.
// A Tree is not safe for concurrent use; callers serialize operations.
type Tree struct {
	nodes   []node
	free    []Handle
	root    Handle
	regions map[Handle][]Handle
}

// New creates an empty tree with a document root.
func New() *Tree {
	t := &Tree{
		nodes:   make([]node, 1, 64), // slot 0 backs Nil
		regions: make(map[Handle][]Handle),
	}
	t.root = t.alloc(node{kind: KindRoot, name: "root"})
	return t
}

// Root returns the document root.
func (t *Tree) Root() Handle {
	return t.root
}

// Size returns the number of arena slots in use, including detached nodes
// not yet released by Compact.
func (t *Tree) Size() int {
	return len(t.nodes) - 1 - len(t.free)
}

func (t *Tree) alloc(n node) Handle {
	if k := len(t.free); k > 0 {
		h := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[h] = n
		return h
	}
	t.nodes = append(t.nodes, n)
	return Handle(len(t.nodes) - 1)
}

// Valid reports whether h addresses a node of this tree.
func (t *Tree) Valid(h Handle) bool {
	return h != Nil && int(h) < len(t.nodes) && !t.nodes[h].free
}

func (t *Tree) n(h Handle) *node {
	if !t.Valid(h) {
		panic(ErrInvalidHandle)
	}
	return &t.nodes[h]
}

// NewElement creates a detached element node.
func (t *Tree) NewElement(kind Kind, name string) Handle {
	return t.alloc(node{kind: kind, name: name})
}

// NewText creates a detached text node.
func (t *Tree) NewText(s string) Handle {
	return t.alloc(node{kind: KindText, name: "#text", text: s})
}

// Kind returns the node kind.
func (t *Tree) Kind(h Handle) Kind {
	return t.n(h).kind
}

// Name returns the node name (tag).
func (t *Tree) Name(h Handle) string {
	return t.n(h).name
}

// SetName renames a node.
func (t *Tree) SetName(h Handle, name string) {
	t.n(h).name = name
}

// Is reports whether h is a node of the given kind.
func (t *Tree) Is(h Handle, kind Kind) bool {
	return t.Valid(h) && t.nodes[h].kind == kind
}

// IsText reports whether h is a text node.
func (t *Tree) IsText(h Handle) bool { return t.Is(h, KindText) }

// IsMark reports whether h is a mark node.
func (t *Tree) IsMark(h Handle) bool { return t.Is(h, KindMark) }

// IsBlock reports whether h is a block node.
func (t *Tree) IsBlock(h Handle) bool { return t.Is(h, KindBlock) }

// IsCard reports whether h is a card node.
func (t *Tree) IsCard(h Handle) bool { return t.Is(h, KindCard) }

// IsInline reports whether h is an inline element.
func (t *Tree) IsInline(h Handle) bool { return t.Is(h, KindInline) }

// IsRoot reports whether h is the document root or a region root.
func (t *Tree) IsRoot(h Handle) bool { return t.Is(h, KindRoot) }

// Attr returns an attribute value.
func (t *Tree) Attr(h Handle, key string) (string, bool) {
	v, ok := t.n(h).attrs[key]
	return v, ok
}

// SetAttr sets an attribute value.
func (t *Tree) SetAttr(h Handle, key, value string) {
	nd := t.n(h)
	if nd.attrs == nil {
		nd.attrs = make(map[string]string)
	}
	nd.attrs[key] = value
}

// RemoveAttr deletes an attribute.
func (t *Tree) RemoveAttr(h Handle, key string) {
	delete(t.n(h).attrs, key)
}

// Attrs returns a copy of the attribute map.
func (t *Tree) Attrs(h Handle) map[string]string {
	return maps.Clone(t.n(h).attrs)
}

// Style returns a style value.
func (t *Tree) Style(h Handle, key string) (string, bool) {
	v, ok := t.n(h).styles[key]
	return v, ok
}

// SetStyle sets a style value.
func (t *Tree) SetStyle(h Handle, key, value string) {
	nd := t.n(h)
	if nd.styles == nil {
		nd.styles = make(map[string]string)
	}
	nd.styles[key] = value
}

// RemoveStyle deletes a style.
func (t *Tree) RemoveStyle(h Handle, key string) {
	delete(t.n(h).styles, key)
}

// Styles returns a copy of the style map.
func (t *Tree) Styles(h Handle) map[string]string {
	return maps.Clone(t.n(h).styles)
}

// Text returns the character data of a text node.
func (t *Tree) Text(h Handle) string {
	return t.n(h).text
}

// SetText replaces the character data of a text node.
func (t *Tree) SetText(h Handle, s string) {
	t.n(h).text = s
}

// Len returns the boundary length of a node: runes for text, children
// for elements, zero for cards.
func (t *Tree) Len(h Handle) int {
	nd := t.n(h)
	switch nd.kind {
	case KindText:
		return utf8.RuneCountInString(nd.text)
	case KindCard:
		return 0
	default:
		return len(nd.children)
	}
}

// Parent returns the parent, or Nil for detached nodes and roots.
func (t *Tree) Parent(h Handle) Handle {
	return t.n(h).parent
}

// Owner returns the card owning a region root, or Nil.
func (t *Tree) Owner(h Handle) Handle {
	return t.n(h).owner
}

// Children returns a copy of the child list.
func (t *Tree) Children(h Handle) []Handle {
	c := t.n(h).children
	out := make([]Handle, len(c))
	copy(out, c)
	return out
}

// ChildCount returns the number of children.
func (t *Tree) ChildCount(h Handle) int {
	return len(t.n(h).children)
}

// Child returns the i-th child or Nil when out of range.
func (t *Tree) Child(h Handle, i int) Handle {
	c := t.n(h).children
	if i < 0 || i >= len(c) {
		return Nil
	}
	return c[i]
}

// FirstChild returns the first child or Nil.
func (t *Tree) FirstChild(h Handle) Handle {
	return t.Child(h, 0)
}

// LastChild returns the last child or Nil.
func (t *Tree) LastChild(h Handle) Handle {
	return t.Child(h, t.ChildCount(h)-1)
}

// Index returns the position of h among its siblings, or -1 when detached.
func (t *Tree) Index(h Handle) int {
	p := t.n(h).parent
	if p == Nil {
		return -1
	}
	for i, c := range t.nodes[p].children {
		if c == h {
			return i
		}
	}
	return -1
}

// Next returns the following sibling or Nil.
func (t *Tree) Next(h Handle) Handle {
	p := t.Parent(h)
	if p == Nil {
		return Nil
	}
	return t.Child(p, t.Index(h)+1)
}

// Prev returns the preceding sibling or Nil.
func (t *Tree) Prev(h Handle) Handle {
	p := t.Parent(h)
	if p == Nil {
		return Nil
	}
	return t.Child(p, t.Index(h)-1)
}

// Scope returns the topmost ancestor of h: the document root, a region
// root, or the top of a detached subtree.
func (t *Tree) Scope(h Handle) Handle {
	for {
		p := t.n(h).parent
		if p == Nil {
			return h
		}
		h = p
	}
}

// Attached reports whether h is reachable from the document root, either
// directly or through the editable region of an attached card.
func (t *Tree) Attached(h Handle) bool {
	if !t.Valid(h) {
		return false
	}
	for {
		top := t.Scope(h)
		if top == t.root {
			return true
		}
		owner := t.nodes[top].owner
		if owner == Nil {
			return false
		}
		h = owner
	}
}

// Contains reports whether a is an ancestor of b or b itself.
func (t *Tree) Contains(a, b Handle) bool {
	for b != Nil {
		if a == b {
			return true
		}
		b = t.n(b).parent
	}
	return false
}

// Ancestors returns the ancestors of h from its parent up to its scope.
func (t *Tree) Ancestors(h Handle) []Handle {
	var out []Handle
	for p := t.Parent(h); p != Nil; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// CommonAncestor returns the deepest node containing both a and b,
// or Nil when they live in different scopes.
func (t *Tree) CommonAncestor(a, b Handle) Handle {
	seen := make(map[Handle]bool)
	for x := a; x != Nil; x = t.Parent(x) {
		seen[x] = true
	}
	for y := b; y != Nil; y = t.Parent(y) {
		if seen[y] {
			return y
		}
	}
	return Nil
}

// Former returns the parent and index a detached node had when it was
// last removed.
func (t *Tree) Former(h Handle) (Handle, int) {
	nd := t.n(h)
	return nd.formerParent, nd.formerIndex
}

// SameMarkup reports whether a and b have the same kind, name, attributes
// and styles.
func (t *Tree) SameMarkup(a, b Handle) bool {
	na, nb := t.n(a), t.n(b)
	return na.kind == nb.kind && na.name == nb.name &&
		maps.Equal(na.attrs, nb.attrs) && maps.Equal(na.styles, nb.styles)
}

// SameKeys reports whether a and b have the same name and the same
// attribute and style key sets, ignoring values.
func (t *Tree) SameKeys(a, b Handle) bool {
	na, nb := t.n(a), t.n(b)
	return na.kind == nb.kind && na.name == nb.name &&
		sameKeySet(na.attrs, nb.attrs) && sameKeySet(na.styles, nb.styles)
}

func sameKeySet(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// sortedKeys returns map keys in ascending order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
