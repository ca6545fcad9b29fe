package mark

import (
	"slices"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Engine runs mark operations on one tree.
type Engine struct {
	tree    *tree.Tree
	schema  *schema.Registry
	formats *Formats
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchema validates templates against a schema registry. Without one
// every mark template is accepted as is.
func WithSchema(r *schema.Registry) Option {
	return func(e *Engine) {
		e.schema = r
	}
}

// WithFormats sets the mark formats. The default is DefaultFormats.
func WithFormats(f *Formats) Option {
	return func(e *Engine) {
		if f != nil {
			e.formats = f
		}
	}
}

// New creates a mark engine for t.
func New(t *tree.Tree, opts ...Option) *Engine {
	e := &Engine{
		tree:    t,
		formats: DefaultFormats(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formats returns the engine's formats.
func (e *Engine) Formats() *Formats {
	return e.formats
}

// host returns the nearest non-mark ancestor of h.
func (e *Engine) host(h tree.Handle) tree.Handle {
	p := e.tree.Parent(h)
	for e.tree.IsMark(p) {
		p = e.tree.Parent(p)
	}
	return p
}

// topMark returns the outermost mark ancestor of h below its host, or Nil.
func (e *Engine) topMark(h tree.Handle) tree.Handle {
	top := tree.Nil
	for p := e.tree.Parent(h); e.tree.IsMark(p); p = e.tree.Parent(p) {
		top = p
	}
	return top
}

// marksOf returns the mark ancestors of h, outermost first. A mark h is
// included.
func (e *Engine) marksOf(h tree.Handle) []tree.Handle {
	var out []tree.Handle
	if !e.tree.IsMark(h) {
		h = e.tree.Parent(h)
	}
	for ; e.tree.IsMark(h); h = e.tree.Parent(h) {
		out = append(out, h)
	}
	slices.Reverse(out)
	return out
}

// hasContent reports whether h holds anything a caret can stand next to.
// Placeholders and zero-width text count as content.
func (e *Engine) hasContent(h tree.Handle) bool {
	t := e.tree
	switch t.Kind(h) {
	case tree.KindText:
		return t.Text(h) != ""
	case tree.KindInline, tree.KindCard:
		return true
	}
	for _, c := range t.Children(h) {
		if e.hasContent(c) {
			return true
		}
	}
	return false
}

// removeEmptyMarks removes the marks without content in the subtree of h,
// h included.
func (e *Engine) removeEmptyMarks(h tree.Handle) {
	t := e.tree
	if !t.Valid(h) || !t.Kind(h).IsElement() {
		return
	}
	for _, c := range t.Children(h) {
		if t.IsMark(c) {
			e.removeEmptyMarks(c)
		}
	}
	if t.IsMark(h) && !e.hasContent(h) {
		t.Remove(h)
	}
}

// zeroWidthOnly reports whether h is a zero-width text node or a mark whose
// only content is zero-width text.
func (e *Engine) zeroWidthOnly(h tree.Handle) bool {
	t := e.tree
	if t.IsText(h) {
		return t.IsZeroWidth(h)
	}
	if !t.IsMark(h) {
		return false
	}
	found := false
	for _, leaf := range t.Leaves(h) {
		if !t.IsZeroWidth(leaf) {
			if t.IsText(leaf) && t.Text(leaf) == "" {
				continue
			}
			return false
		}
		found = true
	}
	return found
}

// dropZeroWidthAround removes zero-width-only runs directly before and
// after h, stepping over bookmark placeholders.
func (e *Engine) dropZeroWidthAround(h tree.Handle) {
	t := e.tree
	for _, step := range []func(tree.Handle) tree.Handle{t.Prev, t.Next} {
		n := step(h)
		for n != tree.Nil {
			if cursor.IsPlaceholder(t, n) {
				n = step(n)
				continue
			}
			if !e.zeroWidthOnly(n) {
				break
			}
			next := step(n)
			t.Remove(n)
			n = next
		}
	}
}

// inlineCard reports whether card h sits in inline content.
func (e *Engine) inlineCard(h tree.Handle) bool {
	t := e.tree
	if t.IsMark(t.Parent(h)) {
		return true
	}
	v, _ := t.Attr(h, "data-card-type")
	return v == "inline"
}

// leavesBetween returns the text and inline card leaves between two
// placeholders of the same scope.
func (e *Engine) leavesBetween(from, to tree.Handle) []tree.Handle {
	t := e.tree
	scope := t.Scope(from)
	var out []tree.Handle
	for n := t.NextInOrder(from, scope); n != tree.Nil && n != to; n = t.NextInOrder(n, scope) {
		switch {
		case t.IsText(n):
			if t.Text(n) != "" && !t.IsRoot(t.Parent(n)) {
				out = append(out, n)
			}
		case t.IsCard(n):
			if e.inlineCard(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// marksBetween returns the marks between two placeholders in document
// order, outer marks before the marks they contain.
func (e *Engine) marksBetween(from, to tree.Handle) []tree.Handle {
	t := e.tree
	scope := t.Scope(from)
	var out []tree.Handle
	for n := t.NextInOrder(from, scope); n != tree.Nil && n != to; n = t.NextInOrder(n, scope) {
		if t.IsMark(n) {
			out = append(out, n)
		}
	}
	return out
}

// matches reports whether mark h is selected by filter: same name, and
// carrying every attribute and style key of the filter. A Nil filter
// matches every mark.
func (e *Engine) matches(h, filter tree.Handle) bool {
	t := e.tree
	if filter == tree.Nil {
		return true
	}
	if t.Name(h) != t.Name(filter) {
		return false
	}
	for k := range t.Attrs(filter) {
		if _, ok := t.Attr(h, k); !ok {
			return false
		}
	}
	for k := range t.Styles(filter) {
		if _, ok := t.Style(h, k); !ok {
			return false
		}
	}
	return true
}

// strip removes what filter selects from mark h: the filter's attribute and
// style keys when h carries others too, otherwise the whole mark. It
// reports whether h was unwrapped.
func (e *Engine) strip(h, filter tree.Handle) bool {
	t := e.tree
	if filter != tree.Nil {
		fa, fs := t.Attrs(filter), t.Styles(filter)
		if len(fa)+len(fs) > 0 && len(t.Attrs(h))+len(t.Styles(h)) > len(fa)+len(fs) {
			for k := range fa {
				t.RemoveAttr(h, k)
			}
			for k := range fs {
				t.RemoveStyle(h, k)
			}
			return false
		}
	}
	if t.Parent(h) != tree.Nil {
		t.Unwrap(h)
	} else {
		t.Remove(h)
	}
	return true
}

// template validates a mark template and returns detached shallow clones
// of its mark chain, outermost first. A template may be a single mark or a
// chain of single-child marks such as <strong><em></em></strong>.
func (e *Engine) template(h tree.Handle) ([]tree.Handle, bool) {
	t := e.tree
	if !t.Valid(h) || !t.IsMark(h) {
		return nil, false
	}
	var out []tree.Handle
	for n := h; t.IsMark(n); {
		if e.schema != nil && !e.schema.Check(t, n, schema.CategoryMark) {
			return nil, false
		}
		c := t.Clone(n, false)
		if e.schema != nil && len(e.schema.Filter(t, c)) > 0 &&
			len(t.Attrs(c))+len(t.Styles(c)) == 0 {
			// nothing legal left of a valued mark
			return nil, false
		}
		out = append(out, c)
		if t.ChildCount(n) != 1 {
			break
		}
		n = t.FirstChild(n)
	}
	return out, true
}
