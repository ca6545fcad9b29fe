package block

import (
	"slices"
	"strconv"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/mark"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Attribute names used by list containers.
const (
	IndentAttr = "data-indent"
	StartAttr  = "start"
)

// Engine runs block operations on one tree.
type Engine struct {
	tree   *tree.Tree
	schema *schema.Registry
	marks  *mark.Engine
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchema checks templates and placements against a schema registry.
func WithSchema(r *schema.Registry) Option {
	return func(e *Engine) {
		e.schema = r
	}
}

// WithMarks sets the mark engine used to carry formatting across splits
// and deletions. By default one is created over the same tree and schema.
func WithMarks(m *mark.Engine) Option {
	return func(e *Engine) {
		e.marks = m
	}
}

// New creates a block engine for t.
func New(t *tree.Tree, opts ...Option) *Engine {
	e := &Engine{tree: t}
	for _, opt := range opts {
		opt(e)
	}
	if e.marks == nil {
		e.marks = mark.New(t, mark.WithSchema(e.schema))
	}
	return e
}

// Marks returns the mark engine used by e.
func (e *Engine) Marks() *mark.Engine {
	return e.marks
}

// parentName returns the schema name of a placement parent.
func (e *Engine) parentName(h tree.Handle) string {
	if e.tree.IsRoot(h) {
		return schema.RootParent
	}
	return e.tree.Name(h)
}

// allowed reports whether nodes named name may sit in parent. Lists only
// take their items.
func (e *Engine) allowed(name string, parent tree.Handle) bool {
	if item := e.itemOf(e.parentName(parent)); item != "" && name != item {
		return false
	}
	if e.schema == nil {
		return true
	}
	return e.schema.AllowedIn(name, e.parentName(parent))
}

// blockTemplate reports whether h can be used as a block template.
func (e *Engine) blockTemplate(h tree.Handle) bool {
	t := e.tree
	if !t.Valid(h) || !t.IsBlock(h) {
		return false
	}
	return e.schema == nil || e.schema.Check(t, h, schema.CategoryBlock)
}

// hasBlocks reports whether h has block children.
func (e *Engine) hasBlocks(h tree.Handle) bool {
	return slices.ContainsFunc(e.tree.Children(h), e.tree.IsBlock)
}

// itemOf returns the name of the blocks that must fill container, such as
// li for ul, or "" when any block may.
func (e *Engine) itemOf(container string) string {
	if e.schema == nil {
		if container == "ul" || container == "ol" {
			return "li"
		}
		return ""
	}
	for _, name := range e.schema.Names() {
		rule, ok := e.schema.Rule(name)
		if ok && rule.Type == schema.CategoryBlock && slices.Contains(rule.AllowIn, container) {
			return name
		}
	}
	return ""
}

// IsList reports whether h is a list container.
func (e *Engine) IsList(h tree.Handle) bool {
	return e.tree.IsBlock(h) && e.itemOf(e.tree.Name(h)) != ""
}

func (e *Engine) ordered(h tree.Handle) bool {
	name := e.tree.Name(h)
	if e.schema == nil {
		return name == "ol"
	}
	return e.schema.AttributeAllowed(name, StartAttr, "1")
}

// container reports whether h holds blocks rather than inline content.
func (e *Engine) container(h tree.Handle) bool {
	return e.hasBlocks(h) || e.IsList(h)
}

func intAttr(t *tree.Tree, h tree.Handle, key string, def int) int {
	v, ok := t.Attr(h, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// blocksIn returns the innermost blocks overlapping r, in document order.
// Cards are not entered.
func (e *Engine) blocksIn(r cursor.Range) []tree.Handle {
	t := e.tree
	var out []tree.Handle
	t.Walk(t.Scope(r.Start.Node), func(h tree.Handle) tree.Visit {
		switch {
		case t.IsCard(h):
			return tree.SkipChildren
		case !t.IsBlock(h):
			return tree.Continue
		case cursor.Compare(t, cursor.EndOf(t, h), r.Start) < 0:
			return tree.SkipChildren
		case cursor.Compare(t, cursor.StartOf(h), r.End) > 0:
			return tree.Stop
		case !e.hasBlocks(h):
			out = append(out, h)
			return tree.SkipChildren
		}
		return tree.Continue
	})
	return out
}

// blank reports whether h shows nothing: its leaves are placeholders,
// empty or zero-width text, or line breaks.
func (e *Engine) blank(h tree.Handle) bool {
	t := e.tree
	for _, leaf := range t.Leaves(h) {
		switch {
		case cursor.IsPlaceholder(t, leaf):
		case t.IsText(leaf) && (t.Text(leaf) == "" || t.IsZeroWidth(leaf)):
		case t.IsInline(leaf) && t.Name(leaf) == "br":
		default:
			return false
		}
	}
	return true
}

// hollow reports whether mark h holds nothing but placeholders and empty
// text.
func (e *Engine) hollow(h tree.Handle) bool {
	t := e.tree
	for _, leaf := range t.Leaves(h) {
		if cursor.IsPlaceholder(t, leaf) || t.IsText(leaf) && t.Text(leaf) == "" {
			continue
		}
		return false
	}
	return true
}

// unwrapEmptyMarks removes hollow marks under h. Placeholders inside them
// are kept in place.
func (e *Engine) unwrapEmptyMarks(h tree.Handle) {
	t := e.tree
	for _, c := range t.Children(h) {
		if t.IsMark(c) || t.IsBlock(c) {
			e.unwrapEmptyMarks(c)
		}
	}
	if t.IsMark(h) && e.hollow(h) {
		t.Unwrap(h)
	}
}

// trimEdge removes zero-width markers at the start or end of block, with
// the marks they leave empty, stepping over placeholders.
func (e *Engine) trimEdge(block tree.Handle, atEnd bool) {
	t := e.tree
	for {
		leaves := t.Leaves(block)
		if atEnd {
			slices.Reverse(leaves)
		}
		edge := tree.Nil
		for _, leaf := range leaves {
			if !cursor.IsPlaceholder(t, leaf) {
				edge = leaf
				break
			}
		}
		if edge == tree.Nil || !t.IsText(edge) || t.Text(edge) != "" && !t.IsZeroWidth(edge) {
			return
		}
		p := t.Parent(edge)
		t.Remove(edge)
		for t.IsMark(p) && e.hollow(p) {
			next := t.Parent(p)
			t.Unwrap(p)
			p = next
		}
	}
}

// tidy cleans one half of a split block at the seam.
func (e *Engine) tidy(block tree.Handle, atEnd bool) {
	e.trimEdge(block, atEnd)
	e.unwrapEmptyMarks(block)
}

// carry returns detached copies of the marks active at p, outermost first.
func (e *Engine) carry(p cursor.Position) []tree.Handle {
	var out []tree.Handle
	for _, m := range e.marks.Active(cursor.Collapsed(p)) {
		out = append(out, e.tree.Clone(m, false))
	}
	return out
}

func (e *Engine) lineBreak() tree.Handle {
	return e.tree.NewElement(tree.KindInline, "br")
}

func (e *Engine) paragraph() tree.Handle {
	return e.tree.NewElement(tree.KindBlock, "p")
}

// fill replaces the content of a blank block with a line break, keeping
// placeholders. With marks, a zero-width marker wrapped in them goes in
// front of the break and the caret position after it is returned.
func (e *Engine) fill(block tree.Handle, marks []tree.Handle) (cursor.Position, bool) {
	t := e.tree
	e.unwrapEmptyMarks(block)
	for _, c := range t.Children(block) {
		if !cursor.IsPlaceholder(t, c) {
			t.Remove(c)
		}
	}
	br := e.lineBreak()
	t.Append(block, br)
	if len(marks) == 0 {
		return cursor.Position{}, false
	}

	outer := t.Clone(marks[0], false)
	inner := outer
	for _, m := range marks[1:] {
		c := t.Clone(m, false)
		t.Append(inner, c)
		inner = c
	}
	zw := t.NewText(tree.ZeroWidth)
	t.Append(inner, zw)
	t.InsertBefore(br, outer)
	return cursor.At(zw, 1), true
}

// caretAfter returns the caret position at the end of an inserted block.
func (e *Engine) caretAfter(h tree.Handle) cursor.Range {
	t := e.tree
	if t.IsCard(h) {
		return cursor.Collapsed(cursor.After(t, h))
	}
	return cursor.Collapsed(cursor.ShrinkToText(t, cursor.EndOf(t, h), false))
}

// settle moves p off an element boundary into the block or mark beside it,
// on the forward or backward side, and then into adjacent text. Cards and
// inline elements are not entered.
func (e *Engine) settle(p cursor.Position, forward bool) cursor.Position {
	t := e.tree
	for !t.IsText(p.Node) && !t.IsCard(p.Node) {
		c := t.Child(p.Node, p.Offset-1)
		if forward {
			c = t.Child(p.Node, p.Offset)
		}
		if !t.IsBlock(c) && !t.IsMark(c) {
			break
		}
		if forward {
			p = cursor.StartOf(c)
		} else {
			p = cursor.EndOf(t, c)
		}
	}
	return cursor.ShrinkToText(t, p, forward)
}

// settleRange settles the start of r forward and its end backward. A caret
// settles forward; a range that would collapse is returned unchanged.
func (e *Engine) settleRange(r cursor.Range) cursor.Range {
	if r.Collapsed() {
		return cursor.Collapsed(e.settle(r.Start, true))
	}
	out := cursor.Range{Start: e.settle(r.Start, true), End: e.settle(r.End, false)}
	if cursor.Compare(e.tree, out.Start, out.End) >= 0 {
		return r
	}
	return out
}

// husk reports whether h holds nothing but placeholders.
func (e *Engine) husk(h tree.Handle) bool {
	t := e.tree
	for _, c := range t.Children(h) {
		if !cursor.IsPlaceholder(t, c) {
			return false
		}
	}
	return true
}

// dropHusk removes h when it is a husk. Its placeholders take its place.
func (e *Engine) dropHusk(h tree.Handle) bool {
	t := e.tree
	if !e.husk(h) {
		return false
	}
	for _, c := range t.Children(h) {
		t.InsertBefore(h, c)
	}
	t.Remove(h)
	return true
}
