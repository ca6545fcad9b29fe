package schema

import (
	"slices"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Category groups node names by their structural role.
type Category string

// Categories.
const (
	CategoryBlock  Category = "block"
	CategoryInline Category = "inline"
	CategoryMark   Category = "mark"
	CategoryCard   Category = "card"
)

// RootParent is the AllowIn entry naming the document or region root.
const RootParent = "$root"

// Kind returns the tree kind for nodes of this category.
func (c Category) Kind() tree.Kind {
	switch c {
	case CategoryBlock:
		return tree.KindBlock
	case CategoryMark:
		return tree.KindMark
	case CategoryCard:
		return tree.KindCard
	default:
		return tree.KindInline
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBlock, CategoryInline, CategoryMark, CategoryCard:
		return true
	}
	return false
}

// Rule describes one legal node name.
type Rule struct {
	// Name is the node name (tag) the rule applies to.
	Name string

	// Type is the category of the node.
	Type Category

	// Attributes is the attribute allow-list.
	Attributes map[string]Value

	// Style is the style allow-list.
	Style map[string]Value

	// IsVoid marks nodes that never have content.
	IsVoid bool

	// AllowIn lists parent names (or RootParent) that may contain the
	// node. Empty means the category default.
	AllowIn []string
}

// merge unions o into r.
func (r *Rule) merge(o Rule) {
	r.Attributes = mergeValues(r.Attributes, o.Attributes)
	r.Style = mergeValues(r.Style, o.Style)
	r.IsVoid = r.IsVoid || o.IsVoid
	for _, p := range o.AllowIn {
		if !slices.Contains(r.AllowIn, p) {
			r.AllowIn = append(r.AllowIn, p)
		}
	}
}

// clone returns a copy whose maps can be merged into independently.
func (r Rule) clone() *Rule {
	c := r
	c.Attributes = mergeValues(nil, r.Attributes)
	c.Style = mergeValues(nil, r.Style)
	c.AllowIn = slices.Clone(r.AllowIn)
	return &c
}
