package schema

import (
	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Filter removes the attributes and styles of h that its rule does not
// allow and returns the removed keys. Reserved placeholder nodes are left
// alone.
func (r *Registry) Filter(t *tree.Tree, h tree.Handle) []string {
	if !t.Kind(h).IsElement() && !t.IsCard(h) {
		return nil
	}
	name := t.Name(h)
	if IsReserved(name) {
		return nil
	}

	var dropped []string
	for k, v := range t.Attrs(h) {
		if !r.AttributeAllowed(name, k, v) {
			t.RemoveAttr(h, k)
			dropped = append(dropped, k)
		}
	}
	for k, v := range t.Styles(h) {
		if !r.StyleAllowed(name, k, v) {
			t.RemoveStyle(h, k)
			dropped = append(dropped, "style:"+k)
		}
	}
	if len(dropped) > 0 {
		r.logger.Debug("schema dropped properties",
			zap.String("node", name),
			zap.Strings("keys", dropped),
		)
	}
	return dropped
}

// Sanitize makes the subtree under h conform to the registry. Illegal
// attributes and styles are dropped, unknown marks and inline elements are
// unwrapped, unknown blocks become paragraphs when a "p" rule exists, and
// unknown cards are removed. Editable card regions are sanitized as well.
func (r *Registry) Sanitize(t *tree.Tree, h tree.Handle) {
	for _, c := range t.Children(h) {
		r.Sanitize(t, c)
	}
	if t.IsCard(h) {
		for _, region := range t.Regions(h) {
			r.Sanitize(t, region)
		}
	}
	if t.IsText(h) || t.IsRoot(h) || IsReserved(t.Name(h)) {
		return
	}

	name := t.Name(h)
	cat, known := r.CategoryOf(name)
	if known && cat.Kind() != t.Kind(h) {
		known = false
	}
	if !known {
		r.dropNode(t, h)
		return
	}

	r.Filter(t, h)

	if r.IsVoid(name) && t.ChildCount(h) > 0 && t.Parent(h) != tree.Nil {
		// void nodes cannot own content; hoist it after the node
		for i, c := range t.Children(h) {
			t.Insert(t.Parent(h), t.Index(h)+1+i, c)
		}
	}
}

func (r *Registry) dropNode(t *tree.Tree, h tree.Handle) {
	name := t.Name(h)
	switch t.Kind(h) {
	case tree.KindCard:
		r.logger.Debug("schema removed card", zap.String("node", name))
		t.Remove(h)
	case tree.KindBlock:
		if r.CheckName("p", CategoryBlock) && !hasBlockChild(t, h) {
			r.logger.Debug("schema replaced block", zap.String("node", name))
			p := t.NewElement(tree.KindBlock, "p")
			t.MoveChildren(h, p, 0)
			t.ReplaceWith(h, p)
			return
		}
		fallthrough
	default:
		r.logger.Debug("schema unwrapped node", zap.String("node", name))
		if t.Parent(h) != tree.Nil {
			t.Unwrap(h)
		}
	}
}

func hasBlockChild(t *tree.Tree, h tree.Handle) bool {
	for _, c := range t.Children(h) {
		if t.IsBlock(c) {
			return true
		}
	}
	return false
}

// SanitizeNodes sanitizes detached top-level nodes, such as those returned
// by tree.ParseMarkup, and returns the surviving top-level nodes detached.
func (r *Registry) SanitizeNodes(t *tree.Tree, nodes []tree.Handle) []tree.Handle {
	frag := t.NewElement(tree.KindRoot, "fragment")
	for _, h := range nodes {
		t.Append(frag, h)
	}
	r.Sanitize(t, frag)
	out := t.Children(frag)
	for _, h := range out {
		t.Remove(h)
	}
	return out
}
