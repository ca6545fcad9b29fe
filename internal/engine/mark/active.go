package mark

import (
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Active returns the marks in effect over r, outermost first. A collapsed
// range reports the marks of the text before the caret, which is what
// typed text continues with. An expanded range reports the marks applied
// to every visible text leaf it touches; the handles belong to the first
// leaf.
func (e *Engine) Active(r cursor.Range) []tree.Handle {
	t := e.tree
	r = cursor.Normalize(t, r)
	if r.Collapsed() {
		return e.marksOf(cursor.ShrinkToText(t, r.Start, false).Node)
	}

	var result []tree.Handle
	first := true
	common := t.CommonAncestor(cursor.Container(t, r.Start), cursor.Container(t, r.End))
	if common == tree.Nil {
		return nil
	}
	t.Walk(common, func(h tree.Handle) tree.Visit {
		if !t.IsText(h) || t.Text(h) == "" || t.IsZeroWidth(h) {
			return tree.Continue
		}
		// only text overlapping the range
		if cursor.Compare(t, cursor.EndOf(t, h), r.Start) <= 0 {
			return tree.Continue
		}
		if cursor.Compare(t, cursor.StartOf(h), r.End) >= 0 {
			return tree.Stop
		}
		marks := e.marksOf(h)
		if first {
			result, first = marks, false
			return tree.Continue
		}
		kept := result[:0:0]
		for _, m := range result {
			if e.containsIdentical(marks, m) {
				kept = append(kept, m)
			}
		}
		result = kept
		if len(result) == 0 {
			return tree.Stop
		}
		return tree.Continue
	})
	return result
}

// IsActive reports whether a mark identical to template is in effect over
// r.
func (e *Engine) IsActive(r cursor.Range, template tree.Handle) bool {
	return e.containsIdentical(e.Active(r), template)
}
