package tree

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// ZeroWidth is the zero-width marker used to hold a collapsed caret and the
// formatting active at it.
const ZeroWidth = "\u200b"

// splitRunes splits s at a rune offset, clamping the offset.
func splitRunes(s string, offset int) (string, string) {
	if offset <= 0 {
		return "", s
	}
	i := 0
	for pos := range s {
		if i == offset {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// SliceRunes returns the runes of s in [start, end).
func SliceRunes(s string, start, end int) string {
	_, rest := splitRunes(s, start)
	mid, _ := splitRunes(rest, end-start)
	return mid
}

// RemoveRunes deletes the runes of s in [start, end).
func RemoveRunes(s string, start, end int) string {
	left, rest := splitRunes(s, start)
	_, right := splitRunes(rest, end-start)
	return left + right
}

// InsertRunes inserts ins into s at a rune offset.
func InsertRunes(s string, offset int, ins string) string {
	left, right := splitRunes(s, offset)
	return left + ins + right
}

// SnapOffset moves a rune offset back to the start of the grapheme cluster
// containing it, so positions never split a user-perceived character.
func SnapOffset(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(s)
	if offset >= n {
		return n
	}
	pos := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		size := len(g.Runes())
		if offset < pos+size {
			return pos
		}
		pos += size
	}
	return n
}

// IsZeroWidth reports whether h is a non-empty text node made only of
// zero-width markers.
func (t *Tree) IsZeroWidth(h Handle) bool {
	if !t.IsText(h) {
		return false
	}
	s := t.Text(h)
	return s != "" && strings.Trim(s, ZeroWidth) == ""
}

// TextContent returns the concatenated character data under h.
func (t *Tree) TextContent(h Handle) string {
	if t.IsText(h) {
		return t.Text(h)
	}
	var b strings.Builder
	t.Walk(h, func(n Handle) Visit {
		if t.IsText(n) {
			b.WriteString(t.Text(n))
		}
		return Continue
	})
	return b.String()
}

// VisibleText returns the text content under h without zero-width markers.
func (t *Tree) VisibleText(h Handle) string {
	return strings.ReplaceAll(t.TextContent(h), ZeroWidth, "")
}
