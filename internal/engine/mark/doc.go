// Package mark implements the mark engine: wrapping, unwrapping, splitting
// and merging inline formatting wrappers such as bold, italic, color or
// font size.
//
// Every operation takes a cursor.Range and returns the range to select
// afterwards. The range is carried through the rewrite by a bookmark.
//
// Split cuts the marks crossing the range boundaries so the boundaries sit
// between whole marks. On a collapsed range it inserts a zero-width marker
// wrapped in the marks active at the caret (minus the ones being removed),
// which keeps the formatting the next typed character should get.
//
// Wrap applies a mark template. It is a no-op where an identical mark is
// already applied. When an ancestor has the same format but another value
// (two colors), the format's CombineValueByWrap policy either writes the
// new value into the ancestor where it stands or replaces the ancestor
// with a new mark placed by MergeLevel: a higher level ends up outside a
// lower one.
//
// Merge canonicalizes marks: identical adjacent siblings are joined, marks
// nested inside an identical mark are unwrapped and empty marks are
// removed. Wrap and Unwrap merge after every change.
package mark
