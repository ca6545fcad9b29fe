// Package cursor provides positions, ranges and bookmarks over a content
// tree.
//
// A Position is a boundary point: a node handle and an offset. Inside text
// nodes the offset counts runes; inside elements it counts children, so
// (p, 1) is the boundary between the first and second child of p. A Range
// is an ordered pair of positions.
//
// Positions are not stable across mutation. Operations that rewrite
// structure first turn the range into a Bookmark: placeholder nodes spliced
// into the tree at the range boundaries. The placeholders travel with the
// content they sit next to while nodes are split, cloned and moved, and
// are read back into a Range afterwards:
//
//	bm := cursor.CreateBookmark(t, r)
//	// ... mutate t ...
//	r = cursor.MoveToBookmark(t, bm)
//
// When a placeholder ends up detached, its position falls back to the
// nearest surviving boundary of its former ancestors instead of failing.
//
// Boundary forms:
//
//   - EnlargeToElement lifts text boundaries at the edge of a text node or
//     mark to boundaries between element children.
//   - ShrinkToElement descends element boundaries into the deepest
//     element at that point.
//   - ShrinkToText descends element boundaries into adjacent text.
//
// Positions serialize as a list of child indices from the document root
// plus an offset (see Point), the form used for persistence and for
// replaying operations from other processes.
package cursor
