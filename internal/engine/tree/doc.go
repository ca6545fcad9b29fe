// Package tree provides the content tree of a rich-text document.
//
// Nodes live in an arena owned by a Tree and are addressed by Handle values.
// Handles stay valid for the lifetime of the Tree, including after the node
// they address has been detached, so positions held outside the tree can
// detect that their node left the document instead of dangling.
//
// # Node Kinds
//
// Every node carries a closed Kind fixed at construction:
//
//   - KindRoot: document container, or the root of an editable card region
//   - KindBlock: paragraph, heading, list container, list item, ...
//   - KindInline: atomic inline element such as a line break or link
//   - KindMark: character-formatting wrapper (bold, color, font size, ...)
//   - KindText: leaf character data
//   - KindCard: opaque embedded widget
//
// Text and Card nodes never own children. Editable cards expose region roots
// through AttachRegion; regions are separate subtrees owned by the card.
//
// # Offsets
//
// Offsets inside text nodes count runes. Offsets inside element nodes count
// children, mirroring DOM boundary points.
//
// # Walking
//
// Walk visits a subtree in document order. The callback steers traversal
// with a Visit value: Continue, SkipChildren, Stop, or ReplaceWith(h).
package tree
