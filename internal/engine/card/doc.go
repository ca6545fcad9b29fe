// Package card manages the embedded widgets of a document.
//
// A card is an atomic node backed by a [Card] instance supplied by the
// host application. The document only stores the card key and its value
// as attributes; the instance lives in a per-document [Registry], which
// creates card nodes, exposes their editable regions, and destroys
// instances whose nodes have left the document. Editing operations never
// descend into a card except through its regions, and never span a range
// across a card boundary.
package card
