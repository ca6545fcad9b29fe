// Package engine provides the document editing engine for Docstorm.
//
// The engine package is the facade over the sub-packages that model and
// edit a rich-text document. It owns one document, its selection, its
// undo history and its operation log, and serializes every edit behind a
// session lock.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - tree: arena-backed content tree with snapshots and markup parsing
//   - schema: element rules, attribute and style filtering, sanitizing
//   - cursor: positions, ranges, bookmarks and serialized paths
//   - mark: applying, removing, splitting and merging inline formats
//   - block: splitting, inserting, wrapping and converting blocks and lists
//   - card: embedded widgets bound to card nodes
//   - history: snapshot-based undo/redo with grouping
//   - tracking: operation records, JSON logs and named snapshots
//
// # Basic Usage
//
//	e, err := engine.New(engine.WithContent("<p>Hello world</p>"))
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	// Select "world" and make it bold
//	e.SelectPath(engine.RangePoints{
//		Start: cursor.Point{Path: []int{0, 0}, Offset: 6},
//		End:   cursor.Point{Path: []int{0, 0}, Offset: 11},
//	})
//	e.Wrap("<strong></strong>")
//
//	e.Markup() // <p>Hello <strong>world</strong></p>
//	e.Undo()   // <p>Hello world</p>
//
// # Templates
//
// Operations that take an element, such as Wrap, InsertBlock or SetBlocks,
// take it as markup. The markup is parsed and sanitized against the schema
// once and cached; it must yield exactly one node.
//
// # Replication
//
// Every operation is recorded with the serialized selection it ran
// against. Export writes the records as a JSON log, and ApplyLog on
// another session with the same starting content replays them to the same
// document:
//
//	data, _ := a.Export(0)
//	b.ApplyLog(data)
//	a.Markup() == b.Markup() // true
//
// # Undo/Redo
//
// Each operation that changes the document is one undo step.
// BeginUndoGroup and EndUndoGroup fold several operations into one.
// Operations that change nothing, such as wrapping text that already has
// the mark, are recorded but leave the history alone.
package engine
