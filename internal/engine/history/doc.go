// Package history provides undo/redo for document editing sessions.
//
// Every edit is recorded as a before/after pair of tree snapshots together
// with the selection on either side. Snapshots keep node handles stable, so
// a selection taken before an edit is valid again after the edit is undone.
//
// # Commands
//
// Commands implement the Command interface with Execute and Undo methods.
// EditCommand runs an edit function once and replays its snapshots on redo;
// CompoundCommand groups several commands as one undo unit.
//
// # History Stack
//
//	h := NewHistory(500)
//	h.Execute(NewEditCommand("Bold", boldFn), doc, &sel)
//	h.Undo(doc, &sel)
//	h.Redo(doc, &sel)
//
// # Command Grouping
//
//	h.BeginGroup("Paste")
//	// ... several edits ...
//	h.EndGroup()
//
// All edits in the group undo together.
package history
