package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/history"
	"github.com/dshills/docstorm/internal/engine/tracking"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Wrap applies the mark described by markup, for example
// `<strong></strong>` or `<span style="color: red"></span>`, to the
// selection. A collapsed selection gets a marker that typed text will
// inherit.
func (e *Engine) Wrap(markup string) error {
	return e.do(Record{Op: tracking.OpWrap, Template: markup})
}

// Unwrap removes the marks matching markup from the selection. An empty
// markup removes every mark.
func (e *Engine) Unwrap(markup string) error {
	return e.do(Record{Op: tracking.OpUnwrap, Template: markup})
}

// SplitMark splits the marks at the selection boundaries. A collapsed
// selection leaves the caret outside the marks matching removeMarkup; an
// empty removeMarkup keeps every mark.
func (e *Engine) SplitMark(removeMarkup string) error {
	return e.do(Record{Op: tracking.OpSplitMark, Extra: removeMarkup})
}

// MergeMarks merges identical adjacent marks around the selection.
func (e *Engine) MergeMarks() error {
	return e.do(Record{Op: tracking.OpMergeMark})
}

// InsertBlock inserts the block described by markup at the selection.
func (e *Engine) InsertBlock(markup string) error {
	return e.do(Record{Op: tracking.OpInsertBlock, Template: markup})
}

// WrapBlock wraps the blocks of the selection in the block described by
// markup.
func (e *Engine) WrapBlock(markup string) error {
	return e.do(Record{Op: tracking.OpWrapBlock, Template: markup})
}

// UnwrapBlock removes the nearest wrapper matching markup from the blocks
// of the selection.
func (e *Engine) UnwrapBlock(markup string) error {
	return e.do(Record{Op: tracking.OpUnwrapBlock, Template: markup})
}

// SplitBlock splits the block at the selection.
func (e *Engine) SplitBlock() error {
	return e.do(Record{Op: tracking.OpSplitBlock})
}

// SetBlocks converts the blocks of the selection to the block described
// by markup.
func (e *Engine) SetBlocks(markup string) error {
	return e.do(Record{Op: tracking.OpSetBlocks, Template: markup})
}

// MergeLists merges adjacent lists around the selection.
func (e *Engine) MergeLists() error {
	return e.do(Record{Op: tracking.OpMergeList})
}

// DeleteContent deletes the selected content.
func (e *Engine) DeleteContent() error {
	return e.do(Record{Op: tracking.OpDeleteContent})
}

// InsertText inserts s at the selection, replacing selected content.
func (e *Engine) InsertText(s string) error {
	return e.do(Record{Op: tracking.OpInsertText, Text: s})
}

// InsertInline inserts the inline element described by markup at the
// selection.
func (e *Engine) InsertInline(markup string) error {
	return e.do(Record{Op: tracking.OpInsertInline, Template: markup})
}

// InsertCard creates a card of the registered kind key holding value and
// inserts it at the selection.
func (e *Engine) InsertCard(key, value string) error {
	return e.do(Record{Op: tracking.OpInsertCard, Text: key, Extra: value})
}

// ActiveMarks returns the markup of the marks in effect over the
// selection, outermost first, without their content.
func (e *Engine) ActiveMarks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	for _, h := range e.marks.Active(e.sel) {
		out = append(out, shallowMarkup(e.doc, h))
	}
	return out
}

// IsActive reports whether the mark described by markup is in effect over
// the whole selection.
func (e *Engine) IsActive(markup string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, ErrClosed
	}
	tpl, err := e.template(markup)
	if err != nil {
		return false, err
	}
	return e.marks.IsActive(e.sel, tpl), nil
}

// shallowMarkup prints element h without its children.
func shallowMarkup(t *tree.Tree, h tree.Handle) string {
	scratch := tree.New()
	c := scratch.NewElement(t.Kind(h), t.Name(h))
	for k, v := range t.Attrs(h) {
		scratch.SetAttr(c, k, v)
	}
	for k, v := range t.Styles(h) {
		scratch.SetStyle(c, k, v)
	}
	return scratch.String(c)
}

// template returns a detached copy of the node described by markup. Parsed
// templates are kept as standalone fragments so the cached copy survives
// undo restoring the document arena.
func (e *Engine) template(markup string) (tree.Handle, error) {
	var frag *tree.Tree
	if v, ok := e.templates.Get(markup); ok {
		frag = v.(*tree.Tree)
	} else {
		frag = tree.New()
		nodes, err := frag.ParseMarkup(markup, e.schema)
		if err != nil {
			return tree.Nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		nodes = e.schema.SanitizeNodes(frag, nodes)
		if len(nodes) != 1 {
			return tree.Nil, fmt.Errorf("%w: %q gives %d nodes", ErrInvalidTemplate, markup, len(nodes))
		}
		frag.Append(frag.Root(), nodes[0])
		e.templates.SetDefault(markup, frag)
	}
	return e.doc.Import(frag, frag.FirstChild(frag.Root())), nil
}

// optionalTemplate is like template but maps empty markup to tree.Nil.
func (e *Engine) optionalTemplate(markup string) (tree.Handle, error) {
	if markup == "" {
		return tree.Nil, nil
	}
	return e.template(markup)
}

// do runs the operation rec describes against the selection.
func (e *Engine) do(rec Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchLocked(rec)
}

// editFunc is one operation bound to its templates.
type editFunc func(r cursor.Range) (cursor.Range, error)

// runLocked executes fn as an undoable edit of the selection and records
// it. Edits that leave the markup unchanged are logged but not pushed to
// the undo history.
func (e *Engine) runLocked(rec Record, fn editFunc) error {
	rp, err := cursor.RangeToPath(e.doc, e.sel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	rec.Range = rp

	cmd := history.NewEditCommand(rec.Op, func(_ *tree.Tree, r cursor.Range) (cursor.Range, error) {
		return fn(r)
	})
	if err := cmd.Execute(e.doc, &e.sel); err != nil {
		e.cards.Sync()
		return err
	}
	mounted, destroyed := e.cards.Sync()
	if cmd.Changed() {
		e.history.Push(cmd)
	}
	released := e.compactLocked()
	rec = e.tracker.Append(rec)

	if ce := e.log.Check(zap.DebugLevel, "operation applied"); ce != nil {
		ce.Write(
			zap.String("op", rec.Op),
			zap.Uint64("rev", uint64(rec.Revision)),
			zap.Ints("start", rp.Start.Path),
			zap.Ints("end", rp.End.Path),
			zap.Bool("changed", cmd.Changed()),
			zap.Int("cardsMounted", mounted),
			zap.Int("cardsDestroyed", destroyed),
			zap.Int("nodesReleased", released),
		)
	}
	return nil
}

// writableLocked reports whether the session accepts edits.
func (e *Engine) writableLocked() error {
	if e.closed {
		return ErrClosed
	}
	if e.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Undo reverts the last edit or edit group.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.undoLocked()
}

func (e *Engine) undoLocked() error {
	if err := e.writableLocked(); err != nil {
		return err
	}
	if err := e.history.Undo(e.doc, &e.sel); err != nil {
		return err
	}
	e.cards.Sync()
	e.compactLocked()
	rec := e.tracker.Append(Record{Op: tracking.OpUndo})
	e.log.Debug("undo", zap.Uint64("rev", uint64(rec.Revision)))
	return nil
}

// Redo reapplies the last undone edit or edit group.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redoLocked()
}

func (e *Engine) redoLocked() error {
	if err := e.writableLocked(); err != nil {
		return err
	}
	if err := e.history.Redo(e.doc, &e.sel); err != nil {
		return err
	}
	e.cards.Sync()
	e.compactLocked()
	rec := e.tracker.Append(Record{Op: tracking.OpRedo})
	e.log.Debug("redo", zap.Uint64("rev", uint64(rec.Revision)))
	return nil
}

// compactLocked releases the arena slots of detached nodes. Inside an undo
// group it does nothing, so a group undone in one step never sees a slot
// reused by another node.
func (e *Engine) compactLocked() int {
	if e.history.IsGrouping() {
		return 0
	}
	return e.doc.Compact()
}

// CanUndo reports whether there is an edit to undo.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether there is an edit to redo.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// BeginUndoGroup starts grouping edits into one undo step.
func (e *Engine) BeginUndoGroup(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.BeginGroup(name)
}

// EndUndoGroup ends the current undo group.
func (e *Engine) EndUndoGroup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.EndGroup()
	e.compactLocked()
}

// UndoHistory describes the undo stack, most recent last.
func (e *Engine) UndoHistory() []history.OperationInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.UndoInfo()
}

// Revision returns the revision of the last recorded operation.
func (e *Engine) Revision() RevisionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Revision()
}

// ChangesSince returns the kept records after rev, oldest first.
func (e *Engine) ChangesSince(rev RevisionID) []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Since(rev)
}

// Export encodes the kept records after rev as a JSON log that ApplyLog
// replays.
func (e *Engine) Export(rev RevisionID) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Export(rev)
}

// CreateSnapshot stores the document under name at the current revision.
func (e *Engine) CreateSnapshot(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.tracker.Snapshots().Create(name, e.doc, e.tracker.Revision())
	return nil
}

// SnapshotMarkup returns the markup of the named snapshot.
func (e *Engine) SnapshotMarkup(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.tracker.Snapshots().GetByName(name)
	if err != nil {
		return "", err
	}
	return s.Markup(), nil
}

// ChangesSinceSnapshot returns the records made after the named snapshot.
func (e *Engine) ChangesSinceSnapshot(name string) ([]Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.SinceSnapshot(name)
}
