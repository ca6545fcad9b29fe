package engine

import (
	"fmt"

	"github.com/dshills/docstorm/internal/engine/card"
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tracking"
)

// Apply replays rec: the selection is set from the record's range and the
// operation it names runs as if called locally. Undo and redo records
// replay against this session's history.
func (e *Engine) Apply(rec Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(rec)
}

func (e *Engine) applyLocked(rec Record) error {
	switch rec.Op {
	case tracking.OpUndo:
		return e.undoLocked()
	case tracking.OpRedo:
		return e.redoLocked()
	}
	if err := e.writableLocked(); err != nil {
		return err
	}
	if err := e.selectPathLocked(rec.Range); err != nil {
		return err
	}
	return e.dispatchLocked(rec)
}

// ApplyLog replays a JSON log written by Export. Replay stops at the first
// record that fails.
func (e *Engine) ApplyLog(data []byte) error {
	records, err := tracking.DecodeLog(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		if err := e.applyLocked(rec); err != nil {
			return fmt.Errorf("replay %s: %w", rec, err)
		}
	}
	return nil
}

// dispatchLocked binds the templates rec names and runs its operation.
func (e *Engine) dispatchLocked(rec Record) error {
	if err := e.writableLocked(); err != nil {
		return err
	}

	var fn editFunc
	switch rec.Op {
	case tracking.OpWrap:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.marks.Wrap(r, tpl), nil }

	case tracking.OpUnwrap:
		filter, err := e.optionalTemplate(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.marks.Unwrap(r, filter), nil }

	case tracking.OpSplitMark:
		remove, err := e.optionalTemplate(rec.Extra)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.marks.Split(r, remove), nil }

	case tracking.OpMergeMark:
		fn = func(r cursor.Range) (cursor.Range, error) { return e.marks.Merge(r), nil }

	case tracking.OpInsertBlock:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.InsertBlock(r, tpl), nil }

	case tracking.OpWrapBlock:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.WrapBlock(r, tpl), nil }

	case tracking.OpUnwrapBlock:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.UnwrapBlock(r, tpl), nil }

	case tracking.OpSetBlocks:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.SetBlocks(r, tpl), nil }

	case tracking.OpSplitBlock:
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.SplitBlock(r), nil }

	case tracking.OpMergeList:
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.MergeAdjacentList(r), nil }

	case tracking.OpDeleteContent:
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.DeleteContent(r), nil }

	case tracking.OpInsertText:
		s := rec.Text
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.InsertText(r, s), nil }

	case tracking.OpInsertInline:
		tpl, err := e.template(rec.Template)
		if err != nil {
			return err
		}
		fn = func(r cursor.Range) (cursor.Range, error) { return e.blocks.InsertInline(r, tpl), nil }

	case tracking.OpInsertCard:
		d, ok := e.cards.Definition(rec.Text)
		if !ok {
			return fmt.Errorf("%w: %q", card.ErrUnknownCard, rec.Text)
		}
		value := rec.Extra
		fn = func(r cursor.Range) (cursor.Range, error) {
			h, err := e.cards.Create(d.Key, value)
			if err != nil {
				return r, err
			}
			if d.Type == card.TypeInline {
				return e.blocks.InsertInline(r, h), nil
			}
			return e.blocks.PlaceBlock(r, h), nil
		}

	case tracking.OpUndo:
		return e.undoLocked()

	case tracking.OpRedo:
		return e.redoLocked()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, rec.Op)
	}
	return e.runLocked(rec, fn)
}
