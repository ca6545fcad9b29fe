package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/block"
	"github.com/dshills/docstorm/internal/engine/card"
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/history"
	"github.com/dshills/docstorm/internal/engine/mark"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tracking"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// Re-export commonly used types for convenience.
type (
	// Range is a selection in the document.
	Range = cursor.Range

	// RangePoints is the serialized form of a Range.
	RangePoints = cursor.RangePoints

	// Record is one applied operation.
	Record = tracking.Record

	// RevisionID numbers operation records.
	RevisionID = tracking.RevisionID
)

// Engine is one document editing session. It owns the document tree, the
// schema, the mark and block engines, the card instances, the template
// cache, the undo history and the operation log, and keeps the current
// selection.
//
// Operations are serialized: each runs to completion under the session
// lock, so remote edits replayed with Apply queue behind local ones.
type Engine struct {
	mu sync.Mutex

	id  string
	log *zap.Logger

	doc       *tree.Tree
	schema    *schema.Registry
	formats   *mark.Formats
	marks     *mark.Engine
	blocks    *block.Engine
	cards     *card.Registry
	templates *cache.Cache
	history   *history.History
	tracker   *tracking.Tracker

	sel    cursor.Range
	closed bool

	// Configuration
	initContent    string
	cardDefs       []card.Definition
	maxUndoEntries int
	maxRecords     int
	templateTTL    time.Duration
	readOnly       bool
}

// New creates a session. The initial content is sanitized against the
// schema; the selection starts collapsed at the start of the document.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:             uuid.NewString(),
		log:            zap.NewNop(),
		maxUndoEntries: DefaultMaxUndoEntries,
		maxRecords:     DefaultMaxRecords,
		templateTTL:    DefaultTemplateTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("session", e.id))
	if e.schema == nil {
		e.schema = schema.NewDefaultRegistry(schema.WithLogger(e.log))
	}
	if e.formats == nil {
		e.formats = mark.DefaultFormats()
	}

	e.doc = tree.New()
	e.marks = mark.New(e.doc, mark.WithSchema(e.schema), mark.WithFormats(e.formats))
	e.blocks = block.New(e.doc, block.WithSchema(e.schema), block.WithMarks(e.marks))
	e.cards = card.NewRegistry(e.doc, card.WithLogger(e.log), card.WithClassifier(e.schema))
	for _, d := range e.cardDefs {
		if err := e.cards.Register(d); err != nil {
			return nil, err
		}
	}
	e.templates = cache.New(e.templateTTL, 2*e.templateTTL)
	e.history = history.NewHistory(e.maxUndoEntries)
	e.tracker = tracking.NewTracker(tracking.WithMaxRecords(e.maxRecords))

	if e.initContent != "" {
		nodes, err := e.doc.ParseMarkup(e.initContent, e.schema)
		if err != nil {
			return nil, fmt.Errorf("initial content: %w", err)
		}
		for _, n := range e.schema.SanitizeNodes(e.doc, nodes) {
			e.doc.Append(e.doc.Root(), n)
		}
		e.doc.Normalize(e.doc.Root())
		e.cards.Sync()
	}
	e.sel = cursor.Collapsed(cursor.ShrinkToText(e.doc, cursor.StartOf(e.doc.Root()), true))
	e.log.Debug("session opened", zap.Int("nodes", e.doc.Size()))
	return e, nil
}

// ID returns the session id.
func (e *Engine) ID() string {
	return e.id
}

// Markup returns the document markup.
func (e *Engine) Markup() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.String(e.doc.Root())
}

// Text returns the visible text of the document.
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.VisibleText(e.doc.Root())
}

// Encode returns the JSON encoding of the document.
func (e *Engine) Encode() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Encode(e.doc.Root())
}

// View calls fn with the document and the selection under the session
// lock. fn must not modify the document.
func (e *Engine) View(fn func(doc *tree.Tree, sel cursor.Range)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.doc, e.sel)
}

// Selection returns the current selection.
func (e *Engine) Selection() cursor.Range {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

// SelectionPath returns the current selection in serialized form.
func (e *Engine) SelectionPath() (cursor.RangePoints, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cursor.RangeToPath(e.doc, e.sel)
}

// Select sets the selection. Ranges crossing a card boundary or ending
// inside an atomic card are normalized.
func (e *Engine) Select(r cursor.Range) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel = cursor.Normalize(e.doc, r)
}

// SelectPath sets the selection from its serialized form.
func (e *Engine) SelectPath(rp cursor.RangePoints) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectPathLocked(rp)
}

func (e *Engine) selectPathLocked(rp cursor.RangePoints) error {
	r, err := cursor.RangeFromPath(e.doc, rp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	e.sel = cursor.Normalize(e.doc, r)
	return nil
}

// Schema returns the schema registry.
func (e *Engine) Schema() *schema.Registry {
	return e.schema
}

// Cards returns the card registry. Card nodes created through it are
// detached and must be placed by an edit in the same session call, since
// detached nodes are released after every edit.
func (e *Engine) Cards() *card.Registry {
	return e.cards
}

// IsReadOnly reports whether the session rejects writes.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// Close destroys the mounted cards and drops the caches and history.
// Later calls return ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.closed = true
	e.cards.Close()
	e.templates.Flush()
	e.history.Clear()
	e.tracker.Clear()
	e.log.Debug("session closed")
	return nil
}
