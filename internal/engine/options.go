package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/card"
	"github.com/dshills/docstorm/internal/engine/history"
	"github.com/dshills/docstorm/internal/engine/mark"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tracking"
)

// Default configuration values.
const (
	DefaultMaxUndoEntries = history.DefaultMaxEntries
	DefaultMaxRecords     = tracking.DefaultMaxRecords
	DefaultTemplateTTL    = 10 * time.Minute
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithContent sets the initial document markup.
func WithContent(markup string) Option {
	return func(e *Engine) {
		e.initContent = markup
	}
}

// WithSchema sets the schema registry. The default is
// schema.NewDefaultRegistry.
func WithSchema(r *schema.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.schema = r
		}
	}
}

// WithFormats sets the mark formats. The default is mark.DefaultFormats.
func WithFormats(f *mark.Formats) Option {
	return func(e *Engine) {
		if f != nil {
			e.formats = f
		}
	}
}

// WithCards registers card definitions.
func WithCards(defs ...card.Definition) Option {
	return func(e *Engine) {
		e.cardDefs = append(e.cardDefs, defs...)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithMaxRecords sets the number of operation records kept.
func WithMaxRecords(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxRecords = max
		}
	}
}

// WithTemplateTTL sets how long parsed templates stay cached.
func WithTemplateTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.templateTTL = ttl
		}
	}
}

// WithReadOnly creates a read-only session. Write operations return
// ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}
