package card

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// RegionName is the element name of region roots.
const RegionName = "region"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClassifier sets the classifier used to parse region markup.
func WithClassifier(c tree.Classifier) Option {
	return func(r *Registry) {
		if c != nil {
			r.classifier = c
		}
	}
}

// Registry holds the card definitions and the mounted card instances of
// one document.
type Registry struct {
	mu sync.Mutex

	doc        *tree.Tree
	classifier tree.Classifier
	log        *zap.Logger

	defs map[string]Definition
	live map[tree.Handle]Card
}

// NewRegistry creates a registry for doc.
func NewRegistry(doc *tree.Tree, opts ...Option) *Registry {
	r := &Registry{
		doc:        doc,
		classifier: tree.BasicClassifier,
		log:        zap.NewNop(),
		defs:       make(map[string]Definition),
		live:       make(map[tree.Handle]Card),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a card definition.
func (r *Registry) Register(d Definition) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[d.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCard, d.Key)
	}
	r.defs[d.Key] = d
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Definition) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Definition returns the definition registered under key.
func (r *Registry) Definition(key string) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[key]
	return d, ok
}

// Create makes a detached card node for key holding value and mounts an
// instance for it. Editable cards get one region per markup string the
// instance reports.
func (r *Registry) Create(key, value string) (tree.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.defs[key]
	if !ok {
		return tree.Nil, fmt.Errorf("%w: %s", ErrUnknownCard, key)
	}
	t := r.doc
	h := t.NewElement(tree.KindCard, "card")
	t.SetAttr(h, KeyAttr, key)
	t.SetAttr(h, TypeAttr, string(d.Type))
	if value != "" {
		t.SetAttr(h, ValueAttr, value)
	}
	if _, err := r.mountLocked(h, d); err != nil {
		return tree.Nil, err
	}
	return h, nil
}

// mountLocked creates the instance for card node h. Regions are attached
// only when h has none yet, so remounting keeps edited region content.
func (r *Registry) mountLocked(h tree.Handle, d Definition) (Card, error) {
	t := r.doc
	value, _ := t.Attr(h, ValueAttr)
	c := d.Factory(value)
	if c == nil {
		return nil, fmt.Errorf("%w: %s: factory returned nil", ErrInvalidCard, d.Key)
	}
	t.SetAttr(h, EditableAttr, strconv.FormatBool(c.Editable()))

	if rc, ok := c.(RegionCard); ok && c.Editable() && len(t.Regions(h)) == 0 {
		for i, markup := range rc.Regions() {
			nodes, err := t.ParseMarkup(markup, r.classifier)
			if err != nil {
				c.Destroy()
				return nil, fmt.Errorf("card %s region %d: %w", d.Key, i, err)
			}
			region := t.NewElement(tree.KindRoot, RegionName)
			for _, n := range nodes {
				t.Append(region, n)
			}
			t.AttachRegion(h, region)
		}
	}
	r.live[h] = c
	r.log.Debug("card mounted", zap.String("key", d.Key), zap.Uint32("node", uint32(h)))
	return c, nil
}

// Instance returns the mounted instance of card node h.
func (r *Registry) Instance(h tree.Handle) (Card, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.live[h]
	return c, ok
}

// Editable reports whether card node h has editable regions.
func (r *Registry) Editable(h tree.Handle) bool {
	if c, ok := r.Instance(h); ok {
		return c.Editable()
	}
	v, _ := r.doc.Attr(h, EditableAttr)
	return v == "true"
}

// Regions returns the region roots of card node h.
func (r *Registry) Regions(h tree.Handle) []tree.Handle {
	return r.doc.Regions(h)
}

// Value returns the value of card node h.
func (r *Registry) Value(h tree.Handle) string {
	if c, ok := r.Instance(h); ok {
		return c.Value()
	}
	v, _ := r.doc.Attr(h, ValueAttr)
	return v
}

// SetValue passes v to the instance of h and stores it on the node.
func (r *Registry) SetValue(h tree.Handle, v string) error {
	c, ok := r.Instance(h)
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotMounted, h)
	}
	c.SetValue(v)
	r.doc.SetAttr(h, ValueAttr, v)
	return nil
}

// Render returns the rendering of card node h.
func (r *Registry) Render(h tree.Handle) (string, error) {
	c, ok := r.Instance(h)
	if !ok {
		return "", fmt.Errorf("%w: node %d", ErrNotMounted, h)
	}
	return c.Render(), nil
}

// Sync matches the mounted instances to the document: instances whose node
// is no longer attached are destroyed, and attached card nodes without an
// instance, such as those brought back by undo, are mounted. Cards of
// unknown keys are left alone.
func (r *Registry) Sync() (mounted, destroyed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.doc
	for h, c := range r.live {
		if t.Valid(h) && t.IsCard(h) && t.Attached(h) {
			continue
		}
		c.Destroy()
		delete(r.live, h)
		destroyed++
		r.log.Debug("card destroyed", zap.Uint32("node", uint32(h)))
	}

	for _, h := range r.cards(t.Root()) {
		if _, ok := r.live[h]; ok {
			continue
		}
		key, _ := t.Attr(h, KeyAttr)
		d, ok := r.defs[key]
		if !ok {
			continue
		}
		if _, err := r.mountLocked(h, d); err != nil {
			r.log.Warn("card mount failed", zap.String("key", key), zap.Error(err))
			continue
		}
		mounted++
	}
	return mounted, destroyed
}

// cards returns the card nodes under h, including those inside regions.
func (r *Registry) cards(h tree.Handle) []tree.Handle {
	t := r.doc
	var out []tree.Handle
	t.Walk(h, func(n tree.Handle) tree.Visit {
		if !t.IsCard(n) {
			return tree.Continue
		}
		out = append(out, n)
		for _, region := range t.Regions(n) {
			out = append(out, r.cards(region)...)
		}
		return tree.SkipChildren
	})
	return out
}

// Count returns the number of mounted instances.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close destroys every mounted instance.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, c := range r.live {
		c.Destroy()
		delete(r.live, h)
	}
}
