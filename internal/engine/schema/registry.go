package schema

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// reserved names are synthesized by the engine and cannot carry rules.
var reserved = map[string]bool{
	"root":     true,
	"fragment": true,
	"#text":    true,
	"anchor":   true,
	"focus":    true,
	"cursor":   true,
}

// IsReserved reports whether name is a structural name the engine uses.
func IsReserved(name string) bool {
	return reserved[name]
}

// global holds the attribute/style set applied to a whole category.
type global struct {
	attributes map[string]Value
	style      map[string]Value
}

// Registry holds schema rules.
// It is safe for concurrent use; rule files may be re-added from a watcher
// goroutine while a document session reads rules.
type Registry struct {
	mu      sync.RWMutex
	rules   map[string]*Rule
	globals map[Category]*global
	logger  *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report dropped attributes and nodes.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rules:   make(map[string]*Rule),
		globals: make(map[Category]*global),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add merges a rule into the registry. A rule for an already registered
// name unions the allowed values; its category must match.
func (r *Registry) Add(rule Rule) error {
	if rule.Name == "" || !rule.Type.Valid() {
		return fmt.Errorf("%w: name %q type %q", ErrInvalidRule, rule.Name, rule.Type)
	}
	if IsReserved(rule.Name) {
		return fmt.Errorf("%w: %q", ErrReservedName, rule.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rules[rule.Name]
	if !ok {
		r.rules[rule.Name] = rule.clone()
		return nil
	}
	if existing.Type != rule.Type {
		return fmt.Errorf("%w: %q is %s, not %s", ErrConflictingRule, rule.Name, existing.Type, rule.Type)
	}
	existing.merge(rule)
	return nil
}

// MustAdd adds rules and panics on error.
func (r *Registry) MustAdd(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Add(rule); err != nil {
			panic(err)
		}
	}
}

// AddGlobal merges an attribute/style set applied to every rule of the
// category.
func (r *Registry) AddGlobal(cat Category, attributes, style map[string]Value) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: global category %q", ErrInvalidRule, cat)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.globals[cat]
	if g == nil {
		g = &global{}
		r.globals[cat] = g
	}
	g.attributes = mergeValues(g.attributes, attributes)
	g.style = mergeValues(g.style, style)
	return nil
}

// Rule returns a copy of the rule registered for name.
func (r *Registry) Rule(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]
	if !ok {
		return Rule{}, false
	}
	return *rule.clone(), true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// CategoryOf returns the category registered for name.
func (r *Registry) CategoryOf(name string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]
	if !ok {
		return "", false
	}
	return rule.Type, true
}

// Check reports whether the node's name falls in the category.
func (r *Registry) Check(t *tree.Tree, h tree.Handle, cat Category) bool {
	if !t.Kind(h).IsElement() && !t.IsCard(h) {
		return false
	}
	return r.CheckName(t.Name(h), cat)
}

// CheckName reports whether name falls in the category.
func (r *Registry) CheckName(name string, cat Category) bool {
	got, ok := r.CategoryOf(name)
	return ok && got == cat
}

// AttributeAllowed reports whether the attribute is legal on nodes named
// name, considering the rule and its category's global rule.
func (r *Registry) AttributeAllowed(name, key, value string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]
	if !ok {
		return false
	}
	if CheckValue(rule.Attributes, key, value) {
		return true
	}
	g := r.globals[rule.Type]
	return g != nil && CheckValue(g.attributes, key, value)
}

// StyleAllowed reports whether the style is legal on nodes named name.
func (r *Registry) StyleAllowed(name, key, value string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]
	if !ok {
		return false
	}
	if CheckValue(rule.Style, key, value) {
		return true
	}
	g := r.globals[rule.Type]
	return g != nil && CheckValue(g.style, key, value)
}

// Valid reports whether the node has a rule and every attribute and style
// on it satisfies the rule. Text nodes are always valid.
func (r *Registry) Valid(t *tree.Tree, h tree.Handle) bool {
	if t.IsText(h) {
		return true
	}
	name := t.Name(h)
	if _, ok := r.CategoryOf(name); !ok {
		return false
	}
	for k, v := range t.Attrs(h) {
		if !r.AttributeAllowed(name, k, v) {
			return false
		}
	}
	for k, v := range t.Styles(h) {
		if !r.StyleAllowed(name, k, v) {
			return false
		}
	}
	return true
}

// ClosestAllowedParent returns the nearest parent permitted to contain
// nodes named name: the first AllowIn entry of its rule, or the category
// default. Blocks default to RootParent; marks and inline nodes default to
// the block category; cards default to RootParent.
func (r *Registry) ClosestAllowedParent(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]
	if !ok {
		return ""
	}
	if len(rule.AllowIn) > 0 {
		return rule.AllowIn[0]
	}
	switch rule.Type {
	case CategoryBlock, CategoryCard:
		return RootParent
	default:
		return string(CategoryBlock)
	}
}

// IsRootBlock reports whether name is a simple block living directly under
// a root, such as a paragraph or heading.
func (r *Registry) IsRootBlock(name string) bool {
	return r.CheckName(name, CategoryBlock) && r.ClosestAllowedParent(name) == RootParent
}

// AllowedIn reports whether nodes named child may sit inside parent, where
// parent is a node name or RootParent.
func (r *Registry) AllowedIn(child, parent string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[child]
	if !ok {
		return false
	}
	if len(rule.AllowIn) > 0 {
		if slices.Contains(rule.AllowIn, parent) {
			return true
		}
		if p, ok := r.rules[parent]; ok && slices.Contains(rule.AllowIn, string(p.Type)) {
			return true
		}
		return false
	}
	switch rule.Type {
	case CategoryBlock, CategoryCard:
		if parent == RootParent {
			return true
		}
		p, ok := r.rules[parent]
		return ok && p.Type == CategoryBlock
	default:
		p, ok := r.rules[parent]
		return ok && (p.Type == CategoryBlock || p.Type == CategoryMark)
	}
}

// KindOf implements tree.Classifier using the registered categories.
// Nodes carrying a data-card-key attribute are cards; unknown names are
// classified as inline nodes and dropped by Sanitize.
func (r *Registry) KindOf(name string, attrs map[string]string) tree.Kind {
	if _, ok := attrs["data-card-key"]; ok {
		return tree.KindCard
	}
	if cat, ok := r.CategoryOf(name); ok {
		return cat.Kind()
	}
	return tree.BasicClassifier.KindOf(name, attrs)
}

// IsVoid implements tree.Classifier.
func (r *Registry) IsVoid(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rule, ok := r.rules[name]; ok {
		return rule.IsVoid || rule.Type == CategoryCard
	}
	return tree.BasicClassifier.IsVoid(name)
}
