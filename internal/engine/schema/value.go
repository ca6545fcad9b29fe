package schema

import (
	"regexp"
	"slices"
)

// Predicate decides whether a value is allowed.
type Predicate func(value string) bool

// Value is an allow-list entry for one attribute or style key.
// The zero Value allows nothing.
type Value struct {
	any   bool
	lits  []string
	res   []*regexp.Regexp
	preds []Predicate
}

// Any allows every value.
func Any() Value {
	return Value{any: true}
}

// Literal allows exactly s. The literal "*" allows every value.
func Literal(s string) Value {
	if s == "*" {
		return Any()
	}
	return Value{lits: []string{s}}
}

// OneOf allows any of the given literals.
func OneOf(values ...string) Value {
	if slices.Contains(values, "*") {
		return Any()
	}
	return Value{lits: slices.Clone(values)}
}

// Pattern allows values matching re.
func Pattern(re *regexp.Regexp) Value {
	return Value{res: []*regexp.Regexp{re}}
}

// MustPattern compiles expr and allows values matching it.
func MustPattern(expr string) Value {
	return Pattern(regexp.MustCompile(expr))
}

// Func allows values accepted by p.
func Func(p Predicate) Value {
	return Value{preds: []Predicate{p}}
}

// Union returns a Value allowing what either v or o allows.
func (v Value) Union(o Value) Value {
	return Value{
		any:   v.any || o.any,
		lits:  append(slices.Clone(v.lits), o.lits...),
		res:   append(slices.Clone(v.res), o.res...),
		preds: append(slices.Clone(v.preds), o.preds...),
	}
}

// Match reports whether s is allowed.
func (v Value) Match(s string) bool {
	if v.any || slices.Contains(v.lits, s) {
		return true
	}
	for _, re := range v.res {
		if re.MatchString(s) {
			return true
		}
	}
	for _, p := range v.preds {
		if p(s) {
			return true
		}
	}
	return false
}

// IsZero reports whether v allows nothing.
func (v Value) IsZero() bool {
	return !v.any && len(v.lits) == 0 && len(v.res) == 0 && len(v.preds) == 0
}

// CheckValue evaluates the allow-list entry for key against value.
// Keys without an entry are not allowed.
func CheckValue(rules map[string]Value, key, value string) bool {
	v, ok := rules[key]
	if !ok {
		return false
	}
	return v.Match(value)
}

// mergeValues unions src into dst, allocating dst when needed.
func mergeValues(dst, src map[string]Value) map[string]Value {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]Value, len(src))
	}
	for k, v := range src {
		dst[k] = dst[k].Union(v)
	}
	return dst
}
