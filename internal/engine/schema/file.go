package schema

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docstorm/internal/plugin/lua"
)

// ruleFile is the YAML layout of a rule file.
type ruleFile struct {
	Rules   []fileRule              `yaml:"rules"`
	Globals map[Category]fileGlobal `yaml:"globals"`
}

type fileRule struct {
	Name       string               `yaml:"name"`
	Type       Category             `yaml:"type"`
	Void       bool                 `yaml:"void"`
	AllowIn    []string             `yaml:"allowIn"`
	Attributes map[string]valueSpec `yaml:"attributes"`
	Style      map[string]valueSpec `yaml:"style"`
}

type fileGlobal struct {
	Attributes map[string]valueSpec `yaml:"attributes"`
	Style      map[string]valueSpec `yaml:"style"`
}

// valueSpec is one allow-list entry as written in a rule file: a scalar
// literal ("*" for any), a list of literals, or a mapping with one of
// pattern, builtin or lua.
type valueSpec struct {
	Literals []string
	Pattern  string
	Builtin  string
	Lua      string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *valueSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		v.Literals = []string{n.Value}
		return nil
	case yaml.SequenceNode:
		return n.Decode(&v.Literals)
	case yaml.MappingNode:
		var m struct {
			Pattern string `yaml:"pattern"`
			Builtin string `yaml:"builtin"`
			Lua     string `yaml:"lua"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		if m.Pattern == "" && m.Builtin == "" && m.Lua == "" {
			return fmt.Errorf("line %d: value needs pattern, builtin or lua", n.Line)
		}
		v.Pattern, v.Builtin, v.Lua = m.Pattern, m.Builtin, m.Lua
		return nil
	default:
		return fmt.Errorf("line %d: unsupported value form", n.Line)
	}
}

// Loader reads rule files into a registry.
type Loader struct {
	registry *Registry
	lua      *lua.State
}

// NewLoader creates a loader adding rules to r. Lua predicate values are
// compiled on state; a nil state rejects them.
func NewLoader(r *Registry, state *lua.State) *Loader {
	return &Loader{registry: r, lua: state}
}

// LoadFile reads and adds the rules of a YAML rule file.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}
	if err := l.Load(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load adds the rules of a YAML document. Nothing is added when any rule
// fails to compile.
func (l *Loader) Load(data []byte) error {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for _, fr := range f.Rules {
		rule := Rule{Name: fr.Name, Type: fr.Type, IsVoid: fr.Void, AllowIn: fr.AllowIn}
		var err error
		if rule.Attributes, err = l.values(fr.Attributes); err != nil {
			return fmt.Errorf("rule %q: %w", fr.Name, err)
		}
		if rule.Style, err = l.values(fr.Style); err != nil {
			return fmt.Errorf("rule %q: %w", fr.Name, err)
		}
		rules = append(rules, rule)
	}

	for _, rule := range rules {
		if err := l.registry.Add(rule); err != nil {
			return err
		}
	}
	for cat, g := range f.Globals {
		attrs, err := l.values(g.Attributes)
		if err != nil {
			return fmt.Errorf("global %q: %w", cat, err)
		}
		style, err := l.values(g.Style)
		if err != nil {
			return fmt.Errorf("global %q: %w", cat, err)
		}
		if err := l.registry.AddGlobal(cat, attrs, style); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) values(specs map[string]valueSpec) (map[string]Value, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]Value, len(specs))
	for key, spec := range specs {
		v, err := l.value(key, spec)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (l *Loader) value(key string, spec valueSpec) (Value, error) {
	switch {
	case len(spec.Literals) > 0:
		return OneOf(spec.Literals...), nil
	case spec.Pattern != "":
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", key, err)
		}
		return Pattern(re), nil
	case spec.Builtin != "":
		p, ok := Builtins[spec.Builtin]
		if !ok {
			return Value{}, fmt.Errorf("%s: %w: %q", key, ErrUnknownBuiltin, spec.Builtin)
		}
		return Func(p), nil
	case spec.Lua != "":
		if l.lua == nil {
			return Value{}, fmt.Errorf("%s: lua predicates are disabled", key)
		}
		pred, err := l.lua.Predicate(spec.Lua)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", key, err)
		}
		logger := l.registry.logger
		return Func(func(value string) bool {
			ok, err := pred(value)
			if err != nil {
				logger.Warn("lua predicate failed", zap.String("key", key), zap.Error(err))
				return false
			}
			return ok
		}), nil
	}
	return Value{}, fmt.Errorf("%s: empty value", key)
}
