package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	lengthPattern  = regexp.MustCompile(`^\d+(\.\d+)?(px|pt|em|rem|%)$`)
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	urlPattern     = regexp.MustCompile(`^(https?:|mailto:|#|/)`)
)

// namedColors are the CSS color keywords accepted besides hex and rgb().
var namedColors = map[string]string{
	"black": "#000000", "white": "#ffffff", "red": "#ff0000", "green": "#008000",
	"blue": "#0000ff", "yellow": "#ffff00", "orange": "#ffa500", "purple": "#800080",
	"gray": "#808080", "grey": "#808080", "silver": "#c0c0c0", "maroon": "#800000",
	"navy": "#000080", "teal": "#008080", "olive": "#808000", "lime": "#00ff00",
	"aqua": "#00ffff", "fuchsia": "#ff00ff", "transparent": "",
}

// ParseColor parses a CSS color in #rgb, #rrggbb, rgb(r, g, b) or keyword
// form.
func ParseColor(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		if hex == "" {
			return colorful.Color{}, true
		}
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		return c, err == nil
	}
	inner, ok := strings.CutPrefix(s, "rgb(")
	if !ok {
		return colorful.Color{}, false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return colorful.Color{}, false
	}
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return colorful.Color{}, false
	}
	var rgb [3]float64
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return colorful.Color{}, false
		}
		rgb[i] = float64(n) / 255
	}
	c := colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
	return c, c.IsValid()
}

// IsColor reports whether s is a CSS color value.
func IsColor(s string) bool {
	_, ok := ParseColor(s)
	return ok
}

// NormalizeColor returns the #rrggbb form of a color value, or s unchanged
// when it is not a color.
func NormalizeColor(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "transparent") {
		return "transparent"
	}
	c, ok := ParseColor(s)
	if !ok {
		return s
	}
	return c.Hex()
}

// Builtins maps the predicate names usable from rule files.
var Builtins = map[string]Predicate{
	"color":   IsColor,
	"length":  lengthPattern.MatchString,
	"integer": integerPattern.MatchString,
	"url":     urlPattern.MatchString,
}

// DefaultRules returns the rules for the common formatting vocabulary:
// paragraphs, headings, quotes, lists, line breaks, links, cards and the
// usual marks.
func DefaultRules() []Rule {
	color := Func(IsColor)
	indent := Func(integerPattern.MatchString)

	rules := []Rule{
		{Name: "p", Type: CategoryBlock},
		{Name: "blockquote", Type: CategoryBlock},
		{Name: "ul", Type: CategoryBlock, Attributes: map[string]Value{"data-indent": indent}},
		{Name: "ol", Type: CategoryBlock, Attributes: map[string]Value{
			"data-indent": indent,
			"start":       indent,
		}},
		{Name: "li", Type: CategoryBlock, AllowIn: []string{"ul", "ol"}},
		{Name: "br", Type: CategoryInline, IsVoid: true},
		{Name: "a", Type: CategoryInline, Attributes: map[string]Value{
			"href":   Func(urlPattern.MatchString),
			"target": OneOf("_blank", "_self"),
		}},
		{Name: "card", Type: CategoryCard, IsVoid: true, Attributes: map[string]Value{
			"data-card-key":      Any(),
			"data-card-value":    Any(),
			"data-card-type":     OneOf("block", "inline"),
			"data-card-editable": OneOf("true", "false"),
		}},
		{Name: "strong", Type: CategoryMark},
		{Name: "em", Type: CategoryMark},
		{Name: "u", Type: CategoryMark},
		{Name: "s", Type: CategoryMark},
		{Name: "sup", Type: CategoryMark},
		{Name: "sub", Type: CategoryMark},
		{Name: "code", Type: CategoryMark},
		{Name: "span", Type: CategoryMark, Style: map[string]Value{
			"color":            color,
			"background-color": color,
			"font-size":        Func(lengthPattern.MatchString),
		}},
	}
	for _, h := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		rules = append(rules, Rule{Name: h, Type: CategoryBlock})
	}
	return rules
}

// DefaultGlobals registers the category-wide rules that go with
// DefaultRules.
func DefaultGlobals(r *Registry) {
	_ = r.AddGlobal(CategoryBlock,
		map[string]Value{"data-id": Any()},
		map[string]Value{
			"text-align":   OneOf("left", "center", "right", "justify"),
			"padding-left": Func(lengthPattern.MatchString),
		},
	)
}

// NewDefaultRegistry returns a registry holding DefaultRules and
// DefaultGlobals.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.MustAdd(DefaultRules()...)
	DefaultGlobals(r)
	return r
}
