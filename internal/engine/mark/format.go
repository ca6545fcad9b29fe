package mark

import (
	"slices"
	"sort"
	"strings"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Format describes one kind of mark: the node name and the attribute and
// style keys that carry its value. Two marks with the same name and keys
// are the same format and differ only in value.
type Format struct {
	Name       string
	Tag        string
	Attributes []string
	Styles     []string
	MergeLevel int

	// CombineValueByWrap writes a new value into an existing mark of the
	// format instead of replacing that mark.
	CombineValueByWrap bool
}

// identity returns the format key for a tag and key sets.
func identity(tag string, attrs, styles []string) string {
	a := slices.Clone(attrs)
	s := slices.Clone(styles)
	sort.Strings(a)
	sort.Strings(s)
	return tag + "|" + strings.Join(a, ",") + "|" + strings.Join(s, ",")
}

func (f Format) identity() string {
	return identity(f.Tag, f.Attributes, f.Styles)
}

func nodeIdentity(t *tree.Tree, h tree.Handle) string {
	return identity(t.Name(h), keys(t.Attrs(h)), keys(t.Styles(h)))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Formats is a set of formats keyed by identity.
type Formats struct {
	byIdentity map[string]Format
}

// NewFormats returns a set holding fs.
func NewFormats(fs ...Format) *Formats {
	s := &Formats{byIdentity: make(map[string]Format)}
	for _, f := range fs {
		s.Add(f)
	}
	return s
}

// Add registers f, replacing a format with the same identity.
func (s *Formats) Add(f Format) {
	if f.Name == "" {
		f.Name = f.Tag
	}
	s.byIdentity[f.identity()] = f
}

// Lookup returns the format of mark node h. Marks without a registered
// format get a level 0 format named after the node.
func (s *Formats) Lookup(t *tree.Tree, h tree.Handle) Format {
	if f, ok := s.byIdentity[nodeIdentity(t, h)]; ok {
		return f
	}
	return Format{
		Name:       t.Name(h),
		Tag:        t.Name(h),
		Attributes: keys(t.Attrs(h)),
		Styles:     keys(t.Styles(h)),
	}
}

// Len returns the number of registered formats.
func (s *Formats) Len() int {
	return len(s.byIdentity)
}

// DefaultFormats returns the formats matching schema.DefaultRules. Colors
// nest outside font sizes, which nest outside the text styles.
func DefaultFormats() *Formats {
	return NewFormats(
		Format{Name: "fontcolor", Tag: "span", Styles: []string{"color"}, MergeLevel: 50},
		Format{Name: "backcolor", Tag: "span", Styles: []string{"background-color"}, MergeLevel: 49},
		Format{Name: "fontsize", Tag: "span", Styles: []string{"font-size"}, MergeLevel: 40, CombineValueByWrap: true},
		Format{Name: "bold", Tag: "strong", MergeLevel: 30},
		Format{Name: "italic", Tag: "em", MergeLevel: 29},
		Format{Name: "underline", Tag: "u", MergeLevel: 28},
		Format{Name: "strikethrough", Tag: "s", MergeLevel: 27},
		Format{Name: "sup", Tag: "sup", MergeLevel: 10},
		Format{Name: "sub", Tag: "sub", MergeLevel: 10},
		Format{Name: "code", Tag: "code", MergeLevel: 5},
	)
}
