package tree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Classifier maps element names found in markup to node kinds.
type Classifier interface {
	// KindOf returns the kind for an element name and its attributes.
	KindOf(name string, attrs map[string]string) Kind

	// IsVoid reports whether the element never has content.
	IsVoid(name string) bool
}

// basicClassifier knows the common HTML formatting vocabulary.
type basicClassifier struct{}

// BasicClassifier classifies common HTML element names without a schema.
var BasicClassifier Classifier = basicClassifier{}

var basicKinds = map[string]Kind{
	"p": KindBlock, "div": KindBlock, "blockquote": KindBlock, "pre": KindBlock,
	"h1": KindBlock, "h2": KindBlock, "h3": KindBlock, "h4": KindBlock, "h5": KindBlock, "h6": KindBlock,
	"ul": KindBlock, "ol": KindBlock, "li": KindBlock,
	"strong": KindMark, "b": KindMark, "em": KindMark, "i": KindMark, "u": KindMark,
	"s": KindMark, "del": KindMark, "span": KindMark, "sup": KindMark, "sub": KindMark,
	"code": KindMark, "mark": KindMark,
	"a": KindInline, "br": KindInline, "img": KindInline,
	"card": KindCard,
}

func (basicClassifier) KindOf(name string, attrs map[string]string) Kind {
	if _, ok := attrs["data-card-key"]; ok {
		return KindCard
	}
	if k, ok := basicKinds[name]; ok {
		return k
	}
	return KindInline
}

func (basicClassifier) IsVoid(name string) bool {
	switch name {
	case "br", "img", "hr", "wbr", "input", "card":
		return true
	}
	return false
}

// ParseMarkup parses an HTML fragment into detached top-level nodes.
func (t *Tree) ParseMarkup(markup string, c Classifier) ([]Handle, error) {
	frag := t.NewElement(KindRoot, "fragment")
	stack := []Handle{frag}
	top := func() Handle { return stack[len(stack)-1] }

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %v", ErrMarkup, err)
			}
			out := t.Children(frag)
			for _, h := range out {
				t.Remove(h)
			}
			return out, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			attrs := make(map[string]string)
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[string(k)] = string(v)
			}
			kind := c.KindOf(tag, attrs)
			h := t.NewElement(kind, tag)
			for k, v := range attrs {
				if k == "style" {
					for sk, sv := range ParseStyle(v) {
						t.SetStyle(h, sk, sv)
					}
					continue
				}
				t.SetAttr(h, k, v)
			}
			t.Append(top(), h)
			if tt == html.StartTagToken && kind.IsElement() && !c.IsVoid(tag) {
				stack = append(stack, h)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			for i := len(stack) - 1; i > 0; i-- {
				if t.Name(stack[i]) == string(name) {
					stack = stack[:i]
					break
				}
			}

		case html.TextToken:
			s := string(z.Text())
			if strings.TrimSpace(s) == "" && (strings.Contains(s, "\n") || top() == frag) {
				continue
			}
			if last := t.LastChild(top()); last != Nil && t.IsText(last) {
				t.SetText(last, t.Text(last)+s)
				continue
			}
			t.Append(top(), t.NewText(s))
		}
	}
}

// ParseStyle parses an inline style declaration list.
func ParseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// FormatStyle renders a style map as a declaration list with sorted keys.
func FormatStyle(styles map[string]string) string {
	parts := make([]string, 0, len(styles))
	for _, k := range sortedKeys(styles) {
		parts = append(parts, k+": "+styles[k])
	}
	return strings.Join(parts, "; ")
}

// String renders the subtree rooted at h as markup. Roots render only their
// children. Attributes and styles are written in key order.
func (t *Tree) String(h Handle) string {
	var b strings.Builder
	if t.IsRoot(h) {
		for _, c := range t.Children(h) {
			t.writeMarkup(&b, c)
		}
		return b.String()
	}
	t.writeMarkup(&b, h)
	return b.String()
}

func (t *Tree) writeMarkup(b *strings.Builder, h Handle) {
	nd := &t.nodes[h]
	if nd.kind == KindText {
		b.WriteString(html.EscapeString(nd.text))
		return
	}
	b.WriteByte('<')
	b.WriteString(nd.name)
	for _, k := range sortedKeys(nd.attrs) {
		fmt.Fprintf(b, " %s=\"%s\"", k, html.EscapeString(nd.attrs[k]))
	}
	if len(nd.styles) > 0 {
		fmt.Fprintf(b, " style=\"%s\"", html.EscapeString(FormatStyle(nd.styles)))
	}
	if len(nd.children) == 0 && (nd.kind == KindInline || nd.kind == KindCard) {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	for _, c := range nd.children {
		t.writeMarkup(b, c)
	}
	b.WriteString("</")
	b.WriteString(nd.name)
	b.WriteByte('>')
}
