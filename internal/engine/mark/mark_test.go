package mark

import (
	"strings"
	"testing"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tree"
)

const zw = tree.ZeroWidth

type fixture struct {
	t  *testing.T
	tr *tree.Tree
	e  *Engine
}

func setup(t *testing.T, markup string) *fixture {
	t.Helper()
	reg := schema.NewDefaultRegistry()
	tr := tree.New()
	nodes, err := tr.ParseMarkup(markup, reg)
	if err != nil {
		t.Fatalf("ParseMarkup(%q) error = %v", markup, err)
	}
	for _, n := range nodes {
		tr.Append(tr.Root(), n)
	}
	return &fixture{t: t, tr: tr, e: New(tr, WithSchema(reg))}
}

// text returns the first text node containing s.
func (f *fixture) text(s string) tree.Handle {
	f.t.Helper()
	var found tree.Handle
	f.tr.Walk(f.tr.Root(), func(h tree.Handle) tree.Visit {
		if f.tr.IsText(h) && strings.Contains(f.tr.Text(h), s) {
			found = h
			return tree.Stop
		}
		return tree.Continue
	})
	if found == tree.Nil {
		f.t.Fatalf("no text containing %q", s)
	}
	return found
}

// sel selects the runes [start, end) of the text node containing s.
func (f *fixture) sel(s string, start, end int) cursor.Range {
	h := f.text(s)
	return cursor.Range{Start: cursor.At(h, start), End: cursor.At(h, end)}
}

func (f *fixture) caret(s string, offset int) cursor.Range {
	return cursor.Collapsed(cursor.At(f.text(s), offset))
}

func (f *fixture) tpl(markup string) tree.Handle {
	f.t.Helper()
	nodes, err := f.tr.ParseMarkup(markup, tree.BasicClassifier)
	if err != nil || len(nodes) != 1 {
		f.t.Fatalf("template %q: %v", markup, err)
	}
	return nodes[0]
}

func (f *fixture) html() string {
	return f.tr.String(f.tr.Root())
}

func (f *fixture) expect(want string) {
	f.t.Helper()
	if got := f.html(); got != want {
		f.t.Errorf("tree = %s\nwant   %s", got, want)
	}
}

func TestWrapBoldToggle(t *testing.T) {
	f := setup(t, "<p>hello world</p>")
	r := f.e.Wrap(f.sel("hello world", 6, 11), f.tpl("<strong></strong>"))
	f.expect("<p>hello <strong>world</strong></p>")

	if got := f.e.Active(r); len(got) != 1 || f.tr.Name(got[0]) != "strong" {
		t.Errorf("Active() = %v, want one strong", got)
	}

	before := f.html()
	r2 := f.e.Wrap(r, f.tpl("<strong></strong>"))
	f.expect(before)
	if cursor.Compare(f.tr, r2.Start, r.Start) != 0 || cursor.Compare(f.tr, r2.End, r.End) != 0 {
		t.Errorf("second Wrap() range = %v, want %v", r2, r)
	}
}

func TestWrapNestingOrder(t *testing.T) {
	orders := [][]string{
		{"<em></em>", "<strong></strong>", `<span style="color: red"></span>`},
		{`<span style="color: red"></span>`, "<strong></strong>", "<em></em>"},
		{"<strong></strong>", `<span style="color: red"></span>`, "<em></em>"},
	}
	for _, order := range orders {
		f := setup(t, "<p>abc</p>")
		r := f.sel("abc", 0, 3)
		for _, m := range order {
			r = f.e.Wrap(r, f.tpl(m))
		}
		f.expect(`<p><span style="color: red"><strong><em>abc</em></strong></span></p>`)
	}
}

func TestWrapInsideMark(t *testing.T) {
	f := setup(t, "<p><strong>hello world</strong></p>")
	f.e.Wrap(f.sel("hello world", 6, 11), f.tpl("<em></em>"))
	f.expect("<p><strong>hello <em>world</em></strong></p>")
}

func TestWrapValuePolicy(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		text     string
		from, to int
		tpl      string
		want     string
	}{
		{
			"combine font size",
			`<p><span style="font-size: 12px">abcd</span></p>`, "abcd", 1, 3,
			`<span style="font-size: 20px"></span>`,
			`<p><span style="font-size: 12px">a</span><span style="font-size: 20px">bc</span><span style="font-size: 12px">d</span></p>`,
		},
		{
			"combine whole mark",
			`<p><span style="font-size: 12px">abc</span></p>`, "abc", 0, 3,
			`<span style="font-size: 20px"></span>`,
			`<p><span style="font-size: 20px">abc</span></p>`,
		},
		{
			"replace color",
			`<p><strong><span style="color: red">abc</span></strong></p>`, "abc", 0, 3,
			`<span style="color: blue"></span>`,
			`<p><span style="color: blue"><strong>abc</strong></span></p>`,
		},
		{
			"different formats share a tag",
			`<p><span style="color: red">abc</span></p>`, "abc", 0, 3,
			`<span style="font-size: 20px"></span>`,
			`<p><span style="color: red"><span style="font-size: 20px">abc</span></span></p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			f.e.Wrap(f.sel(tt.text, tt.from, tt.to), f.tpl(tt.tpl))
			f.expect(tt.want)
		})
	}
}

func TestWrapCombineKeepsNesting(t *testing.T) {
	const in = `<p><strong><span style="font-size: 12px">abc</span></strong></p>`
	tests := []struct {
		name    string
		combine bool
		want    string
	}{
		{"combine writes in place", true, `<p><strong><span style="font-size: 20px">abc</span></strong></p>`},
		{"replace rewraps by level", false, `<p><span style="font-size: 20px"><strong>abc</strong></span></p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, in)
			formats := DefaultFormats()
			formats.Add(Format{
				Name: "fontsize", Tag: "span", Styles: []string{"font-size"},
				MergeLevel: 40, CombineValueByWrap: tt.combine,
			})
			f.e = New(f.tr, WithSchema(schema.NewDefaultRegistry()), WithFormats(formats))
			f.e.Wrap(f.sel("abc", 0, 3), f.tpl(`<span style="font-size: 20px"></span>`))
			f.expect(tt.want)
		})
	}
}

func TestWrapMergesNeighbours(t *testing.T) {
	f := setup(t, "<p><strong>ab</strong>cd</p>")
	r := f.e.Wrap(f.sel("cd", 0, 1), f.tpl("<strong></strong>"))
	f.expect("<p><strong>abc</strong>d</p>")
	if got := f.tr.VisibleText(f.tr.Root()); got != "abcd" {
		t.Errorf("visible text = %q", got)
	}
	if r.Collapsed() {
		t.Errorf("Wrap() range collapsed: %v", r)
	}
}

func TestWrapRejected(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
	}{
		{"block template", "<p></p>"},
		{"unknown mark", "<blink></blink>"},
		{"no legal style left", `<span style="position: absolute"></span>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, "<p>abc</p>")
			in := f.sel("abc", 0, 2)
			out := f.e.Wrap(in, f.tpl(tt.tpl))
			f.expect("<p>abc</p>")
			if out != in {
				t.Errorf("Wrap() = %v, want input range", out)
			}
		})
	}
}

func TestWrapFiltersTemplate(t *testing.T) {
	f := setup(t, "<p>abc</p>")
	f.e.Wrap(f.sel("abc", 0, 3), f.tpl(`<span style="color: red; position: absolute"></span>`))
	f.expect(`<p><span style="color: red">abc</span></p>`)
}

func TestWrapAcrossBlocks(t *testing.T) {
	f := setup(t, "<p>ab</p><p>cd</p>")
	r := cursor.Range{Start: cursor.At(f.text("ab"), 1), End: cursor.At(f.text("cd"), 1)}
	f.e.Wrap(r, f.tpl("<em></em>"))
	f.expect("<p>a<em>b</em></p><p><em>c</em>d</p>")
}

func TestWrapCollapsed(t *testing.T) {
	f := setup(t, "<p>abcd</p>")
	r := f.e.Wrap(f.caret("abcd", 2), f.tpl("<strong></strong>"))
	f.expect("<p>ab<strong>" + zw + "</strong>cd</p>")
	if !r.Collapsed() || f.tr.Text(r.Start.Node) != zw || r.Start.Offset != 1 {
		t.Errorf("Wrap() caret = %v, want after the marker", r)
	}

	r = f.e.Wrap(r, f.tpl("<em></em>"))
	f.expect("<p>ab<strong><em>" + zw + "</em></strong>cd</p>")
	if got := f.e.Active(r); len(got) != 2 {
		t.Errorf("Active() = %d marks, want 2", len(got))
	}

	before := f.html()
	f.e.Wrap(r, f.tpl("<em></em>"))
	f.expect(before)
}

func TestSplitExpanded(t *testing.T) {
	f := setup(t, "<p><strong>abcd</strong></p>")
	p := f.tr.FirstChild(f.tr.Root())
	r := f.e.Split(f.sel("abcd", 1, 3), tree.Nil)
	f.expect("<p><strong>a</strong><strong>bc</strong><strong>d</strong></p>")
	want := cursor.Range{Start: cursor.At(p, 1), End: cursor.At(p, 2)}
	if r != want {
		t.Errorf("Split() = %v, want %v", r, want)
	}
}

func TestSplitExpandedAcrossHosts(t *testing.T) {
	f := setup(t, "<p><strong>ab</strong></p><p><em>cd</em></p>")
	r := cursor.Range{Start: cursor.At(f.text("ab"), 1), End: cursor.At(f.text("cd"), 1)}
	f.e.Split(r, tree.Nil)
	f.expect("<p><strong>a</strong><strong>b</strong></p><p><em>c</em><em>d</em></p>")
}

func TestSplitCollapsed(t *testing.T) {
	tests := []struct {
		name   string
		unwrap bool
		filter string
		want   string
	}{
		{"keep all", false, "", "<p><strong><em>ab</em></strong><strong><em>" + zw + "</em></strong><strong><em>cd</em></strong></p>"},
		{"remove outer", false, "<strong></strong>", "<p><strong><em>ab</em></strong><em>" + zw + "</em><strong><em>cd</em></strong></p>"},
		{"unwrap inner", true, "<em></em>", "<p><strong><em>ab</em></strong><strong>" + zw + "</strong><strong><em>cd</em></strong></p>"},
		{"unwrap all", true, "", "<p><strong><em>ab</em></strong>" + zw + "<strong><em>cd</em></strong></p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, "<p><strong><em>abcd</em></strong></p>")
			filter := tree.Nil
			if tt.filter != "" {
				filter = f.tpl(tt.filter)
			}
			var r cursor.Range
			if tt.unwrap {
				r = f.e.Unwrap(f.caret("abcd", 2), filter)
			} else {
				r = f.e.Split(f.caret("abcd", 2), filter)
			}
			f.expect(tt.want)
			if !r.Collapsed() || f.tr.Text(r.Start.Node) != zw || r.Start.Offset != 1 {
				t.Errorf("caret = %v, want after the marker", r)
			}
			if got := f.e.Active(r); !tt.unwrap && len(got) == 0 || tt.filter == "" && tt.unwrap && len(got) != 0 {
				t.Errorf("Active() = %v", got)
			}
		})
	}
}

func TestCollapsedToggleKeepsOneMarker(t *testing.T) {
	f := setup(t, "<p>ab</p>")
	r := f.e.Wrap(f.caret("ab", 2), f.tpl("<strong></strong>"))
	r = f.e.Unwrap(r, f.tpl("<strong></strong>"))
	r = f.e.Wrap(r, f.tpl("<em></em>"))
	f.expect("<p>ab<em>" + zw + "</em></p>")
	if got := strings.Count(f.html(), zw); got != 1 {
		t.Errorf("markers = %d, want 1", got)
	}
	if !r.Collapsed() {
		t.Errorf("range not collapsed: %v", r)
	}
}

func TestCollapsedOutsideMarks(t *testing.T) {
	f := setup(t, "<p>abcd</p>")
	in := f.caret("abcd", 2)
	if out := f.e.Split(in, tree.Nil); out != in {
		t.Errorf("Split() = %v, want %v", out, in)
	}
	if out := f.e.Unwrap(in, f.tpl("<strong></strong>")); out != in {
		t.Errorf("Unwrap() = %v, want %v", out, in)
	}
	f.expect("<p>abcd</p>")
}

func TestUnwrapExpanded(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		text     string
		from, to int
		filter   string
		want     string
	}{
		{
			"middle of mark",
			"<p><strong>abcd</strong></p>", "abcd", 1, 3, "<strong></strong>",
			"<p><strong>a</strong>bc<strong>d</strong></p>",
		},
		{
			"only matching",
			"<p><strong><em>abcd</em></strong></p>", "abcd", 0, 4, "<em></em>",
			"<p><strong>abcd</strong></p>",
		},
		{
			"all marks",
			"<p><strong><em>abcd</em></strong></p>", "abcd", 0, 4, "",
			"<p>abcd</p>",
		},
		{
			"strip one style",
			`<p><span style="background-color: #ff0; color: red">ab</span></p>`, "ab", 0, 2,
			`<span style="color: red"></span>`,
			`<p><span style="background-color: #ff0">ab</span></p>`,
		},
		{
			"any value of a format",
			`<p><span style="color: red">ab</span></p>`, "ab", 0, 2,
			`<span style="color: blue"></span>`,
			`<p>ab</p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			filter := tree.Nil
			if tt.filter != "" {
				filter = f.tpl(tt.filter)
			}
			f.e.Unwrap(f.sel(tt.text, tt.from, tt.to), filter)
			f.expect(tt.want)
		})
	}
}

func TestWrapUnwrapInverse(t *testing.T) {
	inputs := []string{
		"<p>ab<em>cd</em>ef</p>",
		"<p>abcdef</p>",
		`<p><span style="color: red">abc</span>def</p>`,
	}
	for _, in := range inputs {
		f := setup(t, in)
		first := f.tr.FirstChild(f.tr.FirstChild(f.tr.Root()))
		for f.tr.IsMark(first) {
			first = f.tr.FirstChild(first)
		}
		p := f.tr.FirstChild(f.tr.Root())
		last := f.tr.LastChild(p)
		for f.tr.IsMark(last) {
			last = f.tr.LastChild(last)
		}
		r := cursor.Range{Start: cursor.At(first, 1), End: cursor.At(last, f.tr.Len(last)-1)}

		r = f.e.Wrap(r, f.tpl("<strong></strong>"))
		if !strings.Contains(f.html(), "<strong>") {
			t.Fatalf("%s: wrap had no effect", in)
		}
		f.e.Unwrap(r, f.tpl("<strong></strong>"))
		f.expect(in)
	}
}

func TestMergeIdempotent(t *testing.T) {
	f := setup(t, "<p><strong>a</strong><strong>b</strong><em><em>c</em></em><strong></strong><u>d<u>e</u></u></p>")
	p := f.tr.FirstChild(f.tr.Root())
	f.e.MergeNode(p)
	want := "<p><strong>ab</strong><em>c</em><u>de</u></p>"
	f.expect(want)
	f.e.MergeNode(p)
	f.expect(want)
}

func TestMergeKeepsRange(t *testing.T) {
	f := setup(t, "<p><strong>ab</strong><strong>cd</strong></p>")
	r := f.e.Merge(cursor.Collapsed(cursor.At(f.text("cd"), 1)))
	f.expect("<p><strong>abcd</strong></p>")
	if r.Start != cursor.At(f.text("abcd"), 3) {
		t.Errorf("Merge() caret = %v, want offset 3 in merged text", r.Start)
	}
}

func TestActive(t *testing.T) {
	f := setup(t, "<p><strong>ab<em>cd</em></strong>ef</p>")
	names := func(hs []tree.Handle) string {
		var out []string
		for _, h := range hs {
			out = append(out, f.tr.Name(h))
		}
		return strings.Join(out, ",")
	}
	tests := []struct {
		name string
		r    cursor.Range
		want string
	}{
		{"caret in em", f.caret("cd", 1), "strong,em"},
		{"caret after strong", cursor.Collapsed(cursor.At(f.text("ef"), 0)), ""},
		{"range over b and c", cursor.Range{Start: cursor.At(f.text("ab"), 1), End: cursor.At(f.text("cd"), 1)}, "strong"},
		{"range over d and e", cursor.Range{Start: cursor.At(f.text("cd"), 1), End: cursor.At(f.text("ef"), 1)}, ""},
		{"range inside em", f.sel("cd", 0, 2), "strong,em"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := names(f.e.Active(tt.r)); got != tt.want {
				t.Errorf("Active() = %q, want %q", got, tt.want)
			}
		})
	}
}
