package block

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/engine/tree"
)

const zw = tree.ZeroWidth

type fixture struct {
	t   *testing.T
	tr  *tree.Tree
	reg *schema.Registry
	e   *Engine
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
	return &fixture{t: t, tr: tr, reg: reg, e: New(tr, WithSchema(reg))}
}

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

// nth returns the i-th node named name in document order.
func (f *fixture) nth(name string, i int) tree.Handle {
	f.t.Helper()
	var found tree.Handle
	f.tr.Walk(f.tr.Root(), func(h tree.Handle) tree.Visit {
		if f.tr.Kind(h).IsElement() && f.tr.Name(h) == name {
			if i == 0 {
				found = h
				return tree.Stop
			}
			i--
		}
		return tree.Continue
	})
	if found == tree.Nil {
		f.t.Fatalf("no %s", name)
	}
	return found
}

func (f *fixture) caret(s string, offset int) cursor.Range {
	return cursor.Collapsed(cursor.At(f.text(s), offset))
}

func (f *fixture) span(a string, ao int, b string, bo int) cursor.Range {
	return cursor.Range{Start: cursor.At(f.text(a), ao), End: cursor.At(f.text(b), bo)}
}

func (f *fixture) tpl(markup string) tree.Handle {
	f.t.Helper()
	nodes, err := f.tr.ParseMarkup(markup, f.reg)
	if err != nil || len(nodes) != 1 {
		f.t.Fatalf("template %q: %v", markup, err)
	}
	return nodes[0]
}

func (f *fixture) expect(want string) {
	f.t.Helper()
	if got := f.tr.String(f.tr.Root()); got != want {
		f.t.Errorf("tree = %s\nwant   %s", got, want)
	}
}

// expectCaret checks that r is a caret at (node, offset).
func (f *fixture) expectCaret(r cursor.Range, node tree.Handle, offset int) {
	f.t.Helper()
	if !r.Collapsed() || r.Start != cursor.At(node, offset) {
		f.t.Errorf("caret = %v, want %v", r, cursor.At(node, offset))
	}
}

func TestSplitBlock(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		at     string
		offset int
		want   string
		caret  func(f *fixture) cursor.Position
	}{
		{
			"middle", "<p>foobar</p>", "foobar", 3,
			"<p>foo</p><p>bar</p>",
			func(f *fixture) cursor.Position { return cursor.At(f.text("bar"), 0) },
		},
		{
			"start", "<p>foo</p>", "foo", 0,
			"<p><br /></p><p>foo</p>",
			func(f *fixture) cursor.Position { return cursor.At(f.text("foo"), 0) },
		},
		{
			"end", "<p>foo</p>", "foo", 3,
			"<p>foo</p><p><br /></p>",
			func(f *fixture) cursor.Position { return cursor.At(f.nth("p", 1), 0) },
		},
		{
			"inside mark", "<p><strong>foobar</strong></p>", "foobar", 3,
			"<p><strong>foo</strong></p><p><strong>bar</strong></p>",
			func(f *fixture) cursor.Position { return cursor.At(f.text("bar"), 0) },
		},
		{
			"end of mark carries it", "<p><strong>foo</strong></p>", "foo", 3,
			"<p><strong>foo</strong></p><p><strong>" + zw + "</strong><br /></p>",
			func(f *fixture) cursor.Position { return cursor.At(f.text(zw), 1) },
		},
		{
			"list item", "<ul><li>ab</li></ul>", "ab", 1,
			"<ul><li>a</li><li>b</li></ul>",
			func(f *fixture) cursor.Position { return cursor.At(f.text("b"), 0) },
		},
		{
			"drops marker at seam", "<p>foo<strong>" + zw + "</strong></p>", zw, 1,
			"<p>foo</p><p><strong>" + zw + "</strong><br /></p>",
			func(f *fixture) cursor.Position { return cursor.At(f.text(zw), 1) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			r := f.e.SplitBlock(f.caret(tt.at, tt.offset))
			f.expect(tt.want)
			f.expectCaret(r, tt.caret(f).Node, tt.caret(f).Offset)
		})
	}
}

func TestSplitBlockExpanded(t *testing.T) {
	f := setup(t, "<p>abcd</p>")
	r := f.e.SplitBlock(f.span("abcd", 1, "abcd", 3))
	f.expect("<p>a</p><p>d</p>")
	f.expectCaret(r, f.text("d"), 0)
}

func TestSplitBlockOutsideBlocks(t *testing.T) {
	f := setup(t, "<p>a</p><p>b</p>")
	root := f.tr.Root()
	r := f.e.SplitBlock(cursor.Collapsed(cursor.At(root, 0)))
	f.expect("<p>a</p><p>b</p>")
	f.expectCaret(r, root, 1)
}

func TestDeleteContent(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		from   string
		fo     int
		to     string
		toff   int
		want   string
		caret  string
		offset int
	}{
		{"across mark boundary", "<p><strong>ab</strong>cd</p>", "ab", 1, "cd", 1, "<p><strong>a</strong>d</p>", "a", 1},
		{"whole mark", "<p><strong>ab</strong>cd</p>", "ab", 0, "cd", 1, "<p>d</p>", "d", 0},
		{"across paragraphs", "<p>ab</p><p>cd</p>", "ab", 1, "cd", 1, "<p>ad</p>", "ad", 1},
		{"across list items", "<ul><li>ab</li><li>cd</li></ul>", "ab", 1, "cd", 1, "<ul><li>ad</li></ul>", "ad", 1},
		{
			"paragraph into list", "<p>ab</p><ul><li>cd</li><li>ef</li></ul>", "ab", 1, "cd", 1,
			"<p>ad</p><ul><li>ef</li></ul>", "ad", 1,
		},
		{
			"across lists", "<ul><li>ab</li></ul><p>x</p><ul><li>cd</li><li>ef</li></ul>", "ab", 1, "cd", 1,
			"<ul><li>ad</li><li>ef</li></ul>", "ad", 1,
		},
		{"blank block keeps marks", "<p><strong>ab</strong></p>", "ab", 0, "ab", 2, "<p><strong>" + zw + "</strong><br /></p>", zw, 1},
		{"blank block", "<p>ab</p><p>c</p>", "ab", 0, "ab", 2, "<p><br /></p><p>c</p>", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			r := f.e.DeleteContent(f.span(tt.from, tt.fo, tt.to, tt.toff))
			f.expect(tt.want)
			if tt.caret == "" {
				f.expectCaret(r, f.nth("p", 0), 0)
				return
			}
			f.expectCaret(r, f.text(tt.caret), tt.offset)
		})
	}
}

func TestDeleteContentElementBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		rng  func(f *fixture) cursor.Range
		want string
	}{
		{
			"heading from document start", "<h1>Title</h1><p>x</p>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.tr.Root(), 0), End: cursor.At(f.text("Title"), 5)}
			},
			"<h1><br /></h1><p>x</p>",
		},
		{
			"into list between items", "<p>hello</p><ul><li>one</li><li>two</li></ul><p>tail</p>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.text("hello"), 2), End: cursor.At(f.nth("ul", 0), 1)}
			},
			"<p>he</p><ul><li>two</li></ul><p>tail</p>",
		},
		{
			"from between lists", "<ol><li>x</li></ol><ol><li>y</li></ol>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.tr.Root(), 1), End: cursor.At(f.text("y"), 1)}
			},
			"<ol><li>x</li><li><br /></li></ol>",
		},
		{
			"whole heading by root offsets", "<h1>Tn</h1>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.tr.Root(), 0), End: cursor.At(f.tr.Root(), 1)}
			},
			"<h1><br /></h1>",
		},
		{
			"heading start to its element end", "<h1>Tn</h1>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.tr.Root(), 0), End: cursor.At(f.nth("h1", 0), 1)}
			},
			"<h1><br /></h1>",
		},
		{
			"list emptied", "<p>ab</p><ul><li>cd</li></ul>",
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.text("ab"), 1), End: cursor.At(f.tr.Root(), 2)}
			},
			"<p>a</p>",
		},
		{
			"card and paragraph", `<card data-card-key="hr"></card><p>ab</p>`,
			func(f *fixture) cursor.Range {
				return cursor.Range{Start: cursor.At(f.tr.Root(), 0), End: cursor.At(f.text("ab"), 2)}
			},
			"<p><br /></p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			f.e.DeleteContent(tt.rng(f))
			f.expect(tt.want)
			if err := f.legal(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestTypeAfterDeleteBetweenLists(t *testing.T) {
	f := setup(t, "<ol><li>x</li></ol><ol><li>y</li></ol>")
	r := f.e.DeleteContent(cursor.Range{Start: cursor.At(f.tr.Root(), 1), End: cursor.At(f.text("y"), 1)})
	f.e.InsertText(r, "Z")
	f.expect("<ol><li>x</li><li>Z</li></ol>")
}

func TestDeleteContentNoEmptyMarks(t *testing.T) {
	f := setup(t, "<p><em>a<strong>bc</strong></em>d</p>")
	f.e.DeleteContent(f.span("bc", 0, "d", 0))
	f.expect("<p><em>a</em>d</p>")
}

func TestDeleteEverything(t *testing.T) {
	f := setup(t, "<p>ab</p><p>cd</p>")
	root := f.tr.Root()
	r := f.e.DeleteContent(cursor.Range{Start: cursor.At(root, 0), End: cursor.At(root, 2)})
	f.expect("<p><br /></p>")
	f.expectCaret(r, f.nth("p", 0), 0)
}

func TestDeleteCollapsed(t *testing.T) {
	f := setup(t, "<p>ab</p>")
	in := f.caret("ab", 1)
	if out := f.e.DeleteContent(in); out != in {
		t.Errorf("DeleteContent() = %v, want %v", out, in)
	}
	f.expect("<p>ab</p>")
}

func TestMergeAdjacentList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"two ordered lists",
			`<ol start="4"><li>a</li><li>b</li></ol><ol start="1"><li>c</li><li>d</li><li>e</li></ol>`,
			`<ol start="4"><li>a</li><li>b</li><li>c</li><li>d</li><li>e</li></ol>`,
		},
		{
			"different names",
			"<ul><li>a</li></ul><ol><li>b</li></ol>",
			"<ul><li>a</li></ul><ol><li>b</li></ol>",
		},
		{
			"numbering continues past deeper lists",
			`<ol><li>a</li><li>b</li></ol><ol data-indent="1"><li>x</li></ol><ol><li>c</li></ol>`,
			`<ol><li>a</li><li>b</li></ol><ol data-indent="1"><li>x</li></ol><ol start="3"><li>c</li></ol>`,
		},
		{
			"paragraph breaks the run",
			`<ol><li>a</li></ol><p>x</p><ol start="7"><li>c</li></ol>`,
			`<ol><li>a</li></ol><p>x</p><ol start="7"><li>c</li></ol>`,
		},
		{
			"nested in quote",
			"<blockquote><ul><li>a</li></ul><ul><li>b</li></ul></blockquote>",
			"<blockquote><ul><li>a</li><li>b</li></ul></blockquote>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			r := f.e.MergeAdjacentList(f.caret("a", 0))
			f.expect(tt.want)
			f.expectCaret(r, f.text("a"), 0)
		})
	}
}

func TestSplitMergeListInverse(t *testing.T) {
	const in = `<ol start="3"><li>a</li><li>b</li><li>c</li></ol>`
	f := setup(t, in)
	ol := f.nth("ol", 0)

	r := f.e.SplitBlock(cursor.Collapsed(cursor.At(ol, 1)))
	f.expect(`<ol start="3"><li>a</li></ol><ol start="3"><li>b</li><li>c</li></ol>`)

	f.e.MergeAdjacentList(r)
	f.expect(in)
}

func TestWrapBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		from string
		to   string
		tpl  string
		want string
	}{
		{"quote paragraphs", "<p>a</p><p>b</p><p>c</p>", "a", "b", "<blockquote></blockquote>", "<blockquote><p>a</p><p>b</p></blockquote><p>c</p>"},
		{"list from paragraphs", "<p>a</p><p>b</p>", "a", "b", "<ul></ul>", "<ul><li>a</li><li>b</li></ul>"},
		{"list joins neighbour", "<ul><li>x</li></ul><p>a</p>", "a", "a", "<ul></ul>", "<ul><li>x</li><li>a</li></ul>"},
		{"quote around list", "<ul><li>a</li></ul>", "a", "a", "<blockquote></blockquote>", "<blockquote><ul><li>a</li></ul></blockquote>"},
		{"mark template", "<p>a</p>", "a", "a", "<strong></strong>", "<p>a</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			r := f.e.WrapBlock(f.span(tt.from, 0, tt.to, 1), f.tpl(tt.tpl))
			f.expect(tt.want)

			before := f.tr.String(f.tr.Root())
			f.e.WrapBlock(r, f.tpl(tt.tpl))
			f.expect(before)
		})
	}
}

func TestUnwrapBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		from string
		to   string
		tpl  string
		want string
	}{
		{
			"middle of quote", "<blockquote><p>a</p><p>b</p><p>c</p></blockquote>", "b", "b", "<blockquote></blockquote>",
			"<blockquote><p>a</p></blockquote><p>b</p><blockquote><p>c</p></blockquote>",
		},
		{"list to paragraphs", "<ul><li>a</li><li>b</li></ul>", "a", "b", "<ul></ul>", "<p>a</p><p>b</p>"},
		{"no matching ancestor", "<p>a</p>", "a", "a", "<blockquote></blockquote>", "<p>a</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			r := f.e.UnwrapBlock(f.span(tt.from, 0, tt.to, 1), f.tpl(tt.tpl))
			f.expect(tt.want)
			if got := f.tr.Text(r.Start.Node); !f.tr.IsText(r.Start.Node) || got != tt.from {
				t.Errorf("range start in %q, want %q", got, tt.from)
			}
		})
	}
}

func TestUnwrapBlockElementBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		rng  func(f *fixture) cursor.Range
		tpl  string
		want string
	}{
		{
			"quote by its offsets", "<blockquote><p>a</p></blockquote>",
			func(f *fixture) cursor.Range {
				bq := f.nth("blockquote", 0)
				return cursor.Range{Start: cursor.At(bq, 0), End: cursor.At(bq, 1)}
			},
			"<blockquote></blockquote>", "<p>a</p>",
		},
		{
			"caret at quote start", "<blockquote><p>a</p><p>b</p></blockquote>",
			func(f *fixture) cursor.Range { return cursor.Collapsed(cursor.At(f.nth("blockquote", 0), 0)) },
			"<blockquote></blockquote>", "<p>a</p><blockquote><p>b</p></blockquote>",
		},
		{
			"list by its offsets", "<ul><li>a</li><li>b</li></ul>",
			func(f *fixture) cursor.Range {
				ul := f.nth("ul", 0)
				return cursor.Range{Start: cursor.At(ul, 1), End: cursor.At(ul, 2)}
			},
			"<ul></ul>", "<ul><li>a</li></ul><p>b</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			f.e.UnwrapBlock(tt.rng(f), f.tpl(tt.tpl))
			f.expect(tt.want)
			if err := f.legal(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestWrapUnwrapBlockInverse(t *testing.T) {
	const in = "<p>a</p><p>b</p><p>c</p>"
	f := setup(t, in)
	r := f.e.WrapBlock(f.span("a", 0, "b", 1), f.tpl("<blockquote></blockquote>"))
	f.e.UnwrapBlock(r, f.tpl("<blockquote></blockquote>"))
	f.expect(in)
}

func TestSetBlocks(t *testing.T) {
	f := setup(t, `<p data-id="x">a</p><p>b</p><ul><li>c</li></ul>`)
	f.e.SetBlocks(f.span("a", 0, "c", 1), f.tpl(`<h2 style="text-align: center; color: red"></h2>`))
	f.expect(`<h2 data-id="x" style="text-align: center">a</h2><h2 style="text-align: center">b</h2><ul><li>c</li></ul>`)

	f.e.SetBlocks(f.span("a", 0, "a", 1), f.tpl("<li></li>"))
	f.expect(`<h2 data-id="x" style="text-align: center">a</h2><h2 style="text-align: center">b</h2><ul><li>c</li></ul>`)
}

func TestInsertBlock(t *testing.T) {
	f := setup(t, "<p>abcd</p>")
	r := f.e.InsertBlock(f.caret("abcd", 2), f.tpl("<h1>x</h1>"))
	f.expect("<p>ab</p><h1>x</h1><p>cd</p>")
	f.expectCaret(r, f.text("x"), 1)

	r = f.e.InsertBlock(f.caret("cd", 2), f.tpl("<p></p>"))
	f.expect("<p>ab</p><h1>x</h1><p>cd</p><p><br /></p>")
	f.expectCaret(r, f.nth("p", 2), 0)
}

func TestInsertBlockBetweenItems(t *testing.T) {
	f := setup(t, "<ul><li>x</li><li>y</li></ul>")
	r := f.e.InsertBlock(cursor.Collapsed(cursor.At(f.nth("ul", 0), 1)), f.tpl("<h2>n</h2>"))
	f.expect("<ul><li>x</li></ul><h2>n</h2><ul><li>y</li></ul>")
	f.expectCaret(r, f.text("n"), 1)

	f = setup(t, "<h2>n</h2>")
	f.e.InsertBlock(cursor.Collapsed(cursor.At(f.nth("h2", 0), 1)), f.tpl("<h2></h2>"))
	f.expect("<h2>n</h2><h2><br /></h2>")
}

func TestSplitBlockBetweenItems(t *testing.T) {
	f := setup(t, "<ol><li>x</li><li>y</li></ol>")
	r := f.e.SplitBlock(cursor.Collapsed(cursor.At(f.nth("ol", 0), 1)))
	f.expect("<ol><li>x</li><li><br /></li><li>y</li></ol>")
	f.expectCaret(r, f.text("y"), 0)
}

func TestInsertBlockCard(t *testing.T) {
	f := setup(t, "<p><br /></p><p>a</p>")
	p := f.nth("p", 0)
	r := f.e.InsertBlock(cursor.Collapsed(cursor.At(p, 0)), f.tpl(`<card data-card-key="hr"></card>`))
	f.expect(`<card data-card-key="hr" /><p>a</p>`)
	f.expectCaret(r, f.tr.Root(), 1)
}

func TestInsertBlockRejected(t *testing.T) {
	f := setup(t, "<p>ab</p>")
	in := f.caret("ab", 1)
	for _, tpl := range []string{"<li></li>", "<strong></strong>"} {
		if out := f.e.InsertBlock(in, f.tpl(tpl)); out != in {
			t.Errorf("InsertBlock(%s) = %v, want input", tpl, out)
		}
	}
	f.expect("<p>ab</p>")
}

func TestInsertInline(t *testing.T) {
	f := setup(t, "<p>abcd</p>")
	p := f.nth("p", 0)
	r := f.e.InsertInline(f.caret("abcd", 2), f.tpl("<br />"))
	f.expect("<p>ab<br />cd</p>")
	f.expectCaret(r, p, 2)

	r = f.e.InsertInline(f.span("ab", 0, "cd", 2), f.tpl(`<card data-card-key="mention" data-card-type="inline"></card>`))
	f.expect(`<p><card data-card-key="mention" data-card-type="inline" /></p>`)
	f.expectCaret(r, p, 1)
}

func TestInsertText(t *testing.T) {
	t.Run("inside text", func(t *testing.T) {
		f := setup(t, "<p>ab</p>")
		r := f.e.InsertText(f.caret("ab", 1), "X")
		f.expect("<p>aXb</p>")
		f.expectCaret(r, f.text("aXb"), 2)
	})
	t.Run("replaces marker", func(t *testing.T) {
		f := setup(t, "<p><strong>"+zw+"</strong><br /></p>")
		r := f.e.InsertText(f.caret(zw, 1), "x")
		f.expect("<p><strong>x</strong></p>")
		f.expectCaret(r, f.text("x"), 1)
	})
	t.Run("blank block", func(t *testing.T) {
		f := setup(t, "<p><br /></p>")
		r := f.e.InsertText(cursor.Collapsed(cursor.At(f.nth("p", 0), 0)), "x")
		f.expect("<p>x</p>")
		f.expectCaret(r, f.text("x"), 1)
	})
	t.Run("expanded", func(t *testing.T) {
		f := setup(t, "<p>abcd</p>")
		f.e.InsertText(f.span("abcd", 1, "abcd", 3), "X")
		f.expect("<p>aXd</p>")
	})
}

func TestInsertBetweenBlocksOfContainer(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		parent string
		offset int
		insert func(f *fixture, r cursor.Range)
		want   string
	}{
		{
			"text before item", "<ol><li>x</li><li>y</li></ol>", "ol", 1,
			func(f *fixture, r cursor.Range) { f.e.InsertText(r, "Z") },
			"<ol><li>x</li><li>Zy</li></ol>",
		},
		{
			"text at list end", "<ol><li>x</li><li>y</li></ol>", "ol", 2,
			func(f *fixture, r cursor.Range) { f.e.InsertText(r, "Z") },
			"<ol><li>x</li><li>yZ</li></ol>",
		},
		{
			"text in quote", "<blockquote><p>a</p></blockquote>", "blockquote", 0,
			func(f *fixture, r cursor.Range) { f.e.InsertText(r, "Z") },
			"<blockquote><p>Za</p></blockquote>",
		},
		{
			"inline before item", "<ul><li>x</li><li>y</li></ul>", "ul", 1,
			func(f *fixture, r cursor.Range) { f.e.InsertInline(r, f.tpl("<br />")) },
			"<ul><li>x</li><li><br />y</li></ul>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.in)
			tt.insert(f, cursor.Collapsed(cursor.At(f.nth(tt.parent, 0), tt.offset)))
			f.expect(tt.want)
			if err := f.legal(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestPlaceBlock(t *testing.T) {
	f := setup(t, "<p>ab</p>")
	h := f.tpl(`<card data-card-key="hr"></card>`)
	r := f.e.PlaceBlock(f.caret("ab", 2), h)
	f.expect(`<p>ab</p><card data-card-key="hr" />`)
	if f.tr.Parent(h) != f.tr.Root() {
		t.Fatal("PlaceBlock inserted a copy instead of the node")
	}
	f.expectCaret(r, f.tr.Root(), 2)

	if out := f.e.PlaceBlock(r, h); out != r {
		t.Errorf("PlaceBlock(attached) = %v, want %v", out, r)
	}
}

// legal returns the first structural problem in the tree: a leftover
// placeholder, a node the schema rejects, a block its parent may not hold,
// an empty block, or inline content directly under a list or the root.
func (f *fixture) legal() error {
	tr := f.tr
	var err error
	tr.Walk(tr.Root(), func(h tree.Handle) tree.Visit {
		if h == tr.Root() {
			return tree.Continue
		}
		if tr.IsCard(h) {
			return tree.SkipChildren
		}
		parent := tr.Parent(h)
		switch {
		case cursor.IsPlaceholder(tr, h):
			err = fmt.Errorf("placeholder left in %s", tr.Name(parent))
		case !f.reg.Valid(tr, h):
			err = fmt.Errorf("%s rejected by the schema", tr.Name(h))
		case tr.IsBlock(h) && !f.reg.Check(tr, h, schema.CategoryBlock):
			err = fmt.Errorf("%s is not a block", tr.Name(h))
		case tr.IsBlock(h) && !f.e.allowed(tr.Name(h), parent):
			err = fmt.Errorf("%s inside %s", tr.Name(h), f.e.parentName(parent))
		case tr.IsBlock(h) && tr.ChildCount(h) == 0:
			err = fmt.Errorf("empty %s", tr.Name(h))
		case !tr.IsBlock(h) && (tr.IsRoot(parent) || f.e.IsList(parent)):
			err = fmt.Errorf("inline content directly inside %s", f.e.parentName(parent))
		}
		if err != nil {
			return tree.Stop
		}
		return tree.Continue
	})
	return err
}

// positions returns every boundary point outside cards and void elements.
func (f *fixture) positions() []cursor.Position {
	tr := f.tr
	var out []cursor.Position
	tr.Walk(tr.Root(), func(h tree.Handle) tree.Visit {
		switch {
		case tr.IsCard(h):
			return tree.SkipChildren
		case tr.IsText(h):
			for i := 0; i <= tr.Len(h); i++ {
				out = append(out, cursor.At(h, i))
			}
		case tr.IsRoot(h), tr.IsBlock(h), tr.IsMark(h):
			for i := 0; i <= tr.ChildCount(h); i++ {
				out = append(out, cursor.At(h, i))
			}
		}
		return tree.Continue
	})
	return out
}

func (f *fixture) randomRange(rng *rand.Rand) cursor.Range {
	ps := f.positions()
	a, b := ps[rng.IntN(len(ps))], ps[rng.IntN(len(ps))]
	if rng.IntN(3) == 0 {
		return cursor.Collapsed(a)
	}
	if cursor.Compare(f.tr, a, b) > 0 {
		a, b = b, a
	}
	return cursor.Range{Start: a, End: b}
}

func TestRandomEditsKeepTreeLegal(t *testing.T) {
	docs := []string{
		"<h1>Title</h1><p>x</p>",
		"<p>hello</p><ul><li>one</li><li>two</li></ul><p>tail</p>",
		"<ol><li>x</li></ol><ol><li>y</li></ol>",
		"<blockquote><p>a</p><p>b</p></blockquote><h2>n</h2>",
		"<p>al<strong>ph</strong>a</p><ul><li>one <em>two</em></li></ul><blockquote><p>q</p></blockquote><ol><li>x</li></ol>",
	}
	ops := []struct {
		name string
		run  func(f *fixture, r cursor.Range)
	}{
		{"delete", func(f *fixture, r cursor.Range) { f.e.DeleteContent(r) }},
		{"type", func(f *fixture, r cursor.Range) { f.e.InsertText(r, "Q") }},
		{"split", func(f *fixture, r cursor.Range) { f.e.SplitBlock(r) }},
		{"insert block", func(f *fixture, r cursor.Range) { f.e.InsertBlock(r, f.tpl("<h2>n</h2>")) }},
		{"insert inline", func(f *fixture, r cursor.Range) { f.e.InsertInline(r, f.tpl("<br />")) }},
		{"wrap quote", func(f *fixture, r cursor.Range) { f.e.WrapBlock(r, f.tpl("<blockquote></blockquote>")) }},
		{"wrap list", func(f *fixture, r cursor.Range) { f.e.WrapBlock(r, f.tpl("<ul></ul>")) }},
		{"unwrap quote", func(f *fixture, r cursor.Range) { f.e.UnwrapBlock(r, f.tpl("<blockquote></blockquote>")) }},
		{"unwrap list", func(f *fixture, r cursor.Range) { f.e.UnwrapBlock(r, f.tpl("<ul></ul>")) }},
	}

	rng := rand.New(rand.NewPCG(17, 42))
	for i, doc := range docs {
		for run := 0; run < 20; run++ {
			f := setup(t, doc)
			var trail []string
			for step := 0; step < 25; step++ {
				op := ops[rng.IntN(len(ops))]
				r := f.randomRange(rng)
				trail = append(trail, fmt.Sprintf("%s %v", op.name, r))
				op.run(f, r)
				if err := f.legal(); err != nil {
					t.Fatalf("doc %d: %v\nsteps:\n%s\ntree %s", i, err, strings.Join(trail, "\n"), f.tr.String(f.tr.Root()))
				}
			}
		}
	}
}
