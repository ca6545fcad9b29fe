package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/docstorm/internal/engine/card"
	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tracking"
)

func newEngine(t *testing.T, content string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithContent(content)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func span(path []int, from, to int) RangePoints {
	return RangePoints{
		Start: cursor.Point{Path: path, Offset: from},
		End:   cursor.Point{Path: path, Offset: to},
	}
}

func caret(path []int, offset int) RangePoints {
	return span(path, offset, offset)
}

func mustSelect(t *testing.T, e *Engine, rp RangePoints) {
	t.Helper()
	if err := e.SelectPath(rp); err != nil {
		t.Fatalf("SelectPath(%v) error = %v", rp, err)
	}
}

func expectMarkup(t *testing.T, e *Engine, want string) {
	t.Helper()
	if got := e.Markup(); got != want {
		t.Errorf("Markup() = %s\nwant       %s", got, want)
	}
}

func TestNewSanitizesContent(t *testing.T) {
	e := newEngine(t, `<p onclick="x">a<font>b</font></p><div>c</div>`)
	expectMarkup(t, e, "<p>ab</p><p>c</p>")

	rp, err := e.SelectionPath()
	if err != nil {
		t.Fatal(err)
	}
	if len(rp.Start.Path) != 2 || rp.Start.Offset != 0 {
		t.Errorf("initial selection = %v, want start of first text", rp)
	}
}

func TestWrapUndoRedo(t *testing.T) {
	e := newEngine(t, "<p>hello world</p>")
	mustSelect(t, e, span([]int{0, 0}, 6, 11))

	if err := e.Wrap("<strong></strong>"); err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	expectMarkup(t, e, "<p>hello <strong>world</strong></p>")
	if got := e.ActiveMarks(); len(got) != 1 || got[0] != "<strong></strong>" {
		t.Errorf("ActiveMarks() = %v, want [<strong></strong>]", got)
	}
	if ok, err := e.IsActive("<strong></strong>"); err != nil || !ok {
		t.Errorf("IsActive(strong) = %v, %v", ok, err)
	}

	if err := e.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	expectMarkup(t, e, "<p>hello world</p>")
	if !e.CanRedo() || e.CanUndo() {
		t.Errorf("CanUndo/CanRedo = %v/%v after undo", e.CanUndo(), e.CanRedo())
	}

	if err := e.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	expectMarkup(t, e, "<p>hello <strong>world</strong></p>")

	if err := e.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestSplitThenType(t *testing.T) {
	e := newEngine(t, "<p>foobar</p>")
	mustSelect(t, e, caret([]int{0, 0}, 3))

	if err := e.SplitBlock(); err != nil {
		t.Fatal(err)
	}
	if err := e.InsertText("X"); err != nil {
		t.Fatal(err)
	}
	expectMarkup(t, e, "<p>foo</p><p>Xbar</p>")

	rp, _ := e.SelectionPath()
	if want := caret([]int{1, 0}, 1); rp.Start.Offset != want.Start.Offset || rp.Start.Path[0] != 1 {
		t.Errorf("selection = %v, want %v", rp, want)
	}
}

func TestBlockOperations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sel  RangePoints
		run  func(e *Engine) error
		want string
	}{
		{
			"insert block", "<p>abcd</p>", caret([]int{0, 0}, 2),
			func(e *Engine) error { return e.InsertBlock("<h1>x</h1>") },
			"<p>ab</p><h1>x</h1><p>cd</p>",
		},
		{
			"wrap block", "<p>a</p><p>b</p>", RangePoints{
				Start: cursor.Point{Path: []int{0, 0}, Offset: 0},
				End:   cursor.Point{Path: []int{1, 0}, Offset: 1},
			},
			func(e *Engine) error { return e.WrapBlock("<ul></ul>") },
			"<ul><li>a</li><li>b</li></ul>",
		},
		{
			"unwrap block", "<ul><li>a</li><li>b</li></ul>", RangePoints{
				Start: cursor.Point{Path: []int{0, 0, 0}, Offset: 0},
				End:   cursor.Point{Path: []int{0, 1, 0}, Offset: 1},
			},
			func(e *Engine) error { return e.UnwrapBlock("<ul></ul>") },
			"<p>a</p><p>b</p>",
		},
		{
			"set blocks", "<p>a</p>", span([]int{0, 0}, 0, 1),
			func(e *Engine) error { return e.SetBlocks("<h2></h2>") },
			"<h2>a</h2>",
		},
		{
			"delete across paragraphs", "<p>ab</p><p>cd</p>", RangePoints{
				Start: cursor.Point{Path: []int{0, 0}, Offset: 1},
				End:   cursor.Point{Path: []int{1, 0}, Offset: 1},
			},
			func(e *Engine) error { return e.DeleteContent() },
			"<p>ad</p>",
		},
		{
			"insert inline", "<p>abcd</p>", caret([]int{0, 0}, 2),
			func(e *Engine) error { return e.InsertInline("<br />") },
			"<p>ab<br />cd</p>",
		},
		{
			"merge lists", "<ul><li>a</li></ul><ul><li>b</li></ul>", caret([]int{0, 0, 0}, 0),
			func(e *Engine) error { return e.MergeLists() },
			"<ul><li>a</li><li>b</li></ul>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.in)
			mustSelect(t, e, tt.sel)
			if err := tt.run(e); err != nil {
				t.Fatalf("operation error = %v", err)
			}
			expectMarkup(t, e, tt.want)

			if err := e.Undo(); err != nil {
				t.Fatalf("Undo() error = %v", err)
			}
			expectMarkup(t, e, tt.in)
		})
	}
}

func TestMarkOperations(t *testing.T) {
	e := newEngine(t, "<p><strong><em>abcd</em></strong></p>")
	mustSelect(t, e, span([]int{0, 0, 0, 0}, 0, 4))

	if err := e.Unwrap("<em></em>"); err != nil {
		t.Fatal(err)
	}
	expectMarkup(t, e, "<p><strong>abcd</strong></p>")

	if err := e.Unwrap(""); err != nil {
		t.Fatal(err)
	}
	expectMarkup(t, e, "<p>abcd</p>")
}

func TestUnchangedNotPushed(t *testing.T) {
	e := newEngine(t, "<p>ab</p>")
	mustSelect(t, e, caret([]int{0, 0}, 1))

	if err := e.DeleteContent(); err != nil {
		t.Fatal(err)
	}
	if e.CanUndo() {
		t.Error("no-op edit was pushed to history")
	}
	if e.Revision() != 1 {
		t.Errorf("Revision() = %d, want 1", e.Revision())
	}
}

func TestInvalidTemplate(t *testing.T) {
	e := newEngine(t, "<p>ab</p>")
	mustSelect(t, e, span([]int{0, 0}, 0, 2))

	for _, markup := range []string{"", "<strong></strong><em></em>", "<blink></blink>"} {
		if err := e.Wrap(markup); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("Wrap(%q) error = %v, want ErrInvalidTemplate", markup, err)
		}
	}
	expectMarkup(t, e, "<p>ab</p>")
	if e.Revision() != 0 {
		t.Errorf("failed operations were recorded: revision %d", e.Revision())
	}
}

func TestTemplateCache(t *testing.T) {
	e := newEngine(t, "<p>abcd</p>")
	mustSelect(t, e, span([]int{0, 0}, 0, 2))
	if err := e.Wrap("<strong></strong>"); err != nil {
		t.Fatal(err)
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	mustSelect(t, e, span([]int{0, 0}, 2, 4))
	if err := e.Wrap("<strong></strong>"); err != nil {
		t.Fatal(err)
	}
	expectMarkup(t, e, "<p>ab<strong>cd</strong></p>")
	if n := e.templates.ItemCount(); n != 1 {
		t.Errorf("cached templates = %d, want 1", n)
	}
}

func TestUndoGroup(t *testing.T) {
	e := newEngine(t, "<p>x</p>")
	mustSelect(t, e, caret([]int{0, 0}, 1))

	e.BeginUndoGroup("typing")
	for _, s := range []string{"a", "b", "c"} {
		if err := e.InsertText(s); err != nil {
			t.Fatal(err)
		}
	}
	e.EndUndoGroup()
	expectMarkup(t, e, "<p>xabc</p>")

	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	expectMarkup(t, e, "<p>x</p>")
	if e.CanUndo() {
		t.Error("group left more than one undo step")
	}
}

func TestReplayLog(t *testing.T) {
	const content = "<p>hello world</p><ul><li>one</li></ul>"
	a := newEngine(t, content)
	mustSelect(t, a, span([]int{0, 0}, 0, 5))
	steps := []func() error{
		func() error { return a.Wrap("<em></em>") },
		func() error { return a.SplitMark("") },
		func() error { return a.InsertText("Hi") },
		func() error { return a.SplitBlock() },
		func() error { return a.SetBlocks("<h1></h1>") },
		func() error { return a.Undo() },
		func() error { return a.Redo() },
		func() error { return a.WrapBlock("<blockquote></blockquote>") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	data, err := a.Export(0)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	b := newEngine(t, content)
	if err := b.ApplyLog(data); err != nil {
		t.Fatalf("ApplyLog() error = %v", err)
	}
	if a.Markup() != b.Markup() {
		t.Errorf("replayed markup = %s\nwant              %s", b.Markup(), a.Markup())
	}
	ra, _ := a.SelectionPath()
	rb, _ := b.SelectionPath()
	if ra.Start.Offset != rb.Start.Offset || len(ra.Start.Path) != len(rb.Start.Path) {
		t.Errorf("replayed selection = %v, want %v", rb, ra)
	}
	if b.Revision() != a.Revision() {
		t.Errorf("replayed revision = %d, want %d", b.Revision(), a.Revision())
	}
}

func TestApplyErrors(t *testing.T) {
	e := newEngine(t, "<p>ab</p>")
	tests := []struct {
		name string
		rec  Record
		want error
	}{
		{"unknown op", Record{Op: "paint"}, ErrUnknownOperation},
		{"bad path", Record{Op: tracking.OpSplitBlock, Range: caret([]int{4, 0}, 0)}, ErrInvalidPath},
		{"nothing to undo", Record{Op: tracking.OpUndo}, ErrNothingToUndo},
		{"unknown card", Record{Op: tracking.OpInsertCard, Text: "chart"}, card.ErrUnknownCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Apply(tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
	expectMarkup(t, e, "<p>ab</p>")
}

func TestApplyLogMalformed(t *testing.T) {
	e := newEngine(t, "<p>ab</p>")
	if err := e.ApplyLog([]byte(`[{"rev":1}]`)); !errors.Is(err, tracking.ErrInvalidRecord) {
		t.Errorf("ApplyLog() error = %v, want ErrInvalidRecord", err)
	}
}

type counterCard struct {
	value string
	live  *int
}

func (c *counterCard) Render() string    { return "<hr>" }
func (c *counterCard) Destroy()          { *c.live-- }
func (c *counterCard) Value() string     { return c.value }
func (c *counterCard) SetValue(v string) { c.value = v }
func (c *counterCard) Editable() bool    { return false }

func cardDefs(live *int) []card.Definition {
	factory := func(v string) card.Card {
		*live++
		return &counterCard{value: v, live: live}
	}
	return []card.Definition{
		{Key: "hr", Type: card.TypeBlock, Factory: factory},
		{Key: "image", Type: card.TypeInline, Factory: factory},
	}
}

func TestInsertCard(t *testing.T) {
	live := new(int)
	e := newEngine(t, "<p>ab</p>", WithCards(cardDefs(live)...))

	mustSelect(t, e, caret([]int{0, 0}, 2))
	if err := e.InsertCard("hr", ""); err != nil {
		t.Fatalf("InsertCard(hr) error = %v", err)
	}
	expectMarkup(t, e, `<p>ab</p><card data-card-editable="false" data-card-key="hr" data-card-type="block" />`)
	if *live != 1 || e.Cards().Count() != 1 {
		t.Errorf("live cards = %d / %d, want 1", *live, e.Cards().Count())
	}

	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if *live != 0 || e.Cards().Count() != 0 {
		t.Errorf("live cards after undo = %d / %d, want 0", *live, e.Cards().Count())
	}

	if err := e.Redo(); err != nil {
		t.Fatal(err)
	}
	if *live != 1 {
		t.Errorf("live cards after redo = %d, want 1", *live)
	}

	mustSelect(t, e, caret([]int{0, 0}, 1))
	if err := e.InsertCard("image", "a.png"); err != nil {
		t.Fatalf("InsertCard(image) error = %v", err)
	}
	want := `<p>a<card data-card-editable="false" data-card-key="image" data-card-type="inline" data-card-value="a.png" />b</p>`
	if got := e.Markup(); !strings.HasPrefix(got, want) {
		t.Errorf("Markup() = %s\nwant prefix %s", got, want)
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if *live != 0 {
		t.Errorf("live cards after Close = %d, want 0", *live)
	}
}

func TestSnapshots(t *testing.T) {
	e := newEngine(t, "<p>ab</p>")
	mustSelect(t, e, caret([]int{0, 0}, 2))
	if err := e.InsertText("c"); err != nil {
		t.Fatal(err)
	}
	if err := e.CreateSnapshot("draft"); err != nil {
		t.Fatal(err)
	}
	if err := e.InsertText("d"); err != nil {
		t.Fatal(err)
	}

	got, err := e.SnapshotMarkup("draft")
	if err != nil || got != "<p>abc</p>" {
		t.Errorf("SnapshotMarkup() = %q, %v", got, err)
	}
	recs, err := e.ChangesSinceSnapshot("draft")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Text != "d" {
		t.Errorf("ChangesSinceSnapshot() = %v", recs)
	}
	if _, err := e.SnapshotMarkup("final"); !errors.Is(err, tracking.ErrSnapshotNotFound) {
		t.Errorf("missing snapshot error = %v", err)
	}
}

func TestReadOnly(t *testing.T) {
	e := newEngine(t, "<p>ab</p>", WithReadOnly())
	if err := e.InsertText("x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("InsertText() error = %v, want ErrReadOnly", err)
	}
	if err := e.Undo(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Undo() error = %v, want ErrReadOnly", err)
	}
	if !e.IsReadOnly() {
		t.Error("IsReadOnly() = false")
	}
}

func TestClose(t *testing.T) {
	e, err := New(WithContent("<p>ab</p>"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
	if err := e.InsertText("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("InsertText() after Close error = %v, want ErrClosed", err)
	}
}

func TestConcurrentEdits(t *testing.T) {
	e := newEngine(t, "<p>a</p>")
	mustSelect(t, e, caret([]int{0, 0}, 1))

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.InsertText("x")
			_ = e.Markup()
		}()
	}
	wg.Wait()

	if got := e.Text(); got != "a"+strings.Repeat("x", n) {
		t.Errorf("Text() = %q", got)
	}
	if e.Revision() != n {
		t.Errorf("Revision() = %d, want %d", e.Revision(), n)
	}
}

func TestArenaStaysBounded(t *testing.T) {
	tests := []struct {
		name string
		edit func(t *testing.T, e *Engine) error
		want string
	}{
		{"type and undo", func(t *testing.T, e *Engine) error {
			if err := e.InsertText("x"); err != nil {
				return err
			}
			return e.Undo()
		}, "<p>ab</p>"},
		{"split and undo", func(t *testing.T, e *Engine) error {
			if err := e.SplitBlock(); err != nil {
				return err
			}
			return e.Undo()
		}, "<p>ab</p>"},
		{"wrap and unwrap", func(t *testing.T, e *Engine) error {
			mustSelect(t, e, span([]int{0, 0}, 0, 2))
			if err := e.WrapBlock("<blockquote />"); err != nil {
				return err
			}
			return e.UnwrapBlock("<blockquote />")
		}, "<p>ab</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, "<p>ab</p>")
			mustSelect(t, e, caret([]int{0, 0}, 1))
			if err := tt.edit(t, e); err != nil {
				t.Fatal(err)
			}
			size := e.doc.Size()
			for range 200 {
				mustSelect(t, e, caret([]int{0, 0}, 1))
				if err := tt.edit(t, e); err != nil {
					t.Fatal(err)
				}
			}
			if got := e.doc.Size(); got != size {
				t.Errorf("doc.Size() = %d after repeated edits, want %d", got, size)
			}
			expectMarkup(t, e, tt.want)
		})
	}
}

func TestConcurrentReaders(t *testing.T) {
	e := newEngine(t, "<p>a</p>")
	mustSelect(t, e, caret([]int{0, 0}, 1))

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.BeginUndoGroup("typing")
			_ = e.InsertText("x")
			e.EndUndoGroup()
		}()
		go func() {
			defer wg.Done()
			_ = e.Revision()
			_ = e.CanUndo()
			_ = e.CanRedo()
			_ = e.UndoHistory()
			_ = e.ChangesSince(0)
			_, _ = e.Export(0)
		}()
	}
	wg.Wait()

	if got := e.Text(); got != "a"+strings.Repeat("x", n) {
		t.Errorf("Text() = %q", got)
	}
	if got := len(e.ChangesSince(0)); got != n {
		t.Errorf("len(ChangesSince(0)) = %d, want %d", got, n)
	}
}
