package tracking

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

func testRange(a, b int) cursor.RangePoints {
	return cursor.RangePoints{
		Start: cursor.Point{Path: []int{0, 0}, Offset: a},
		End:   cursor.Point{Path: []int{0, 0}, Offset: b},
	}
}

func TestRecordJSON(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := Record{
		Revision:  7,
		Op:        OpWrap,
		Range:     testRange(1, 4),
		Template:  `<span style="color: red"></span>`,
		Timestamp: ts,
	}
	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	tests := map[string]string{
		"op":                 "wrap",
		"rev":                "7",
		"range.start.path.1": "0",
		"range.end.offset":   "4",
		"template":           `<span style="color: red"></span>`,
	}
	for path, want := range tests {
		if got := gjson.GetBytes(data, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if gjson.GetBytes(data, "text").Exists() {
		t.Error("empty text field was written")
	}

	out, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("ParseRecord() = %+v, want %+v", out, in)
	}
}

func TestRecordRootPath(t *testing.T) {
	in := Record{Op: OpSplitBlock, Range: cursor.RangePoints{End: cursor.Point{Offset: 2}}}
	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "range.end.path").Raw; got != "[]" {
		t.Errorf("root path = %s, want []", got)
	}
	out, err := ParseRecord(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Range.End.Path) != 0 || out.Range.End.Offset != 2 {
		t.Errorf("end = %+v", out.Range.End)
	}
}

func TestParseRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed", `{"op":`},
		{"array", `[]`},
		{"missing op", `{"rev":1}`},
		{"bad timestamp", `{"op":"wrap","ts":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecord([]byte(tt.in)); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ParseRecord() error = %v, want %v", err, ErrInvalidRecord)
			}
		})
	}
}

func TestLogRoundTrip(t *testing.T) {
	records := []Record{
		{Revision: 1, Op: OpInsertText, Range: testRange(0, 0), Text: "hi"},
		{Revision: 2, Op: OpSplitMark, Range: testRange(1, 1), Extra: "<strong></strong>"},
	}
	data, err := EncodeLog(records)
	if err != nil {
		t.Fatalf("EncodeLog() error = %v", err)
	}
	if n := gjson.GetBytes(data, "#").Int(); n != 2 {
		t.Fatalf("encoded %d records, want 2", n)
	}
	out, err := DecodeLog(data)
	if err != nil {
		t.Fatalf("DecodeLog() error = %v", err)
	}
	if !reflect.DeepEqual(out, records) {
		t.Errorf("DecodeLog() = %+v, want %+v", out, records)
	}

	if _, err := DecodeLog([]byte(`{"op":"wrap"}`)); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("DecodeLog(object) error = %v", err)
	}
	_, err = DecodeLog([]byte(`[{"op":"wrap"},{"rev":2}]`))
	if !errors.Is(err, ErrInvalidRecord) || !strings.Contains(err.Error(), "record 1") {
		t.Errorf("DecodeLog(bad second record) error = %v", err)
	}
}

func TestTrackerAppend(t *testing.T) {
	tr := NewTracker(WithMaxRecords(3))
	for i := 0; i < 5; i++ {
		r := tr.Append(Record{Op: OpInsertText, Text: string(rune('a' + i))})
		if r.Revision != RevisionID(i+1) {
			t.Fatalf("Append() revision = %d, want %d", r.Revision, i+1)
		}
		if r.Timestamp.IsZero() {
			t.Error("Append() left the timestamp unset")
		}
	}
	if tr.Count() != 3 || tr.Revision() != 5 {
		t.Fatalf("Count() = %d, Revision() = %d", tr.Count(), tr.Revision())
	}

	texts := func(rs []Record) string {
		var b strings.Builder
		for _, r := range rs {
			b.WriteString(r.Text)
		}
		return b.String()
	}
	if got := texts(tr.Since(0)); got != "cde" {
		t.Errorf("Since(0) = %q, want %q", got, "cde")
	}
	if got := texts(tr.Since(3)); got != "de" {
		t.Errorf("Since(3) = %q, want %q", got, "de")
	}
	if got := texts(tr.Between(2, 4)); got != "cd" {
		t.Errorf("Between(2, 4) = %q, want %q", got, "cd")
	}
	if got := texts(tr.Latest(2)); got != "de" {
		t.Errorf("Latest(2) = %q, want %q", got, "de")
	}
	if got := texts(tr.Latest(10)); got != "cde" {
		t.Errorf("Latest(10) = %q, want %q", got, "cde")
	}

	data, err := tr.Export(4)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "0.text").String(); got != "e" {
		t.Errorf("Export(4)[0].text = %q, want %q", got, "e")
	}

	tr.Clear()
	if tr.Count() != 0 || tr.Revision() != 5 {
		t.Errorf("after Clear: Count() = %d, Revision() = %d", tr.Count(), tr.Revision())
	}
	if r := tr.Append(Record{Op: OpUndo}); r.Revision != 6 {
		t.Errorf("revision after Clear = %d, want 6", r.Revision)
	}
}

func TestSnapshots(t *testing.T) {
	doc := tree.New()
	p := doc.NewElement(tree.KindBlock, "p")
	doc.Append(doc.Root(), p)
	doc.Append(p, doc.NewText("a"))

	tr := NewTracker()
	tr.Append(Record{Op: OpInsertText, Text: "a"})
	snap := tr.Snapshots().Create("before", doc, tr.Revision())
	tr.Append(Record{Op: OpInsertText, Text: "b"})

	doc.SetText(doc.FirstChild(p), "ab")
	if got := snap.Markup(); got != "<p>a</p>" {
		t.Errorf("snapshot markup = %s, want the document as it was", got)
	}
	copied := snap.Document()
	copied.SetText(copied.FirstChild(p), "changed")
	if got := snap.Markup(); got != "<p>a</p>" {
		t.Errorf("Document() shares nodes with the snapshot: %s", got)
	}

	recs, err := tr.SinceSnapshot("before")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Text != "b" {
		t.Errorf("SinceSnapshot() = %+v", recs)
	}
	if _, err := tr.SinceSnapshot("missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("SinceSnapshot(missing) error = %v", err)
	}

	tr.Snapshots().Create("after", doc, tr.Revision())
	list := tr.Snapshots().List()
	if len(list) != 2 || list[0].Name != "before" {
		t.Errorf("List() = %v", list)
	}
	if n := tr.Snapshots().Prune(time.Hour); n != 0 {
		t.Errorf("Prune(1h) removed %d fresh snapshots", n)
	}
	tr.Snapshots().Delete("before")
	if tr.Snapshots().Count() != 1 {
		t.Errorf("Count() = %d after Delete", tr.Snapshots().Count())
	}
}
