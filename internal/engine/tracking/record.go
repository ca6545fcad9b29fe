package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/docstorm/internal/engine/cursor"
)

// ErrInvalidRecord is returned for records that cannot be decoded.
var ErrInvalidRecord = errors.New("invalid operation record")

// RevisionID numbers the records of one log.
type RevisionID uint64

// Operation names.
const (
	OpWrap          = "wrap"
	OpUnwrap        = "unwrap"
	OpSplitMark     = "splitMark"
	OpMergeMark     = "mergeMark"
	OpInsertBlock   = "insertBlock"
	OpWrapBlock     = "wrapBlock"
	OpUnwrapBlock   = "unwrapBlock"
	OpSplitBlock    = "splitBlock"
	OpSetBlocks     = "setBlocks"
	OpMergeList     = "mergeList"
	OpDeleteContent = "deleteContent"
	OpInsertText    = "insertText"
	OpInsertInline  = "insertInline"
	OpInsertCard    = "insertCard"
	OpUndo          = "undo"
	OpRedo          = "redo"
)

// Record is one applied operation.
type Record struct {
	Revision RevisionID
	Op       string
	Range    cursor.RangePoints

	// Template is the markup of the template node, if the operation takes one.
	Template string
	// Text is the inserted text, or the card key for OpInsertCard.
	Text string
	// Extra carries a second template, such as the format removed by a
	// mark split.
	Extra string

	Timestamp time.Time
}

// MarshalJSON encodes r.
func (r Record) MarshalJSON() ([]byte, error) {
	out := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			out, err = sjson.SetBytes(out, path, v)
		}
	}
	set("rev", uint64(r.Revision))
	set("op", r.Op)
	set("range.start.path", pathOrEmpty(r.Range.Start.Path))
	set("range.start.offset", r.Range.Start.Offset)
	set("range.end.path", pathOrEmpty(r.Range.End.Path))
	set("range.end.offset", r.Range.End.Offset)
	if r.Template != "" {
		set("template", r.Template)
	}
	if r.Text != "" {
		set("text", r.Text)
	}
	if r.Extra != "" {
		set("extra", r.Extra)
	}
	if !r.Timestamp.IsZero() {
		set("ts", r.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return nil, fmt.Errorf("encode record %d: %w", r.Revision, err)
	}
	return out, nil
}

func pathOrEmpty(p []int) []int {
	if p == nil {
		return []int{}
	}
	return p
}

// UnmarshalJSON decodes a record produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// ParseRecord decodes one record. Only the op field is required.
func ParseRecord(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("%w: malformed JSON", ErrInvalidRecord)
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return Record{}, fmt.Errorf("%w: not an object", ErrInvalidRecord)
	}
	op := res.Get("op").String()
	if op == "" {
		return Record{}, fmt.Errorf("%w: missing op", ErrInvalidRecord)
	}

	r := Record{
		Revision: RevisionID(res.Get("rev").Uint()),
		Op:       op,
		Range: cursor.RangePoints{
			Start: point(res.Get("range.start")),
			End:   point(res.Get("range.end")),
		},
		Template: res.Get("template").String(),
		Text:     res.Get("text").String(),
		Extra:    res.Get("extra").String(),
	}
	if ts := res.Get("ts"); ts.Exists() {
		t, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return Record{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidRecord, err)
		}
		r.Timestamp = t
	}
	return r, nil
}

func point(v gjson.Result) cursor.Point {
	path := []int{}
	for _, step := range v.Get("path").Array() {
		path = append(path, int(step.Int()))
	}
	return cursor.Point{Path: path, Offset: int(v.Get("offset").Int())}
}

// String returns a short description of r.
func (r Record) String() string {
	return fmt.Sprintf("#%d %s %v:%d-%v:%d", r.Revision, r.Op,
		r.Range.Start.Path, r.Range.Start.Offset, r.Range.End.Path, r.Range.End.Offset)
}

// EncodeLog encodes records as a JSON array.
func EncodeLog(records []Record) ([]byte, error) {
	out := []byte(`[]`)
	for _, r := range records {
		raw, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
			return nil, fmt.Errorf("append record %d: %w", r.Revision, err)
		}
	}
	return out, nil
}

// DecodeLog decodes a JSON array of records.
func DecodeLog(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidRecord)
	}
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: log is not an array", ErrInvalidRecord)
	}
	var (
		out []Record
		err error
	)
	res.ForEach(func(_, v gjson.Result) bool {
		var r Record
		if r, err = ParseRecord([]byte(v.Raw)); err != nil {
			err = fmt.Errorf("record %d: %w", len(out), err)
			return false
		}
		out = append(out, r)
		return true
	})
	return out, err
}
