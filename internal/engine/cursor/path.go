package cursor

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/docstorm/internal/engine/tree"
)

// Point is the serialized form of a Position: child indices from the
// document root and an offset. Region steps are negative (see tree.Path).
type Point struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

// RangePoints is the serialized form of a Range.
type RangePoints struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// ToPath serializes p.
func ToPath(t *tree.Tree, p Position) (Point, error) {
	path, err := t.Path(p.Node)
	if err != nil {
		return Point{}, err
	}
	return Point{Path: path, Offset: p.Offset}, nil
}

// FromPath resolves a serialized position. Offsets are clamped to the
// node, and text offsets snap to the start of the grapheme cluster they
// fall in.
func FromPath(t *tree.Tree, pt Point) (Position, error) {
	h, err := t.Resolve(pt.Path)
	if err != nil {
		return Position{}, err
	}
	offset := max(0, min(pt.Offset, t.Len(h)))
	if t.IsText(h) {
		offset = tree.SnapOffset(t.Text(h), offset)
	}
	return Position{Node: h, Offset: offset}, nil
}

// RangeToPath serializes r.
func RangeToPath(t *tree.Tree, r Range) (RangePoints, error) {
	start, err := ToPath(t, r.Start)
	if err != nil {
		return RangePoints{}, fmt.Errorf("range start: %w", err)
	}
	end, err := ToPath(t, r.End)
	if err != nil {
		return RangePoints{}, fmt.Errorf("range end: %w", err)
	}
	return RangePoints{Start: start, End: end}, nil
}

// RangeFromPath resolves a serialized range.
func RangeFromPath(t *tree.Tree, rp RangePoints) (Range, error) {
	start, err := FromPath(t, rp.Start)
	if err != nil {
		return Range{}, fmt.Errorf("range start: %w", err)
	}
	end, err := FromPath(t, rp.End)
	if err != nil {
		return Range{}, fmt.Errorf("range end: %w", err)
	}
	return NewRange(t, start, end), nil
}

// MarshalRange encodes r as JSON.
func MarshalRange(t *tree.Tree, r Range) ([]byte, error) {
	rp, err := RangeToPath(t, r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rp)
}

// UnmarshalRange decodes a JSON range produced by MarshalRange.
func UnmarshalRange(t *tree.Tree, data []byte) (Range, error) {
	var rp RangePoints
	if err := json.Unmarshal(data, &rp); err != nil {
		return Range{}, fmt.Errorf("decode range: %w", err)
	}
	return RangeFromPath(t, rp)
}
