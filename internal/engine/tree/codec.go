package tree

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// jsonNode is the JSON form of a subtree.
type jsonNode struct {
	Kind     string            `json:"kind"`
	Name     string            `json:"name,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Styles   map[string]string `json:"styles,omitempty"`
	Children []jsonNode        `json:"children,omitempty"`
	Regions  []jsonNode        `json:"regions,omitempty"`
}

// Encode renders the subtree rooted at h as JSON.
func (t *Tree) Encode(h Handle) ([]byte, error) {
	if !t.Valid(h) {
		return nil, ErrInvalidHandle
	}
	return json.Marshal(t.toJSON(h))
}

func (t *Tree) toJSON(h Handle) jsonNode {
	nd := &t.nodes[h]
	j := jsonNode{
		Kind:   nd.kind.String(),
		Attrs:  t.Attrs(h),
		Styles: t.Styles(h),
	}
	if nd.kind == KindText {
		j.Text = nd.text
	} else {
		j.Name = nd.name
	}
	for _, c := range nd.children {
		j.Children = append(j.Children, t.toJSON(c))
	}
	for _, r := range t.regions[h] {
		j.Regions = append(j.Regions, t.toJSON(r))
	}
	return j
}

// Decode builds a detached subtree from JSON produced by Encode. Text is
// normalized to NFC.
func (t *Tree) Decode(data []byte) (Handle, error) {
	var j jsonNode
	if err := json.Unmarshal(data, &j); err != nil {
		return Nil, fmt.Errorf("decoding tree: %w", err)
	}
	return t.fromJSON(j)
}

// DecodeInto replaces the children of the document root with the children
// of a JSON-encoded root.
func (t *Tree) DecodeInto(data []byte) error {
	h, err := t.Decode(data)
	if err != nil {
		return err
	}
	for _, c := range t.Children(t.root) {
		t.Remove(c)
	}
	if t.Kind(h) != KindRoot {
		t.Append(t.root, h)
		return nil
	}
	t.MoveChildren(h, t.root, 0)
	return nil
}

func (t *Tree) fromJSON(j jsonNode) (Handle, error) {
	kind, err := ParseKind(j.Kind)
	if err != nil {
		return Nil, err
	}
	if kind == KindText {
		return t.NewText(norm.NFC.String(j.Text)), nil
	}
	if !kind.IsElement() && len(j.Children) > 0 {
		return Nil, fmt.Errorf("decoding tree: %s node %q cannot own children", kind, j.Name)
	}
	h := t.NewElement(kind, j.Name)
	for k, v := range j.Attrs {
		t.SetAttr(h, k, v)
	}
	for k, v := range j.Styles {
		t.SetStyle(h, k, v)
	}
	for _, cj := range j.Children {
		c, err := t.fromJSON(cj)
		if err != nil {
			return Nil, err
		}
		t.Append(h, c)
	}
	for _, rj := range j.Regions {
		r, err := t.fromJSON(rj)
		if err != nil {
			return Nil, err
		}
		t.AttachRegion(h, r)
	}
	return h, nil
}
