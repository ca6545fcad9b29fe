package tree

import "fmt"

// Kind is the closed set of node variants.
type Kind uint8

const (
	// KindRoot is the document container or an editable region root.
	KindRoot Kind = iota

	// KindBlock is a structural container such as a paragraph or list item.
	KindBlock

	// KindInline is an atomic inline element such as a line break.
	KindInline

	// KindMark is a character-formatting wrapper.
	KindMark

	// KindText is leaf character data.
	KindText

	// KindCard is an opaque embedded widget.
	KindCard
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindBlock:
		return "block"
	case KindInline:
		return "inline"
	case KindMark:
		return "mark"
	case KindText:
		return "text"
	case KindCard:
		return "card"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "root":
		return KindRoot, nil
	case "block":
		return KindBlock, nil
	case "inline":
		return KindInline, nil
	case "mark":
		return KindMark, nil
	case "text":
		return KindText, nil
	case "card":
		return KindCard, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// IsElement reports whether nodes of this kind may own children.
func (k Kind) IsElement() bool {
	return k != KindText && k != KindCard
}
