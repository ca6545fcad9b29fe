package card

import (
	"errors"
	"fmt"
)

// Attributes stored on card nodes.
const (
	KeyAttr      = "data-card-key"
	TypeAttr     = "data-card-type"
	ValueAttr    = "data-card-value"
	EditableAttr = "data-card-editable"
)

// Type says where a card may be placed.
type Type string

const (
	TypeBlock  Type = "block"
	TypeInline Type = "inline"
)

// Errors returned by the registry.
var (
	ErrUnknownCard   = errors.New("unknown card")
	ErrDuplicateCard = errors.New("card already registered")
	ErrInvalidCard   = errors.New("invalid card definition")
	ErrNotMounted    = errors.New("card not mounted")
)

// Card is the contract implemented by embedded widgets.
type Card interface {
	// Render returns the markup the host shows for the card.
	Render() string

	// Destroy releases the card. It is called once, when the card node
	// leaves the document or the document is closed.
	Destroy()

	Value() string
	SetValue(v string)

	// Editable reports whether the card exposes editable regions.
	Editable() bool
}

// RegionCard is implemented by editable cards.
type RegionCard interface {
	Card

	// Regions returns the initial markup of each editable region.
	Regions() []string
}

// Factory creates a card instance holding value.
type Factory func(value string) Card

// Definition describes a kind of card.
type Definition struct {
	Key     string
	Type    Type
	Factory Factory
}

func (d Definition) validate() error {
	switch {
	case d.Key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidCard)
	case d.Type != TypeBlock && d.Type != TypeInline:
		return fmt.Errorf("%w: %s: type must be block or inline", ErrInvalidCard, d.Key)
	case d.Factory == nil:
		return fmt.Errorf("%w: %s: nil factory", ErrInvalidCard, d.Key)
	}
	return nil
}
