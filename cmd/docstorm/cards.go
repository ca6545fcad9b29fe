package main

import (
	"html"

	"github.com/dshills/docstorm/internal/engine/card"
)

// builtinCards are the cards the command line sessions know about.
func builtinCards() []card.Definition {
	return []card.Definition{
		{Key: "divider", Type: card.TypeBlock, Factory: func(v string) card.Card {
			return &staticCard{value: v, render: func(string) string { return "<hr>" }}
		}},
		{Key: "mention", Type: card.TypeInline, Factory: func(v string) card.Card {
			return &staticCard{value: v, render: func(v string) string {
				return `<span class="mention">@` + html.EscapeString(v) + `</span>`
			}}
		}},
	}
}

// staticCard is a non-editable card rendered from its value.
type staticCard struct {
	value  string
	render func(value string) string
}

func (c *staticCard) Render() string    { return c.render(c.value) }
func (c *staticCard) Destroy()          {}
func (c *staticCard) Value() string     { return c.value }
func (c *staticCard) SetValue(v string) { c.value = v }
func (c *staticCard) Editable() bool    { return false }
