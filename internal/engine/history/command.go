package history

import (
	"errors"
	"fmt"

	"github.com/dshills/docstorm/internal/engine/cursor"
	"github.com/dshills/docstorm/internal/engine/tree"
)

// ErrNotExecuted is returned when undoing a command that never ran.
var ErrNotExecuted = errors.New("command not executed")

// Command represents an edit that can be executed and undone.
type Command interface {
	// Execute performs the command, updating the selection.
	Execute(doc *tree.Tree, sel *cursor.Range) error

	// Undo reverses the command and restores the selection.
	Undo(doc *tree.Tree, sel *cursor.Range) error

	// Description returns a human-readable description of the command.
	Description() string
}

// EditFunc edits doc around r and returns the new selection.
type EditFunc func(doc *tree.Tree, r cursor.Range) (cursor.Range, error)

// EditCommand wraps an edit function. The function runs on the first
// Execute only; later executions restore the snapshot it produced.
type EditCommand struct {
	Name string
	Fn   EditFunc
	op   *Operation
}

// NewEditCommand creates an edit command.
func NewEditCommand(name string, fn EditFunc) *EditCommand {
	return &EditCommand{Name: name, Fn: fn}
}

// Execute runs the edit, or replays it after an undo.
func (c *EditCommand) Execute(doc *tree.Tree, sel *cursor.Range) error {
	if c.op != nil {
		doc.Restore(c.op.After)
		*sel = c.op.RangeAfter
		return nil
	}
	before, rb := doc.Snapshot(), *sel
	out, err := c.Fn(doc, rb)
	if err != nil {
		doc.Restore(before)
		return fmt.Errorf("%s: %w", c.Description(), err)
	}
	c.op = NewOperation(before, doc.Snapshot(), rb, out)
	*sel = out
	return nil
}

// Undo restores the document and selection from before the edit.
func (c *EditCommand) Undo(doc *tree.Tree, sel *cursor.Range) error {
	if c.op == nil {
		return ErrNotExecuted
	}
	doc.Restore(c.op.Before)
	*sel = c.op.RangeBefore
	return nil
}

// Operation returns the recorded operation, or nil before the first run.
func (c *EditCommand) Operation() *Operation {
	return c.op
}

// Changed reports whether the executed edit altered the document.
func (c *EditCommand) Changed() bool {
	return c.op != nil && c.op.Changed()
}

// Description returns the command name.
func (c *EditCommand) Description() string {
	if c.Name == "" {
		return "Edit"
	}
	return c.Name
}

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompoundCommand creates a new compound command.
func NewCompoundCommand(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{
		Name:     name,
		Commands: commands,
	}
}

// Execute runs all commands in order. On failure the commands already run
// are undone.
func (c *CompoundCommand) Execute(doc *tree.Tree, sel *cursor.Range) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(doc, sel); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(doc, sel)
			}
			return fmt.Errorf("compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *CompoundCommand) Undo(doc *tree.Tree, sel *cursor.Range) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(doc, sel); err != nil {
			return fmt.Errorf("undo compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Description returns the compound command's name.
func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// Add adds a command to the compound command.
func (c *CompoundCommand) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound command has no commands.
func (c *CompoundCommand) IsEmpty() bool {
	return len(c.Commands) == 0
}
