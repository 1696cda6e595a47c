package commands

import (
	"context"
)

// CallsCommand lists the calls detected in this session.
type CallsCommand struct {
	*BaseCommand
}

// NewCallsCommand creates a new calls command
func NewCallsCommand(base *BaseCommand) *CallsCommand {
	return &CallsCommand{BaseCommand: base}
}

// Execute prints every tracked call.
func (c *CallsCommand) Execute(ctx context.Context, args []string) error {
	c.output.OutputLine("%s", c.formatter.FormatCalls(c.session.Calls()))
	return nil
}

// Usage returns the usage string
func (c *CallsCommand) Usage() string {
	return "calls"
}

// Description returns the command description
func (c *CallsCommand) Description() string {
	return "List detected calls and their state"
}

// Completions returns possible completions
func (c *CallsCommand) Completions(input string) []string {
	return []string{}
}

// Aliases returns command aliases
func (c *CallsCommand) Aliases() []string {
	return []string{"list", "ls"}
}
