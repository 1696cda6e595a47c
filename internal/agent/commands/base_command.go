package commands

import (
	"context"
	"fmt"
	"strings"

	"ahpbridge/internal/formatting"
	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// SessionInterface is what commands need from the REPL session: the calls
// detected so far, execution and broker status.
type SessionInterface interface {
	// Scan detects calls in text and returns the newly tracked ones.
	Scan(text string) []formatting.CallRow
	// Calls returns every tracked call.
	Calls() []formatting.CallRow
	// Run executes the call identified by ref, a 1-based index or a URL.
	Run(ctx context.Context, ref string) (formatting.CallRow, ahp.Response, error)
	// Status reports the broker state without network access.
	Status() token.Status
	// Forget drops the cached bearer token.
	Forget() error
}

// BaseCommand provides the dependencies shared by all commands.
type BaseCommand struct {
	session   SessionInterface
	output    OutputLogger
	formatter formatting.Formatter
}

// NewBaseCommand creates a new base command with the specified dependencies.
func NewBaseCommand(session SessionInterface, output OutputLogger, formatter formatting.Formatter) *BaseCommand {
	if formatter == nil {
		formatter = formatting.New(formatting.Options{})
	}
	return &BaseCommand{
		session:   session,
		output:    output,
		formatter: formatter,
	}
}

// parseArgs validates the argument count against minArgs.
func (b *BaseCommand) parseArgs(args []string, minArgs int, usage string) ([]string, error) {
	if len(args) < minArgs {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	return args, nil
}

// joinArgsFrom joins arguments starting from a specific index into a single string.
func (b *BaseCommand) joinArgsFrom(args []string, index int) string {
	if index >= len(args) {
		return ""
	}
	return strings.Join(args[index:], " ")
}

// callCompletions returns the indexes of tracked calls.
func (b *BaseCommand) callCompletions() []string {
	var completions []string
	for _, c := range b.session.Calls() {
		completions = append(completions, fmt.Sprintf("%d", c.Index))
	}
	return completions
}
