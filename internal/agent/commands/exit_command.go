package commands

import (
	"context"
)

// Row states reported by the session.
const (
	stateExecuting = "Executing"
	stateFailed    = "Failed"
)

// ExitCommand ends the REPL, warning about calls still in flight.
type ExitCommand struct {
	*BaseCommand
}

// NewExitCommand creates a new exit command
func NewExitCommand(base *BaseCommand) *ExitCommand {
	return &ExitCommand{BaseCommand: base}
}

// Execute reports unfinished and failed calls, then signals REPL shutdown.
func (e *ExitCommand) Execute(ctx context.Context, args []string) error {
	executing, failed := 0, 0
	for _, c := range e.session.Calls() {
		switch c.State {
		case stateExecuting:
			executing++
		case stateFailed:
			failed++
		}
	}
	if executing > 0 {
		e.output.Error("%d call(s) still executing; their results are discarded", executing)
	}
	if failed > 0 {
		e.output.OutputLine("%d call(s) failed this session", failed)
	}
	return ErrExit
}

// Usage returns the usage string
func (e *ExitCommand) Usage() string {
	return "exit"
}

// Description returns the command description
func (e *ExitCommand) Description() string {
	return "Leave the REPL"
}

// Completions returns possible completions
func (e *ExitCommand) Completions(input string) []string {
	return nil
}

// Aliases returns command aliases
func (e *ExitCommand) Aliases() []string {
	return []string{"quit", "q"}
}
