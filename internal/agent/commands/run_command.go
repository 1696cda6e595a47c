package commands

import (
	"context"
	"fmt"

	"ahpbridge/pkg/ahp"
)

// RunCommand executes a detected call, or a pasted URL.
type RunCommand struct {
	*BaseCommand
}

// NewRunCommand creates a new run command
func NewRunCommand(base *BaseCommand) *RunCommand {
	return &RunCommand{BaseCommand: base}
}

// Execute runs the call and prints its result. A failed call is reported
// and returned as an error.
func (r *RunCommand) Execute(ctx context.Context, args []string) error {
	if _, err := r.parseArgs(args, 1, r.Usage()); err != nil {
		return err
	}

	row, resp, err := r.session.Run(ctx, args[0])
	if err != nil {
		return err
	}

	r.output.OutputLine("%s", r.formatter.FormatResult(resp))
	if !resp.Success {
		return fmt.Errorf("call %d failed: %w", row.Index, resp.Err())
	}
	r.output.Success("Call %d (%s) completed", row.Index, ahp.RedactURL(row.URL))
	return nil
}

// Usage returns the usage string
func (r *RunCommand) Usage() string {
	return "run <index|url>"
}

// Description returns the command description
func (r *RunCommand) Description() string {
	return "Execute a detected call"
}

// Completions returns the tracked call indexes
func (r *RunCommand) Completions(input string) []string {
	return r.callCompletions()
}

// Aliases returns command aliases
func (r *RunCommand) Aliases() []string {
	return []string{"exec", "x"}
}
