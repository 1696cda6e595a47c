package commands

import (
	"context"
	"fmt"
	"strings"
)

// StatusCommand shows the broker status, or drops the cached token.
type StatusCommand struct {
	*BaseCommand
}

// NewStatusCommand creates a new status command
func NewStatusCommand(base *BaseCommand) *StatusCommand {
	return &StatusCommand{BaseCommand: base}
}

// Execute prints the status; "status logout" clears the cached token.
func (s *StatusCommand) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "logout":
			if err := s.session.Forget(); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			s.output.Success("Cached token cleared")
			return nil
		default:
			return fmt.Errorf("usage: %s", s.Usage())
		}
	}

	s.output.OutputLine("%s", s.formatter.FormatStatus(s.session.Status()))
	return nil
}

// Usage returns the usage string
func (s *StatusCommand) Usage() string {
	return "status [logout]"
}

// Description returns the command description
func (s *StatusCommand) Description() string {
	return "Show credential and token status"
}

// Completions returns possible completions
func (s *StatusCommand) Completions(input string) []string {
	return []string{"logout"}
}

// Aliases returns command aliases
func (s *StatusCommand) Aliases() []string {
	return []string{"auth"}
}
