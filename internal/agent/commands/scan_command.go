package commands

import (
	"context"
)

// ScanCommand detects AHP call URLs in free text.
type ScanCommand struct {
	*BaseCommand
}

// NewScanCommand creates a new scan command
func NewScanCommand(base *BaseCommand) *ScanCommand {
	return &ScanCommand{BaseCommand: base}
}

// Execute scans the joined arguments and prints the new calls.
func (s *ScanCommand) Execute(ctx context.Context, args []string) error {
	if _, err := s.parseArgs(args, 1, s.Usage()); err != nil {
		return err
	}
	rows := s.session.Scan(s.joinArgsFrom(args, 0))
	if len(rows) == 0 {
		s.output.OutputLine("No new AHP calls found.")
		return nil
	}
	s.output.OutputLine("%s", s.formatter.FormatCalls(rows))
	return nil
}

// Usage returns the usage string
func (s *ScanCommand) Usage() string {
	return "scan <text>"
}

// Description returns the command description
func (s *ScanCommand) Description() string {
	return "Detect AHP call URLs in text"
}

// Completions returns possible completions
func (s *ScanCommand) Completions(input string) []string {
	return []string{}
}

// Aliases returns command aliases
func (s *ScanCommand) Aliases() []string {
	return []string{}
}
