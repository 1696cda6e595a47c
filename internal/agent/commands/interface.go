// Package commands provides the REPL command implementations.
//
// Every command implements Command and is looked up through a Registry by
// name or alias. Commands parse their own arguments and supply their own
// tab completions.
package commands

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrExit is returned by a command to end the REPL.
var ErrExit = errors.New("exit")

// Command represents a REPL command that can be executed interactively.
type Command interface {
	// Execute runs the command with the given arguments
	Execute(ctx context.Context, args []string) error

	// Usage returns the usage string for the command
	Usage() string

	// Description returns a brief description of what the command does
	Description() string

	// Completions returns possible completions for the command
	// The input parameter is the current partial input for context
	Completions(input string) []string

	// Aliases returns alternative names for this command
	Aliases() []string
}

// OutputLogger defines the interface for structured command output.
// This separates user-facing output from system logging.
type OutputLogger interface {
	// User-facing output (goes to stdout, no timestamps)
	Output(format string, args ...interface{})
	OutputLine(format string, args ...interface{})

	// System messages (structured logging with timestamps)
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
	Success(format string, args ...interface{})
}

// Registry manages available commands for the REPL.
type Registry struct {
	commands map[string]Command
	aliases  map[string]string // alias -> primary command name
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command to the registry.
func (r *Registry) Register(name string, cmd Command) {
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases() {
		r.aliases[alias] = name
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) (Command, bool) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, true
	}
	if primary, exists := r.aliases[name]; exists {
		if cmd, exists := r.commands[primary]; exists {
			return cmd, true
		}
	}
	return nil, false
}

// Resolve splits a REPL line into a command and its arguments. ok is false
// when the first word names no command, in which case the line is text.
func (r *Registry) Resolve(line string) (cmd Command, args []string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil, false
	}
	cmd, ok = r.Get(strings.ToLower(fields[0]))
	if !ok {
		return nil, nil, false
	}
	return cmd, fields[1:], true
}

// List returns all registered command names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllCompletions returns all possible command completions.
func (r *Registry) AllCompletions() []string {
	completions := r.List()
	for alias := range r.aliases {
		completions = append(completions, alias)
	}
	sort.Strings(completions)
	return completions
}
