package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ahpbridge/internal/agent/commands"
	"ahpbridge/internal/formatting"

	"github.com/chzyer/readline"
)

// REPL is an interactive loop over a Session.
type REPL struct {
	session     *Session
	logger      *Logger
	formatter   formatting.Formatter
	registry    *commands.Registry
	historyFile string
	rl          *readline.Instance
}

// NewREPL creates a REPL. History is kept in historyDir when it is set.
func NewREPL(session *Session, logger *Logger, formatter formatting.Formatter, historyDir string) *REPL {
	r := &REPL{
		session:   session,
		logger:    logger,
		formatter: formatter,
		registry:  commands.NewRegistry(),
	}
	if historyDir != "" {
		r.historyFile = filepath.Join(historyDir, "repl_history")
	}
	r.registerCommands()
	return r
}

func (r *REPL) registerCommands() {
	base := commands.NewBaseCommand(r.session, r.logger, r.formatter)
	r.registry.Register("help", commands.NewHelpCommand(base, r.registry))
	r.registry.Register("exit", commands.NewExitCommand(base))
	r.registry.Register("scan", commands.NewScanCommand(base))
	r.registry.Register("calls", commands.NewCallsCommand(base))
	r.registry.Register("run", commands.NewRunCommand(base))
	r.registry.Register("status", commands.NewStatusCommand(base))
}

// buildPrompt shows how many calls are tracked.
func (r *REPL) buildPrompt() string {
	if n := len(r.session.Calls()); n > 0 {
		return fmt.Sprintf("ahp[%d]» ", n)
	}
	return "ahp» "
}

// Run reads commands until exit, EOF or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	config := &readline.Config{
		Prompt:          r.buildPrompt(),
		HistoryFile:     r.historyFile,
		AutoComplete:    r.createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	r.rl = rl
	r.logger.SetOutput(rl.Stdout())

	r.logger.Info("AHP REPL started. Type 'help' for available commands, or paste text to scan it.")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := r.executeCommand(ctx, input); err != nil {
			if errors.Is(err, commands.ErrExit) {
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		rl.SetPrompt(r.buildPrompt())
	}
}

// executeCommand dispatches input to a registered command. Input that does
// not start with a command name is scanned for calls.
func (r *REPL) executeCommand(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if cmd, args, ok := r.registry.Resolve(input); ok {
		return cmd.Execute(ctx, args)
	}

	rows := r.session.Scan(input)
	if len(rows) == 0 {
		r.logger.OutputLine("No new AHP calls found. Type 'help' for available commands.")
		return nil
	}
	r.logger.OutputLine("%s", r.formatter.FormatCalls(rows))
	r.logger.OutputLine("Use 'run <index>' to execute a call.")
	return nil
}
