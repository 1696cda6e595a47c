package agent

import (
	"fmt"
	"io"
	"os"
	"time"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
)

// Logger writes REPL output: command results without decoration and
// status messages with a timestamp.
type Logger struct {
	verbose  bool
	useColor bool
	out      io.Writer
	writer   io.Writer
	now      func() time.Time
}

// NewLogger creates a logger writing results to stdout and messages to stderr.
func NewLogger(verbose, useColor bool) *Logger {
	return NewLoggerWithWriters(verbose, useColor, os.Stdout, os.Stderr)
}

// NewLoggerWithWriters creates a logger with custom writers.
func NewLoggerWithWriters(verbose, useColor bool, out, messages io.Writer) *Logger {
	return &Logger{
		verbose:  verbose,
		useColor: useColor,
		out:      out,
		writer:   messages,
		now:      time.Now,
	}
}

// SetVerbose sets the verbose mode
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// SetOutput redirects command results, used by readline to keep the
// prompt intact.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

// Output writes user-facing output without timestamps
func (l *Logger) Output(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format, args...)
}

// OutputLine writes user-facing output with a newline
func (l *Logger) OutputLine(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

func (l *Logger) timestamp() string {
	return l.now().Format("2006-01-02 15:04:05")
}

// colorize applies color to text if colors are enabled
func (l *Logger) colorize(text, colorCode string) string {
	if !l.useColor {
		return text
	}
	return colorCode + text + colorReset
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, "[%s] %s\n", l.timestamp(), fmt.Sprintf(format, args...))
}

// Debug logs a debug message (only in verbose mode)
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	fmt.Fprintf(l.writer, "[%s] %s\n", l.timestamp(), l.colorize(fmt.Sprintf(format, args...), colorGray))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, "[%s] %s\n", l.timestamp(), l.colorize(fmt.Sprintf(format, args...), colorRed))
}

// Success logs a success message
func (l *Logger) Success(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, "[%s] %s\n", l.timestamp(), l.colorize(fmt.Sprintf(format, args...), colorGreen))
}
