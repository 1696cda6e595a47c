// Package formatting renders detected calls, broker status and call results
// for the CLI, the REPL and the MCP server.
//
// Four output formats are supported: console (plain lines), table (rounded
// go-pretty tables), json and yaml. Every formatter returns strings so the
// caller decides where the output goes.
package formatting

import (
	"fmt"
	"strings"

	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Formats lists the accepted --output values.
func Formats() []string {
	return []string{string(FormatConsole), string(FormatTable), string(FormatJSON), string(FormatYAML)}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected one of %s)", s, strings.Join(Formats(), ", "))
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// CallRow is one detected call as shown to the user.
type CallRow struct {
	Index  int    `json:"index" yaml:"index"`
	URL    string `json:"url" yaml:"url"`
	Tool   string `json:"tool,omitempty" yaml:"tool,omitempty"`
	State  string `json:"state,omitempty" yaml:"state,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Formatter renders bridge data in one output format.
type Formatter interface {
	FormatCalls(calls []CallRow) string
	FormatStatus(status token.Status) string
	FormatResult(resp ahp.Response) string
	FormatTools(tools []ahp.ToolInfo) string
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{options: options}
	case FormatYAML:
		return &YAMLFormatter{options: options}
	case FormatTable:
		return &TableFormatter{options: options}
	default:
		return &ConsoleFormatter{options: options}
	}
}
