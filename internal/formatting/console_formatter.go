package formatting

import (
	"fmt"
	"strings"

	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// FormatCalls lists calls one per line.
func (f *ConsoleFormatter) FormatCalls(calls []CallRow) string {
	if len(calls) == 0 {
		return "No AHP calls detected."
	}

	var output []string
	output = append(output, fmt.Sprintf("Detected calls (%d):", len(calls)))
	for _, c := range calls {
		line := fmt.Sprintf("  %d. %s", c.Index, ahp.RedactURL(c.URL))
		if c.State != "" {
			line += fmt.Sprintf(" [%s]", c.State)
		}
		if c.Detail != "" {
			line += " - " + c.Detail
		}
		output = append(output, line)
	}
	return strings.Join(output, "\n")
}

// FormatStatus describes the credential and cached token.
func (f *ConsoleFormatter) FormatStatus(st token.Status) string {
	doc := newStatusDoc(st)
	var output []string
	output = append(output, fmt.Sprintf("Server:   %s", valueOr(doc.Server, "(not set)")))
	output = append(output, fmt.Sprintf("Identity: %s", valueOr(doc.Identity, "(not set)")))
	if !doc.Configured {
		output = append(output, fmt.Sprintf("Missing:  %s", strings.Join(doc.Missing, ", ")))
	}
	if doc.HasToken {
		output = append(output, fmt.Sprintf("Token:    valid until %s (%s left)", doc.ExpiresAt, doc.Remaining))
	} else {
		output = append(output, "Token:    none cached")
	}
	return strings.Join(output, "\n")
}

// FormatResult prints the payload, or the error message of a failure.
func (f *ConsoleFormatter) FormatResult(resp ahp.Response) string {
	if !resp.Success {
		doc := newResultDoc(resp)
		return fmt.Sprintf("Error (%s): %s", doc.Error.Kind, doc.Error.Message)
	}
	if s, ok := decodePayload(resp.Data).(string); ok {
		return s
	}
	return IndentPayload(resp.Data)
}

// FormatTools lists each tool with its parameters, required ones first.
func (f *ConsoleFormatter) FormatTools(tools []ahp.ToolInfo) string {
	if len(tools) == 0 {
		return "The server lists no tools."
	}

	output := []string{fmt.Sprintf("Tools (%d):", len(tools))}
	for _, tool := range tools {
		line := "  " + tool.Name
		if tool.Description != "" {
			line += " - " + tool.Description
		}
		output = append(output, line)
		if params := paramList(tool.Parameters); params != "" {
			output = append(output, "      params: "+params)
		}
	}
	return strings.Join(output, "\n")
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
