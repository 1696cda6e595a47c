package agent

import (
	"context"
	"fmt"

	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleExecuteCall handles the execute_call MCP tool.
//
// The URL must be a call on the configured server; reserved endpoints and
// other hosts are refused before any token is acquired. A successful call
// returns the indented JSON payload. Failures are returned as error results
// of the form "<kind>: <message>".
func (m *MCPServer) handleExecuteCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callURL, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	_, resp, err := m.session.RunURL(ctx, callURL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", ahp.KindOf(err), ahp.Message(err))), nil
	}
	if !resp.Success {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", resp.Kind, resp.Error)), nil
	}
	return mcp.NewToolResultText(formatting.IndentPayload(resp.Data)), nil
}

// handleDetectCalls handles the detect_calls MCP tool. It returns a JSON
// array of {index, url, tool}; bearer tokens in the text are redacted.
func (m *MCPServer) handleDetectCalls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required"), nil
	}
	if m.session.detector.BaseURL() == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", ahp.KindConfigurationMissing, "no server URL is configured")), nil
	}
	return mcp.NewToolResultText(m.formatter.FormatCalls(m.session.Detect(text))), nil
}

// handleListTools handles the list_tools MCP tool. It returns a JSON array
// of {name, description, parameters, sessionRequired}.
func (m *MCPServer) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tools, err := m.session.Tools(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", ahp.KindOf(err), ahp.Message(err))), nil
	}
	return mcp.NewToolResultText(m.formatter.FormatTools(tools)), nil
}

// handleAuthStatus handles the auth_status MCP tool. It never touches the
// network and never reveals the pre-shared key or token.
func (m *MCPServer) handleAuthStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(m.formatter.FormatStatus(m.session.Status())), nil
}
