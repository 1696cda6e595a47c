package agent

import (
	"context"
	"io"

	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is announced to MCP clients.
const ServerName = "ahpbridge"

// MCPServer exposes a Session as MCP tools over stdio.
type MCPServer struct {
	session   *Session
	formatter formatting.Formatter
	mcpServer *server.MCPServer
}

// NewMCPServer creates an MCP server backed by session. version is
// reported in the initialize handshake.
func NewMCPServer(session *Session, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
	)

	m := &MCPServer{
		session:   session,
		formatter: formatting.New(formatting.Options{Format: formatting.FormatJSON}),
		mcpServer: mcpServer,
	}
	m.registerTools()
	return m
}

// Start serves MCP over in and out until ctx is cancelled or in closes.
func (m *MCPServer) Start(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Info("Agent", "Serving MCP tools over stdio")
	return server.NewStdioServer(m.mcpServer).Listen(ctx, in, out)
}

// registerTools registers the bridge tools with the MCP server.
func (m *MCPServer) registerTools() {
	executeTool := mcp.NewTool("execute_call",
		mcp.WithDescription("Execute an AHP call URL on the configured server and return its JSON result. "+
			"Authentication is handled by the bridge; any bearer_token in the URL is replaced."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The AHP call URL, e.g. https://ahp.nuts.services/echo?text=hi"),
		),
	)
	m.mcpServer.AddTool(executeTool, m.handleExecuteCall)

	detectTool := mcp.NewTool("detect_calls",
		mcp.WithDescription("List the AHP call URLs for the configured server found in a piece of text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to scan, such as an assistant reply"),
		),
	)
	m.mcpServer.AddTool(detectTool, m.handleDetectCalls)

	statusTool := mcp.NewTool("auth_status",
		mcp.WithDescription("Report the configured server, agent identity and cached token state"),
	)
	m.mcpServer.AddTool(statusTool, m.handleAuthStatus)

	listTool := mcp.NewTool("list_tools",
		mcp.WithDescription("List the tools published by the configured AHP server with their query parameters"),
	)
	m.mcpServer.AddTool(listTool, m.handleListTools)
}
