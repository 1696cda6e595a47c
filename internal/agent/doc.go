// Package agent exposes the bridge outside a browser page: an MCP stdio
// server that AI assistants can drive, and an interactive REPL.
//
// Both share a Session, which tracks the calls detected in text handed to
// it and runs them through the execution pipeline:
//
//	session := agent.NewSession(engine, pipeline.NewClient(router), broker)
//	srv := agent.NewMCPServer(session)
//	err := srv.Start(ctx, os.Stdin, os.Stdout)
//
// The MCP server registers three tools:
//
//   - execute_call: run one AHP call URL and return its JSON payload
//   - detect_calls: list the AHP call URLs found in a piece of text
//   - auth_status: report the configured credential and cached token
//
// Tool failures are returned as MCP error results carrying the failure
// kind and message, never as protocol errors.
//
// The REPL reads commands with readline. Input that is not a command is
// scanned for calls, so a whole assistant reply can be pasted and its calls
// run by index with "run 1".
package agent
