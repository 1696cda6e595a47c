// Package logging provides the structured logging used across ahpbridge.
//
// It is a thin layer over Go's slog package. Every entry carries a
// subsystem attribute so output can be filtered per component:
//
//   - **Config**: settings loading, validation and file watching
//   - **TokenBroker**: bearer token acquisition and caching
//   - **TokenStore**: token persistence
//   - **Detect**: protocol URL detection in chat documents
//   - **Pipeline**: cross-context request routing and tool calls
//   - **Inject**: writing results into the chat input surface
//   - **Bridge**: per-call state transitions
//   - **Agent**: the MCP stdio server
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("TokenBroker", "Acquired bearer token for %s", serverURL)
//	logging.Error("Pipeline", err, "Tool call to %s failed", toolURL)
//
// Secrets never reach the log in full; use MaskSecret for pre-shared keys
// and bearer tokens.
package logging
