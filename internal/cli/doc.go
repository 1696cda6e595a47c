// Package cli holds the pieces shared by the ahpbridge commands: running a
// call with progress feedback, output flags, and the translation of bridge
// failures into actionable messages and process exit codes.
//
// Exit codes:
//
//	0  success
//	1  general error
//	2  configuration missing (run 'ahpbridge configure')
//	3  authentication rejected by the server
//	4  the tool server returned an error
package cli
