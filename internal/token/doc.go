// Package token implements the bridge's bearer token broker.
//
// The broker is the single owner of the cached token. Callers only see
// AcquireToken, which returns a cached token while it is valid and
// otherwise exchanges the configured pre-shared key for a new one:
//
//	GET {server}/auth?token={preSharedKey}&agent_id={email}
//	-> {"bearer_token": "...", "expires_in": 3600}
//
// The cache lifetime is the declared lifetime minus a safety margin, so a
// token handed out by the broker does not expire while a call is in
// flight. Concurrent acquisitions with no valid cache collapse into one
// request.
//
// Tokens can be kept in memory or persisted with FileStore:
//
//	~/.config/ahpbridge/tokens/bearer.json
//
// The file is written with 0600 permissions and replaced atomically;
// token values are never logged.
package token
