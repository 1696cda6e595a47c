// Package ahp holds the vocabulary shared by every part of the bridge:
// the error taxonomy, the query parameters of the Agentic Hypercall
// Protocol, reserved server paths and the request/response messages that
// cross between the detection and broker contexts.
//
// An AHP call is a plain GET request:
//
//	GET {server}/{tool}?arg=value&bearer_token={token}
//
// Bearer tokens are obtained from {server}/auth by exchanging a long-lived
// pre-shared key. Tools answer with JSON; failures carry an "error" field,
// either an object with a message or a bare code string next to a
// top-level "message" (the payment-required challenge uses the latter).
package ahp
