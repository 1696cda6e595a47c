package ahp

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure. Every failure that reaches the user
// carries exactly one kind.
type Kind string

const (
	// KindConfigurationMissing means no usable credential is configured.
	KindConfigurationMissing Kind = "configuration_missing"
	// KindAuthRejected means the server declined the pre-shared key.
	KindAuthRejected Kind = "auth_rejected"
	// KindNetworkFailure means an endpoint could not be reached.
	KindNetworkFailure Kind = "network_failure"
	// KindToolError means the tool server returned a structured error,
	// including payment-required challenges.
	KindToolError Kind = "tool_error"
	// KindNoInputSurface means the host page layout was not recognized.
	KindNoInputSurface Kind = "no_input_surface"
	// KindInvalidRequest means a cross-context request was malformed.
	KindInvalidRequest Kind = "invalid_request"
	// KindInternal marks a recovered panic or an unexpected condition.
	KindInternal Kind = "internal"
)

// String returns the wire form of the kind.
func (k Kind) String() string {
	return string(k)
}

// Retryable reports whether a fresh manual attempt may succeed without the
// user changing anything. The bridge itself never retries automatically.
func (k Kind) Retryable() bool {
	return k == KindNetworkFailure
}

// Error is the typed failure returned by the token broker, the pipeline
// and the injector.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, &ahp.Error{Kind: ahp.KindAuthRejected}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.Err == nil
}

// KindOf extracts the kind of err. Errors that are not *Error are
// reported as KindInternal; nil yields the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing text of err: the message of an *Error
// when present, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Detail returns Message(err) followed by the underlying cause, if any.
// Responses carry it so that a network failure keeps its reason.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// ConfigurationMissing reports that the named settings are absent.
func ConfigurationMissing(missing ...string) *Error {
	msg := "bridge is not configured: set your email and pre-shared key with 'ahpbridge configure'"
	if len(missing) > 0 {
		msg = fmt.Sprintf("bridge is not configured: missing %v; run 'ahpbridge configure'", missing)
	}
	return &Error{Kind: KindConfigurationMissing, Message: msg}
}

// AuthRejected carries the server-provided reason verbatim.
func AuthRejected(message string) *Error {
	if message == "" {
		message = "authentication rejected by server"
	}
	return &Error{Kind: KindAuthRejected, Message: message}
}

// NetworkFailure wraps a transport-level error reaching endpoint.
func NetworkFailure(endpoint string, err error) *Error {
	return &Error{Kind: KindNetworkFailure, Message: fmt.Sprintf("could not reach %s", endpoint), Err: err}
}

// ToolFailure carries the tool server's error message verbatim.
func ToolFailure(message string) *Error {
	return &Error{Kind: KindToolError, Message: message}
}

// NoInputSurface reports that none of the probes matched the host page.
func NoInputSurface(probes []string) *Error {
	return &Error{Kind: KindNoInputSurface, Message: fmt.Sprintf("no chat input found on page (tried %d selectors)", len(probes))}
}

// InvalidRequest reports a malformed cross-context request.
func InvalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal reports an unexpected condition.
func Internal(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}
