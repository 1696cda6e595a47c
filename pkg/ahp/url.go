package ahp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Query parameter names used by the protocol.
const (
	ParamPreSharedKey = "token"
	ParamAgentID      = "agent_id"
	ParamBearerToken  = "bearer_token"
	ParamSessionID    = "session_id"
)

// Server endpoints outside the tool namespace.
const (
	// AuthPath exchanges a pre-shared key for a bearer token.
	AuthPath = "auth"
	// SessionStartPath opens a server-side session for a bearer token.
	SessionStartPath = "session/start"
	SchemaPath       = "schema"
	OpenAPIPath      = "openapi"
)

// reservedPaths are server endpoints that are never tool invocations.
var reservedPaths = map[string]bool{
	"":              true,
	"auth":          true,
	"schema":        true,
	"openapi":       true,
	"openapi.json":  true,
	SessionStartPath: true,
	"health":        true,
	"robots":        true,
	"robots.txt":    true,
}

// ReservedPaths returns the reserved path names, for help output.
func ReservedPaths() []string {
	return []string{"/", "/auth", "/schema", "/openapi", "/session/start", "/health", "/robots.txt"}
}

// NormalizeBaseURL trims whitespace and trailing slashes from a server URL.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// AuthURL builds {base}/auth?token={key}&agent_id={identity}.
func AuthURL(baseURL, preSharedKey, agentIdentity string) (string, error) {
	u, err := url.Parse(NormalizeBaseURL(baseURL) + "/" + AuthPath)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	q := u.Query()
	q.Set(ParamPreSharedKey, preSharedKey)
	q.Set(ParamAgentID, agentIdentity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EndpointURL builds {base}/{path} for one of the server endpoints.
func EndpointURL(baseURL, path string) (string, error) {
	base := NormalizeBaseURL(baseURL)
	if base == "" {
		return "", errors.New("server URL is not set")
	}
	return WithParams(base+"/"+strings.Trim(path, "/"), nil)
}

// WithBearerToken clones rawURL and sets its bearer_token parameter to
// token, replacing any value the caller supplied.
func WithBearerToken(rawURL, token string) (string, error) {
	return WithParams(rawURL, map[string]string{ParamBearerToken: token})
}

// WithParams clones rawURL with each of params set, replacing existing
// values. Only http and https URLs are accepted.
func WithParams(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid call URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid call URL: unsupported scheme %q", u.Scheme)
	}
	clone := *u
	if len(params) == 0 {
		return clone.String(), nil
	}
	q := clone.Query()
	for name, value := range params {
		q.Set(name, value)
	}
	clone.RawQuery = q.Encode()
	return clone.String(), nil
}

// RedactURL replaces the bearer_token and token parameters so a URL can be
// logged or echoed back.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for _, name := range []string{ParamBearerToken, ParamPreSharedKey} {
		if q.Has(name) {
			q.Set(name, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactError strips credentials from the URL embedded in a net/http
// transport error. Other errors are returned unchanged.
func RedactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		clone := *urlErr
		clone.URL = RedactURL(urlErr.URL)
		return &clone
	}
	return err
}

// ToolPath returns the path of callURL relative to baseURL without
// surrounding slashes. ok is false when callURL does not live under baseURL.
func ToolPath(baseURL, callURL string) (string, bool) {
	base, err := url.Parse(NormalizeBaseURL(baseURL))
	if err != nil {
		return "", false
	}
	call, err := url.Parse(callURL)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(base.Scheme, call.Scheme) || !strings.EqualFold(base.Host, call.Host) {
		return "", false
	}
	basePath := strings.TrimRight(base.Path, "/")
	if call.Path != basePath && !strings.HasPrefix(call.Path, basePath+"/") {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(call.Path, basePath), "/"), true
}

// IsReserved reports whether callURL targets one of the server's reserved
// endpoints rather than a tool. URLs outside baseURL are not reserved.
func IsReserved(baseURL, callURL string) bool {
	path, ok := ToolPath(baseURL, callURL)
	if !ok {
		return false
	}
	return reservedPaths[strings.ToLower(path)]
}

// ToolName returns the tool segment of callURL, or "" when it is reserved
// or outside baseURL.
func ToolName(baseURL, callURL string) string {
	path, ok := ToolPath(baseURL, callURL)
	if !ok || reservedPaths[strings.ToLower(path)] {
		return ""
	}
	return path
}
