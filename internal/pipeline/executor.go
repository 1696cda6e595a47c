package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"
)

const (
	// DefaultHTTPTimeout bounds one tool call round trip.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxResponseBytes caps a tool response read into memory.
	DefaultMaxResponseBytes = 10 << 20
)

// TokenSource supplies bearer tokens. *token.Broker satisfies it.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that can drop a token the
// server no longer accepts.
type invalidator interface {
	Invalidate() error
}

// Executor performs tool calls. It implements Handler for the execute
// actions.
type Executor struct {
	tokens     TokenSource
	httpClient *http.Client
	serverURL  func() string
	maxBody    int64
	sessions   *sessionCache
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorHTTPClient sets the client used for tool calls.
func WithExecutorHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) {
		e.httpClient = c
	}
}

// WithServerURL sets the source of the server base URL. Calls outside it
// and calls to reserved endpoints are refused before a token is acquired.
func WithServerURL(fn func() string) ExecutorOption {
	return func(e *Executor) {
		e.serverURL = fn
	}
}

// WithMaxResponseBytes caps the tool response size. Longer responses fail
// with a ToolError.
func WithMaxResponseBytes(n int64) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// WithSessionStart opens a server session per bearer token and sends its
// session_id with every call. It needs WithServerURL.
func WithSessionStart() ExecutorOption {
	return func(e *Executor) {
		e.sessions = &sessionCache{}
	}
}

// NewExecutor creates an executor authenticating with tokens.
func NewExecutor(tokens TokenSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		serverURL:  func() string { return "" },
		maxBody:    DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle implements Handler.
func (e *Executor) Handle(ctx context.Context, req ahp.Request) ahp.Response {
	payload, err := e.Execute(ctx, req.URL)
	if err != nil {
		logging.Debug("Pipeline", "Call %s failed: %v", ahp.RedactURL(req.URL), err)
		return ahp.Failed(req.ID, err)
	}
	return ahp.OK(req.ID, payload)
}

// Execute authenticates and performs one call, returning the JSON payload.
// A token is always acquired before the tool server is contacted, and the
// bearer_token parameter of callURL is always replaced with it.
func (e *Executor) Execute(ctx context.Context, callURL string) (json.RawMessage, error) {
	base := e.serverURL()
	if base != "" {
		if _, ok := ahp.ToolPath(base, callURL); !ok {
			return nil, ahp.InvalidRequest("%s is not a call on %s", ahp.RedactURL(callURL), base)
		}
		if ahp.IsReserved(base, callURL) {
			return nil, ahp.InvalidRequest("%s is a reserved server endpoint, not a tool", ahp.RedactURL(callURL))
		}
	}
	if _, err := ahp.WithBearerToken(callURL, ""); err != nil {
		return nil, ahp.InvalidRequest("%v", err)
	}

	tok, err := e.tokens.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{ahp.ParamBearerToken: tok}
	if e.sessions != nil && base != "" {
		sid, err := e.sessionID(ctx, base, tok)
		if err != nil {
			return nil, err
		}
		params[ahp.ParamSessionID] = sid
	}

	authed, err := ahp.WithParams(callURL, params)
	if err != nil {
		return nil, ahp.InvalidRequest("%v", err)
	}

	endpoint := endpointOf(callURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, authed, nil)
	if err != nil {
		return nil, ahp.InvalidRequest("failed to build request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, ahp.NetworkFailure(endpoint, ahp.RedactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		e.dropToken()
	}

	body, err := ahp.ReadLimited(resp.Body, e.maxBody)
	if err != nil {
		var tooLarge *ahp.BodyTooLargeError
		if errors.As(err, &tooLarge) {
			logging.Warn("Pipeline", "Response of %s exceeds %d bytes", ahp.RedactURL(callURL), tooLarge.Limit)
			return nil, ahp.ToolFailure(tooLarge.Error())
		}
		return nil, ahp.NetworkFailure(endpoint, err)
	}
	logging.Debug("Pipeline", "GET %s -> %d in %s", ahp.RedactURL(callURL), resp.StatusCode, time.Since(start).Round(time.Millisecond))

	return interpret(resp, body)
}

// dropToken invalidates the current token and the session opened with it.
func (e *Executor) dropToken() {
	if e.sessions != nil {
		e.sessions.reset()
	}
	if inv, ok := e.tokens.(invalidator); ok {
		if err := inv.Invalidate(); err != nil {
			logging.Warn("Pipeline", "Failed to drop rejected bearer token: %v", err)
		}
	}
}

// interpret turns a tool server response into a payload or a ToolError.
// The body is inspected whatever the status: a structured error field wins
// over the status code.
func interpret(resp *http.Response, body []byte) (json.RawMessage, error) {
	if msg, found := ahp.ErrorMessage(body); found {
		return nil, ahp.ToolFailure(msg)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	trimmed := bytes.TrimSpace(body)

	if !json.Valid(trimmed) {
		if !ok {
			return nil, ahp.ToolFailure(fmt.Sprintf("tool server returned %s", resp.Status))
		}
		// Plain text results are carried as a JSON string.
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return nil, ahp.Internal("failed to encode response: %v", err)
		}
		return quoted, nil
	}

	if !ok {
		return nil, ahp.ToolFailure(fmt.Sprintf("tool server returned %s", resp.Status))
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, ahp.Internal("failed to read response: %v", err)
	}
	return compact.Bytes(), nil
}

func endpointOf(callURL string) string {
	u, err := url.Parse(callURL)
	if err != nil || u.Host == "" {
		return "tool server"
	}
	return u.Scheme + "://" + u.Host
}

var _ Handler = (*Executor)(nil)
