package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ahpbridge/internal/formatting"
	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"
)

// Call states shown by the session.
const (
	StateDetected  = "Detected"
	StateExecuting = "Executing"
	StateSucceeded = "Succeeded"
	StateFailed    = "Failed"
)

// Detector finds AHP call URLs in text. *detect.Engine satisfies it.
type Detector interface {
	MatchText(text string) []string
	BaseURL() string
}

// Executor runs one call. *pipeline.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, callURL string) ahp.Response
}

// Broker reports and resets authentication. *token.Broker satisfies it.
type Broker interface {
	Status() token.Status
	Invalidate() error
}

// ToolLister fetches the server's tool catalog. *pipeline.Catalog
// satisfies it.
type ToolLister interface {
	Tools(ctx context.Context) ([]ahp.ToolInfo, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithToolLister enables Tools.
func WithToolLister(tools ToolLister) SessionOption {
	return func(s *Session) {
		s.tools = tools
	}
}

type trackedCall struct {
	url    string
	state  string
	detail string
}

// Session tracks detected calls and runs them.
type Session struct {
	detector Detector
	exec     Executor
	broker   Broker
	tools    ToolLister

	mu    sync.Mutex
	calls []*trackedCall
	byURL map[string]int
}

// NewSession creates a session.
func NewSession(detector Detector, exec Executor, broker Broker, opts ...SessionOption) *Session {
	s := &Session{
		detector: detector,
		exec:     exec,
		broker:   broker,
		byURL:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detect returns the calls in text without tracking them.
func (s *Session) Detect(text string) []formatting.CallRow {
	base := s.detector.BaseURL()
	var rows []formatting.CallRow
	for i, u := range s.detector.MatchText(text) {
		rows = append(rows, formatting.CallRow{Index: i + 1, URL: u, Tool: ahp.ToolName(base, u)})
	}
	return rows
}

// Scan tracks the calls in text and returns those not seen before.
func (s *Session) Scan(text string) []formatting.CallRow {
	urls := s.detector.MatchText(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	var added []formatting.CallRow
	for _, u := range urls {
		if _, ok := s.byURL[u]; ok {
			continue
		}
		s.calls = append(s.calls, &trackedCall{url: u, state: StateDetected})
		s.byURL[u] = len(s.calls)
		added = append(added, s.rowLocked(len(s.calls)))
	}
	return added
}

// Calls returns every tracked call in detection order.
func (s *Session) Calls() []formatting.CallRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]formatting.CallRow, 0, len(s.calls))
	for i := range s.calls {
		rows = append(rows, s.rowLocked(i+1))
	}
	return rows
}

func (s *Session) rowLocked(index int) formatting.CallRow {
	c := s.calls[index-1]
	return formatting.CallRow{
		Index:  index,
		URL:    c.url,
		Tool:   ahp.ToolName(s.detector.BaseURL(), c.url),
		State:  c.state,
		Detail: c.detail,
	}
}

// Run executes the call identified by ref: the 1-based index of a tracked
// call, or a call URL, which is tracked first.
func (s *Session) Run(ctx context.Context, ref string) (formatting.CallRow, ahp.Response, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		s.mu.Lock()
		if n < 1 || n > len(s.calls) {
			count := len(s.calls)
			s.mu.Unlock()
			return formatting.CallRow{}, ahp.Response{}, fmt.Errorf("no call %d (%d tracked)", n, count)
		}
		s.mu.Unlock()
		return s.run(ctx, n)
	}
	return s.RunURL(ctx, ref)
}

// RunURL executes callURL, which must be a call on the configured server.
func (s *Session) RunURL(ctx context.Context, callURL string) (formatting.CallRow, ahp.Response, error) {
	callURL = strings.TrimSpace(callURL)
	matched := s.detector.MatchText(callURL)
	if len(matched) != 1 || matched[0] != callURL {
		base := s.detector.BaseURL()
		if base == "" {
			return formatting.CallRow{}, ahp.Response{}, ahp.ConfigurationMissing("customServerUrl")
		}
		return formatting.CallRow{}, ahp.Response{}, ahp.InvalidRequest("%s is not an AHP call on %s", ahp.RedactURL(callURL), base)
	}

	s.Scan(callURL)
	s.mu.Lock()
	index := s.byURL[callURL]
	s.mu.Unlock()
	return s.run(ctx, index)
}

func (s *Session) run(ctx context.Context, index int) (formatting.CallRow, ahp.Response, error) {
	s.mu.Lock()
	c := s.calls[index-1]
	if c.state == StateExecuting {
		row := s.rowLocked(index)
		s.mu.Unlock()
		return row, ahp.Response{}, fmt.Errorf("call %d is already executing", index)
	}
	c.state, c.detail = StateExecuting, ""
	callURL := c.url
	s.mu.Unlock()

	resp := s.exec.Execute(ctx, callURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.Success {
		c.state = StateSucceeded
	} else {
		c.state, c.detail = StateFailed, resp.Error
	}
	return s.rowLocked(index), resp, nil
}

// Status reports the broker state.
func (s *Session) Status() token.Status {
	return s.broker.Status()
}

// Forget drops the cached bearer token.
func (s *Session) Forget() error {
	return s.broker.Invalidate()
}

// Tools lists the tools published by the configured server.
func (s *Session) Tools(ctx context.Context) ([]ahp.ToolInfo, error) {
	if s.tools == nil {
		return nil, ahp.Internal("tool listing is not available in this session")
	}
	return s.tools.Tools(ctx)
}
