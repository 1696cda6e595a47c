package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"golang.org/x/sync/singleflight"
)

// maxSessionBodyBytes caps the /session/start response.
const maxSessionBodyBytes = 1 << 20

// sessionCache holds the server session opened for the current token.
type sessionCache struct {
	mu    sync.Mutex
	token string
	id    string

	group singleflight.Group
}

func (s *sessionCache) lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" || s.token != token {
		return "", false
	}
	return s.id, true
}

func (s *sessionCache) store(token, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.id = token, id
}

func (s *sessionCache) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.id = "", ""
}

// SessionID returns the session opened for the current token, if any.
func (e *Executor) SessionID() string {
	if e.sessions == nil {
		return ""
	}
	e.sessions.mu.Lock()
	defer e.sessions.mu.Unlock()
	return e.sessions.id
}

// sessionID returns the session for token, starting one on first use.
// Concurrent callers share one /session/start round trip.
func (e *Executor) sessionID(ctx context.Context, base, token string) (string, error) {
	if id, ok := e.sessions.lookup(token); ok {
		return id, nil
	}

	ch := e.sessions.group.DoChan(token, func() (interface{}, error) {
		if id, ok := e.sessions.lookup(token); ok {
			return id, nil
		}
		id, err := e.startSession(context.WithoutCancel(ctx), base, token)
		if err != nil {
			return "", err
		}
		e.sessions.store(token, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ahp.NetworkFailure(base, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (e *Executor) startSession(ctx context.Context, base, token string) (string, error) {
	endpoint, err := ahp.EndpointURL(base, ahp.SessionStartPath)
	if err != nil {
		return "", ahp.ConfigurationMissing("customServerUrl")
	}
	startURL, err := ahp.WithBearerToken(endpoint, token)
	if err != nil {
		return "", ahp.InvalidRequest("%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, startURL, nil)
	if err != nil {
		return "", ahp.Internal("failed to build session request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", ahp.NetworkFailure(base, ahp.RedactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		e.dropToken()
	}

	body, err := ahp.ReadLimited(resp.Body, maxSessionBodyBytes)
	if err != nil {
		return "", ahp.ToolFailure("session start failed: " + err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, found := ahp.ErrorMessage(body)
		if !found {
			msg = fmt.Sprintf("session start failed (HTTP %d)", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", ahp.AuthRejected(msg)
		}
		return "", ahp.ToolFailure(msg)
	}

	var parsed struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.SessionID == "" {
		return "", ahp.ToolFailure("session start response did not contain a session_id")
	}

	logging.Info("Pipeline", "Started server session %s on %s", parsed.SessionID, base)
	return parsed.SessionID, nil
}
