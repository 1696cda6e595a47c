package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ahpbridge/internal/config"
	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultHTTPTimeout bounds one authentication round trip.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultDeclaredLifetime is assumed when the server omits expires_in.
	DefaultDeclaredLifetime = time.Hour

	// maxAuthBodyBytes caps the authentication response read into memory.
	maxAuthBodyBytes = 1 << 20
)

// CredentialSource supplies the current credential. *config.Manager
// satisfies it.
type CredentialSource interface {
	Credential() config.Credential
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() config.Credential

// Credential implements CredentialSource.
func (f CredentialFunc) Credential() config.Credential {
	return f()
}

// authResponse is the body of GET /auth.
type authResponse struct {
	BearerToken string `json:"bearer_token"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Broker obtains and caches bearer tokens. It is the only component that
// reads or writes the cached token. Safe for concurrent use.
type Broker struct {
	creds      CredentialSource
	store      Store
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time

	// group collapses concurrent acquisitions for one configuration.
	group singleflight.Group
}

// Option configures a Broker.
type Option func(*Broker)

// WithStore sets the token store. The default is an in-memory store.
func WithStore(store Store) Option {
	return func(b *Broker) {
		b.store = store
	}
}

// WithHTTPClient sets the client used for the auth endpoint.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(b *Broker) {
		b.httpClient = httpClient
	}
}

// WithSafetyMargin sets how much shorter than the declared lifetime a
// token is cached.
func WithSafetyMargin(margin time.Duration) Option {
	return func(b *Broker) {
		b.margin = margin
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		b.now = now
	}
}

// NewBroker creates a broker reading credentials from creds.
func NewBroker(creds CredentialSource, opts ...Option) *Broker {
	b := &Broker{
		creds:      creds,
		store:      NewMemoryStore(),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		margin:     config.DefaultTokenSafetyMargin,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AcquireToken returns a bearer token valid for the current credential.
//
// An incomplete credential fails with ConfigurationMissing before the cache
// is consulted, so clearing the key stops further calls. A valid cached
// token is then returned without any network call; otherwise a new token
// is fetched, cached and returned. Failures are *ahp.Error values of kind
// ConfigurationMissing, AuthRejected or NetworkFailure.
func (b *Broker) AcquireToken(ctx context.Context) (string, error) {
	cred := b.creds.Credential()

	if missing := cred.Missing(); len(missing) > 0 {
		return "", ahp.ConfigurationMissing(missing...)
	}

	if tok, ok := b.cached(cred); ok {
		return tok.Value, nil
	}

	key := cred.ServerBaseURL + "\x00" + cred.AgentIdentity
	ch := b.group.DoChan(key, func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the group.
		if tok, ok := b.cached(cred); ok {
			return tok.Value, nil
		}
		// The fetch outlives any single caller's cancellation; the HTTP
		// client timeout still bounds it.
		return b.fetch(context.WithoutCancel(ctx), cred)
	})

	select {
	case <-ctx.Done():
		return "", ahp.NetworkFailure(cred.ServerBaseURL, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// cached returns the stored token when it is valid for cred.
func (b *Broker) cached(cred config.Credential) (CachedToken, bool) {
	tok, ok, err := b.store.Load()
	if err != nil {
		logging.Warn("TokenBroker", "Ignoring unreadable token cache: %v", err)
		return CachedToken{}, false
	}
	if !ok || !tok.Valid(b.now()) || !tok.IssuedFor(cred.ServerBaseURL, cred.AgentIdentity) {
		return CachedToken{}, false
	}
	return tok, true
}

// fetch performs the authentication round trip and caches the result.
func (b *Broker) fetch(ctx context.Context, cred config.Credential) (string, error) {
	authURL, err := ahp.AuthURL(cred.ServerBaseURL, cred.PreSharedKey, cred.AgentIdentity)
	if err != nil {
		return "", ahp.ConfigurationMissing("customServerUrl")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", ahp.Internal("failed to build auth request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	logging.Debug("TokenBroker", "Requesting bearer token from %s for %s (key %s)",
		cred.ServerBaseURL, cred.AgentIdentity, logging.MaskSecret(cred.PreSharedKey))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", ahp.NetworkFailure(cred.ServerBaseURL, ahp.RedactError(err))
	}
	defer resp.Body.Close()

	body, err := ahp.ReadLimited(resp.Body, maxAuthBodyBytes)
	if err != nil {
		var tooLarge *ahp.BodyTooLargeError
		if errors.As(err, &tooLarge) {
			logging.Warn("TokenBroker", "Authentication response from %s too large", cred.ServerBaseURL)
			return "", ahp.AuthRejected("authentication " + tooLarge.Error())
		}
		return "", ahp.NetworkFailure(cred.ServerBaseURL, err)
	}

	var parsed authResponse
	parseErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || parseErr != nil || parsed.BearerToken == "" {
		msg, found := ahp.ErrorMessage(body)
		switch {
		case found:
		case parsed.Message != "" && resp.StatusCode >= 400:
			msg = parsed.Message
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			msg = fmt.Sprintf("authentication failed (HTTP %d)", resp.StatusCode)
		default:
			msg = "authentication response did not contain a bearer token"
		}
		logging.Warn("TokenBroker", "Authentication against %s rejected: %s", cred.ServerBaseURL, msg)
		return "", ahp.AuthRejected(msg)
	}

	declared := DefaultDeclaredLifetime
	if parsed.ExpiresIn > 0 {
		declared = time.Duration(parsed.ExpiresIn) * time.Second
	}

	now := b.now()
	tok := CachedToken{
		Value:         parsed.BearerToken,
		IssuedAt:      now,
		ExpiresAt:     now.Add(b.cacheLifetime(declared)),
		ServerURL:     cred.ServerBaseURL,
		AgentIdentity: cred.AgentIdentity,
	}

	if err := b.store.Save(tok); err != nil {
		// The token is still good for this caller; the next one refetches.
		logging.Warn("TokenBroker", "Failed to cache bearer token: %v", err)
	}

	logging.Info("TokenBroker", "Acquired bearer token for %s, cached until %s",
		cred.ServerBaseURL, tok.ExpiresAt.Format(time.RFC3339))
	return tok.Value, nil
}

// cacheLifetime applies the safety margin to the declared lifetime. A
// lifetime shorter than the margin is halved instead.
func (b *Broker) cacheLifetime(declared time.Duration) time.Duration {
	if b.margin <= 0 {
		return declared
	}
	if declared > b.margin {
		return declared - b.margin
	}
	return declared / 2
}

// Invalidate drops the cached token so the next acquisition authenticates.
func (b *Broker) Invalidate() error {
	return b.store.Clear()
}

// Status summarizes the broker without touching the network.
type Status struct {
	ServerURL     string
	AgentIdentity string
	Missing       []string
	HasToken      bool
	ExpiresAt     time.Time
	Remaining     time.Duration
}

// Configured reports whether the credential is complete.
func (s Status) Configured() bool {
	return len(s.Missing) == 0
}

// Status reports the current credential and cache state.
func (b *Broker) Status() Status {
	cred := b.creds.Credential()
	st := Status{
		ServerURL:     cred.ServerBaseURL,
		AgentIdentity: cred.AgentIdentity,
		Missing:       cred.Missing(),
	}
	if tok, ok := b.cached(cred); ok {
		st.HasToken = true
		st.ExpiresAt = tok.ExpiresAt
		st.Remaining = tok.ExpiresAt.Sub(b.now())
	}
	return st
}

// Token implements oauth2.TokenSource. Expiry is the end of the cache
// entry, so oauth2.ReuseTokenSource wrappers refresh no later than the
// broker would.
func (b *Broker) Token() (*oauth2.Token, error) {
	return b.TokenContext(context.Background())
}

// TokenContext is Token bounded by ctx.
func (b *Broker) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	value, err := b.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: value, TokenType: "Bearer"}
	if cached, ok := b.cached(b.creds.Credential()); ok && cached.Value == value {
		tok.Expiry = cached.ExpiresAt
	}
	return tok, nil
}

var _ oauth2.TokenSource = (*Broker)(nil)

