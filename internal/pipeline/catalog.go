package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"golang.org/x/oauth2"
)

// contextTokenSource is an oauth2.TokenSource that honours a context.
// *token.Broker implements it.
type contextTokenSource interface {
	TokenContext(ctx context.Context) (*oauth2.Token, error)
}

// Catalog lists the tools a server publishes. It reads the /schema listing
// and falls back to the /openapi document when the server has none.
type Catalog struct {
	tokens     oauth2.TokenSource
	httpClient *http.Client
	serverURL  func() string
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogHTTPClient sets the client used for catalog requests.
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(cat *Catalog) {
		cat.httpClient = c
	}
}

// NewCatalog creates a catalog for the server returned by serverURL,
// authenticating with tokens.
func NewCatalog(tokens oauth2.TokenSource, serverURL func() string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		serverURL:  serverURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools fetches the tool listing of the configured server.
func (c *Catalog) Tools(ctx context.Context) ([]ahp.ToolInfo, error) {
	base := c.serverURL()
	if base == "" {
		return nil, ahp.ConfigurationMissing("customServerUrl")
	}

	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.get(ctx, base, ahp.SchemaPath, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status <= 299 {
		tools, perr := ahp.ParseToolSchemas(body)
		if perr == nil {
			return tools, nil
		}
		logging.Debug("Pipeline", "Schema listing of %s not usable, trying OpenAPI: %v", base, perr)
	} else if status != http.StatusNotFound {
		return nil, catalogFailure(ahp.SchemaPath, status, body)
	}

	body, status, err = c.get(ctx, base, ahp.OpenAPIPath, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, catalogFailure(ahp.OpenAPIPath, status, body)
	}
	tools, err := ahp.ParseOpenAPI(body)
	if err != nil {
		return nil, ahp.ToolFailure(err.Error())
	}
	return tools, nil
}

func (c *Catalog) token(ctx context.Context) (*oauth2.Token, error) {
	if src, ok := c.tokens.(contextTokenSource); ok {
		return src.TokenContext(ctx)
	}
	return c.tokens.Token()
}

func (c *Catalog) get(ctx context.Context, base, path, bearer string) ([]byte, int, error) {
	endpoint, err := ahp.EndpointURL(base, path)
	if err != nil {
		return nil, 0, ahp.ConfigurationMissing("customServerUrl")
	}
	authed, err := ahp.WithBearerToken(endpoint, bearer)
	if err != nil {
		return nil, 0, ahp.InvalidRequest("%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authed, nil)
	if err != nil {
		return nil, 0, ahp.Internal("failed to build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, ahp.NetworkFailure(base, ahp.RedactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(invalidator); ok {
			if err := inv.Invalidate(); err != nil {
				logging.Warn("Pipeline", "Failed to drop rejected bearer token: %v", err)
			}
		}
	}

	body, err := ahp.ReadLimited(resp.Body, DefaultMaxResponseBytes)
	if err != nil {
		var tooLarge *ahp.BodyTooLargeError
		if errors.As(err, &tooLarge) {
			return nil, 0, ahp.ToolFailure(tooLarge.Error())
		}
		return nil, 0, ahp.NetworkFailure(base, err)
	}
	return body, resp.StatusCode, nil
}

func catalogFailure(path string, status int, body []byte) error {
	if msg, found := ahp.ErrorMessage(body); found {
		return ahp.ToolFailure(msg)
	}
	return ahp.ToolFailure(fmt.Sprintf("/%s returned HTTP %d", path, status))
}
