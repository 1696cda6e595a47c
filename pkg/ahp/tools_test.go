package ahp

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolSchemas(t *testing.T) {
	body := `[
		{"name": "weather", "description": "Current weather", "parameters": {"type": "object",
			"properties": {"units": {"type": "string"}, "city": {"type": "string"}}, "required": ["city"]}},
		{"name": "echo", "description": "Echoes text", "parameters": {"properties": {"text": {"type": "string"}}, "required": ["text"]},
			"x-ahp-session-required": true},
		{"description": "nameless entries are skipped"}
	]`

	tools, err := ParseToolSchemas([]byte(body))
	require.NoError(t, err)
	require.Len(t, tools, 2)

	assert.Equal(t, "echo", tools[0].Name)
	assert.True(t, tools[0].SessionRequired)
	assert.Equal(t, []ToolParam{{Name: "text", Type: "string", Required: true}}, tools[0].Parameters)

	assert.Equal(t, "weather", tools[1].Name)
	assert.Equal(t, []ToolParam{
		{Name: "city", Type: "string", Required: true},
		{Name: "units", Type: "string"},
	}, tools[1].Parameters)

	wrapped, err := ParseToolSchemas([]byte(`{"tools": [{"name": "echo"}]}`))
	require.NoError(t, err)
	require.Len(t, wrapped, 1)

	_, err = ParseToolSchemas([]byte(`{"detail": "nope"}`))
	assert.Error(t, err)
}

func TestParseOpenAPI(t *testing.T) {
	body := `{"openapi": "3.1.0", "paths": {
		"/auth": {"get": {"summary": "Authenticate"}},
		"/openapi": {"get": {"summary": "This document"}},
		"/echo": {"get": {"summary": "Echo text", "parameters": [
			{"name": "text", "in": "query", "required": true, "schema": {"type": "string"}},
			{"name": "bearer_token", "in": "query", "required": true, "schema": {"type": "string"}},
			{"name": "session_id", "in": "query", "required": true},
			{"name": "X-Trace", "in": "header"}
		]}},
		"/upload": {"post": {"summary": "Not a GET tool"}}
	}}`

	tools, err := ParseOpenAPI([]byte(body))
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, ToolInfo{
		Name:            "echo",
		Description:     "Echo text",
		Parameters:      []ToolParam{{Name: "text", Type: "string", Required: true}},
		SessionRequired: true,
	}, tools[0])

	_, err = ParseOpenAPI([]byte(`[]`))
	assert.Error(t, err)
}

func TestReadLimited(t *testing.T) {
	body, err := ReadLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(body))

	_, err = ReadLimited(bytes.NewReader(make([]byte, 6)), 5)
	var tooLarge *BodyTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(5), tooLarge.Limit)
	assert.Equal(t, "response exceeds 5 bytes", err.Error())
}

func TestEndpointURL(t *testing.T) {
	got, err := EndpointURL("http://server/", SessionStartPath)
	require.NoError(t, err)
	assert.Equal(t, "http://server/session/start", got)

	_, err = EndpointURL("", SchemaPath)
	assert.Error(t, err)

	withSession, err := WithParams(got, map[string]string{ParamBearerToken: "T", ParamSessionID: "s1"})
	require.NoError(t, err)
	u, err := url.Parse(withSession)
	require.NoError(t, err)
	assert.Equal(t, "T", u.Query().Get(ParamBearerToken))
	assert.Equal(t, "s1", u.Query().Get(ParamSessionID))
}
