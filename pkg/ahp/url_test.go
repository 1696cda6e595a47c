package ahp

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthURL(t *testing.T) {
	got, err := AuthURL("http://server/", "k1", "a@b.com")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "k1", u.Query().Get("token"))
	assert.Equal(t, "a@b.com", u.Query().Get("agent_id"))
}

func TestWithBearerToken(t *testing.T) {
	t.Run("appends token", func(t *testing.T) {
		got, err := WithBearerToken("http://server/echo?text=hi", "T1")
		require.NoError(t, err)

		u, _ := url.Parse(got)
		assert.Equal(t, "hi", u.Query().Get("text"))
		assert.Equal(t, "T1", u.Query().Get("bearer_token"))
	})

	t.Run("overwrites caller supplied token", func(t *testing.T) {
		got, err := WithBearerToken("http://server/echo?bearer_token=forged&bearer_token=again", "T1")
		require.NoError(t, err)

		u, _ := url.Parse(got)
		assert.Equal(t, []string{"T1"}, u.Query()["bearer_token"])
	})

	t.Run("rejects non http schemes", func(t *testing.T) {
		_, err := WithBearerToken("javascript:alert(1)", "T1")
		assert.Error(t, err)
	})
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("http://server/echo?text=hi&bearer_token=secret")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "text=hi")
}

func TestIsReserved(t *testing.T) {
	base := "http://server"
	tests := []struct {
		url      string
		reserved bool
	}{
		{"http://server/", true},
		{"http://server/?f=home", true},
		{"http://server/auth?token=x", true},
		{"http://server/openapi", true},
		{"http://server/schema", true},
		{"http://server/session/start?bearer_token=x", true},
		{"http://server/health", true},
		{"http://server/robots.txt", true},
		{"http://server/echo?text=hi", false},
		{"http://server/generate_qr_code?data=hello", false},
		{"http://elsewhere/auth", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.reserved, IsReserved(base, tt.url))
		})
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "echo", ToolName("https://ahp.example.com/", "https://ahp.example.com/echo?text=hi"))
	assert.Equal(t, "", ToolName("https://ahp.example.com", "https://ahp.example.com/auth"))
	assert.Equal(t, "tools/echo", ToolName("https://ahp.example.com/v1", "https://ahp.example.com/v1/tools/echo"))
	assert.Equal(t, "", ToolName("https://ahp.example.com/v1", "https://ahp.example.com/v10/echo"))

	_, ok := ToolPath("https://ahp.example.com", "https://evil.example.com/echo")
	assert.False(t, ok)
	_, ok = ToolPath("https://ahp.example.com", "http://ahp.example.com/echo")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("acquire: %w", AuthRejected("invalid pre-shared key"))

	assert.Equal(t, KindAuthRejected, KindOf(wrapped))
	assert.Equal(t, "invalid pre-shared key", Message(wrapped))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindAuthRejected}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindToolError}))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))

	assert.True(t, KindNetworkFailure.Retryable())
	assert.False(t, KindToolError.Retryable())
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Failed("req-1", ToolFailure("insufficient funds"))
	assert.False(t, resp.Success)
	assert.Equal(t, "insufficient funds", resp.Error)
	assert.Equal(t, KindToolError, resp.Kind)

	err := resp.Err()
	require.Error(t, err)
	assert.Equal(t, KindToolError, KindOf(err))

	network := Failed("req-3", NetworkFailure("https://s", errors.New("dial tcp: connection refused")))
	assert.Equal(t, "could not reach https://s: dial tcp: connection refused", network.Error)
	assert.Equal(t, "could not reach https://s: dial tcp: connection refused", Message(network.Err()))

	assert.NoError(t, OK("req-2", []byte(`{"ok":1}`)).Err())
}
