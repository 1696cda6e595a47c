package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ahpbridge/internal/config"
	"ahpbridge/internal/document"
	"ahpbridge/pkg/ahp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AHP_SERVER_URL", "")
	t.Setenv("AHP_EMAIL", "")
	t.Setenv("AHP_PRE_SHARED_KEY", "")
}

// newServer serves /auth and an echo tool.
func newServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var authCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&authCalls, 1)
		_, _ = w.Write([]byte(`{"bearer_token":"T1"}`))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bearer_token") != "T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"result":"` + r.URL.Query().Get("text") + `"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &authCalls
}

func writeSettings(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	settings := config.GetDefaultSettings()
	settings.ServerType = config.ServerTypeCustom
	settings.CustomServerURL = serverURL
	settings.Email = "a@b.com"
	settings.PreSharedKey = "k1"
	settings.Bridge.SettleDelay = 0
	require.NoError(t, config.SaveSettings(dir, settings))
	return dir
}

func TestNewApplication_InvalidLogLevel(t *testing.T) {
	_, err := NewApplication(&Config{LogLevel: "loud", ConfigDir: t.TempDir(), Silent: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewApplication_LogsToConfiguredOutput(t *testing.T) {
	clearEnv(t)
	var buf bytes.Buffer
	application, err := NewApplication(&Config{LogLevel: "debug", ConfigDir: t.TempDir(), LogOutput: &buf})
	require.NoError(t, err)
	defer application.Close()
	assert.Contains(t, buf.String(), "Initialized services")
}

func TestApplication_ExecuteThroughRouter(t *testing.T) {
	clearEnv(t)
	server, authCalls := newServer(t)
	dir := writeSettings(t, server.URL)

	application, err := NewApplication(&Config{ConfigDir: dir, Silent: true})
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	defer application.Close()

	assert.Error(t, application.Start(context.Background()), "start twice")
	assert.Equal(t, server.URL, application.Settings().ServerBaseURL())

	client := application.Services().Client
	resp := client.Execute(context.Background(), server.URL+"/echo?text=hi")
	require.True(t, resp.Success, resp.Error)
	assert.JSONEq(t, `{"result":"hi"}`, string(resp.Data))

	resp = client.Execute(context.Background(), server.URL+"/echo?text=again")
	require.True(t, resp.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(authCalls))

	// A second application sharing the directory reuses the persisted token.
	second, err := NewApplication(&Config{ConfigDir: dir, Silent: true})
	require.NoError(t, err)
	require.NoError(t, second.Start(context.Background()))
	defer second.Close()
	resp = second.Services().Client.Execute(context.Background(), server.URL+"/echo?text=shared")
	require.True(t, resp.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(authCalls))
}

func TestApplication_MissingCredentials(t *testing.T) {
	clearEnv(t)
	application, err := NewApplication(&Config{ConfigDir: t.TempDir(), Silent: true})
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	defer application.Close()

	resp := application.Services().Client.Execute(context.Background(), config.DefaultServerURL+"/echo?text=hi")
	require.False(t, resp.Success)
	assert.Equal(t, ahp.KindConfigurationMissing, resp.Kind)
}

func TestApplication_ControllerAndSession(t *testing.T) {
	clearEnv(t)
	server, _ := newServer(t)
	application, err := NewApplication(&Config{ConfigDir: writeSettings(t, server.URL), Silent: true})
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	defer application.Close()

	doc, err := document.ParseString(`<html><body><div id="thread"><pre>` + server.URL +
		`/echo?text=page</pre></div><textarea id="prompt-textarea"></textarea></body></html>`)
	require.NoError(t, err)

	ctrl, err := application.NewController(doc)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()

	calls := ctrl.Calls()
	require.Len(t, calls, 1)
	_, err = ctrl.Activate(context.Background(), calls[0].Affordance)
	require.NoError(t, err)
	assert.Contains(t, doc.Text(doc.First("#prompt-textarea")), `"result": "page"`)

	session := application.NewSession()
	rows := session.Scan("try " + server.URL + "/echo?text=repl")
	require.Len(t, rows, 1)
	_, resp, err := session.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":"repl"}`, string(resp.Data))
}

func TestApplication_CloseWithoutStart(t *testing.T) {
	clearEnv(t)
	application, err := NewApplication(&Config{ConfigDir: t.TempDir(), Silent: true})
	require.NoError(t, err)
	application.Close()
}
