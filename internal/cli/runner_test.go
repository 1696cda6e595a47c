package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	resp ahp.Response
	urls []string
}

func (s *stubExecutor) Execute(ctx context.Context, callURL string) ahp.Response {
	s.urls = append(s.urls, callURL)
	return s.resp
}

func TestCallRunner_Success(t *testing.T) {
	exec := &stubExecutor{resp: ahp.OK("1", json.RawMessage(`{"result":"hi"}`))}
	var out, errOut bytes.Buffer
	r := NewCallRunner(exec, formatting.New(formatting.Options{Format: formatting.FormatJSON}),
		WithQuiet(true), WithWriters(&out, &errOut))

	resp, err := r.Run(context.Background(), "https://s/echo?text=hi")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"https://s/echo?text=hi"}, exec.urls)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "hi", doc["data"].(map[string]interface{})["result"])
	assert.Empty(t, errOut.String(), "quiet runs draw no spinner")
}

func TestCallRunner_FailureReturnsKind(t *testing.T) {
	exec := &stubExecutor{resp: ahp.Failed("1", ahp.ToolFailure("insufficient funds"))}
	var out bytes.Buffer
	r := NewCallRunner(exec, formatting.New(formatting.Options{}), WithQuiet(true), WithWriters(&out, &out))

	_, err := r.Run(context.Background(), "https://s/generate_qr_code")
	require.Error(t, err)
	assert.Equal(t, ExitCodeToolError, ExitCode(err))
	assert.Equal(t, "Error (tool_error): insufficient funds\n", out.String())
}

func TestOutputFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var flags OutputFlags
	RegisterOutputFlags(cmd, &flags, formatting.FormatConsole)

	require.NoError(t, cmd.Flags().Parse([]string{"-o", "yaml", "--no-color"}))
	assert.Equal(t, "yaml", flags.OutputFormat)
	assert.True(t, flags.NoColor)

	f, err := flags.Formatter()
	require.NoError(t, err)
	assert.IsType(t, &formatting.YAMLFormatter{}, f)

	flags.OutputFormat = "xml"
	_, err = flags.Formatter()
	assert.Error(t, err)
}

func TestEndpointOf(t *testing.T) {
	assert.Equal(t, "https://s", endpointOf("https://s/echo?text=hi"))
	assert.Equal(t, "not a url", endpointOf("not a url"))
}
