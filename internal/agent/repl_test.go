package agent

import (
	"bytes"
	"context"
	"testing"

	"ahpbridge/internal/agent/commands"
	"ahpbridge/internal/formatting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer, *fakeExecutor) {
	t.Helper()
	exec := &fakeExecutor{}
	s, _ := newTestSession(exec)
	var out bytes.Buffer
	logger := NewLoggerWithWriters(false, false, &out, &out)
	return NewREPL(s, logger, formatting.New(formatting.Options{}), t.TempDir()), &out, exec
}

func TestREPL_PastedTextIsScanned(t *testing.T) {
	r, out, _ := newTestREPL(t)

	require.NoError(t, r.executeCommand(context.Background(), "Sure! Call "+base+"/echo?text=hi to test."))
	assert.Contains(t, out.String(), "Detected calls (1):")
	assert.Contains(t, out.String(), "run <index>")
	assert.Equal(t, "ahp[1]» ", r.buildPrompt())

	out.Reset()
	require.NoError(t, r.executeCommand(context.Background(), "hello there"))
	assert.Contains(t, out.String(), "No new AHP calls found")
}

func TestREPL_RunDetectedCall(t *testing.T) {
	r, out, exec := newTestREPL(t)
	assert.Equal(t, "ahp» ", r.buildPrompt())

	require.NoError(t, r.executeCommand(context.Background(), base+"/echo?text=hi"))
	require.NoError(t, r.executeCommand(context.Background(), "RUN 1"))
	assert.Equal(t, []string{base + "/echo?text=hi"}, exec.urls)
	assert.Contains(t, out.String(), `"result": "ok"`)
	assert.Contains(t, out.String(), "Call 1")
}

func TestREPL_Exit(t *testing.T) {
	r, _, _ := newTestREPL(t)
	assert.ErrorIs(t, r.executeCommand(context.Background(), "quit"), commands.ErrExit)
	assert.NoError(t, r.executeCommand(context.Background(), "   "))
}

func TestREPL_Completer(t *testing.T) {
	r, _, _ := newTestREPL(t)
	completer := r.createCompleter()

	names := make(map[string]bool)
	for _, child := range completer.GetChildren() {
		names[string(child.GetName())] = true
	}
	assert.True(t, names["run "], "prefix completer items carry a trailing space")
	assert.True(t, names["help "])
}
