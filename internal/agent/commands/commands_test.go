package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ahpbridge/internal/formatting"
	"ahpbridge/internal/token"
	"ahpbridge/pkg/ahp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	calls   []formatting.CallRow
	resp    ahp.Response
	runErr  error
	ran     []string
	forgot  bool
	scanned []string
}

func (f *fakeSession) Scan(text string) []formatting.CallRow {
	f.scanned = append(f.scanned, text)
	if !strings.Contains(text, "http") {
		return nil
	}
	row := formatting.CallRow{Index: len(f.calls) + 1, URL: text}
	f.calls = append(f.calls, row)
	return []formatting.CallRow{row}
}

func (f *fakeSession) Calls() []formatting.CallRow { return f.calls }

func (f *fakeSession) Run(ctx context.Context, ref string) (formatting.CallRow, ahp.Response, error) {
	f.ran = append(f.ran, ref)
	if f.runErr != nil {
		return formatting.CallRow{}, ahp.Response{}, f.runErr
	}
	return formatting.CallRow{Index: 1, URL: "https://s/echo"}, f.resp, nil
}

func (f *fakeSession) Status() token.Status {
	return token.Status{ServerURL: "https://s", Missing: []string{"email"}}
}

func (f *fakeSession) Forget() error {
	f.forgot = true
	return nil
}

type captureOutput struct {
	lines  []string
	errors []string
}

func (c *captureOutput) Output(format string, args ...interface{}) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}
func (c *captureOutput) OutputLine(format string, args ...interface{}) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}
func (c *captureOutput) Info(format string, args ...interface{})  {}
func (c *captureOutput) Debug(format string, args ...interface{}) {}
func (c *captureOutput) Error(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}
func (c *captureOutput) Success(format string, args ...interface{}) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *captureOutput) text() string { return strings.Join(c.lines, "\n") }

func newTestRegistry(s *fakeSession, out *captureOutput) *Registry {
	base := NewBaseCommand(s, out, nil)
	r := NewRegistry()
	r.Register("help", NewHelpCommand(base, r))
	r.Register("exit", NewExitCommand(base))
	r.Register("scan", NewScanCommand(base))
	r.Register("calls", NewCallsCommand(base))
	r.Register("run", NewRunCommand(base))
	r.Register("status", NewStatusCommand(base))
	return r
}

func TestRegistry_Aliases(t *testing.T) {
	r := newTestRegistry(&fakeSession{}, &captureOutput{})

	for _, name := range []string{"quit", "q", "?", "ls", "x", "auth"} {
		_, ok := r.Get(name)
		assert.True(t, ok, name)
	}
	_, ok := r.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"calls", "exit", "help", "run", "scan", "status"}, r.List())
	assert.Contains(t, r.AllCompletions(), "quit")

	cmd, args, ok := r.Resolve("  RUN 2 extra")
	require.True(t, ok)
	assert.Equal(t, "run <index|url>", cmd.Usage())
	assert.Equal(t, []string{"2", "extra"}, args)
	_, _, ok = r.Resolve("https://s/echo?text=hi")
	assert.False(t, ok)
	_, _, ok = r.Resolve("   ")
	assert.False(t, ok)
}

func TestExitCommand(t *testing.T) {
	r := newTestRegistry(&fakeSession{}, &captureOutput{})
	cmd, _ := r.Get("quit")
	assert.ErrorIs(t, cmd.Execute(context.Background(), nil), ErrExit)

	out := &captureOutput{}
	session := &fakeSession{calls: []formatting.CallRow{
		{Index: 1, State: "Executing"},
		{Index: 2, State: "Failed"},
		{Index: 3, State: "Succeeded"},
	}}
	cmd, _ = newTestRegistry(session, out).Get("exit")
	assert.ErrorIs(t, cmd.Execute(context.Background(), nil), ErrExit)
	assert.Equal(t, []string{"1 call(s) still executing; their results are discarded"}, out.errors)
	assert.Contains(t, out.text(), "1 call(s) failed this session")
}

func TestHelpCommand(t *testing.T) {
	out := &captureOutput{}
	r := newTestRegistry(&fakeSession{}, out)
	cmd, _ := r.Get("help")

	require.NoError(t, cmd.Execute(context.Background(), nil))
	assert.Contains(t, out.text(), "run <index|url>")

	out.lines = nil
	require.NoError(t, cmd.Execute(context.Background(), []string{"run"}))
	assert.Contains(t, out.text(), "Aliases: exec, x")

	require.NoError(t, cmd.Execute(context.Background(), []string{"bogus"}))
	assert.Equal(t, []string{"Unknown command: bogus"}, out.errors)
}

func TestScanAndCallsCommands(t *testing.T) {
	s := &fakeSession{}
	out := &captureOutput{}
	r := newTestRegistry(s, out)

	scan, _ := r.Get("scan")
	assert.Error(t, scan.Execute(context.Background(), nil))

	require.NoError(t, scan.Execute(context.Background(), []string{"nothing", "here"}))
	assert.Equal(t, []string{"nothing here"}, s.scanned)
	assert.Contains(t, out.text(), "No new AHP calls found.")

	require.NoError(t, scan.Execute(context.Background(), []string{"https://s/echo?text=hi"}))
	assert.Contains(t, out.text(), "https://s/echo?text=hi")

	out.lines = nil
	calls, _ := r.Get("ls")
	require.NoError(t, calls.Execute(context.Background(), nil))
	assert.Contains(t, out.text(), "Detected calls (1):")
}

func TestRunCommand(t *testing.T) {
	s := &fakeSession{resp: ahp.OK("", json.RawMessage(`{"result":"hi"}`))}
	out := &captureOutput{}
	r := newTestRegistry(s, out)
	run, _ := r.Get("run")

	assert.Error(t, run.Execute(context.Background(), nil))

	require.NoError(t, run.Execute(context.Background(), []string{"1"}))
	assert.Equal(t, []string{"1"}, s.ran)
	assert.Contains(t, out.text(), `"result": "hi"`)

	s.resp = ahp.Failed("", ahp.ToolFailure("insufficient funds"))
	err := run.Execute(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.Equal(t, ahp.KindToolError, ahp.KindOf(err))

	s.runErr = errors.New("no call 7")
	assert.EqualError(t, run.Execute(context.Background(), []string{"7"}), "no call 7")
}

func TestStatusCommand(t *testing.T) {
	s := &fakeSession{}
	out := &captureOutput{}
	r := newTestRegistry(s, out)
	status, _ := r.Get("auth")

	require.NoError(t, status.Execute(context.Background(), nil))
	assert.Contains(t, out.text(), "Missing:  email")

	require.NoError(t, status.Execute(context.Background(), []string{"logout"}))
	assert.True(t, s.forgot)

	assert.Error(t, status.Execute(context.Background(), []string{"bogus"}))
}
