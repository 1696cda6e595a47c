package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ahpbridge/internal/cli"
	"ahpbridge/pkg/ahp"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
	if GetVersion() != testVersion {
		t.Errorf("Expected GetVersion to return %s, got %s", testVersion, GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "ahpbridge" {
		t.Errorf("Expected Use to be 'ahpbridge', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	for _, name := range []string{"config", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag --%s", name)
		}
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "ahpbridge version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	expected := "ahpbridge version 1.0.0\n"
	if buf.String() != expected {
		t.Errorf("Expected version output %q, got %q", expected, buf.String())
	}
}

func TestSubcommands(t *testing.T) {
	expectedCommands := []string{"version", "self-update", "configure", "auth", "exec", "scan", "bridge", "repl", "serve"}
	foundCommands := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "ahpbridge") {
		t.Errorf("Help output should contain 'ahpbridge'. Got: %q", output)
	}
	if !strings.Contains(output, "Agent Hypercontext Protocol") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), cli.ExitCodeError},
		{"configuration missing", ahp.ConfigurationMissing("email"), cli.ExitCodeConfigurationMissing},
		{"auth rejected behind call error", &callError{err: ahp.AuthRejected("bad key")}, cli.ExitCodeAuthRejected},
		{"tool error wrapped", &callError{err: errors.Join(errors.New("1 of 1 calls failed"), ahp.ToolFailure("nope"))}, cli.ExitCodeToolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDescribeErrorUsesCallEndpoint(t *testing.T) {
	err := &callError{
		err:      ahp.NetworkFailure("http://127.0.0.1:1", errors.New("dial tcp: connection refused")),
		endpoint: "http://127.0.0.1:1",
	}
	if got := describeError(err); !strings.Contains(got, "http://127.0.0.1:1") {
		t.Errorf("Expected description to name the endpoint, got %q", got)
	}
	if got := describeError(errors.New("boom")); got != "boom" {
		t.Errorf("Expected plain errors unchanged, got %q", got)
	}
}
