package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ahpbridge/internal/app"
	"ahpbridge/internal/cli"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configDir string
	logLevel  string
}

// rootCmd represents the base command for the ahpbridge application.
// It is the entry point when the application is called without any subcommands.
var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ahpbridge",
		Short: "Run Agent Hypercontext Protocol calls found in chat pages",
		Long: `ahpbridge detects Agent Hypercontext Protocol (AHP) call URLs in chat
pages and text, executes them against the configured AHP server with a
cached bearer token, and injects the results back into the chat input.

Configure the server and credentials once:
  ahpbridge configure --email you@example.com --pre-shared-key <key>

Then run a call, process a saved chat page, or serve the bridge over MCP:
  ahpbridge exec "https://ahp.nuts.services/echo?text=hi"
  ahpbridge bridge chat.html --execute --out chat.out.html
  ahpbridge serve`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		// Errors are described by Execute with connection guidance.
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config", "", "Configuration directory (default is $HOME/.config/ahpbridge)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config, info)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newSelfUpdateCmd())
	root.AddCommand(newConfigureCmd(opts))
	root.AddCommand(newAuthCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newScanCmd(opts))
	root.AddCommand(newToolsCmd(opts))
	root.AddCommand(newBridgeCmd(opts))
	root.AddCommand(newReplCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ahpbridge version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	return cli.ExitCode(err)
}

// callError carries the endpoint a failed call targeted, so connection
// guidance can name it.
type callError struct {
	err      error
	endpoint string
}

func (e *callError) Error() string { return e.err.Error() }

func (e *callError) Unwrap() error { return e.err }

func describeError(err error) string {
	endpoint := "the AHP server"
	var ce *callError
	if errors.As(err, &ce) && ce.endpoint != "" {
		endpoint = ce.endpoint
	}
	return cli.Describe(err, endpoint)
}

// commandContext returns the command's context, which is unset when a
// command is executed directly in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newApplication bootstraps the services with logs on the command's
// stderr. The caller closes it.
func (o *rootOptions) newApplication(cmd *cobra.Command, watch bool) (*app.Application, error) {
	cfg := app.NewConfig(o.logLevel, o.configDir)
	cfg.LogOutput = cmd.ErrOrStderr()
	cfg.Watch = watch
	return app.NewApplication(cfg)
}

// startApplication bootstraps the services and starts the router.
func (o *rootOptions) startApplication(cmd *cobra.Command, watch bool) (*app.Application, error) {
	application, err := o.newApplication(cmd, watch)
	if err != nil {
		return nil, err
	}
	if err := application.Start(commandContext(cmd)); err != nil {
		application.Close()
		return nil, err
	}
	return application, nil
}
