package cmd

import (
	"fmt"
	"time"

	"ahpbridge/internal/cli"
	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// newAuthCmd creates the auth command group.
func newAuthCmd(root *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the AHP bearer token",
		Long: `Manage the bearer token obtained from the AHP server's /auth endpoint.

Tokens are requested with the configured email and pre-shared key, cached
under the configuration directory and refreshed shortly before they expire.

Examples:
  ahpbridge auth login      # Request a fresh token now
  ahpbridge auth status     # Show credentials and the cached token
  ahpbridge auth logout     # Drop the cached token`,
	}
	authCmd.AddCommand(newAuthLoginCmd(root))
	authCmd.AddCommand(newAuthStatusCmd(root))
	authCmd.AddCommand(newAuthLogoutCmd(root))
	return authCmd
}

func newAuthLoginCmd(root *rootOptions) *cobra.Command {
	var flags cli.OutputFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a fresh bearer token",
		Long: `Drop any cached token and authenticate against the AHP server with the
configured email and pre-shared key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := flags.Formatter()
			if err != nil {
				return err
			}
			application, err := root.newApplication(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			broker := application.Services().Broker
			if err := broker.Invalidate(); err != nil {
				return err
			}
			if _, err := broker.AcquireToken(commandContext(cmd)); err != nil {
				return &callError{err: err, endpoint: application.Settings().ServerBaseURL()}
			}

			st := broker.Status()
			if !flags.Quiet && flags.OutputFormat == string(formatting.FormatConsole) {
				msg := fmt.Sprintf("Authenticated as %s, token valid for %s", st.AgentIdentity, st.Remaining.Round(time.Second))
				if !flags.NoColor {
					msg = text.FgGreen.Sprint(msg)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStatus(st))
			return nil
		},
	}
	cli.RegisterOutputFlags(cmd, &flags, formatting.FormatConsole)
	return cmd
}

func newAuthStatusCmd(root *rootOptions) *cobra.Command {
	var flags cli.OutputFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show the configured server and identity, which credentials are missing,
and whether a bearer token is cached and for how long it stays valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := flags.Formatter()
			if err != nil {
				return err
			}
			application, err := root.newApplication(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStatus(application.Services().Broker.Status()))
			return nil
		},
	}
	cli.RegisterOutputFlags(cmd, &flags, formatting.FormatTable)
	return cmd
}

func newAuthLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the cached bearer token",
		Long: `Remove the cached bearer token. The next call authenticates again with
the configured credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.newApplication(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Services().Broker.Invalidate(); err != nil {
				return ahp.Internal("failed to clear token: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cached bearer token for %s\n", application.Settings().ServerBaseURL())
			return nil
		},
	}
}
