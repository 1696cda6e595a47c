package cmd

import (
	"net/url"
	"strings"

	"ahpbridge/internal/cli"
	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/spf13/cobra"
)

func newExecCmd(root *rootOptions) *cobra.Command {
	var flags cli.OutputFlags
	cmd := &cobra.Command{
		Use:     "exec <call-url>",
		Aliases: []string{"call"},
		Short:   "Execute one AHP call URL",
		Long: `Execute an AHP call URL against the configured server and print the result.

The URL must point at the configured server. A bearer token is acquired
first (or reused from the cache) and replaces any bearer_token parameter
in the URL.

Examples:
  ahpbridge exec "https://ahp.nuts.services/echo?text=hello"
  ahpbridge exec -o json "http://localhost:5000/generate_qr_code?data=hi"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := flags.Formatter()
			if err != nil {
				return err
			}
			callURL := strings.TrimSpace(args[0])

			application, err := root.startApplication(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			services := application.Services()
			if err := checkCallURL(services.Engine.BaseURL(), services.Engine.MatchText(callURL), callURL); err != nil {
				return err
			}

			runner := cli.NewCallRunner(services.Client, formatter,
				cli.WithQuiet(flags.Quiet || flags.OutputFormat != string(formatting.FormatConsole)),
				cli.WithColor(!flags.NoColor),
				cli.WithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			if _, err := runner.Run(commandContext(cmd), callURL); err != nil {
				return &callError{err: err, endpoint: hostOf(callURL)}
			}
			return nil
		},
	}
	cli.RegisterOutputFlags(cmd, &flags, formatting.FormatConsole)
	return cmd
}

// checkCallURL refuses URLs that are not a single call on the configured
// server, so the bearer token is never sent elsewhere.
func checkCallURL(base string, matched []string, callURL string) error {
	if base == "" {
		return ahp.ConfigurationMissing("customServerUrl")
	}
	if len(matched) != 1 || matched[0] != callURL {
		return ahp.InvalidRequest("%s is not an AHP call on %s", ahp.RedactURL(callURL), base)
	}
	return nil
}

func hostOf(callURL string) string {
	u, err := url.Parse(callURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
