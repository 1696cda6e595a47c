package cmd

import (
	"ahpbridge/internal/agent"
	"ahpbridge/internal/formatting"

	"github.com/spf13/cobra"
)

func newReplCmd(root *rootOptions) *cobra.Command {
	var (
		verbose bool
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for detecting and running AHP calls",
		Long: `Start an interactive shell. Paste chat text to detect the AHP calls it
contains, then run them by number.

Commands:
  scan <text>     Detect calls in text (pasted text is scanned too)
  calls           List detected calls
  run <n|url>     Execute a call
  status          Show authentication status; 'status logout' drops the token
  help, exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.startApplication(cmd, true)
			if err != nil {
				return err
			}
			defer application.Close()

			logger := agent.NewLoggerWithWriters(verbose, !noColor, cmd.OutOrStdout(), cmd.ErrOrStderr())
			formatter := formatting.New(formatting.Options{Format: formatting.FormatConsole, Color: !noColor})
			repl := agent.NewREPL(application.NewSession(), logger, formatter, application.Services().Config.ConfigDir())
			return repl.Run(commandContext(cmd))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show debug messages")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}
