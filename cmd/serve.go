package cmd

import (
	"ahpbridge/internal/agent"
	"ahpbridge/pkg/logging"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the bridge to AI assistants over MCP stdio",
		Long: `Run an MCP server on standard input and output so AI assistants can use
the bridge directly. Logs go to standard error.

Tools:
  execute_call   Execute one AHP call URL on the configured server
  detect_calls   List the AHP call URLs found in text
  auth_status    Show the configured identity and cached token

Configuration changes are picked up without a restart.

Example MCP client entry:
  {"command": "ahpbridge", "args": ["serve"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.startApplication(cmd, true)
			if err != nil {
				return err
			}
			defer application.Close()

			logging.Info("Agent", "Serving MCP on stdio for %s", application.Settings().ServerBaseURL())
			server := agent.NewMCPServer(application.NewSession(), GetVersion())
			return server.Start(commandContext(cmd), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
