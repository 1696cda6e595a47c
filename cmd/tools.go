package cmd

import (
	"fmt"

	"ahpbridge/internal/cli"
	"ahpbridge/internal/formatting"

	"github.com/spf13/cobra"
)

func newToolsCmd(root *rootOptions) *cobra.Command {
	var flags cli.OutputFlags
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the AHP server publishes",
		Long: `List the tools published by the configured AHP server.

The server's /schema listing is read first; servers without one are asked
for their /openapi document instead. Required parameters are marked with *.

Examples:
  ahpbridge tools
  ahpbridge tools -o json`,
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

			tools, err := application.Services().Catalog.Tools(commandContext(cmd))
			if err != nil {
				return &callError{err: err, endpoint: application.Settings().ServerBaseURL()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTools(tools))
			return nil
		},
	}
	cli.RegisterOutputFlags(cmd, &flags, formatting.FormatTable)
	return cmd
}
