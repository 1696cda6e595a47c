package cmd

import (
	"fmt"
	"os"

	"ahpbridge/internal/bridge"
	"ahpbridge/internal/cli"
	"ahpbridge/internal/document"
	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/spf13/cobra"
)

type bridgeOptions struct {
	execute bool
	out     string
	flags   cli.OutputFlags
}

func newBridgeCmd(root *rootOptions) *cobra.Command {
	opts := &bridgeOptions{}
	cmd := &cobra.Command{
		Use:   "bridge <file|->",
		Short: "Attach the bridge to a saved chat page",
		Long: `Load a chat page, attach a run affordance after every AHP call found in
its code regions and, with --execute, run each call and inject the result
into the page's chat input.

The resulting page is written to --out (standard output by default) and a
summary of the calls to standard error.

Examples:
  ahpbridge bridge chat.html                       # mark the calls only
  ahpbridge bridge chat.html --execute --out done.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.execute, "execute", false, "Execute every detected call and inject its result")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the resulting page to this file instead of standard output")
	cli.RegisterOutputFlags(cmd, &opts.flags, formatting.FormatTable)
	return cmd
}

func runBridge(cmd *cobra.Command, root *rootOptions, opts *bridgeOptions, path string) error {
	formatter, err := opts.flags.Formatter()
	if err != nil {
		return err
	}
	content, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	doc, err := document.ParseString(content)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	application, err := root.startApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	ctrl, err := application.NewController(doc, bridge.WithAutoExecute(opts.execute))
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	ctrl.Wait()
	ctrl.Stop()

	page, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	if opts.out == "" {
		fmt.Fprintln(cmd.OutOrStdout(), page)
	} else if err := os.WriteFile(opts.out, []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}

	base := application.Settings().ServerBaseURL()
	calls := ctrl.Calls()
	rows := make([]formatting.CallRow, 0, len(calls))
	var firstErr error
	failed := 0
	for i, c := range calls {
		row := formatting.CallRow{
			Index: i + 1,
			URL:   c.URL,
			Tool:  ahp.ToolName(base, c.URL),
			State: c.State.String(),
		}
		switch {
		case c.Err != nil:
			row.Detail = ahp.Message(c.Err)
			failed++
			if firstErr == nil {
				firstErr = c.Err
			}
		case c.Attempts > 0:
			row.Detail = c.Outcome.String()
		}
		rows = append(rows, row)
	}
	if !opts.flags.Quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), formatter.FormatCalls(rows))
	}

	if firstErr != nil {
		return &callError{
			err:      fmt.Errorf("%d of %d calls failed: %w", failed, len(calls), firstErr),
			endpoint: base,
		}
	}
	return nil
}
