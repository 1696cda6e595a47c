package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"ahpbridge/internal/cli"
	"ahpbridge/internal/document"
	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"

	"github.com/spf13/cobra"
)

func newScanCmd(root *rootOptions) *cobra.Command {
	var flags cli.OutputFlags
	cmd := &cobra.Command{
		Use:   "scan <file|->",
		Short: "List the AHP calls found in a page or text",
		Long: `List the AHP call URLs found in a saved chat page or a text file.

HTML input is scanned the way the bridge scans a live page: only code
regions (pre and code elements by default) are considered. Plain text is
scanned as a whole. Use - to read from standard input.

Examples:
  ahpbridge scan chat.html
  pbpaste | ahpbridge scan - -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := flags.Formatter()
			if err != nil {
				return err
			}
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			application, err := root.newApplication(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			engine := application.Services().Engine
			base := engine.BaseURL()
			if base == "" {
				return ahp.ConfigurationMissing("customServerUrl")
			}

			var urls []string
			if looksLikeHTML(content) {
				doc, err := document.ParseString(content)
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", args[0], err)
				}
				found, detach := engine.Attach(doc)
				detach()
				for _, d := range found {
					urls = append(urls, d.URL)
				}
			} else {
				urls = engine.MatchText(content)
			}

			rows := make([]formatting.CallRow, 0, len(urls))
			for i, u := range urls {
				rows = append(rows, formatting.CallRow{
					Index: i + 1,
					URL:   u,
					Tool:  ahp.ToolName(base, u),
					State: "Detected",
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCalls(rows))
			return nil
		},
	}
	cli.RegisterOutputFlags(cmd, &flags, formatting.FormatTable)
	return cmd
}

// readInput reads path, or standard input for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func looksLikeHTML(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(trimmed, "<!doctype html") || strings.HasPrefix(trimmed, "<html") ||
		strings.Contains(trimmed, "<body") || strings.Contains(trimmed, "<pre") || strings.Contains(trimmed, "<code")
}
