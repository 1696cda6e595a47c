package cli

import (
	"fmt"
	"strings"

	"ahpbridge/internal/formatting"

	"github.com/spf13/cobra"
)

// OutputFlags holds the output flags shared by commands that print results.
type OutputFlags struct {
	// OutputFormat is one of formatting.Formats()
	OutputFormat string
	// Quiet suppresses progress indicators
	Quiet bool
	// NoColor disables colored output
	NoColor bool
}

// RegisterOutputFlags registers --output/-o, --quiet/-q and --no-color on cmd.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags, defaultFormat formatting.OutputFormat) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(defaultFormat),
		fmt.Sprintf("Output format (%s)", strings.Join(formatting.Formats(), ", ")))
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress indicators")
	cmd.Flags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
}

// Formatter builds the formatter selected by the flags.
func (f *OutputFlags) Formatter() (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(f.OutputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.New(formatting.Options{Format: format, Color: !f.NoColor}), nil
}
