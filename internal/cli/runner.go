package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"ahpbridge/internal/formatting"
	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Executor runs one call. *pipeline.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, callURL string) ahp.Response
}

// CallRunner executes calls for the CLI, showing a spinner while the call
// is in flight and printing the formatted result.
type CallRunner struct {
	exec      Executor
	formatter formatting.Formatter
	quiet     bool
	color     bool
	out       io.Writer
	errOut    io.Writer
}

// RunnerOption configures a CallRunner.
type RunnerOption func(*CallRunner)

// WithQuiet suppresses the spinner.
func WithQuiet(quiet bool) RunnerOption {
	return func(r *CallRunner) {
		r.quiet = quiet
	}
}

// WithColor enables colored progress messages.
func WithColor(color bool) RunnerOption {
	return func(r *CallRunner) {
		r.color = color
	}
}

// WithWriters sets where results and progress go.
func WithWriters(out, errOut io.Writer) RunnerOption {
	return func(r *CallRunner) {
		r.out = out
		r.errOut = errOut
	}
}

// NewCallRunner creates a runner printing results with formatter.
func NewCallRunner(exec Executor, formatter formatting.Formatter, opts ...RunnerOption) *CallRunner {
	r := &CallRunner{
		exec:      exec,
		formatter: formatter,
		out:       os.Stdout,
		errOut:    os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes callURL and prints the result. A failed call is printed
// too and returned as an error carrying its kind.
func (r *CallRunner) Run(ctx context.Context, callURL string) (ahp.Response, error) {
	var s *spinner.Spinner
	if !r.quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.errOut))
		s.Suffix = " Executing " + ahp.RedactURL(callURL)
		s.Start()
	}

	start := time.Now()
	resp := r.exec.Execute(ctx, callURL)

	if s != nil {
		if resp.Success {
			s.FinalMSG = r.paint(text.FgGreen, fmt.Sprintf("Completed in %s", time.Since(start).Round(time.Millisecond))) + "\n"
		} else {
			s.FinalMSG = r.paint(text.FgRed, "Call failed") + "\n"
		}
		s.Stop()
	}

	fmt.Fprintln(r.out, r.formatter.FormatResult(resp))
	if resp.Success {
		return resp, nil
	}

	err := resp.Err()
	logging.Debug("CLI", "Call %s failed: %s", ahp.RedactURL(callURL), Describe(err, endpointOf(callURL)))
	return resp, err
}

func (r *CallRunner) paint(c text.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

func endpointOf(callURL string) string {
	u, err := url.Parse(callURL)
	if err != nil || u.Host == "" {
		return callURL
	}
	return u.Scheme + "://" + u.Host
}
