package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ahpbridge/internal/config"
	"ahpbridge/internal/document"
	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/net/html"
)

// Outcome is how far an injection got.
type Outcome int

const (
	// OutcomeNone means nothing was written.
	OutcomeNone Outcome = iota
	// OutcomeStaged means the text is in the input surface awaiting a
	// manual submit.
	OutcomeStaged
	// OutcomeSubmitted means the submit control was activated.
	OutcomeSubmitted
)

// String returns a human readable outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeStaged:
		return "Staged"
	case OutcomeSubmitted:
		return "Submitted"
	default:
		return "None"
	}
}

// Result is a successful call to be injected.
type Result struct {
	URL     string
	Payload json.RawMessage
}

// templateData is what result templates render.
type templateData struct {
	URL     string
	Tool    string
	Payload interface{}
	JSON    string
}

// Probes is an ordered list of selectors; the first one that resolves wins.
type Probes []string

// First returns the first node matched by the probes and the probe that
// matched it.
func (p Probes) First(doc *document.Document) (*html.Node, string) {
	for _, sel := range p {
		if n := doc.First(sel); n != nil {
			return n, sel
		}
	}
	return nil, ""
}

// Injector writes call results into the host page's chat input.
type Injector struct {
	input    Probes
	submit   Probes
	tmpl     *template.Template
	settle   time.Duration
	baseURL  func() string
	waitFunc func(ctx context.Context, d time.Duration)
}

// Option configures an Injector.
type Option func(*Injector)

// WithInputProbes sets the input surface selectors.
func WithInputProbes(p Probes) Option {
	return func(i *Injector) {
		if len(p) > 0 {
			i.input = p
		}
	}
}

// WithSubmitProbes sets the submit control selectors.
func WithSubmitProbes(p Probes) Option {
	return func(i *Injector) {
		if len(p) > 0 {
			i.submit = p
		}
	}
}

// WithSettleDelay sets the pause between writing and submitting.
func WithSettleDelay(d time.Duration) Option {
	return func(i *Injector) {
		i.settle = d
	}
}

// WithBaseURL sets the server base URL used to derive .Tool in templates.
func WithBaseURL(fn func() string) Option {
	return func(i *Injector) {
		i.baseURL = fn
	}
}

// New creates an injector rendering results with tmplText.
func New(tmplText string, opts ...Option) (*Injector, error) {
	if tmplText == "" {
		tmplText = config.DefaultResultTemplate
	}
	tmpl, err := template.New("result").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("invalid result template: %w", err)
	}

	i := &Injector{
		input:    Probes(config.DefaultInputSelectors),
		submit:   Probes(config.DefaultSubmitSelectors),
		tmpl:     tmpl,
		settle:   config.DefaultSettleDelay,
		baseURL:  func() string { return "" },
		waitFunc: sleep,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// FromSettings creates an injector for the bridge settings.
func FromSettings(s config.Settings) (*Injector, error) {
	base := s.ServerBaseURL()
	return New(s.Bridge.ResultTemplate,
		WithInputProbes(s.Bridge.InputSelectors),
		WithSubmitProbes(s.Bridge.SubmitSelectors),
		WithSettleDelay(s.Bridge.SettleDelay),
		WithBaseURL(func() string { return base }),
	)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// FindInputSurface returns the chat input element, or nil.
func (i *Injector) FindInputSurface(doc *document.Document) *html.Node {
	n, _ := i.input.First(doc)
	return n
}

// FindSubmitControl returns the send control, or nil.
func (i *Injector) FindSubmitControl(doc *document.Document) *html.Node {
	n, _ := i.submit.First(doc)
	return n
}

// Format renders r as the message to inject.
func (i *Injector) Format(r Result) (string, error) {
	data := templateData{URL: ahp.RedactURL(r.URL), JSON: "null"}
	if r.URL != "" {
		data.Tool = ahp.ToolName(i.baseURL(), r.URL)
	}

	if len(bytes.TrimSpace(r.Payload)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(r.Payload))
		dec.UseNumber()
		if err := dec.Decode(&data.Payload); err != nil {
			return "", fmt.Errorf("payload is not JSON: %w", err)
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, bytes.TrimSpace(r.Payload), "", "  "); err != nil {
			return "", fmt.Errorf("payload is not JSON: %w", err)
		}
		data.JSON = indented.String()
	}

	var out strings.Builder
	if err := i.tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render result: %w", err)
	}
	return out.String(), nil
}

// Inject writes r into the input surface of doc and submits it when a
// usable submit control appears after the settle delay. A failure never
// leaves a partial write behind: the surface is located and the text
// rendered before anything is written.
func (i *Injector) Inject(ctx context.Context, doc *document.Document, r Result) (Outcome, error) {
	surface, probe := i.input.First(doc)
	if surface == nil {
		return OutcomeNone, ahp.NoInputSurface(i.input)
	}

	text, err := i.Format(r)
	if err != nil {
		return OutcomeNone, ahp.Internal("%v", err)
	}

	writeSurface(doc, surface, text)
	doc.Dispatch(surface, "input")
	logging.Debug("Inject", "Wrote %d bytes into %s", len(text), probe)

	i.waitFunc(ctx, i.settle)

	btn := i.FindSubmitControl(doc)
	if btn == nil || !enabled(doc, btn) {
		logging.Info("Inject", "Result staged in input; submit manually")
		return OutcomeStaged, nil
	}

	doc.Dispatch(btn, "click")
	logging.Debug("Inject", "Submitted result")
	return OutcomeSubmitted, nil
}

// writeSurface stores text as the surface's value: an input's value
// attribute, otherwise its text content.
func writeSurface(doc *document.Document, surface *html.Node, text string) {
	if surface.Data == "input" {
		doc.SetAttr(surface, "value", text)
		return
	}
	doc.SetText(surface, text)
}

func enabled(doc *document.Document, n *html.Node) bool {
	if _, disabled := doc.Attr(n, "disabled"); disabled {
		return false
	}
	if v, _ := doc.Attr(n, "aria-disabled"); strings.EqualFold(v, "true") {
		return false
	}
	return true
}
