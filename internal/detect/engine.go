package detect

import (
	"regexp"
	"strings"
	"sync"

	"ahpbridge/internal/config"
	"ahpbridge/internal/document"
	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"golang.org/x/net/html"
)

// Markers written into the document.
const (
	// ProcessedAttr marks a code region that produced affordances. Marked
	// regions are never scanned again.
	ProcessedAttr = "data-ahp-processed"
	// AffordanceClass is the class of the execute buttons.
	AffordanceClass = "ahp-execute"
	// URLAttr carries the matched call URL on an affordance.
	URLAttr = "data-ahp-url"
	// StateAttr carries the call state on an affordance.
	StateAttr = "data-ahp-state"

	affordanceLabel = "Run AHP call"
)

// DetectedCallURL is one call URL found in a code region.
type DetectedCallURL struct {
	URL        string
	Source     *html.Node
	Affordance *html.Node
}

// SettingsSource provides settings and change notifications.
// *config.Manager satisfies it.
type SettingsSource interface {
	Current() config.Settings
	Subscribe(fn func(config.Settings)) func()
}

// Pattern derives the call URL pattern for baseURL: the escaped base
// followed by a slash and a run of characters that are neither whitespace
// nor a closing parenthesis.
func Pattern(baseURL string) *regexp.Regexp {
	base := ahp.NormalizeBaseURL(baseURL)
	if base == "" {
		return nil
	}
	return regexp.MustCompile(regexp.QuoteMeta(base) + `/[^\s)]+`)
}

// Engine finds call URLs in code regions of attached documents and
// inserts one affordance per distinct URL per region.
type Engine struct {
	mu        sync.RWMutex
	baseURL   string
	pattern   *regexp.Regexp
	selectors string

	// scanMu serializes the decide-and-mark phase of every scan.
	scanMu sync.Mutex

	docsMu   sync.Mutex
	attached map[*document.Document]func()

	handlersMu sync.RWMutex
	handlers   []func(*document.Document, DetectedCallURL)
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodeSelectors sets the selectors of the scanned code regions.
func WithCodeSelectors(selectors []string) Option {
	return func(e *Engine) {
		if len(selectors) > 0 {
			e.selectors = strings.Join(selectors, ", ")
		}
	}
}

// WithBaseURL sets the initial server base URL.
func WithBaseURL(baseURL string) Option {
	return func(e *Engine) {
		e.baseURL = ahp.NormalizeBaseURL(baseURL)
		e.pattern = Pattern(baseURL)
	}
}

// NewEngine creates an engine. Without a base URL it stays idle until
// SetBaseURL is called.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		selectors: strings.Join(config.DefaultCodeSelectors, ", "),
		attached:  make(map[*document.Document]func()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BaseURL returns the current server base URL.
func (e *Engine) BaseURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseURL
}

// SetBaseURL replaces the match pattern and scans the attached documents
// for regions the new pattern matches. Regions already processed under the
// old pattern keep their affordances.
func (e *Engine) SetBaseURL(baseURL string) {
	base := ahp.NormalizeBaseURL(baseURL)

	e.mu.Lock()
	if base == e.baseURL {
		e.mu.Unlock()
		return
	}
	e.baseURL = base
	e.pattern = Pattern(base)
	e.mu.Unlock()

	logging.Info("Detect", "Call URL pattern now targets %q", base)

	e.docsMu.Lock()
	docs := make([]*document.Document, 0, len(e.attached))
	for doc := range e.attached {
		docs = append(docs, doc)
	}
	e.docsMu.Unlock()

	for _, doc := range docs {
		e.Scan(doc, doc.Root())
	}
}

// SetCodeSelectors replaces the code region selectors.
func (e *Engine) SetCodeSelectors(selectors []string) {
	if len(selectors) == 0 {
		selectors = config.DefaultCodeSelectors
	}
	e.mu.Lock()
	e.selectors = strings.Join(selectors, ", ")
	e.mu.Unlock()
}

// Bind applies the current settings and follows later changes. The
// returned function stops following.
func (e *Engine) Bind(src SettingsSource) func() {
	apply := func(s config.Settings) {
		e.SetCodeSelectors(s.Bridge.CodeSelectors)
		e.SetBaseURL(s.ServerBaseURL())
	}
	apply(src.Current())
	return src.Subscribe(apply)
}

// OnDetect registers fn to be called for every inserted affordance.
func (e *Engine) OnDetect(fn func(*document.Document, DetectedCallURL)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// Attach scans the whole document once and then every inserted subtree.
// The returned function detaches the engine.
func (e *Engine) Attach(doc *document.Document) ([]DetectedCallURL, func()) {
	stop := doc.Observe(func(b document.Batch) {
		for _, n := range b.Added {
			e.Scan(doc, n)
		}
	})

	e.docsMu.Lock()
	e.attached[doc] = stop
	e.docsMu.Unlock()

	found := e.Scan(doc, doc.Root())
	logging.Debug("Detect", "Initial scan found %d call URL(s)", len(found))

	return found, func() {
		stop()
		e.docsMu.Lock()
		delete(e.attached, doc)
		e.docsMu.Unlock()
	}
}

// pendingAffordance is decided under scanMu and inserted after it is
// released, since insertion re-enters the observer.
type pendingAffordance struct {
	call   DetectedCallURL
	anchor *html.Node
}

// Scan processes the code regions in the subtree rooted at root, plus the
// region enclosing root when root was inserted into one, and returns the
// calls it found.
func (e *Engine) Scan(doc *document.Document, root *html.Node) []DetectedCallURL {
	e.mu.RLock()
	pattern, base, selectors := e.pattern, e.baseURL, e.selectors
	e.mu.RUnlock()
	if pattern == nil {
		return nil
	}

	e.scanMu.Lock()
	var pending []pendingAffordance
	// Affordances go after the outermost code region so they never land
	// inside a preformatted block. lastAnchor keeps sibling regions in order.
	lastAnchor := make(map[*html.Node]*html.Node)
	for _, region := range e.regions(doc, root, selectors) {
		if _, done := doc.Attr(region, ProcessedAttr); done {
			continue
		}
		urls := matchText(pattern, base, doc.Text(region))
		if len(urls) == 0 {
			// Streamed content may still arrive; stay eligible.
			continue
		}
		doc.SetAttr(region, ProcessedAttr, "true")

		outer := outermost(doc, region, selectors)
		anchor, ok := lastAnchor[outer]
		if !ok {
			anchor = outer
		}
		for _, u := range urls {
			btn := newAffordance(u)
			pending = append(pending, pendingAffordance{
				call:   DetectedCallURL{URL: u, Source: region, Affordance: btn},
				anchor: anchor,
			})
			anchor = btn
		}
		lastAnchor[outer] = anchor
	}
	e.scanMu.Unlock()

	found := make([]DetectedCallURL, 0, len(pending))
	for _, p := range pending {
		if err := doc.InsertAfter(p.anchor, p.call.Affordance); err != nil {
			logging.Warn("Detect", "Could not attach affordance for %s: %v", ahp.RedactURL(p.call.URL), err)
			continue
		}
		found = append(found, p.call)
	}

	if len(found) > 0 {
		e.handlersMu.RLock()
		handlers := append(([]func(*document.Document, DetectedCallURL))(nil), e.handlers...)
		e.handlersMu.RUnlock()
		for _, call := range found {
			logging.Debug("Detect", "Detected call %s", ahp.RedactURL(call.URL))
			for _, fn := range handlers {
				fn(doc, call)
			}
		}
	}
	return found
}

// regions returns the innermost code regions relevant to root.
func (e *Engine) regions(doc *document.Document, root *html.Node, selectors string) []*html.Node {
	candidates := doc.FindWithin(root, selectors)
	if root.Parent != nil {
		if enclosing := doc.Closest(root.Parent, selectors); enclosing != nil {
			candidates = append(candidates, enclosing)
		}
	}

	var innermost []*html.Node
	for _, n := range candidates {
		if isAffordance(doc, n) {
			continue
		}
		if len(doc.FindWithin(n, selectors)) > 1 {
			// Contains another region; the inner one is scanned instead.
			continue
		}
		innermost = append(innermost, n)
	}
	return innermost
}

// outermost returns the topmost code region enclosing region, or region
// itself.
func outermost(doc *document.Document, region *html.Node, selectors string) *html.Node {
	outer := region
	for outer.Parent != nil {
		enclosing := doc.Closest(outer.Parent, selectors)
		if enclosing == nil {
			break
		}
		outer = enclosing
	}
	return outer
}

func isAffordance(doc *document.Document, n *html.Node) bool {
	_, ok := doc.Attr(n, URLAttr)
	return ok
}

func newAffordance(callURL string) *html.Node {
	btn := document.Element("button",
		"type", "button",
		"class", AffordanceClass,
		URLAttr, callURL,
		StateAttr, "idle",
	)
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: affordanceLabel})
	return btn
}

// MatchText returns the distinct call URLs in text in order of first
// appearance, skipping reserved server paths.
func (e *Engine) MatchText(text string) []string {
	e.mu.RLock()
	pattern, base := e.pattern, e.baseURL
	e.mu.RUnlock()
	if pattern == nil {
		return nil
	}
	return matchText(pattern, base, text)
}

func matchText(pattern *regexp.Regexp, base, text string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range pattern.FindAllString(text, -1) {
		if seen[u] || ahp.IsReserved(base, u) {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}
