package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ahpbridge/internal/detect"
	"ahpbridge/internal/document"
	"ahpbridge/internal/inject"
	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"golang.org/x/net/html"
)

// Executor runs one call. *pipeline.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, callURL string) ahp.Response
}

// Call is the state of one detected call.
type Call struct {
	URL        string
	Affordance *html.Node
	State      State
	Attempts   int
	Outcome    inject.Outcome
	Payload    json.RawMessage
	Err        error
}

// ErrAlreadyExecuting is returned when an executing call is activated.
var ErrAlreadyExecuting = errors.New("call is already executing")

// Controller drives the calls detected in one document: detection,
// execution through the pipeline and injection of the result.
type Controller struct {
	doc      *document.Document
	engine   *detect.Engine
	exec     Executor
	injector *inject.Injector
	auto     bool

	mu      sync.Mutex
	state   State
	ctx     context.Context
	calls   map[*html.Node]*Call
	order   []*html.Node
	detach  func()
	watches []func(Call)

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutoExecute activates every call as soon as it is detected.
func WithAutoExecute(auto bool) Option {
	return func(c *Controller) {
		c.auto = auto
	}
}

// NewController wires the components for doc.
func NewController(doc *document.Document, engine *detect.Engine, exec Executor, injector *inject.Injector, opts ...Option) *Controller {
	c := &Controller{
		doc:      doc,
		engine:   engine,
		exec:     exec,
		injector: injector,
		state:    StateIdle,
		calls:    make(map[*html.Node]*Call),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller state: Idle before Start, Detecting after.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers fn to receive a snapshot after every call state change.
func (c *Controller) OnChange(fn func(Call)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watches = append(c.watches, fn)
}

// Start attaches detection to the document. Clicks on affordances, and
// detections in auto mode, start activations bound to ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errors.New("controller already started")
	}
	c.state = StateDetecting
	c.ctx = ctx
	c.mu.Unlock()

	c.engine.OnDetect(func(doc *document.Document, d detect.DetectedCallURL) {
		if doc == c.doc {
			c.track(d)
		}
	})
	_, detach := c.engine.Attach(c.doc)

	c.mu.Lock()
	c.detach = detach
	c.mu.Unlock()

	logging.Info("Bridge", "Watching document for AHP calls to %s", c.engine.BaseURL())
	return nil
}

// Stop detaches detection and waits for running activations.
func (c *Controller) Stop() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()
	if detach != nil {
		detach()
	}
	c.wg.Wait()
}

// Wait blocks until no activation is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) track(d detect.DetectedCallURL) {
	c.mu.Lock()
	if _, ok := c.calls[d.Affordance]; ok {
		c.mu.Unlock()
		return
	}
	call := &Call{URL: d.URL, Affordance: d.Affordance, State: StateDetecting}
	c.calls[d.Affordance] = call
	c.order = append(c.order, d.Affordance)
	ctx, auto := c.ctx, c.auto
	c.mu.Unlock()

	btn := d.Affordance
	c.doc.AddEventListener(btn, "click", func(document.Event) {
		c.activateAsync(ctx, btn)
	})
	c.notify(*call)

	if auto {
		c.activateAsync(ctx, btn)
	}
}

// activateAsync keeps the detection context free: the call runs on its
// own goroutine.
func (c *Controller) activateAsync(ctx context.Context, affordance *html.Node) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.Activate(ctx, affordance); err != nil && !errors.Is(err, ErrAlreadyExecuting) {
			logging.Debug("Bridge", "Call failed: %v", err)
		}
	}()
}

// Calls returns a snapshot of every tracked call in detection order.
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, *c.calls[n])
	}
	return out
}

// Activate executes the call behind affordance and injects its result.
// A failed call is left Failed with its affordance re-enabled; nothing is
// retried until the next activation.
func (c *Controller) Activate(ctx context.Context, affordance *html.Node) (Call, error) {
	c.mu.Lock()
	call, ok := c.calls[affordance]
	if !ok {
		c.mu.Unlock()
		return Call{}, fmt.Errorf("no call is attached to this affordance")
	}
	if call.State == StateExecuting {
		snapshot := *call
		c.mu.Unlock()
		return snapshot, ErrAlreadyExecuting
	}
	if err := call.State.transition(StateExecuting); err != nil {
		c.mu.Unlock()
		return *call, err
	}
	call.State = StateExecuting
	call.Attempts++
	call.Err = nil
	call.Outcome = inject.OutcomeNone
	callURL := call.URL
	snapshot := *call
	c.mu.Unlock()

	c.render(snapshot)
	c.notify(snapshot)
	logging.Info("Bridge", "Executing %s", ahp.RedactURL(callURL))

	resp := c.exec.Execute(ctx, callURL)
	if !resp.Success {
		return c.finish(affordance, StateFailed, inject.OutcomeNone, nil, resp.Err())
	}

	outcome, err := c.injector.Inject(ctx, c.doc, inject.Result{URL: callURL, Payload: resp.Data})
	if err != nil {
		return c.finish(affordance, StateFailed, outcome, resp.Data, err)
	}
	return c.finish(affordance, StateInjected, outcome, resp.Data, nil)
}

func (c *Controller) finish(affordance *html.Node, state State, outcome inject.Outcome, payload json.RawMessage, err error) (Call, error) {
	c.mu.Lock()
	call := c.calls[affordance]
	call.State = state
	call.Outcome = outcome
	call.Payload = payload
	call.Err = err
	snapshot := *call
	c.mu.Unlock()

	c.render(snapshot)
	c.notify(snapshot)

	if err != nil {
		logging.Warn("Bridge", "Call %s failed (%s): %s", ahp.RedactURL(snapshot.URL), ahp.KindOf(err), ahp.Message(err))
	} else {
		logging.Info("Bridge", "Call %s %s", ahp.RedactURL(snapshot.URL), outcome)
	}
	return snapshot, err
}

// render reflects the call state on its affordance.
func (c *Controller) render(call Call) {
	btn := call.Affordance
	c.doc.SetAttr(btn, detect.StateAttr, call.State.attr())
	switch call.State {
	case StateExecuting:
		c.doc.SetAttr(btn, "disabled", "")
		c.doc.RemoveAttr(btn, "title")
	case StateFailed:
		c.doc.RemoveAttr(btn, "disabled")
		c.doc.SetAttr(btn, "title", ahp.Message(call.Err))
	default:
		c.doc.RemoveAttr(btn, "disabled")
		c.doc.RemoveAttr(btn, "title")
	}
}

func (c *Controller) notify(call Call) {
	c.mu.Lock()
	watches := append(([]func(Call))(nil), c.watches...)
	c.mu.Unlock()
	for _, fn := range watches {
		fn(call)
	}
}
