package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ahpbridge/pkg/ahp"
	"ahpbridge/pkg/logging"

	"github.com/google/uuid"
)

// DefaultInboxSize is the number of requests that may wait for the router.
const DefaultInboxSize = 64

// ErrRouterClosed is the cause of responses to requests sent after shutdown.
var ErrRouterClosed = errors.New("broker context is not running")

// Handler answers one request. It must always return a response; panics
// are recovered by the router.
type Handler interface {
	Handle(ctx context.Context, req ahp.Request) ahp.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req ahp.Request) ahp.Response

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req ahp.Request) ahp.Response {
	return f(ctx, req)
}

// Pending is the future for one request. It is resolved exactly once.
type Pending struct {
	id   string
	once sync.Once
	done chan struct{}
	resp ahp.Response

	attempts   int32
	deliveries int32
}

func newPending(id string) *Pending {
	return &Pending{id: id, done: make(chan struct{})}
}

// ID returns the correlation id.
func (p *Pending) ID() string {
	return p.id
}

// resolve delivers resp unless a response was already delivered. It
// reports whether this call delivered.
func (p *Pending) resolve(resp ahp.Response) bool {
	atomic.AddInt32(&p.attempts, 1)
	delivered := false
	p.once.Do(func() {
		resp.ID = p.id
		p.resp = resp
		atomic.AddInt32(&p.deliveries, 1)
		close(p.done)
		delivered = true
	})
	return delivered
}

// Done is closed once the response is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the response arrives or ctx is done. When ctx ends
// first, a NetworkFailure response is returned to the caller; the request
// itself still completes in the broker context.
func (p *Pending) Wait(ctx context.Context) ahp.Response {
	select {
	case <-p.done:
		return p.resp
	case <-ctx.Done():
		return ahp.Failed(p.id, ahp.NetworkFailure("broker context", ctx.Err()))
	}
}

// Deliveries reports how many responses were delivered: 0 while pending,
// 1 afterwards.
func (p *Pending) Deliveries() int {
	return int(atomic.LoadInt32(&p.deliveries))
}

// Attempts reports how many times resolution was attempted.
func (p *Pending) Attempts() int {
	return int(atomic.LoadInt32(&p.attempts))
}

type envelope struct {
	req     ahp.Request
	pending *Pending
}

// Router is the broker context. Requests sent to it are handled
// concurrently, each on its own goroutine, and each receives exactly one
// response.
type Router struct {
	handler Handler
	timeout time.Duration
	inbox   chan envelope

	mu      sync.RWMutex
	closed  bool
	running bool
	quit    chan struct{}
	stopped chan struct{}
	wg      sync.WaitGroup
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRequestTimeout resolves a request with NetworkFailure when its
// handler has not answered within d. Zero disables the timeout.
func WithRequestTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.timeout = d
	}
}

// WithInboxSize sets the request buffer length.
func WithInboxSize(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.inbox = make(chan envelope, n)
		}
	}
}

// NewRouter creates a router dispatching to handler.
func NewRouter(handler Handler, opts ...RouterOption) *Router {
	r := &Router{
		handler: handler,
		inbox:   make(chan envelope, DefaultInboxSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve handles requests until ctx is done. Requests still queued at
// shutdown are answered with an error; requests in flight are waited for.
func (r *Router) Serve(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.closed {
		r.mu.Unlock()
		return errors.New("router already started")
	}
	r.running = true
	r.mu.Unlock()

	logging.Debug("Pipeline", "Broker context started")
	defer close(r.stopped)

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case env := <-r.inbox:
			r.wg.Add(1)
			go r.run(ctx, env)
		}
	}
}

func (r *Router) shutdown() {
	// Unblock senders waiting on a full inbox before taking the lock.
	close(r.quit)
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	// Nothing can enqueue once closed is set.
	for {
		select {
		case env := <-r.inbox:
			env.pending.resolve(ahp.Failed(env.pending.id, ahp.NetworkFailure("broker context", ErrRouterClosed)))
		default:
			r.wg.Wait()
			logging.Debug("Pipeline", "Broker context stopped")
			return
		}
	}
}

// Stopped is closed when Serve has returned.
func (r *Router) Stopped() <-chan struct{} {
	return r.stopped
}

// Send posts req to the broker context and returns its future. An empty
// ID is replaced with a fresh correlation id.
func (r *Router) Send(ctx context.Context, req ahp.Request) *Pending {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	p := newPending(req.ID)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		p.resolve(ahp.Failed(p.id, ahp.NetworkFailure("broker context", ErrRouterClosed)))
		return p
	}

	select {
	case r.inbox <- envelope{req: req, pending: p}:
	case <-r.quit:
		p.resolve(ahp.Failed(p.id, ahp.NetworkFailure("broker context", ErrRouterClosed)))
	case <-ctx.Done():
		p.resolve(ahp.Failed(p.id, ahp.NetworkFailure("broker context", ctx.Err())))
	}
	return p
}

func (r *Router) run(ctx context.Context, env envelope) {
	defer r.wg.Done()
	resp := r.dispatch(ctx, env.req)
	if !env.pending.resolve(resp) {
		logging.Warn("Pipeline", "Dropped second response for request %s", env.pending.id)
	}
}

func (r *Router) dispatch(ctx context.Context, req ahp.Request) ahp.Response {
	if !req.IsExecute() {
		return ahp.Failed(req.ID, ahp.InvalidRequest("unknown action %q", req.Action))
	}
	if req.URL == "" {
		return ahp.Failed(req.ID, ahp.InvalidRequest("request has no url"))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result := make(chan ahp.Response, 1)
	go func() {
		result <- r.safeHandle(ctx, req)
	}()

	select {
	case resp := <-result:
		return resp
	case <-ctx.Done():
		logging.Warn("Pipeline", "Request %s for %s did not complete: %v", req.ID, ahp.RedactURL(req.URL), ctx.Err())
		return ahp.Failed(req.ID, ahp.NetworkFailure(ahp.RedactURL(req.URL), ctx.Err()))
	}
}

func (r *Router) safeHandle(ctx context.Context, req ahp.Request) (resp ahp.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Pipeline", nil, "Handler panicked on request %s: %v", req.ID, rec)
			resp = ahp.Failed(req.ID, ahp.Internal("request handler failed: %v", rec))
		}
	}()
	return r.handler.Handle(ctx, req)
}
