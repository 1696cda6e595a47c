package document

import (
	"ahpbridge/pkg/logging"

	"golang.org/x/net/html"
)

// Observe registers fn to receive every insertion batch. Batches are
// delivered one at a time in mutation order; a mutation made while a batch
// is being delivered, including one made by fn itself, is queued and
// delivered after the current batch completes. The returned function
// removes the observer.
func (d *Document) Observe(fn func(Batch)) func() {
	d.obsMu.Lock()
	id := d.nextID
	d.nextID++
	d.observers[id] = fn
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

// notify queues b and, unless a delivery is already running, drains the
// queue on the calling goroutine.
func (d *Document) notify(b Batch) {
	d.obsMu.Lock()
	if len(d.observers) == 0 {
		d.obsMu.Unlock()
		return
	}
	d.queue = append(d.queue, b)
	if d.delivering {
		d.obsMu.Unlock()
		return
	}
	d.delivering = true

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		observers := make([]func(Batch), 0, len(d.observers))
		for _, fn := range d.observers {
			observers = append(observers, fn)
		}
		d.obsMu.Unlock()

		for _, fn := range observers {
			deliver(fn, next)
		}

		d.obsMu.Lock()
	}
	d.delivering = false
	d.obsMu.Unlock()
}

func deliver(fn func(Batch), b Batch) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Document", nil, "Mutation observer panicked: %v", r)
		}
	}()
	fn(b)
}

// AddEventListener registers fn for events of type typ dispatched on n.
// The returned function removes the listener.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(Event)) func() {
	d.lisMu.Lock()
	defer d.lisMu.Unlock()

	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]func(Event))
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], fn)
	idx := len(byType[typ]) - 1

	return func() {
		d.lisMu.Lock()
		defer d.lisMu.Unlock()
		if fns := d.listeners[n][typ]; idx < len(fns) {
			fns[idx] = nil
		}
	}
}

// Dispatch delivers an event of type typ to the listeners of n
// synchronously and reports how many ran.
func (d *Document) Dispatch(n *html.Node, typ string) int {
	d.lisMu.Lock()
	fns := append(([]func(Event))(nil), d.listeners[n][typ]...)
	d.lisMu.Unlock()

	ev := Event{Type: typ, Target: n}
	ran := 0
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(ev)
		ran++
	}
	return ran
}
