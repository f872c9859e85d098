package event

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// QueueCapacity is the minimum bounded FIFO depth required by spec.md §4.1.
const QueueCapacity = 64

// traceCapacity is the size of the diagnostic ring buffer kept for late
// joiners (SPEC_FULL.md "structured internal event trace buffer").
const traceCapacity = 64

// Handler processes a single event. Returning true stops further
// propagation of that event to subsequent handlers (spec.md §4.1); wildcard
// handlers always run last regardless of return value since nothing is
// queued after them.
type Handler func(Event) bool

// handlerEntry pairs a handler with the identity used in error logs and an
// optional callback used to surface a panic/recover as the owning module's
// error_count (spec.md §4.1 "Failure semantics").
type handlerEntry struct {
	name    string
	fn      Handler
	onError func(error)
}

// Dispatcher is the single point of delivery for all events (spec.md §4.1).
// Exactly one consumer goroutine drains the queue; handlers for a given
// event run to completion, in registration order, before the next event is
// dequeued.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]handlerEntry

	queue chan Event

	traceMu sync.Mutex
	trace   []Event

	dropped uint64
}

// New creates a Dispatcher with a bounded queue of QueueCapacity entries.
// It does not start the consumer: the caller starts Run on its own
// goroutine (cmd/tacsuitcase does `go dispatcher.Run(ctx)`).
func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Kind][]handlerEntry),
		queue:    make(chan Event, QueueCapacity),
	}
}

// Register adds a handler for kind. A kind of ANY subscribes to every
// event and always runs after type-specific handlers for that event.
// name identifies the handler in error logs; onError, if non-nil, is
// invoked whenever the handler panics, letting the owning module bump its
// own error_count without the dispatcher needing to know module internals.
func (d *Dispatcher) Register(kind Kind, name string, fn Handler, onError func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], handlerEntry{name: name, fn: fn, onError: onError})
}

// Unregister removes the first handler registered under kind with the given
// name. It is a no-op if no such handler is registered.
func (d *Dispatcher) Unregister(kind Kind, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.handlers[kind]
	for i, h := range list {
		if h.name == name {
			d.handlers[kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Post enqueues an event without blocking. If the queue is full, the event
// is dropped and an error is logged (spec.md §4.1 "ResourceExhausted").
// INFO events sourced from the websocket are dropped before enqueue —
// these are heartbeats and would otherwise pressure the queue.
func (d *Dispatcher) Post(e Event) {
	if e.Kind == INFO && e.Source == SourceWebsocket {
		return
	}
	select {
	case d.queue <- e:
		d.recordTrace(e)
	default:
		d.dropped++
		log.Printf("dispatcher: queue full, dropped event kind=%s source=%s", e.Kind, e.Source)
	}
}

// PostSimple is a convenience wrapper around Post for payload-less events.
func (d *Dispatcher) PostSimple(kind Kind, source Source) {
	d.Post(NewSimple(kind, source))
}

// PostFromGameEvent tags ge with source and enqueues it.
func (d *Dispatcher) PostFromGameEvent(ge GameEvent, source Source) {
	d.Post(FromGameEvent(ge, source))
}

// Dropped reports how many events have been dropped due to a full queue,
// for status/diagnostic surfaces.
func (d *Dispatcher) Dropped() uint64 { return d.dropped }

func (d *Dispatcher) recordTrace(e Event) {
	d.traceMu.Lock()
	defer d.traceMu.Unlock()
	d.trace = append(d.trace, e)
	if len(d.trace) > traceCapacity {
		d.trace = d.trace[len(d.trace)-traceCapacity:]
	}
}

// RecentEvents returns a copy of the last dispatched events (most recent
// last), bounded by traceCapacity — used to catch up a reconnecting UI
// client (SPEC_FULL.md supplement).
func (d *Dispatcher) RecentEvents() []Event {
	d.traceMu.Lock()
	defer d.traceMu.Unlock()
	out := make([]Event, len(d.trace))
	copy(out, d.trace)
	return out
}

// Run drains the queue until ctx is cancelled. It is the dispatcher's
// single consumer and must only ever be started once.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.deliver(e)
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.mu.RLock()
	specific := append([]handlerEntry(nil), d.handlers[e.Kind]...)
	wildcard := append([]handlerEntry(nil), d.handlers[ANY]...)
	d.mu.RUnlock()

	for _, h := range specific {
		if d.invoke(h, e) {
			break
		}
	}
	for _, h := range wildcard {
		d.invoke(h, e)
	}
}

// invoke runs a single handler, recovering from panics so one bad handler
// never takes down the dispatcher's consumer (spec.md §4.1 "Failure
// semantics": "handler exceptions are caught, logged with handler identity").
func (d *Dispatcher) invoke(h handlerEntry, e Event) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler %q panicked: %v", h.name, r)
			log.Println("dispatcher:", err)
			if h.onError != nil {
				h.onError(err)
			}
			stop = false
		}
	}()
	return h.fn(e)
}
