// Package emitter provides a minimal publish/subscribe component.
//
// An Emitter is embedded by anything that needs eventing (the loader's
// Process, the socket Client). Handlers run synchronously on the goroutine
// that calls Emit, in registration order, against a snapshot of the handler
// list taken when Emit starts.
package emitter

import (
	"sync"
	"sync/atomic"
)

// Handler is the callback signature for all events.
type Handler func(args ...any)

// Listener is the registration token returned by On and Once.
// It is what Off compares against.
type Listener struct {
	fn    Handler
	once  bool
	fired atomic.Bool
}

// Once reports whether the listener was registered with Once.
func (l *Listener) Once() bool {
	return l.once
}

// Emittable is the capability exposed by components that embed an Emitter.
type Emittable interface {
	On(event string, fn Handler) *Listener
	Once(event string, fn Handler) *Listener
	Off(event string, l *Listener)
	Emit(event string, args ...any)
	Listeners(event string) []*Listener
	HasListeners(event string) bool
}

// Emitter holds ordered handler lists keyed by event name.
// The zero value is ready to use.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]*Listener
}

var _ Emittable = (*Emitter)(nil)

// New creates an empty Emitter.
//
// Returns:
//   - *Emitter: A new emitter
func New() *Emitter {
	return &Emitter{}
}

// On appends fn to the handlers for event. Registering the same function
// twice results in two invocations per Emit.
//
// Parameters:
//   - event: The event name
//   - fn: The handler to invoke
//
// Returns:
//   - *Listener: Token that can be passed to Off
func (e *Emitter) On(event string, fn Handler) *Listener {
	return e.add(event, &Listener{fn: fn})
}

// Once registers fn so that it runs for the first matching Emit only.
// The listener is removed before fn is invoked, so an Emit of the same event
// from inside fn does not reach it again.
//
// Parameters:
//   - event: The event name
//   - fn: The handler to invoke once
//
// Returns:
//   - *Listener: Token that can be passed to Off
func (e *Emitter) Once(event string, fn Handler) *Listener {
	return e.add(event, &Listener{fn: fn, once: true})
}

func (e *Emitter) add(event string, l *Listener) *Listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]*Listener)
	}
	e.handlers[event] = append(e.handlers[event], l)
	return l
}

// Off removes handlers for event. A nil listener removes every handler for
// the event; otherwise only the first registration of l is removed.
//
// Parameters:
//   - event: The event name
//   - l: The listener to remove, or nil for all
func (e *Emitter) Off(event string, l *Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l == nil {
		delete(e.handlers, event)
		return
	}

	list := e.handlers[event]
	for i, existing := range list {
		if existing == l {
			next := make([]*Listener, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(e.handlers, event)
			} else {
				e.handlers[event] = next
			}
			return
		}
	}
}

// Emit invokes the handlers registered for event with args.
//
// Handlers added or removed while Emit runs do not change the current pass.
// A panic in a handler propagates out of Emit and the remaining handlers of
// this pass are not called.
//
// Parameters:
//   - event: The event name
//   - args: Arguments passed to every handler
func (e *Emitter) Emit(event string, args ...any) {
	for _, l := range e.Listeners(event) {
		if l.once {
			if !l.fired.CompareAndSwap(false, true) {
				continue
			}
			e.Off(event, l)
		}
		l.fn(args...)
	}
}

// Listeners returns a copy of the handlers registered for event.
//
// Parameters:
//   - event: The event name
//
// Returns:
//   - []*Listener: Registered listeners in registration order
func (e *Emitter) Listeners(event string) []*Listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.handlers[event]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Listener, len(list))
	copy(out, list)
	return out
}

// HasListeners reports whether any handler is registered for event.
func (e *Emitter) HasListeners(event string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event]) > 0
}
