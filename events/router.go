package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Handler processes specific event types
// The orchestrator implements this interface to receive routed events
type Handler interface {
	// HandleEvent processes a single event
	// Called synchronously during the dispatch phase
	HandleEvent(event Event)

	// EventTypes returns the event types this handler processes
	// The router uses this for registration
	EventTypes() []EventType
}

// Router dispatches events to registered handlers
//
// Architecture:
//   - Single-threaded dispatch
//   - Multiple handlers can register for the same event type
//   - Handlers are invoked in registration order
//   - EventInvoke payloads run directly without a handler
//   - A panicking handler is logged and skipped; dispatch continues
type Router struct {
	handlers map[EventType][]Handler
	queue    *EventQueue
	log      *slog.Logger
}

// NewRouter creates a router attached to the given queue
func NewRouter(queue *EventQueue) *Router {
	return &Router{
		handlers: make(map[EventType][]Handler),
		queue:    queue,
		log:      slog.Default().With("component", "events"),
	}
}

// Register adds a handler for its declared event types
func (r *Router) Register(handler Handler) {
	for _, t := range handler.EventTypes() {
		r.handlers[t] = append(r.handlers[t], handler)
	}
}

// DispatchAll consumes all pending events and routes to handlers
// Events are processed in FIFO order; returns the number consumed
func (r *Router) DispatchAll() int {
	events := r.queue.Consume()
	for _, ev := range events {
		if ev.Type == EventInvoke {
			if f, ok := ev.Payload.(func()); ok {
				r.safely(ev, f)
			}
			continue
		}
		handlers := r.handlers[ev.Type]
		if len(handlers) == 0 {
			r.log.Debug("event without handler", "type", ev.Type.String())
			continue
		}
		for _, h := range handlers {
			r.safely(ev, func() { h.HandleEvent(ev) })
		}
	}
	return len(events)
}

// safely runs f, converting a panic into a log entry
func (r *Router) safely(ev Event, f func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("event handler panic",
				"type", ev.Type.String(),
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
		}
	}()
	f()
}

// HasHandlers returns true if any handlers are registered for the given type
func (r *Router) HasHandlers(t EventType) bool {
	return len(r.handlers[t]) > 0
}

// HandlerCount returns the number of handlers registered for the given type
func (r *Router) HandlerCount(t EventType) int {
	return len(r.handlers[t])
}
