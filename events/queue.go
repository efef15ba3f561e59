package events

import (
	"log/slog"
	"sync"

	"github.com/lixenwraith/diffsound/constant"
)

// EventQueue is an unbounded MPSC queue for host events
// Thread-Safety:
//   - Push: multiple producers OK, never blocks (callable under the audio lock)
//   - Consume: single consumer (event loop)
//   - Wake: one pending signal coalesces any number of pushes
//
// Overflow: none; events are never dropped since tab counts depend on every one
type EventQueue struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	warned  bool
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		pending: make([]Event, 0, constant.EventQueueSize),
		wake:    make(chan struct{}, 1),
	}
}

// Push appends event and signals the consumer
func (eq *EventQueue) Push(event Event) {
	eq.mu.Lock()
	eq.pending = append(eq.pending, event)
	if len(eq.pending) > constant.EventQueueWarn && !eq.warned {
		eq.warned = true
		slog.Default().Warn("event backlog growing", "component", "events", "pending", len(eq.pending))
	}
	eq.mu.Unlock()

	select {
	case eq.wake <- struct{}{}:
	default:
	}
}

// Invoke queues f to run on the consumer goroutine
func (eq *EventQueue) Invoke(f func()) {
	if f == nil {
		return
	}
	eq.Push(Event{Type: EventInvoke, Payload: f})
}

// Consume returns all pending events in FIFO order
func (eq *EventQueue) Consume() []Event {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	if len(eq.pending) == 0 {
		return nil
	}
	result := eq.pending
	eq.pending = make([]Event, 0, constant.EventQueueSize)
	eq.warned = false
	return result
}

// Len returns the number of pending events
func (eq *EventQueue) Len() int {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return len(eq.pending)
}

// Wake is signalled after every Push
func (eq *EventQueue) Wake() <-chan struct{} {
	return eq.wake
}
