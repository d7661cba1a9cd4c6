package bus

import (
	"log/slog"
	"sync"
	"time"
)

// Event is an internal observability event. Action failures and timeouts
// are reported here by the dispatcher instead of being raised to the
// turn-processing caller.
type Event struct {
	Type      string         // e.g. "action.error", "action.timeout"
	Source    string         // originating component
	Payload   map[string]any // event-specific data
	Timestamp time.Time
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus is a topic-based publish/subscribe system for internal events.
// Use "*" to subscribe to all events.
type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewEventBus creates a new EventBus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// On registers a handler for the given event type.
func (eb *EventBus) On(eventType string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers, synchronously and in
// registration order. A panicking handler is contained and logged.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[event.Type]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.RUnlock()

	for _, h := range handlers {
		func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "event", event.Type, "panic", r)
				}
			}()
			h(event)
		}(h)
	}
}

// Well-known event types.
const (
	EventActionError     = "action.error"
	EventActionTimeout   = "action.timeout"
	EventTurnProcessed   = "turn.processed"
	EventDSTNoTransition = "dst.no_transition"
)
