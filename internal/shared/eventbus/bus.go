package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kinto-admin/internal/shared/logger"

	"go.uber.org/zap"
)

// Event is what travels on the bus
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// WildcardType subscribes a handler to every published event
const WildcardType = "*"

// Handler handles one event
type Handler func(ctx context.Context, event Event) error

// Publisher is the publishing half of the bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus delivers events synchronously, in subscription order, to the
// handlers of the event type and then to the wildcard handlers. Handlers
// are never retried.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	logger   logger.Logger
}

// ErrClosed is returned when publishing on a closed bus
var ErrClosed = errors.New("event bus closed")

// NewEventBus creates a bus
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   log.WithComponent("eventbus"),
	}
}

// Subscribe adds a handler for an event type. Subscribing to a closed bus does nothing.
func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish runs every handler of the event, even when one fails, and returns
// the joined handler errors. A panicking handler fails with an error.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(eb.handlers[event.Type()])+len(eb.handlers[WildcardType]))
	handlers = append(handlers, eb.handlers[event.Type()]...)
	if event.Type() != WildcardType {
		handlers = append(handlers, eb.handlers[WildcardType]...)
	}
	eb.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := eb.run(ctx, event, handler); err != nil {
			eb.logger.Warn("Event handler failed", zap.String("event_type", event.Type()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (eb *EventBus) run(ctx context.Context, event Event, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %s: %v", event.Type(), r)
		}
	}()
	return handler(ctx, event)
}

// Unsubscribe removes all handlers for an event type
func (eb *EventBus) Unsubscribe(eventType string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	delete(eb.handlers, eventType)
}

// Close removes every handler; later publications fail with ErrClosed
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.closed = true
	eb.handlers = make(map[string][]Handler)
}

// SubscriberCount returns the number of handlers for an event type
func (eb *EventBus) SubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements Event
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewEvent creates an event published by source
func NewEvent(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string         { return e.eventType }
func (e *BasicEvent) Data() interface{}    { return e.data }
func (e *BasicEvent) Timestamp() time.Time { return e.timestamp }
func (e *BasicEvent) Source() string       { return e.source }
