package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans domain events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// bus delivers events synchronously on the publisher's goroutine, so a
// subscriber observes the publisher's lane ordering.
type bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &bus{subscribers: make(map[EventType][]EventHandler)}
}

// Publish runs every subscriber of the event type. A failing or panicking
// subscriber does not stop the others; their errors are joined.
func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := b.subscribers[event.Type]
	b.mu.RUnlock()

	var errs []error
	for i, handle := range subs {
		if err := deliver(ctx, handle, event); err != nil {
			errs = append(errs, fmt.Errorf("%s subscriber %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handle EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handle(ctx, event)
}

// Subscribe registers a handler for the given event type.
func (b *bus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Copy on write so Publish can iterate a snapshot without holding the lock.
	next := make([]EventHandler, len(b.subscribers[eventType]), len(b.subscribers[eventType])+1)
	copy(next, b.subscribers[eventType])
	b.subscribers[eventType] = append(next, handler)
}
