// Package events dispatches domain events to in-process handlers
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alchemorsel/planner/internal/domain/shared"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"go.uber.org/zap"
)

// Handler handles one domain event
type Handler func(ctx context.Context, event shared.DomainEvent) error

// Dispatcher implements outbound.EventPublisher. Handlers run synchronously
// in registration order; a failing handler does not stop the others.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

var _ outbound.EventPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a new event dispatcher
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		log:      log.Named("events"),
	}
}

// Register adds handler for events named eventName
func (d *Dispatcher) Register(eventName string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
	d.log.Debug("Registered event handler", zap.String("event", eventName))
}

// Publish dispatches events to their handlers. Handler errors are joined.
func (d *Dispatcher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		d.mu.RLock()
		handlers := d.handlers[event.EventName()]
		d.mu.RUnlock()

		if len(handlers) == 0 {
			d.log.Debug("No handlers registered for event", zap.String("event", event.EventName()))
			continue
		}

		for _, handler := range handlers {
			if err := handler(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", event.EventName(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// LogHandler writes every event it receives to log
func LogHandler(log *zap.Logger) Handler {
	return func(ctx context.Context, event shared.DomainEvent) error {
		log.Info("Domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
			zap.Any("payload", event),
		)
		return nil
	}
}
