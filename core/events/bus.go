// Package events is a small publish/subscribe bus for model lifecycle
// events. The loader publishes on it when models are defined, undefined
// and reloaded.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event names.
const (
	ModelDefined    = "model.defined"
	ModelUndefined  = "model.undefined"
	SchemasReloaded = "schemas.reloaded"
	SchemasFailed   = "schemas.failed"
)

// Event represents a published event.
type Event struct {
	// Name is the event name, e.g. "model.defined".
	Name string

	// Model is the model the event is about, if any.
	Model string

	// Data contains the event payload.
	Data map[string]any

	// Err is set on failure events.
	Err error
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event. Supported patterns:
//   - "model.defined" - exact match
//   - "model.*" - every event in the group
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish calls every matching handler synchronously: exact subscribers
// first, then group and global wildcards. Handler errors are logged and
// do not stop delivery. Handlers may subscribe or publish themselves.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("model", event.Model).
		Int("handlers", len(matched)).
		Msg("event published")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers reports whether any handler would receive the event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if group, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[group+".*"]...)
	}
	matched = append(matched, b.handlers["*"]...)
	return matched
}
