// Package eventbus fans device and pilot events out to in-process observers.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"towerbot/internal/domain"
	"towerbot/internal/infra/logger"
)

// anyType matches every event type.
const anyType domain.EventType = ""

type subscription struct {
	id      uint64
	typ     domain.EventType
	handler domain.EventHandler
}

func (s subscription) matches(t domain.EventType) bool {
	return s.typ == anyType || s.typ == t
}

// Bus is an in-process, goroutine-safe event bus. Handlers run on their own
// goroutines so a slow observer never delays a tap.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
	logger *slog.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus. A nil logger discards handler panics.
func New(l *slog.Logger) *Bus {
	return &Bus{logger: logger.OrDiscard(l)}
}

// Publish hands event to every matching subscriber. Panicking handlers are
// recovered and logged.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(event.Type) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		b.dispatch(ctx, event, s)
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
	}()
}

// Subscribe registers handler for one event type and returns its
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers handler for every event and returns its
// unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add(anyType, handler)
}

func (b *Bus) add(typ domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, typ: typ, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Close stops further publishes and waits for in-flight handlers. It is
// idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}

// LogEvents subscribes a handler that writes every event to l at debug
// level. It returns the unsubscribe function.
func LogEvents(bus domain.EventBus, l *slog.Logger) func() {
	return bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		l.DebugContext(ctx, "event",
			"type", string(e.Type),
			"session_id", e.SessionID,
			"payload", string(e.Payload),
		)
	})
}
