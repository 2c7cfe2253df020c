package bus

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Handler processes a published event payload.
// The payload is type-erased; handlers should type-assert.
type Handler func(data any)

// ErrorHandler is called when a handler panics during dispatch.
// The error is a *PanicError describing the recovered value.
type ErrorHandler func(topic string, data any, err error)

// Bus is a synchronous topic-keyed publish/subscribe bus.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]*Subscription
	nextID uint64

	errHandler ErrorHandler
	tracer     *zerolog.Logger

	// Stats
	published   atomic.Uint64
	delivered   atomic.Uint64
	panics      atomic.Uint64
	subscribers atomic.Int64
}

// Option configures a Bus.
type Option func(*Bus)

// WithErrorHandler sets the callback invoked when a handler panics.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) {
		b.errHandler = h
	}
}

// WithTracer installs a diagnostic logger. When set, every Publish call
// emits a trace event with the topic and payload.
func WithTracer(l zerolog.Logger) Option {
	return func(b *Bus) {
		b.tracer = &l
	}
}

// New creates a new event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics: make(map[string][]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register appends handler to the topic's handler sequence and returns a
// subscription handle for later removal. Duplicate registrations of the
// same function are permitted and are tracked as distinct subscriptions.
// A nil handler returns an inert handle and registers nothing.
func (b *Bus) Register(topic string, handler Handler, opts ...SubscriptionOption) *Subscription {
	if handler == nil || topic == "" {
		return &Subscription{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := newSubscription(b, b.nextID, topic, handler, opts...)
	b.topics[topic] = append(b.topics[topic], sub)
	b.subscribers.Add(1)
	return sub
}

// Unregister removes the given subscription from its topic.
// It is a no-op for nil, inert, or already-removed subscriptions.
func (b *Bus) Unregister(sub *Subscription) {
	if sub == nil || sub.bus != b {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// removeLocked removes sub from its topic slice. Caller holds b.mu.
func (b *Bus) removeLocked(sub *Subscription) {
	subs := b.topics[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			b.topics[sub.topic] = append(subs[:i], subs[i+1:]...)
			b.subscribers.Add(-1)
			break
		}
	}
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
}

// Publish synchronously invokes every handler currently registered for
// topic, in registration order, with data as the sole argument.
// Publishing to a topic with no handlers is a no-op, not an error.
//
// The handler set is snapshotted when Publish starts: registrations and
// removals performed by handlers during this pass apply only to future
// Publish calls.
func (b *Bus) Publish(topic string, data any) {
	b.mu.RLock()
	var snapshot []*Subscription
	if subs := b.topics[topic]; len(subs) > 0 {
		snapshot = make([]*Subscription, len(subs))
		copy(snapshot, subs)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	if b.tracer != nil {
		b.tracer.Trace().
			Str("topic", topic).
			Interface("data", data).
			Int("handlers", len(snapshot)).
			Msg("publish")
	}

	for _, sub := range snapshot {
		b.invoke(sub, topic, data)
		if sub.once {
			b.Unregister(sub)
		}
	}
}

// invoke runs a single handler with panic isolation.
func (b *Bus) invoke(sub *Subscription, topic string, data any) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			if b.errHandler != nil {
				b.errHandler(topic, data, &PanicError{Topic: topic, Value: r})
			}
		}
	}()

	sub.handler(data)
	b.delivered.Add(1)
}

// Topics returns the topics that currently have at least one handler.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.topics) == 0 {
		return nil
	}
	topics := make([]string, 0, len(b.topics))
	for t := range b.topics {
		topics = append(topics, t)
	}
	return topics
}

// HandlerCount returns the number of handlers registered for topic.
func (b *Bus) HandlerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Panics:      b.panics.Load(),
		Subscribers: b.subscribers.Load(),
	}
}

// Stats contains event bus counters.
type Stats struct {
	// Published is the total number of Publish calls.
	Published uint64

	// Delivered is the total number of successful handler invocations.
	Delivered uint64

	// Panics is the number of handler invocations that panicked.
	Panics uint64

	// Subscribers is the current number of registered handlers.
	Subscribers int64
}
