package bus

// Subscription represents a single handler registration on a topic.
// Each call to Register produces a distinct subscription, so duplicate
// handlers can be removed individually.
type Subscription struct {
	bus     *Bus
	id      uint64
	topic   string
	handler Handler
	once    bool
}

// SubscriptionOption configures a subscription at registration time.
type SubscriptionOption func(*Subscription)

// WithOnce removes the subscription after its first delivery.
func WithOnce() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// newSubscription creates a subscription owned by b. Caller holds b.mu.
func newSubscription(b *Bus, id uint64, topic string, h Handler, opts ...SubscriptionOption) *Subscription {
	s := &Subscription{
		bus:     b,
		id:      id,
		topic:   topic,
		handler: h,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Topic returns the topic this subscription is registered on.
// Inert subscriptions return the empty string.
func (s *Subscription) Topic() string {
	if s == nil {
		return ""
	}
	return s.topic
}

// Unsubscribe removes this subscription from the bus.
// It is safe to call multiple times and on inert subscriptions.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Unregister(s)
}
