package telemetry

import (
	"github.com/dshills/corekit/internal/bus"
)

// Collector feeds a queue from event bus topics. The queue itself has no
// bus knowledge; the collector is the only coupling point.
type Collector struct {
	queue *Queue
	bus   *bus.Bus
	subs  []*bus.Subscription
}

// NewCollector creates a collector recording into q from b.
func NewCollector(q *Queue, b *bus.Bus) *Collector {
	return &Collector{queue: q, bus: b}
}

// Watch subscribes to topic and translates every published payload into
// a record of the given type, attributed to context.
func (c *Collector) Watch(topic, recordType, context string) {
	sub := c.bus.Register(topic, func(data any) {
		c.queue.Record(recordType, data, context)
	})
	c.subs = append(c.subs, sub)
}

// Close removes all collector subscriptions from the bus.
func (c *Collector) Close() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}
