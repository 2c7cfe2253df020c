// Package telemetry provides a bounded FIFO buffer of diagnostic records.
//
// The queue holds the most recent records up to a fixed capacity; the
// oldest record is evicted when a new one arrives at capacity. Recording
// is best-effort and never fails, whatever the payload.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the record capacity used when none is configured.
const DefaultCapacity = 50

// Record is a single diagnostic entry.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// Type classifies the record (e.g. "error", "interaction").
	Type string `json:"type"`

	// Payload is arbitrary structured data supplied by the producer.
	Payload any `json:"payload,omitempty"`

	// Context names the producer or subsystem that recorded the entry.
	Context string `json:"context,omitempty"`

	// Timestamp is the creation instant.
	Timestamp time.Time `json:"timestamp"`
}

// Queue is a bounded FIFO buffer of records. It is safe for concurrent
// use.
type Queue struct {
	mu       sync.Mutex
	records  []Record
	capacity int

	recorded  atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity sets the maximum number of retained records.
// Non-positive values fall back to DefaultCapacity.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make([]Record, 0, q.capacity)
	return q
}

// Record appends a new entry at the tail, evicting the oldest entry if
// the queue is at capacity. It never panics; malformed input degrades to
// a best-effort record.
func (q *Queue) Record(recordType string, payload any, context string) {
	defer func() {
		// Telemetry must never take the process down.
		_ = recover()
	}()

	rec := Record{
		ID:        uuid.NewString(),
		Type:      recordType,
		Payload:   payload,
		Context:   context,
		Timestamp: time.Now(),
	}

	q.mu.Lock()
	if len(q.records) >= q.capacity {
		evict := len(q.records) - q.capacity + 1
		q.records = append(q.records[:0], q.records[evict:]...)
		q.evictions.Add(uint64(evict))
	}
	q.records = append(q.records, rec)
	q.mu.Unlock()

	q.recorded.Add(1)
}

// Snapshot returns an independent copy of the queue contents in creation
// order. Mutating the returned slice never affects the queue.
func (q *Queue) Snapshot() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Record, len(q.records))
	copy(out, q.records)
	return out
}

// Len returns the current number of retained records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Capacity returns the configured record capacity.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Clear discards all retained records.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = q.records[:0]
}

// Stats returns current queue statistics.
func (q *Queue) Stats() Stats {
	return Stats{
		Recorded:  q.recorded.Load(),
		Evictions: q.evictions.Load(),
		Length:    q.Len(),
	}
}

// Stats contains queue counters.
type Stats struct {
	// Recorded is the total number of Record calls.
	Recorded uint64

	// Evictions is the number of records dropped at capacity.
	Evictions uint64

	// Length is the current number of retained records.
	Length int
}
