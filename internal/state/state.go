// Package state provides a reactive key-value store that synchronously
// notifies per-key subscribers on every write.
//
// Notification follows the same snapshot-iteration discipline as the
// event bus: the subscriber set for a Set call is fixed when the call
// starts, so subscribers added or removed during a notification pass take
// effect from the next write.
package state

import (
	"sync"
	"sync/atomic"
)

// SubscribeFunc is called with the new value after a key is written.
type SubscribeFunc func(value any)

// ErrorHandler is called when a subscriber panics during notification.
type ErrorHandler func(key string, value any, recovered any)

// Store is a reactive key-value store. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	values      map[string]any
	subscribers map[string][]*Subscription
	nextID      uint64

	errHandler ErrorHandler
	persister  Persister
	persistent map[string]bool

	// Stats
	writes  atomic.Uint64
	notifns atomic.Uint64
	panics  atomic.Uint64
}

// Option configures a Store.
type Option func(*Store)

// WithErrorHandler sets the callback invoked when a subscriber panics.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Store) {
		s.errHandler = h
	}
}

// WithPersistence binds the given keys to a persister. Writes to a bound
// key are written through; Load seeds bound keys from the persister.
func WithPersistence(p Persister, keys ...string) Option {
	return func(s *Store) {
		s.persister = p
		for _, k := range keys {
			s.persistent[k] = true
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		values:      make(map[string]any),
		subscribers: make(map[string][]*Subscription),
		persistent:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the last value written for key. The second return value
// reports whether the key has ever been written; a never-written key
// yields (nil, false), not an error.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set unconditionally overwrites the value for key, then synchronously
// invokes every subscriber registered for key, in registration order,
// with the new value. Subscribers fire even when the new value equals
// the previous one.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	var snapshot []*Subscription
	if subs := s.subscribers[key]; len(subs) > 0 {
		snapshot = make([]*Subscription, len(subs))
		copy(snapshot, subs)
	}
	if s.persister != nil && s.persistent[key] {
		// Persist under the lock so the backend sees bound-key writes
		// in the same order as the in-memory map. Best-effort; a
		// failing backend never blocks in-process subscribers.
		_ = s.persister.Store(key, value)
	}
	s.mu.Unlock()

	s.writes.Add(1)

	for _, sub := range snapshot {
		s.notify(sub, key, value)
	}
}

// notify runs a single subscriber with panic isolation.
func (s *Store) notify(sub *Subscription, key string, value any) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			if s.errHandler != nil {
				s.errHandler(key, value, r)
			}
		}
	}()

	sub.fn(value)
	s.notifns.Add(1)
}

// Subscribe appends fn to key's subscriber sequence and returns a handle
// for removal. fn is not invoked with the current value at subscribe
// time; only future Set calls trigger it. A nil fn returns an inert
// handle and registers nothing.
func (s *Store) Subscribe(key string, fn SubscribeFunc) *Subscription {
	if fn == nil || key == "" {
		return &Subscription{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &Subscription{store: s, id: s.nextID, key: key, fn: fn}
	s.subscribers[key] = append(s.subscribers[key], sub)
	return sub
}

// unsubscribe removes sub from its key's subscriber sequence.
func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[sub.key]
	for i, candidate := range subs {
		if candidate.id == sub.id {
			s.subscribers[sub.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(s.subscribers[sub.key]) == 0 {
		delete(s.subscribers, sub.key)
	}
}

// Load seeds bound keys from the configured persister without notifying
// subscribers. Keys absent from the backend stay unset.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	for key := range s.persistent {
		v, ok, err := s.persister.Fetch(key)
		if err != nil {
			return err
		}
		if ok {
			s.values[key] = v
		}
	}
	return nil
}

// Keys returns all keys that have been written, in unspecified order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of keys that have been written.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns an independent copy of the current key-value map.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	subs := 0
	for _, list := range s.subscribers {
		subs += len(list)
	}
	s.mu.RUnlock()

	return Stats{
		Writes:        s.writes.Load(),
		Notifications: s.notifns.Load(),
		Panics:        s.panics.Load(),
		Subscribers:   subs,
	}
}

// Stats contains store counters.
type Stats struct {
	// Writes is the total number of Set calls.
	Writes uint64

	// Notifications is the total number of successful subscriber calls.
	Notifications uint64

	// Panics is the number of subscriber calls that panicked.
	Panics uint64

	// Subscribers is the current number of registered subscribers.
	Subscribers int
}

// Subscription represents a single subscriber registration on a key.
type Subscription struct {
	store *Store
	id    uint64
	key   string
	fn    SubscribeFunc
}

// Key returns the key this subscription watches.
// Inert subscriptions return the empty string.
func (s *Subscription) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

// Unsubscribe removes this subscription from the store.
// It is safe to call multiple times and on inert subscriptions.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.store == nil {
		return
	}
	s.store.unsubscribe(s)
}
