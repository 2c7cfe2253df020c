// Package core assembles the coordination runtime: event bus, state
// store, telemetry queue and bootstrap sequencer, owned by a single
// explicit Runtime value.
//
// The Runtime is dependency-injected rather than process-global, so
// tests and embedders can run multiple isolated instances side by side.
package core

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/dshills/corekit/internal/boot"
	"github.com/dshills/corekit/internal/bus"
	"github.com/dshills/corekit/internal/state"
	"github.com/dshills/corekit/internal/telemetry"
)

// Well-known lifecycle topics.
const (
	// TopicReady is published on the bus when the lifecycle signal fires.
	TopicReady = "app.ready"

	// TopicError carries application-level error events.
	TopicError = "app.error"
)

// ErrNoRuntime is the fatal bootstrap precondition failure: the
// coordination context is absent when the lifecycle signal fires.
var ErrNoRuntime = errors.New("coordination runtime is not initialized")

// Runtime owns the coordination primitives and exposes the operations
// feature modules consume.
type Runtime struct {
	bus       *bus.Bus
	store     *state.Store
	queue     *telemetry.Queue
	seq       *boot.Sequencer
	collector *telemetry.Collector

	log         zerolog.Logger
	diagnostics bool
}

// config collects constructor options before the components exist.
type config struct {
	log         zerolog.Logger
	diagnostics bool
	capacity    int
	persister   state.Persister
	persistKeys []string
}

// Option configures a Runtime.
type Option func(*config)

// WithLogger sets the runtime logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithDiagnostics enables diagnostic tracing: publishes and records emit
// trace output, and lifecycle and error events are mirrored into the
// telemetry queue.
func WithDiagnostics(enabled bool) Option {
	return func(c *config) {
		c.diagnostics = enabled
	}
}

// WithTelemetryCapacity overrides the telemetry queue capacity.
func WithTelemetryCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithPersistence binds the given state keys to a persister.
func WithPersistence(p state.Persister, keys ...string) Option {
	return func(c *config) {
		c.persister = p
		c.persistKeys = keys
	}
}

// New creates a fully wired Runtime.
func New(opts ...Option) *Runtime {
	cfg := config{
		log:      zerolog.Nop(),
		capacity: telemetry.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runtime{
		log:         cfg.log,
		diagnostics: cfg.diagnostics,
	}

	busOpts := []bus.Option{
		bus.WithErrorHandler(r.onHandlerPanic),
	}
	if cfg.diagnostics {
		busOpts = append(busOpts, bus.WithTracer(cfg.log))
	}
	r.bus = bus.New(busOpts...)

	storeOpts := []state.Option{
		state.WithErrorHandler(r.onSubscriberPanic),
	}
	if cfg.persister != nil {
		storeOpts = append(storeOpts, state.WithPersistence(cfg.persister, cfg.persistKeys...))
	}
	r.store = state.New(storeOpts...)

	r.queue = telemetry.NewQueue(telemetry.WithCapacity(cfg.capacity))

	r.seq = boot.New(
		boot.WithGuard(r.check),
		boot.WithErrorHandler(r.onInitFailure),
	)

	if cfg.diagnostics {
		r.collector = telemetry.NewCollector(r.queue, r.bus)
		r.collector.Watch(TopicError, "error", "runtime")
		r.collector.Watch(TopicReady, "lifecycle", "runtime")
	}

	return r
}

// check is the bootstrap guard: the coordination context must exist in
// full before the lifecycle signal may fire.
func (r *Runtime) check() error {
	if r == nil || r.bus == nil || r.store == nil || r.queue == nil {
		return ErrNoRuntime
	}
	return nil
}

// onHandlerPanic reports an event handler panic: logged, recorded, never
// fatal.
func (r *Runtime) onHandlerPanic(topic string, data any, err error) {
	r.log.Error().Str("topic", topic).Err(err).Msg("event handler panicked")
	r.queue.Record("panic", map[string]any{"topic": topic, "error": err.Error()}, "bus")
}

// onSubscriberPanic reports a state subscriber panic.
func (r *Runtime) onSubscriberPanic(key string, value any, recovered any) {
	r.log.Error().Str("key", key).Interface("recovered", recovered).Msg("state subscriber panicked")
	r.queue.Record("panic", map[string]any{"key": key}, "state")
}

// onInitFailure reports a failed module initializer.
func (r *Runtime) onInitFailure(module string, err error) {
	r.log.Error().Str("module", module).Err(err).Msg("module initializer failed")
	r.queue.Record("init_failure", map[string]any{"module": module, "error": err.Error()}, "boot")
}

// Register appends a handler for topic on the event bus.
func (r *Runtime) Register(topic string, handler bus.Handler, opts ...bus.SubscriptionOption) *bus.Subscription {
	return r.bus.Register(topic, handler, opts...)
}

// Unregister removes a bus subscription.
func (r *Runtime) Unregister(sub *bus.Subscription) {
	r.bus.Unregister(sub)
}

// Publish synchronously dispatches data to every handler of topic.
func (r *Runtime) Publish(topic string, data any) {
	r.bus.Publish(topic, data)
}

// Get returns the last value written for key; ok reports whether the key
// was ever written.
func (r *Runtime) Get(key string) (any, bool) {
	return r.store.Get(key)
}

// Set overwrites the value for key and notifies its subscribers.
func (r *Runtime) Set(key string, value any) {
	if r.diagnostics {
		r.log.Trace().Str("key", key).Interface("value", value).Msg("state set")
	}
	r.store.Set(key, value)
}

// Subscribe registers fn for future writes to key.
func (r *Runtime) Subscribe(key string, fn state.SubscribeFunc) *state.Subscription {
	return r.store.Subscribe(key, fn)
}

// Record appends a diagnostic record to the telemetry queue.
func (r *Runtime) Record(recordType string, payload any, context string) {
	if r.diagnostics {
		r.log.Trace().Str("type", recordType).Str("context", context).Msg("telemetry record")
	}
	r.queue.Record(recordType, payload, context)
}

// Telemetry returns a copy of the telemetry queue contents.
func (r *Runtime) Telemetry() []telemetry.Record {
	return r.queue.Snapshot()
}

// OnReady registers a module initializer to run when the lifecycle
// signal fires.
func (r *Runtime) OnReady(name string, fn boot.InitFunc) error {
	return r.seq.OnReady(name, fn)
}

// Fire fires the lifecycle signal: registered initializers run in
// registration order, then TopicReady is published on the bus. A fatal
// precondition or initializer failure is returned and must abort
// startup.
func (r *Runtime) Fire() error {
	if r == nil {
		return &boot.PreconditionError{Err: ErrNoRuntime}
	}
	r.log.Info().Strs("modules", r.seq.Modules()).Msg("firing lifecycle signal")

	if err := r.seq.Fire(); err != nil {
		return err
	}
	r.bus.Publish(TopicReady, nil)
	return nil
}

// Phase returns the current lifecycle phase.
func (r *Runtime) Phase() boot.Phase {
	return r.seq.Phase()
}

// Bus returns the runtime's event bus.
func (r *Runtime) Bus() *bus.Bus { return r.bus }

// Store returns the runtime's state store.
func (r *Runtime) Store() *state.Store { return r.store }

// Queue returns the runtime's telemetry queue.
func (r *Runtime) Queue() *telemetry.Queue { return r.queue }

// LoadState seeds persisted keys from the configured persister.
func (r *Runtime) LoadState() error {
	return r.store.Load()
}

// Close releases runtime wiring (collector subscriptions).
func (r *Runtime) Close() {
	if r.collector != nil {
		r.collector.Close()
	}
}

// Stats aggregates component statistics for the diagnostic surface.
type Stats struct {
	Bus       bus.Stats
	Store     state.Stats
	Telemetry telemetry.Stats
	Phase     string
}

// Stats returns a point-in-time view of runtime counters.
func (r *Runtime) Stats() Stats {
	return Stats{
		Bus:       r.bus.Stats(),
		Store:     r.store.Stats(),
		Telemetry: r.queue.Stats(),
		Phase:     r.seq.Phase().String(),
	}
}
