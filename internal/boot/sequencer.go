// Package boot coordinates one-time firing of the application lifecycle
// signal that runs registered module initializers.
//
// Modules register initializers while the sequencer is in the Loading
// phase. Fire runs every initializer synchronously, in registration
// order, then leaves the sequencer in the Steady phase. There is no
// dependency graph; ordering is purely registration order, so a module
// that needs another module's published state at startup must subscribe
// to that state key before the signal fires.
package boot

import (
	"sync"
)

// Phase is the lifecycle phase of the sequencer.
type Phase int32

const (
	// PhaseLoading means modules may still register initializers.
	PhaseLoading Phase = iota

	// PhaseReady means the lifecycle signal is firing and initializers
	// are executing.
	PhaseReady

	// PhaseSteady means the signal has fired and the system operates via
	// already-registered handlers.
	PhaseSteady
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// InitFunc is a module initializer run when the lifecycle signal fires.
type InitFunc func() error

// ErrorHandler is called when an initializer fails or panics.
// Fatal failures are additionally returned from Fire.
type ErrorHandler func(module string, err error)

// Sequencer runs registered initializers when the lifecycle signal
// fires. It is safe for concurrent registration, but Fire itself runs
// initializers on the calling goroutine.
type Sequencer struct {
	mu    sync.Mutex
	phase Phase
	inits []initializer

	guard      func() error
	errHandler ErrorHandler
}

type initializer struct {
	name string
	fn   InitFunc
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithGuard installs a precondition checked when Fire is called. A
// non-nil guard error aborts the firing before any initializer runs and
// is returned wrapped in ErrPrecondition.
func WithGuard(guard func() error) Option {
	return func(s *Sequencer) {
		s.guard = guard
	}
}

// WithErrorHandler sets the callback invoked when an initializer fails.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Sequencer) {
		s.errHandler = h
	}
}

// New creates a sequencer in the Loading phase.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current lifecycle phase.
func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// OnReady registers an initializer to run when the lifecycle signal
// fires. Registration is only valid during the Loading phase; afterwards
// ErrAlreadyFired is returned and the initializer is dropped.
func (s *Sequencer) OnReady(name string, fn InitFunc) error {
	if fn == nil {
		return ErrNilInitializer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLoading {
		return ErrAlreadyFired
	}
	s.inits = append(s.inits, initializer{name: name, fn: fn})
	return nil
}

// Modules returns the registered initializer names in registration
// order.
func (s *Sequencer) Modules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inits) == 0 {
		return nil
	}
	names := make([]string, len(s.inits))
	for i, init := range s.inits {
		names[i] = init.name
	}
	return names
}

// Fire fires the lifecycle signal exactly once: every registered
// initializer runs synchronously in registration order. A second call
// returns ErrAlreadyFired without re-running initializers.
//
// Individual initializer failures are isolated: an error return or a
// panic is reported through the error handler and the remaining
// initializers still run. A failure wrapped with Fatal halts the pass
// and is returned; the guard precondition failing aborts before any
// initializer runs.
func (s *Sequencer) Fire() error {
	s.mu.Lock()
	if s.phase != PhaseLoading {
		s.mu.Unlock()
		return ErrAlreadyFired
	}
	if s.guard != nil {
		if err := s.guard(); err != nil {
			s.mu.Unlock()
			return &PreconditionError{Err: err}
		}
	}
	s.phase = PhaseReady
	inits := make([]initializer, len(s.inits))
	copy(inits, s.inits)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.phase = PhaseSteady
		s.mu.Unlock()
	}()

	for _, init := range inits {
		err := s.run(init)
		if err == nil {
			continue
		}
		if s.errHandler != nil {
			s.errHandler(init.name, err)
		}
		if IsFatal(err) {
			return &InitError{Module: init.name, Err: err}
		}
	}
	return nil
}

// run executes a single initializer with panic isolation.
func (s *Sequencer) run(init initializer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Module: init.name, Value: r}
		}
	}()
	return init.fn()
}
