package boot

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sequencer.
var (
	// ErrAlreadyFired is returned when the lifecycle signal has already
	// fired.
	ErrAlreadyFired = errors.New("lifecycle signal already fired")

	// ErrNilInitializer is returned when OnReady is given a nil function.
	ErrNilInitializer = errors.New("initializer cannot be nil")

	// ErrPrecondition matches any *PreconditionError via errors.Is.
	ErrPrecondition = errors.New("bootstrap precondition failed")
)

// PreconditionError reports a failed guard check. It is fatal: startup
// must abort rather than continue degraded.
type PreconditionError struct {
	Err error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return "bootstrap precondition failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PreconditionError) Unwrap() error { return e.Err }

// Is allows errors.Is to match PreconditionError with ErrPrecondition.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// InitError wraps a failure from a named module initializer.
type InitError struct {
	Module string
	Err    error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return "init " + e.Module + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking initializer.
type PanicError struct {
	Module string
	Value  any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("init %s panicked: %v", e.Module, e.Value)
}

// fatalError marks an error that must halt the bootstrap pass.
type fatalError struct {
	err error
}

// Fatal wraps err so that the sequencer halts remaining initializers
// and returns the failure from Fire.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Error implements the error interface.
func (e *fatalError) Error() string { return "fatal: " + e.err.Error() }

// Unwrap returns the underlying error.
func (e *fatalError) Unwrap() error { return e.err }

// IsFatal reports whether err is or wraps a fatal bootstrap failure.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
