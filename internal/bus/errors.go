package bus

import (
	"errors"
	"fmt"
)

// ErrHandlerPanic matches any *PanicError via errors.Is.
var ErrHandlerPanic = errors.New("handler panicked")

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	// Topic is the topic being dispatched when the handler panicked.
	Topic string

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic on topic %q: %v", e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
