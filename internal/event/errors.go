package event

import (
	"errors"
	"fmt"

	"github.com/dshills/starhook/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrNilListener is returned when a nil listener is registered.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrListenerNotComparable is returned for listeners that cannot be
	// identified, such as bare slices or structs holding a func in an
	// interface field.
	ErrListenerNotComparable = errors.New("listener is not comparable")

	// ErrInvalidBinding is returned when a listener declares a binding with
	// an invalid topic, priority or nil handler.
	ErrInvalidBinding = errors.New("invalid binding")

	// ErrEventTypeMismatch is returned by typed handlers that receive an
	// event of another type.
	ErrEventTypeMismatch = errors.New("event type mismatch")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("event cannot be nil")
)

// HandlerError wraps an error from a handler with additional context.
type HandlerError struct {
	// Binding names the failing binding.
	Binding string

	// Topic is the type of the event being delivered.
	Topic topic.Topic

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s: %v", e.Binding, e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value as an error.
type PanicError struct {
	// Binding names the binding whose handler panicked.
	Binding string

	// Topic is the type of the event being delivered.
	Topic topic.Topic

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s panicked on %s: %v", e.Binding, e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
