package hook

import (
	"errors"
	"fmt"
)

// Sentinel errors for the hook layer.
var (
	// ErrUnknownHook is returned when calling a reference with no function.
	ErrUnknownHook = errors.New("unknown hook")

	// ErrDuplicateHook is returned when a reference is registered twice.
	ErrDuplicateHook = errors.New("hook already registered")

	// ErrNotMethod is returned when registering a field reference.
	ErrNotMethod = errors.New("hook reference is not a method")

	// ErrArity is returned when a hook is called with the wrong number of
	// arguments for its descriptor.
	ErrArity = errors.New("wrong number of hook arguments")

	// ErrArgType is returned when a hook argument has an unexpected type.
	ErrArgType = errors.New("bad hook argument type")

	// ErrSaveFailed is returned when a save is vetoed by a listener or the
	// host fails to write the galaxy.
	ErrSaveFailed = errors.New("save failed")

	// ErrHostPanic is matched by a *PanicError from a host callback.
	ErrHostPanic = errors.New("host panicked")
)

// PanicError is a panic recovered from a host callback.
type PanicError struct {
	// Op names the host method that panicked.
	Op string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("host %s panicked: %v", e.Op, e.Value)
}

// Is matches ErrHostPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHostPanic
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
