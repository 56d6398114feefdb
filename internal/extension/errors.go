package extension

import "errors"

// Errors for extension loading and execution.
var (
	// ErrStateClosed is returned when calling into a closed extension.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a handler runs too long.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNoBindings is returned for a script that binds no handlers.
	ErrNoBindings = errors.New("extension binds no handlers")
)
