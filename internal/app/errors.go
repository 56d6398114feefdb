// Package app wires configuration, logging, the event bus, the hook bridge,
// Lua extensions and the instrumentation engine into the operations exposed
// by the starhook command.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrNoHost is returned by the detached host used when no host is given.
	ErrNoHost = errors.New("no host attached")

	// ErrUnsupportedInput indicates an input that is neither a directory,
	// a class file nor a jar.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrNoInputs indicates an operation was started without inputs.
	ErrNoInputs = errors.New("no inputs")
)

// InitError represents an initialization failure of one component.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error that occurred while processing one
// input of an operation.
type OperationError struct {
	Op     string // Operation name (e.g., "read", "patch", "write")
	Target string // File or archive entry
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
