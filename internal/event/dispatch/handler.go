package dispatch

import (
	"time"
)

// Handler is the interface for event handlers.
// This mirrors the event.Handler interface to avoid circular imports.
type Handler interface {
	Handle(event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(event any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(event any) error {
	return f(event)
}

// Outcome classifies one handler run.
type Outcome uint8

// Handler outcomes.
const (
	Succeeded Outcome = iota
	Failed
	Panicked
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Panicked:
		return "panicked"
	}
	return "unknown"
}

// Result is the outcome of running one handler.
type Result struct {
	Outcome Outcome

	// Err is the error the handler returned when Outcome is Failed.
	Err error

	// Recovered and Stack describe the panic when Outcome is Panicked.
	Recovered any
	Stack     []byte

	Duration time.Duration
}

// OK reports whether the handler returned without error or panic.
func (r Result) OK() bool {
	return r.Outcome == Succeeded
}
