package event

import (
	"fmt"
	"time"

	"github.com/dshills/starhook/internal/event/topic"
)

// Priority determines handler execution order.
// Lower values execute first.
type Priority int

const (
	// PriorityLowest runs first and has the least say in the outcome.
	PriorityLowest Priority = iota

	// PriorityLow runs after PriorityLowest.
	PriorityLow

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityHigh runs after PriorityNormal.
	PriorityHigh

	// PriorityHighest runs last among handlers that may change the event.
	PriorityHighest

	// PriorityMonitor is for handlers that only observe the final outcome.
	PriorityMonitor

	numPriorities = int(PriorityMonitor) + 1
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	case PriorityMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses a priority name as returned by String.
func ParsePriority(s string) (Priority, error) {
	for p := PriorityLowest; p <= PriorityMonitor; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether p is one of the named tiers.
func (p Priority) Valid() bool {
	return p >= PriorityLowest && p <= PriorityMonitor
}

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event.
	Handle(ev Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ev Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ev Event) error {
	return f(ev)
}

// Binding attaches a handler to an event type at a priority. A binding
// receives events of its type and of every descendant type.
type Binding struct {
	Type     topic.Topic
	Priority Priority
	Handler  Handler

	// Name identifies the binding in logs and errors. Optional.
	Name string
}

// Listener declares its handler bindings. Listeners are registered by
// identity, so implementations must be comparable; pointer receivers are
// the usual choice.
type Listener interface {
	Bindings() []Binding
}

// Bind creates a binding for an untyped handler function.
func Bind(t topic.Topic, p Priority, fn func(ev Event) error) Binding {
	return Binding{Type: t, Priority: p, Handler: HandlerFunc(fn)}
}

// On creates a binding whose handler receives events as E. E may be a
// concrete event type or an interface shared by a family of events. A
// published event that is not an E is reported as ErrEventTypeMismatch.
func On[E Event](t topic.Topic, p Priority, fn func(ev E) error) Binding {
	return Binding{
		Type:     t,
		Priority: p,
		Handler: HandlerFunc(func(ev Event) error {
			typed, ok := ev.(E)
			if !ok {
				return fmt.Errorf("%w: %s delivered %T", ErrEventTypeMismatch, t, ev)
			}
			return fn(typed)
		}),
	}
}

type staticListener struct {
	bindings []Binding
}

func (l *staticListener) Bindings() []Binding {
	return l.bindings
}

// NewListener returns a listener with a fixed set of bindings. Every call
// returns a distinct listener.
func NewListener(bindings ...Binding) Listener {
	return &staticListener{bindings: bindings}
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsPublished is the total number of events published.
	EventsPublished uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// Rebuilds is the number of times the dispatch table was built.
	Rebuilds uint64

	// Listeners is the current number of registered listeners.
	Listeners int

	// HandlerTime is the cumulative time spent in handlers.
	HandlerTime time.Duration
}
