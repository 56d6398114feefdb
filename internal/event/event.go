package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/starhook/internal/event/topic"
)

// Event is a value published on the bus. Events are immutable by
// convention; only cancellable events carry mutable state.
type Event interface {
	// Type is the hierarchical event type (e.g., "empire.collapse").
	Type() topic.Topic
}

// Cancellable is an event whose listeners may veto the host operation that
// raised it.
type Cancellable interface {
	Event
	Cancelled() bool
	SetCancelled(cancelled bool)
}

// Cancellation is embedded by cancellable events.
type Cancellation struct {
	cancelled bool
}

// Cancelled reports whether a listener cancelled the event.
func (c *Cancellation) Cancelled() bool {
	return c.cancelled
}

// SetCancelled sets the cancellation flag.
func (c *Cancellation) SetCancelled(cancelled bool) {
	c.cancelled = cancelled
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the module that published the event.
	Source string
}

// NewMetadata creates metadata with a fresh ID.
func NewMetadata(source string) Metadata {
	return Metadata{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
	}
}

// EventMetadata returns the metadata for type-erased handling.
func (m Metadata) EventMetadata() Metadata {
	return m
}

// MetadataProvider is implemented by events that embed Metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}

// IsCancelled reports whether ev is cancellable and was cancelled.
func IsCancelled(ev Event) bool {
	c, ok := ev.(Cancellable)
	return ok && c.Cancelled()
}
