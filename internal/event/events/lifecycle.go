package events

import (
	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/topic"
)

// Lifecycle event topics. Saving and saved are siblings, so a listener on
// TopicGalaxySaving does not see the end of the save.
const (
	// TopicLifecycle is the parent of every lifecycle event.
	TopicLifecycle topic.Topic = "lifecycle"

	// TopicGalaxySaving is published before the galaxy is written.
	TopicGalaxySaving topic.Topic = "lifecycle.saving"

	// TopicGalaxySaved is published after a save attempt, successful or not.
	TopicGalaxySaved topic.Topic = "lifecycle.saved"
)

// GalaxySaving is published before the galaxy is saved. A listener that
// returns an error aborts the save.
type GalaxySaving struct {
	event.Metadata

	// Cause is a free-form description of what triggered the save.
	Cause string

	// Location is the file the galaxy is written to.
	Location string

	// Natural is true when the host started the save itself.
	Natural bool
}

// NewGalaxySaving creates a save start event.
func NewGalaxySaving(cause, location string, natural bool) *GalaxySaving {
	return &GalaxySaving{
		Metadata: event.NewMetadata(Source),
		Cause:    cause,
		Location: location,
		Natural:  natural,
	}
}

// Type implements event.Event.
func (ev *GalaxySaving) Type() topic.Topic { return TopicGalaxySaving }

// GalaxySavingEnd is published after a save attempt.
type GalaxySavingEnd struct {
	event.Metadata

	// Location is the file the galaxy was written to.
	Location string

	// Natural is true when the host started the save itself.
	Natural bool

	// Err is the save failure, if any.
	Err error
}

// NewGalaxySavingEnd creates a save end event.
func NewGalaxySavingEnd(location string, natural bool, err error) *GalaxySavingEnd {
	return &GalaxySavingEnd{
		Metadata: event.NewMetadata(Source),
		Location: location,
		Natural:  natural,
		Err:      err,
	}
}

// Type implements event.Event.
func (ev *GalaxySavingEnd) Type() topic.Topic { return TopicGalaxySaved }
