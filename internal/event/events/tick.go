package events

import (
	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/topic"
)

// Source is the metadata source of every event in this package.
const Source = "bridge"

// Tick event topics.
const (
	// TopicTick is the parent of both tick kinds.
	TopicTick topic.Topic = "tick"

	// TopicTickLogical is published around each simulation step.
	TopicTickLogical topic.Topic = "tick.logical"

	// TopicTickGraphical is published around each frame.
	TopicTickGraphical topic.Topic = "tick.graphical"
)

// LogicalPhase is the point of a simulation step at which a tick fires.
type LogicalPhase int

const (
	// LogicalPreGraphical fires on entry to the step, before the host
	// decides whether the simulation is paused.
	LogicalPreGraphical LogicalPhase = iota

	// LogicalPreLogical fires once the step is known to advance the game.
	LogicalPreLogical

	// LogicalPost fires after the step.
	LogicalPost
)

// String returns the phase name.
func (p LogicalPhase) String() string {
	switch p {
	case LogicalPreGraphical:
		return "pre-graphical"
	case LogicalPreLogical:
		return "pre-logical"
	case LogicalPost:
		return "post"
	default:
		return "unknown"
	}
}

// GraphicalPhase is the point of a frame at which a tick fires.
type GraphicalPhase int

const (
	GraphicalPre GraphicalPhase = iota
	GraphicalPost
)

// String returns the phase name.
func (p GraphicalPhase) String() string {
	if p == GraphicalPost {
		return "post"
	}
	return "pre"
}

// LogicalTick is published around each simulation step.
type LogicalTick struct {
	Phase LogicalPhase
}

// Type implements event.Event.
func (LogicalTick) Type() topic.Topic { return TopicTickLogical }

// GraphicalTick is published around each rendered frame.
type GraphicalTick struct {
	Phase GraphicalPhase
}

// Type implements event.Event.
func (GraphicalTick) Type() topic.Topic { return TopicTickGraphical }

var (
	_ event.Event = LogicalTick{}
	_ event.Event = GraphicalTick{}
)
