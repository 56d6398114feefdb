package events

import (
	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/topic"
)

// Empire event topics.
const (
	// TopicEmpire is the parent of every empire event.
	TopicEmpire topic.Topic = "empire"

	// TopicEmpireCollapse is published before an empire collapses.
	TopicEmpireCollapse topic.Topic = "empire.collapse"

	// TopicEmpireTechLevel is published before an empire's technology level
	// changes.
	TopicEmpireTechLevel topic.Topic = "empire.techlevel"
)

// Empire is the host's view of an active empire.
type Empire interface {
	UID() int
	Name() string
	StarCount() int
	TechnologyLevel() int
}

// EmpireEvent is implemented by every event about a single empire.
type EmpireEvent interface {
	event.Event
	Empire() Empire
}

// CollapseCause tells why an empire is collapsing.
type CollapseCause int

const (
	// CollapseUnknown is used when the host gave no recognizable reason.
	CollapseUnknown CollapseCause = iota

	// CollapseNoStars is used when the empire holds no stars.
	CollapseNoStars
)

// String returns the cause name.
func (c CollapseCause) String() string {
	switch c {
	case CollapseNoStars:
		return "no-stars"
	default:
		return "unknown"
	}
}

// CauseOf derives the collapse cause from the empire's state.
func CauseOf(e Empire) CollapseCause {
	if e.StarCount() == 0 {
		return CollapseNoStars
	}
	return CollapseUnknown
}

// EmpireCollapse is published before an empire collapses. Cancelling it
// keeps the empire alive.
type EmpireCollapse struct {
	event.Metadata
	event.Cancellation

	empire Empire

	// Cause is why the empire collapses.
	Cause CollapseCause
}

// NewEmpireCollapse creates a collapse event.
func NewEmpireCollapse(e Empire, cause CollapseCause) *EmpireCollapse {
	return &EmpireCollapse{Metadata: event.NewMetadata(Source), empire: e, Cause: cause}
}

// Type implements event.Event.
func (ev *EmpireCollapse) Type() topic.Topic { return TopicEmpireCollapse }

// Empire implements EmpireEvent.
func (ev *EmpireCollapse) Empire() Empire { return ev.empire }

// TechnologyLevelSet is published before an empire's technology level is
// set. Cancelling it keeps the current level.
type TechnologyLevelSet struct {
	event.Metadata
	event.Cancellation

	empire Empire

	// Old is the level before the change.
	Old int

	// New is the requested level.
	New int
}

// NewTechnologyLevelSet creates a technology level event.
func NewTechnologyLevelSet(e Empire, level int) *TechnologyLevelSet {
	return &TechnologyLevelSet{
		Metadata: event.NewMetadata(Source),
		empire:   e,
		Old:      e.TechnologyLevel(),
		New:      level,
	}
}

// Type implements event.Event.
func (ev *TechnologyLevelSet) Type() topic.Topic { return TopicEmpireTechLevel }

// Empire implements EmpireEvent.
func (ev *TechnologyLevelSet) Empire() Empire { return ev.empire }

var (
	_ EmpireEvent       = (*EmpireCollapse)(nil)
	_ EmpireEvent       = (*TechnologyLevelSet)(nil)
	_ event.Cancellable = (*EmpireCollapse)(nil)
	_ event.Cancellable = (*TechnologyLevelSet)(nil)
)
