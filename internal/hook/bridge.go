package hook

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/events"
)

// Host is the part of the patched application the bridge calls back into.
type Host interface {
	// SaveState serializes the current galaxy to w.
	SaveState(w io.Writer) error

	// SetStatus shows a short message in the host's status line.
	SetStatus(msg string)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// Bridge implements the hook functions called by patched host methods.
type Bridge struct {
	bus  *event.Bus
	host Host
	log  zerolog.Logger

	// saving is set for the duration of a natural save.
	saving atomic.Bool

	mu       sync.Mutex
	postSave []func()
}

// New creates a bridge publishing on bus.
func New(bus *event.Bus, host Host, opts ...Option) *Bridge {
	b := &Bridge{
		bus:  bus,
		host: host,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bus returns the bus the bridge publishes on.
func (b *Bridge) Bus() *event.Bus {
	return b.bus
}

// EmitCollapse is called before an empire collapses. It returns true when a
// listener cancelled the collapse.
func (b *Bridge) EmitCollapse(e events.Empire) bool {
	cause := events.CauseOf(e)
	if cause == events.CollapseUnknown {
		b.log.Debug().
			Int("empire", e.UID()).
			Int("stars", e.StarCount()).
			Msg("empire collapses for an unknown reason")
	}
	ev := events.NewEmpireCollapse(e, cause)
	b.bus.Publish(ev)
	return ev.Cancelled()
}

// SetTechLevel is called before an empire's technology level changes. It
// returns true when a listener vetoed the change.
func (b *Bridge) SetTechLevel(e events.Empire, level int) bool {
	ev := events.NewTechnologyLevelSet(e, level)
	b.bus.Publish(ev)
	return ev.Cancelled()
}

// GraphicalTickPre is called on entry to the frame method.
func (b *Bridge) GraphicalTickPre() {
	b.bus.Publish(events.GraphicalTick{Phase: events.GraphicalPre})
}

// GraphicalTickPost is called on every exit of the frame method.
func (b *Bridge) GraphicalTickPost() {
	b.bus.Publish(events.GraphicalTick{Phase: events.GraphicalPost})
}

// LogicalTickEarly is called before the pause check of the simulation step.
func (b *Bridge) LogicalTickEarly() {
	b.bus.Publish(events.LogicalTick{Phase: events.LogicalPreGraphical})
}

// LogicalTickPre is called when the simulation step advances the game.
func (b *Bridge) LogicalTickPre() {
	b.bus.Publish(events.LogicalTick{Phase: events.LogicalPreLogical})
}

// LogicalTickPost is called after the simulation step.
func (b *Bridge) LogicalTickPost() {
	b.bus.Publish(events.LogicalTick{Phase: events.LogicalPost})
}

// KeyTyped is called before the host's widgets see a typed key. It returns
// true when a listener consumed the key.
func (b *Bridge) KeyTyped(key rune) bool {
	ev := &events.KeyTyped{Key: key}
	b.bus.Publish(ev)
	return ev.Cancelled()
}
