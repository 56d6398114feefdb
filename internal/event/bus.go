package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/starhook/internal/event/dispatch"
)

// registration is a registered listener and the bindings it declared.
type registration struct {
	listener Listener
	bindings []Binding
}

// Bus delivers events to the handlers of registered listeners.
//
// Delivery is synchronous on the publishing goroutine. The registry is
// guarded by a mutex, but ordering between goroutines is not defined.
type Bus struct {
	mu         sync.Mutex
	regs       []*registration
	byListener map[Listener]*registration

	// table is nil until first built; dirty marks it stale.
	table *table
	dirty bool

	dispatcher *dispatch.Dispatcher
	config     busConfig

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	rebuilds         atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		byListener: make(map[Listener]*registration),
		dispatcher: dispatch.New(),
		config:     config,
	}
}

// hashable reports whether l can key the listener map. A comparable struct
// type still fails at runtime when an interface field holds a func or map.
func hashable(l Listener) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	trial := make(map[Listener]struct{}, 1)
	trial[l] = struct{}{}
	return len(trial) == 1
}

// Register adds a listener and its bindings. Registering a listener that is
// already registered does nothing.
func (b *Bus) Register(l Listener) error {
	if l == nil {
		return ErrNilListener
	}
	if !hashable(l) {
		return fmt.Errorf("%w: %T", ErrListenerNotComparable, l)
	}
	if b.Registered(l) {
		return nil
	}

	declared := l.Bindings()
	bindings := make([]Binding, len(declared))
	for i, bd := range declared {
		switch {
		case !bd.Type.IsValid():
			return fmt.Errorf("%w: %T binding %d has topic %q", ErrInvalidBinding, l, i, bd.Type)
		case !bd.Priority.Valid():
			return fmt.Errorf("%w: %T binding %d has %s", ErrInvalidBinding, l, i, bd.Priority)
		case bd.Handler == nil:
			return fmt.Errorf("%w: %T binding %d has no handler", ErrInvalidBinding, l, i)
		}
		if bd.Name == "" {
			bd.Name = fmt.Sprintf("%T#%d", l, i)
		}
		bindings[i] = bd
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byListener[l]; ok {
		return nil
	}
	r := &registration{listener: l, bindings: bindings}
	b.regs = append(b.regs, r)
	b.byListener[l] = r
	b.dirty = true
	return nil
}

// Unregister removes a listener. It reports whether the listener was
// registered; removing an unknown listener does nothing.
func (b *Bus) Unregister(l Listener) bool {
	if l == nil || !hashable(l) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.byListener[l]
	if !ok {
		return false
	}
	delete(b.byListener, l)
	for i, x := range b.regs {
		if x == r {
			b.regs = append(b.regs[:i:i], b.regs[i+1:]...)
			break
		}
	}
	b.dirty = true
	return true
}

// Registered reports whether l is registered.
func (b *Bus) Registered(l Listener) bool {
	if l == nil || !hashable(l) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byListener[l]
	return ok
}

// Rebuild builds the dispatch table from the current registry. Publishing
// does this on demand, so calling Rebuild is only needed to move the cost
// out of the first publish.
func (b *Bus) Rebuild() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rebuildLocked()
}

func (b *Bus) rebuildLocked() {
	b.table = buildTable(b.regs)
	b.dirty = false
	b.rebuilds.Add(1)
	b.config.log.Debug().
		Int("listeners", len(b.regs)).
		Int("bindings", b.table.size).
		Msg("rebuilt dispatch table")
}

// entries returns the handlers for ev, rebuilding the table if needed. The
// returned slice is never modified, so it may be used after unlocking.
func (b *Bus) entries(ev Event) []entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.table == nil || b.dirty {
		b.rebuildLocked()
	}
	return b.table.lookup(ev.Type())
}

func handlersOf(es []entry) []dispatch.Handler {
	hs := make([]dispatch.Handler, len(es))
	for i, e := range es {
		hs[i] = e.handler
	}
	return hs
}

// Publish delivers ev to every handler bound to its type or an ancestor,
// lowest priority tier first and in registration order within a tier.
// Handler errors and panics are logged and do not stop delivery.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		b.config.log.Warn().Msg("ignoring nil event")
		return
	}
	es := b.entries(ev)
	b.eventsPublished.Add(1)
	results := b.dispatcher.Dispatch(ev, handlersOf(es), dispatch.Continue)
	for i, res := range results {
		if err := b.account(ev, es[i], res); err != nil {
			b.config.log.Error().
				Err(err).
				Str("topic", ev.Type().String()).
				Str("binding", es[i].binding.Name).
				Msg("event handler failed")
		}
	}
}

// PublishStrict delivers ev like Publish but stops at the first handler that
// returns an error or panics. The failure is returned as a *HandlerError or
// *PanicError; later handlers are not invoked.
func (b *Bus) PublishStrict(ev Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	es := b.entries(ev)
	b.eventsPublished.Add(1)
	results := b.dispatcher.Dispatch(ev, handlersOf(es), dispatch.Stop)
	for i, res := range results {
		if err := b.account(ev, es[i], res); err != nil {
			return err
		}
	}
	return nil
}

// account updates statistics for one handler result and converts a failure
// into an error.
func (b *Bus) account(ev Event, e entry, res dispatch.Result) error {
	b.handlersExecuted.Add(1)
	switch res.Outcome {
	case dispatch.Panicked:
		b.handlerPanics.Add(1)
		if b.config.panicHandler != nil {
			b.config.panicHandler(ev, e.binding.Name, res.Recovered)
		}
		return &PanicError{
			Binding: e.binding.Name,
			Topic:   ev.Type(),
			Value:   res.Recovered,
			Stack:   string(res.Stack),
		}
	case dispatch.Failed:
		b.handlerErrors.Add(1)
		return &HandlerError{Binding: e.binding.Name, Topic: ev.Type(), Err: res.Err}
	}
	return nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	listeners := len(b.regs)
	b.mu.Unlock()
	return Stats{
		EventsPublished:  b.eventsPublished.Load(),
		HandlersExecuted: b.handlersExecuted.Load(),
		HandlerErrors:    b.handlerErrors.Load(),
		HandlerPanics:    b.handlerPanics.Load(),
		Rebuilds:         b.rebuilds.Load(),
		Listeners:        listeners,
		HandlerTime:      b.dispatcher.Stats().HandlerTime,
	}
}
