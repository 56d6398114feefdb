// Package event provides the priority event-dispatch engine.
//
// Hooks spliced into the host publish events here; listeners registered by
// extensions observe them and may cancel the host operation that raised them.
//
// # Architecture
//
//	                ┌──────────────────────────────────────┐
//	                │                 Bus                   │
//	                │  - Listener registry (by identity)    │
//	                │  - Dispatch table (lazy, per tier)    │
//	                │  - Publish / PublishStrict            │
//	                └──────────────────────────────────────┘
//	                                  │
//	          ┌───────────────────────┴──────────────────────┐
//	          ▼                                              ▼
//	┌─────────────────┐                            ┌─────────────────┐
//	│      topic      │                            │    dispatch     │
//	│  - Event types  │                            │  - Executor     │
//	│  - Ancestors    │                            │  - Panic guard  │
//	└─────────────────┘                            └─────────────────┘
//
// # Event Types
//
// Event types are hierarchical topics. A binding for a type receives events
// of that type and of every descendant type:
//
//	empire              bound here: receives empire.collapse, empire.techlevel
//	empire.collapse     bound here: receives only collapses
//	**                  bound here (topic.All): receives everything
//
// # Priority Ordering
//
// Handlers execute in ascending priority tiers, PriorityLowest first and
// PriorityMonitor last. Within a tier they run in listener registration
// order, then in the order the listener declared its bindings.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(log))
//
//	l := event.NewListener(
//	    event.On(events.TopicEmpireCollapse, event.PriorityNormal,
//	        func(ev *events.EmpireCollapse) error {
//	            ev.SetCancelled(true)
//	            return nil
//	        }),
//	)
//	_ = bus.Register(l)
//
//	bus.Publish(ev)                   // handler errors are logged
//	err := bus.PublishStrict(ev)      // first handler error is returned
//
// # Dispatch Table
//
// The table is built on the first publish or by Rebuild, and marked stale by
// every Register and Unregister; the next publish rebuilds it. Handlers may
// register listeners while an event is being delivered; the change applies
// from the next publish.
//
// # Subpackages
//
//   - events: Concrete event types raised by hooks
//   - topic: Hierarchical event types
//   - dispatch: Synchronous handler execution with panic recovery
package event
