// Package events defines the event kinds raised by the hook bridge.
//
// Each event type has a topic constant and a payload struct. Topics are
// hierarchical, so a listener bound to TopicEmpire receives every empire
// event:
//
//   - Empire events: collapse, technology level changes
//   - Tick events: logical and graphical simulation ticks
//   - Lifecycle events: galaxy save start and end
//   - Input events: typed keys
//
// # Usage
//
//	l := event.NewListener(
//	    event.On(events.TopicEmpireCollapse, event.PriorityNormal,
//	        func(ev *events.EmpireCollapse) error {
//	            if ev.Cause == events.CollapseNoStars {
//	                ev.SetCancelled(true)
//	            }
//	            return nil
//	        }),
//	)
//	bus.Register(l)
//
// Cancellable events embed event.Cancellation. The bridge reads the flag
// after delivery and tells the patched host method whether to go on.
package events
