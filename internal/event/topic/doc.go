// Package topic provides hierarchical event types for the event bus.
//
// # Topic Format
//
// Topics use dot-notation. Each segment names a more specific kind of event,
// so the parent of a topic is its ancestor type:
//
//	empire                 any event about an empire
//	empire.collapse        an empire is about to collapse
//	tick.logical           a logical game tick
//	lifecycle.saving       a save has started
//
// # Ancestors
//
// A handler bound to a topic receives events of that topic and of every
// descendant. The bus resolves this by walking the ancestor chain of the
// published topic:
//
//	topic.Topic("empire.collapse").Ancestors()
//	// [empire.collapse empire **]
//
// All is the root of every chain, so a handler bound to All receives every
// event.
package topic
