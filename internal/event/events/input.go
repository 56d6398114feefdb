package events

import (
	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/topic"
)

// Input event topics.
const (
	// TopicInput is the parent of every input event.
	TopicInput topic.Topic = "input"

	// TopicInputKeyTyped is published when the host receives a typed key.
	TopicInputKeyTyped topic.Topic = "input.key.typed"
)

// KeyTyped is published before the host's widgets see a typed key.
// Cancelling it consumes the key.
type KeyTyped struct {
	event.Cancellation

	// Key is the typed character.
	Key rune
}

// Type implements event.Event.
func (ev *KeyTyped) Type() topic.Topic { return TopicInputKeyTyped }

var _ event.Cancellable = (*KeyTyped)(nil)
