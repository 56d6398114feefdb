package event

import (
	"sort"

	"github.com/dshills/starhook/internal/event/dispatch"
	"github.com/dshills/starhook/internal/event/topic"
)

// entry is one (listener, binding) pair of the dispatch table.
type entry struct {
	listener Listener
	binding  Binding
	handler  dispatch.Handler

	// order is the position of the binding in registration order.
	order int
}

// table is the dispatch table derived from the registry. For each priority
// tier it maps a declared event type to its bindings. Lookups resolve a
// published type against its ancestor chain and are cached per type.
type table struct {
	tiers    [numPriorities]map[topic.Topic][]entry
	resolved map[topic.Topic][]entry
	size     int
}

func buildTable(regs []*registration) *table {
	t := &table{resolved: make(map[topic.Topic][]entry)}
	for i := range t.tiers {
		t.tiers[i] = make(map[topic.Topic][]entry)
	}
	order := 0
	for _, r := range regs {
		for _, b := range r.bindings {
			h := b.Handler
			t.tiers[b.Priority][b.Type] = append(t.tiers[b.Priority][b.Type], entry{
				listener: r.listener,
				binding:  b,
				handler: dispatch.HandlerFunc(func(ev any) error {
					return h.Handle(ev.(Event))
				}),
				order: order,
			})
			order++
		}
	}
	t.size = order
	return t
}

// lookup returns the entries that receive events of type tp, in delivery
// order: ascending priority, then registration order.
func (t *table) lookup(tp topic.Topic) []entry {
	if es, ok := t.resolved[tp]; ok {
		return es
	}
	ancestors := tp.Ancestors()
	var out []entry
	for tier := range t.tiers {
		start := len(out)
		for _, a := range ancestors {
			out = append(out, t.tiers[tier][a]...)
		}
		seg := out[start:]
		sort.Slice(seg, func(i, j int) bool { return seg[i].order < seg[j].order })
	}
	t.resolved[tp] = out
	return out
}
