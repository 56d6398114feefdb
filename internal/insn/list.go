package insn

import (
	"fmt"
	"iter"
)

// Handle addresses a node in a List. Handles stay valid across insertions
// and removals of other nodes.
type Handle int32

// NoHandle is returned when there is no node.
const NoHandle Handle = -1

type node struct {
	insn Insn
	prev Handle
	next Handle
	live bool
}

// List is a doubly linked instruction sequence stored in an arena.
//
// Nodes are never moved in the arena. Removing a node only unlinks it and
// marks it dead, so handles held by callers keep pointing at the same
// instruction. Labels are tracked by ID so branch targets resolve in O(1).
type List struct {
	nodes     []node
	head      Handle
	tail      Handle
	size      int
	nextLabel LabelID
	labels    map[LabelID]Handle
	pinned    map[LabelID]int
}

// NewList creates an empty list.
func NewList() *List {
	return &List{
		head:   NoHandle,
		tail:   NoHandle,
		labels: make(map[LabelID]Handle),
		pinned: make(map[LabelID]int),
	}
}

// Len returns the number of live instructions, pseudo instructions included.
func (l *List) Len() int {
	return l.size
}

// First returns the first node, or NoHandle if the list is empty.
func (l *List) First() Handle {
	return l.head
}

// Last returns the last node, or NoHandle if the list is empty.
func (l *List) Last() Handle {
	return l.tail
}

// Next returns the node after h.
func (l *List) Next(h Handle) Handle {
	if !l.valid(h) {
		return NoHandle
	}
	return l.nodes[h].next
}

// Prev returns the node before h.
func (l *List) Prev(h Handle) Handle {
	if !l.valid(h) {
		return NoHandle
	}
	return l.nodes[h].prev
}

// At returns the instruction at h, or nil if h is not live.
func (l *List) At(h Handle) Insn {
	if !l.valid(h) {
		return nil
	}
	return l.nodes[h].insn
}

// Live reports whether h addresses an instruction still in the list.
func (l *List) Live(h Handle) bool {
	return l.valid(h)
}

func (l *List) valid(h Handle) bool {
	return h >= 0 && int(h) < len(l.nodes) && l.nodes[h].live
}

// All iterates over the live instructions in order.
func (l *List) All() iter.Seq2[Handle, Insn] {
	return func(yield func(Handle, Insn) bool) {
		for h := l.head; h != NoHandle; h = l.nodes[h].next {
			if !yield(h, l.nodes[h].insn) {
				return
			}
		}
	}
}

// Backward iterates over the live instructions from last to first.
func (l *List) Backward() iter.Seq2[Handle, Insn] {
	return func(yield func(Handle, Insn) bool) {
		for h := l.tail; h != NoHandle; h = l.nodes[h].prev {
			if !yield(h, l.nodes[h].insn) {
				return
			}
		}
	}
}

// NewLabel allocates a label that is not yet part of the list.
func (l *List) NewLabel() *Label {
	l.nextLabel++
	return &Label{ID: l.nextLabel}
}

// reserveLabel makes sure future NewLabel calls do not reuse id.
func (l *List) reserveLabel(id LabelID) {
	if id > l.nextLabel {
		l.nextLabel = id
	}
}

// LabelAt returns the node holding the label, if the label is attached.
func (l *List) LabelAt(id LabelID) (Handle, bool) {
	h, ok := l.labels[id]
	return h, ok
}

// Pin records a reference to a label held outside the instruction stream,
// such as an exception table entry. Pinned labels cannot be removed.
func (l *List) Pin(id LabelID) {
	l.pinned[id]++
}

// Unpin drops one outside reference previously added with Pin.
func (l *List) Unpin(id LabelID) {
	if n := l.pinned[id]; n > 1 {
		l.pinned[id] = n - 1
	} else {
		delete(l.pinned, id)
	}
}

// Append adds instructions at the end of the list and returns the handle of
// the last one.
func (l *List) Append(insns ...Insn) Handle {
	last := NoHandle
	for _, i := range insns {
		last = l.link(i, l.tail, NoHandle)
	}
	return last
}

// Prepend adds instructions at the start of the list, keeping their order.
func (l *List) Prepend(insns ...Insn) Handle {
	if l.head == NoHandle {
		return l.Append(insns...)
	}
	return l.InsertBefore(l.head, insns...)
}

// InsertBefore inserts instructions before at, keeping their order, and
// returns the handle of the last inserted node.
func (l *List) InsertBefore(at Handle, insns ...Insn) Handle {
	if !l.valid(at) {
		panic(fmt.Sprintf("insn: insert before dead handle %d", at))
	}
	last := NoHandle
	for _, i := range insns {
		last = l.link(i, l.nodes[at].prev, at)
	}
	return last
}

// InsertAfter inserts instructions after at, keeping their order, and
// returns the handle of the last inserted node.
func (l *List) InsertAfter(at Handle, insns ...Insn) Handle {
	if !l.valid(at) {
		panic(fmt.Sprintf("insn: insert after dead handle %d", at))
	}
	last := at
	for _, i := range insns {
		last = l.link(i, last, l.nodes[last].next)
	}
	return last
}

// link places i between prev and next.
func (l *List) link(i Insn, prev, next Handle) Handle {
	h := Handle(len(l.nodes))
	l.nodes = append(l.nodes, node{insn: i, prev: prev, next: next, live: true})
	if prev == NoHandle {
		l.head = h
	} else {
		l.nodes[prev].next = h
	}
	if next == NoHandle {
		l.tail = h
	} else {
		l.nodes[next].prev = h
	}
	l.size++
	if lbl, ok := i.(*Label); ok {
		l.reserveLabel(lbl.ID)
		if _, dup := l.labels[lbl.ID]; !dup {
			l.labels[lbl.ID] = h
		}
	}
	return h
}

// Remove unlinks the node at h. Removing a label that is still referenced by
// an instruction or pinned by an outside table fails with ErrLabelInUse.
func (l *List) Remove(h Handle) error {
	if !l.valid(h) {
		return fmt.Errorf("%w: %d", ErrDeadHandle, h)
	}
	if lbl, ok := l.nodes[h].insn.(*Label); ok {
		if l.pinned[lbl.ID] > 0 || l.referenced(lbl.ID) {
			return fmt.Errorf("%w: L%d", ErrLabelInUse, lbl.ID)
		}
		if l.labels[lbl.ID] == h {
			delete(l.labels, lbl.ID)
		}
	}
	n := &l.nodes[h]
	if n.prev == NoHandle {
		l.head = n.next
	} else {
		l.nodes[n.prev].next = n.next
	}
	if n.next == NoHandle {
		l.tail = n.prev
	} else {
		l.nodes[n.next].prev = n.prev
	}
	n.live = false
	n.prev, n.next = NoHandle, NoHandle
	l.size--
	return nil
}

func (l *List) referenced(id LabelID) bool {
	for _, i := range l.All() {
		for _, t := range Targets(i) {
			if t == id {
				return true
			}
		}
	}
	return false
}

// Clear removes every instruction and forgets all labels and pins.
// Handles obtained before Clear are dead afterwards.
func (l *List) Clear() {
	for h := range l.nodes {
		l.nodes[h].live = false
	}
	l.head, l.tail = NoHandle, NoHandle
	l.size = 0
	l.labels = make(map[LabelID]Handle)
	l.pinned = make(map[LabelID]int)
}

// Clone returns a deep copy. Handles and label IDs are preserved, so a
// handle into the original addresses the same instruction in the copy.
func (l *List) Clone() *List {
	c := &List{
		nodes:     make([]node, len(l.nodes)),
		head:      l.head,
		tail:      l.tail,
		size:      l.size,
		nextLabel: l.nextLabel,
		labels:    make(map[LabelID]Handle, len(l.labels)),
		pinned:    make(map[LabelID]int, len(l.pinned)),
	}
	for h, n := range l.nodes {
		c.nodes[h] = n
		if n.live {
			c.nodes[h].insn = Clone(n.insn)
		}
	}
	for id, h := range l.labels {
		c.labels[id] = h
	}
	for id, n := range l.pinned {
		c.pinned[id] = n
	}
	return c
}

// Slice returns the live instructions in order.
func (l *List) Slice() []Insn {
	out := make([]Insn, 0, l.size)
	for _, i := range l.All() {
		out = append(out, i)
	}
	return out
}

// NextReal returns the first non-pseudo node after h.
func (l *List) NextReal(h Handle) Handle {
	for h = l.Next(h); h != NoHandle; h = l.Next(h) {
		if !IsPseudo(l.nodes[h].insn) {
			return h
		}
	}
	return NoHandle
}

// FirstReal returns the first non-pseudo node of the list.
func (l *List) FirstReal() Handle {
	h := l.head
	if h != NoHandle && IsPseudo(l.nodes[h].insn) {
		return l.NextReal(h)
	}
	return h
}
