package event

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/event/topic"
)

func TestPriority_String(t *testing.T) {
	tests := []struct {
		priority Priority
		want     string
	}{
		{PriorityLowest, "lowest"},
		{PriorityLow, "low"},
		{PriorityNormal, "normal"},
		{PriorityHigh, "high"},
		{PriorityHighest, "highest"},
		{PriorityMonitor, "monitor"},
		{Priority(42), "priority(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.priority.String())
		})
	}
}

func TestPriority_Valid(t *testing.T) {
	for p := PriorityLowest; p <= PriorityMonitor; p++ {
		require.True(t, p.Valid(), "%s should be valid", p)
	}
	for _, p := range []Priority{-1, PriorityMonitor + 1} {
		require.False(t, p.Valid(), "%s should be invalid", p)
	}
}

func TestPriority_Ordering(t *testing.T) {
	tiers := []Priority{PriorityLowest, PriorityLow, PriorityNormal, PriorityHigh, PriorityHighest, PriorityMonitor}
	for i := 1; i < len(tiers); i++ {
		require.Less(t, tiers[i-1], tiers[i])
	}
}

func TestHandlerFunc(t *testing.T) {
	called := false
	h := HandlerFunc(func(ev Event) error {
		called = true
		return nil
	})

	require.NoError(t, h.Handle(newPing("a")))
	require.True(t, called, "handler function was not called")
}

func TestOn_TypedDelivery(t *testing.T) {
	var got string
	b := On(topicPing, PriorityNormal, func(ev *ping) error {
		got = ev.Label
		return nil
	})

	require.Equal(t, topicPing, b.Type)
	require.Equal(t, PriorityNormal, b.Priority)
	require.NoError(t, b.Handler.Handle(newPing("hello")))
	require.Equal(t, "hello", got)
}

func TestOn_TypeMismatch(t *testing.T) {
	b := On(topicPing, PriorityNormal, func(ev *ping) error {
		t.Error("handler should not run")
		return nil
	})

	require.ErrorIs(t, b.Handler.Handle(&collapse{}), ErrEventTypeMismatch)
}

func TestOn_InterfaceType(t *testing.T) {
	var seen []topic.Topic
	b := On(topicEmpire, PriorityNormal, func(ev empireEvent) error {
		seen = append(seen, ev.Type())
		return nil
	})

	for _, ev := range []Event{&collapse{empire: "a"}, &techLevel{empire: "b"}} {
		require.NoError(t, b.Handler.Handle(ev), "Handle(%T)", ev)
	}
	require.Equal(t, []topic.Topic{topicCollapse, topicTechLevel}, seen)
}

func TestNewListener_Distinct(t *testing.T) {
	b := Bind(topicPing, PriorityNormal, func(Event) error { return nil })
	l1 := NewListener(b)
	l2 := NewListener(b)

	require.NotSame(t, l1, l2, "NewListener should return distinct listeners")
	require.Len(t, l1.Bindings(), 1)
}

func TestParsePriority(t *testing.T) {
	for p := PriorityLowest; p <= PriorityMonitor; p++ {
		got, err := ParsePriority(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
	_, err := ParsePriority("critical")
	require.Error(t, err)
}
