package hook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/events"
	"github.com/dshills/starhook/internal/symbol"
)

func TestRegistry_RegisterAndCall(t *testing.T) {
	r := NewRegistry()
	ref := symbol.MustParse("a/B.add(II)I")
	require.NoError(t, r.Register(ref, func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}))

	require.True(t, r.Has(ref))
	got, err := r.Call(ref, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 5, got)

	got, err = r.Lookup("a/B.add(II)I", 4, 4)
	require.NoError(t, err)
	require.Equal(t, 8, got)
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	noop := func([]any) (any, error) { return nil, nil }
	ref := symbol.MustParse("a/B.run()V")
	require.NoError(t, r.Register(ref, noop))

	require.ErrorIs(t, r.Register(ref, noop), ErrDuplicateHook)
	require.ErrorIs(t, r.Register(symbol.MustParse("a/B.field I"), noop), ErrNotMethod)
	require.Error(t, r.Register(symbol.MustParse("a/B.other()V"), nil))

	_, err := r.Call(symbol.MustParse("a/B.missing()V"))
	require.ErrorIs(t, err, ErrUnknownHook)

	_, err = r.Call(ref, 1)
	require.ErrorIs(t, err, ErrArity)

	_, err = r.Lookup("not a ref")
	require.Error(t, err)
}

func TestRegistry_Refs(t *testing.T) {
	r := NewRegistry()
	noop := func([]any) (any, error) { return nil, nil }
	for _, s := range []string{"b/C.z()V", "a/B.y()V", "a/B.x()V"} {
		require.NoError(t, r.Register(symbol.MustParse(s), noop))
	}

	var got []string
	for _, ref := range r.Refs() {
		got = append(got, ref.String())
	}
	require.Equal(t, []string{"a/B.x()V", "a/B.y()V", "b/C.z()V"}, got)
}

func TestBridgeRegistry_Dispatch(t *testing.T) {
	veto := event.NewListener(
		event.On(events.TopicEmpireCollapse, event.PriorityNormal, func(ev *events.EmpireCollapse) error {
			ev.SetCancelled(true)
			return nil
		}),
		event.On(events.TopicInputKeyTyped, event.PriorityNormal, func(ev *events.KeyTyped) error {
			ev.SetCancelled(ev.Key == 'x')
			return nil
		}),
	)
	b, tp := newBridge(t, &testHost{}, veto)
	r := b.Registry()

	got, err := r.Call(Ref("emitCollapse(L"+EmpireType+";)Z"), &testEmpire{})
	require.NoError(t, err)
	require.Equal(t, true, got)

	got, err = r.Call(Ref("setTechLevel(L"+EmpireType+";I)Z"), &testEmpire{}, int32(3))
	require.NoError(t, err)
	require.Equal(t, false, got)

	got, err = r.Call(Ref("keyTyped(C)Z"), uint16('x'))
	require.NoError(t, err)
	require.Equal(t, true, got)

	got, err = r.Call(Ref("graphicalTickPre()V"))
	require.NoError(t, err)
	require.Nil(t, got)

	require.Len(t, tp.topics, 4)
}

func TestBridgeRegistry_ArgTypes(t *testing.T) {
	b, _ := newBridge(t, &testHost{})
	r := b.Registry()

	tests := []struct {
		name   string
		member string
		args   []any
	}{
		{"empire", "emitCollapse(L" + EmpireType + ";)Z", []any{"not an empire"}},
		{"nil empire", "emitCollapse(L" + EmpireType + ";)Z", []any{nil}},
		{"level", "setTechLevel(L" + EmpireType + ";I)Z", []any{&testEmpire{}, "3"}},
		{"key", "keyTyped(C)Z", []any{"k"}},
		{"cause", "save(Ljava/lang/String;Ljava/lang/String;)V", []any{1, "x"}},
		{"location", "save(Ljava/lang/String;Ljava/lang/String;)V", []any{"x", 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Call(Ref(tt.member), tt.args...)
			require.ErrorIs(t, err, ErrArgType)
		})
	}
}
