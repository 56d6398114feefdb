package instrument

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/symbol"
)

func integrityKind(t *testing.T, err error) *IntegrityError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIntegrity)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie), "not an integrity error: %v", err)
	return ie
}

func TestEngine_DefaultManifest(t *testing.T) {
	e := defaultEngine(t)
	require.Equal(t, []string{empireClass, listenerClass, spaceClass}, e.Targets())

	t.Run("space", func(t *testing.T) {
		cls := spaceHost(t)
		res, err := e.Transform(cls)
		require.NoError(t, err)
		require.True(t, res.Patched())
		require.Equal(t, []string{"empire-collapse", "graphical-tick", "logical-tick", "save"}, res.Anchors())

		require.Equal(t, []string{
			"aload 0",
			"checkcast starhook/api/ActiveEmpire",
			hook("emitCollapse(Lstarhook/api/ActiveEmpire;)Z"),
			"ifeq",
			"return",
			"aload 0",
			"invokestatic snoddasmannen/galimulator/Space.g(Lsnoddasmannen/galimulator/Empire;)V",
			"return",
		}, body(t, cls, "f", "(Lsnoddasmannen/galimulator/Empire;)V"))

		require.Equal(t, []string{
			hook("graphicalTickPre()V"),
			"getstatic snoddasmannen/galimulator/Space.z Z",
			"ifeq",
			hook("graphicalTickPost()V"),
			"return",
			"invokestatic snoddasmannen/galimulator/Space.render()V",
			hook("graphicalTickPost()V"),
			"return",
		}, body(t, cls, "u", "()V"))

		require.Equal(t, []string{
			hook("logicalTickEarly()V"),
			"getstatic snoddasmannen/galimulator/Space.y I",
			"iconst_2",
			"irem",
			"ifne",
			"invokestatic snoddasmannen/galimulator/Space.C()V",
			hook("logicalTickPre()V"),
			"getstatic snoddasmannen/galimulator/Space.y I",
			"iconst_1",
			"iadd",
			"putstatic snoddasmannen/galimulator/Space.y I",
			hook("logicalTickPost()V"),
			"return",
		}, body(t, cls, "B", "()V"))

		require.Equal(t, []string{
			"aload 0",
			"aload 1",
			hook("save(Ljava/lang/String;Ljava/lang/String;)V"),
			"return",
		}, body(t, cls, "b", "(Ljava/lang/String;Ljava/lang/String;)V"))
		save := cls.Method("b", "(Ljava/lang/String;Ljava/lang/String;)V")
		code, err := cls.DecodeCode(save)
		require.NoError(t, err)
		require.Empty(t, code.Handlers)
	})

	t.Run("empire", func(t *testing.T) {
		cls := empireHost(t)
		_, err := e.Transform(cls)
		require.NoError(t, err)
		require.Equal(t, []string{
			"aload 0",
			"checkcast starhook/api/ActiveEmpire",
			"iload 1",
			hook("setTechLevel(Lstarhook/api/ActiveEmpire;I)Z"),
			"ifeq",
			"return",
			"aload 0",
			"iload 1",
			"putfield snoddasmannen/galimulator/Empire.t I",
			"return",
		}, body(t, cls, "b", "(I)V"))
	})

	t.Run("listener", func(t *testing.T) {
		cls := listenerHost(t)
		_, err := e.Transform(cls)
		require.NoError(t, err)
		require.Equal(t, []string{
			"iload 1",
			"invokestatic snoddasmannen/galimulator/ui/Widget.a(C)Z",
			"iload 1",
			hook("keyTyped(C)Z"),
			"ifeq",
			"iconst_1",
			"ireturn",
			"ifeq",
			"iconst_1",
			"ireturn",
			"iconst_0",
			"ireturn",
		}, body(t, cls, "keyTyped", "(C)Z"))
	})

	for _, name := range []string{spaceClass, empireClass, listenerClass} {
		require.True(t, e.Transformed(name))
	}
}

func TestEngine_Deterministic(t *testing.T) {
	data := mustBytes(t, spaceHost(t))
	var outputs [][]byte
	for range 2 {
		out, res, err := defaultEngine(t).TransformBytes(data)
		require.NoError(t, err)
		require.True(t, res.Patched())
		outputs = append(outputs, out)
	}
	require.Equal(t, outputs[0], outputs[1])
}

func TestEngine_AtomicOnFailure(t *testing.T) {
	e := defaultEngine(t)
	cls := hostClass(t, spaceClass, collapseMethod(), graphicalTickMethod(), logicalTickMethod(2), saveMethod())
	before := mustBytes(t, cls)

	res, err := e.Transform(cls)
	ie := integrityKind(t, err)
	require.Equal(t, KindAnchorDuplicated, ie.Kind)
	require.Equal(t, "logical-tick", ie.Anchor)
	require.Equal(t, spaceClass, ie.Class)
	require.Equal(t, "snoddasmannen/galimulator/Space.B()V", ie.Method)

	require.False(t, res.Patched())
	require.False(t, res.Flag("logical-tick"))
	require.Equal(t, []string{"logical-tick"}, res.Missing())
	require.Equal(t, before, mustBytes(t, cls))
	require.False(t, e.Transformed(spaceClass))

	// A corrected class can still be transformed afterwards.
	_, err = e.Transform(spaceHost(t))
	require.NoError(t, err)
}

func TestEngine_MethodMissing(t *testing.T) {
	cls := hostClass(t, spaceClass, collapseMethod(), logicalTickMethod(1), saveMethod())
	_, err := defaultEngine(t).Transform(cls)
	ie := integrityKind(t, err)
	require.Equal(t, KindMethodMissing, ie.Kind)
	require.Equal(t, "snoddasmannen/galimulator/Space.u()V", ie.Method)
	require.Equal(t, "graphical-tick", ie.Anchor)
	require.Contains(t, err.Error(), "[graphical-tick]")
}

func TestEngine_ReportsEveryFailure(t *testing.T) {
	cls := hostClass(t, spaceClass, collapseMethod(), logicalTickMethod(0), saveMethod())
	res, err := defaultEngine(t).Transform(cls)
	require.Error(t, err)

	var kinds []Kind
	for _, a := range []string{"graphical-tick", "logical-tick"} {
		require.False(t, res.Flag(a))
		require.Contains(t, err.Error(), a)
	}
	var me interface{ WrappedErrors() []error }
	require.True(t, errors.As(err, &me))
	for _, w := range me.WrappedErrors() {
		kinds = append(kinds, integrityKind(t, w).Kind)
	}
	require.ElementsMatch(t, []Kind{KindMethodMissing, KindAnchorMissing}, kinds)
}

func TestEngine_AlreadyTransformed(t *testing.T) {
	e := defaultEngine(t)
	_, err := e.Transform(empireHost(t))
	require.NoError(t, err)

	_, err = e.Transform(empireHost(t))
	require.ErrorIs(t, err, ErrAlreadyTransformed)
}

func TestEngine_NotTarget(t *testing.T) {
	e := defaultEngine(t)
	cls := hostClass(t, "snoddasmannen/galimulator/Star")
	require.False(t, e.IsValidTarget(cls.Name))
	_, err := e.Transform(cls)
	require.ErrorIs(t, err, ErrNotTarget)
}

func TestEngine_IsValidTarget(t *testing.T) {
	e := defaultEngine(t)
	require.True(t, e.IsValidTarget("snoddasmannen.galimulator.Space"))
	require.True(t, e.IsValidTarget(spaceClass))
	require.False(t, e.IsValidTarget("snoddasmannen.galimulator.Spaces"))
}

func TestEngine_RejectsFrameDependentClass(t *testing.T) {
	cls := spaceHost(t)
	cls.Access |= classfile.AccInterface
	before := mustBytes(t, cls)

	_, err := defaultEngine(t).Transform(cls)
	ie := integrityKind(t, err)
	require.Equal(t, KindClassFormat, ie.Kind)
	require.Equal(t, before, mustBytes(t, cls))
}

func TestEngine_LowersVersion(t *testing.T) {
	cls := empireHost(t)
	cls.Major = 52
	_, err := defaultEngine(t).Transform(cls)
	require.NoError(t, err)
	require.Equal(t, classfile.Java6, cls.Major)
}

type hookSet map[symbol.Ref]bool

func (s hookSet) Has(ref symbol.Ref) bool { return s[ref] }

func TestEngine_CheckHooks(t *testing.T) {
	e := defaultEngine(t)
	refs := e.HookRefs()
	require.Len(t, refs, 9)

	all := make(hookSet)
	for _, r := range refs {
		require.Equal(t, hooksClass, r.Owner)
		all[r] = true
	}
	require.NoError(t, e.CheckHooks(all))

	delete(all, symbol.MustParse(hooksClass+".keyTyped(C)Z"))
	delete(all, symbol.MustParse(hooksClass+".graphicalTickPost()V"))
	err := e.CheckHooks(all)
	require.ErrorIs(t, err, ErrMissingHook)
	require.Contains(t, err.Error(), "keyTyped(C)Z")
	require.Contains(t, err.Error(), "graphicalTickPost()V")
}

func TestNewEngine_Invalid(t *testing.T) {
	target := symbol.MustParse(spaceClass + ".u()V")
	wrap := func(name string) Splice {
		return &Wrap{Name: name, Entry: symbol.MustParse(hooksClass + ".a()V")}
	}
	tests := []struct {
		name  string
		plans []ClassPlan
	}{
		{
			name: "class planned twice",
			plans: []ClassPlan{
				{Class: spaceClass, Methods: []MethodPlan{{Target: target, Splices: []Splice{wrap("a")}}}},
				{Class: spaceClass, Methods: []MethodPlan{{Target: target, Splices: []Splice{wrap("b")}}}},
			},
		},
		{
			name: "repeated anchor",
			plans: []ClassPlan{
				{Class: spaceClass, Methods: []MethodPlan{{Target: target, Splices: []Splice{wrap("a"), wrap("a")}}}},
			},
		},
		{
			name: "empty anchor",
			plans: []ClassPlan{
				{Class: spaceClass, Methods: []MethodPlan{{Target: target, Splices: []Splice{wrap("")}}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.plans)
			require.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}
