package classfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/insn"
)

// buildClass assembles a class with one static method whose body is built by
// fill, and returns the encoded bytes.
func buildClass(t *testing.T, name, desc string, fill func(code *Code)) []byte {
	t.Helper()
	c := New("test/Sample", "java/lang/Object")
	code := &Code{MaxStack: 4, MaxLocals: 4, Insns: insn.NewList()}
	fill(code)
	a, err := EncodeCode(c.Pool, code)
	require.NoError(t, err)
	c.Methods = append(c.Methods, &Member{
		Access:     AccPublic | AccStatic,
		Name:       name,
		Desc:       desc,
		Attributes: []Attribute{a},
	})
	data, err := c.Bytes()
	require.NoError(t, err)
	return data
}

func decodeMethod(t *testing.T, data []byte, name, desc string) (*Class, *Code) {
	t.Helper()
	c, err := Parse(data)
	require.NoError(t, err)
	m := c.Method(name, desc)
	require.NotNil(t, m)
	code, err := c.DecodeCode(m)
	require.NoError(t, err)
	return c, code
}

func TestParse_RoundTrip(t *testing.T) {
	data := buildClass(t, "tick", "(I)I", func(code *Code) {
		l := code.Insns
		skip := l.NewLabel()
		l.Append(
			&insn.Field{Op: insn.Getstatic, Owner: "game/Space", Name: "y", Desc: "I"},
			&insn.Simple{Op: insn.Iconst2},
			&insn.Simple{Op: insn.Irem},
			&insn.Jump{Op: insn.Ifeq, Target: skip.ID},
			&insn.Var{Op: insn.Iload, Index: 0},
			&insn.Simple{Op: insn.Ireturn},
			skip,
			&insn.Invoke{Op: insn.Invokestatic, Owner: "game/Hooks", Name: "f", Desc: "()V"},
			&insn.Simple{Op: insn.Iconst0},
			&insn.Simple{Op: insn.Ireturn},
		)
	})

	c, code := decodeMethod(t, data, "tick", "(I)I")
	require.Equal(t, "test/Sample", c.Name)
	require.Equal(t, "java/lang/Object", c.Super)
	require.Equal(t, Java6, c.Major)
	require.Equal(t, uint16(4), code.MaxStack)

	var ops []insn.Opcode
	for _, i := range code.Insns.All() {
		if !insn.IsPseudo(i) {
			ops = append(ops, i.Opcode())
		}
	}
	require.Equal(t, []insn.Opcode{
		insn.Getstatic, insn.Iconst2, insn.Irem, insn.Ifeq, insn.Iload, insn.Ireturn,
		insn.Invokestatic, insn.Iconst0, insn.Ireturn,
	}, ops)

	out, err := c.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestDecode_JumpTargetsBecomeLabels(t *testing.T) {
	data := buildClass(t, "f", "()V", func(code *Code) {
		l := code.Insns
		top := l.NewLabel()
		l.Append(top, &insn.Simple{Op: insn.Iconst0}, &insn.Jump{Op: insn.Ifne, Target: top.ID}, &insn.Simple{Op: insn.Return})
	})
	_, code := decodeMethod(t, data, "f", "()V")

	var jump *insn.Jump
	for _, i := range code.Insns.All() {
		if j, ok := i.(*insn.Jump); ok {
			jump = j
		}
	}
	require.NotNil(t, jump)
	h, ok := code.Insns.LabelAt(jump.Target)
	require.True(t, ok)
	require.Equal(t, code.Insns.First(), h)
}

func TestEncode_ShortestForms(t *testing.T) {
	tests := []struct {
		name string
		in   insn.Insn
		want []byte
	}{
		{"aload_0", &insn.Var{Op: insn.Aload, Index: 0}, []byte{0x2a}},
		{"istore_3", &insn.Var{Op: insn.Istore, Index: 3}, []byte{0x3e}},
		{"iload 4", &insn.Var{Op: insn.Iload, Index: 4}, []byte{0x15, 4}},
		{"wide lload", &insn.Var{Op: insn.Lload, Index: 300}, []byte{0xc4, 0x16, 0x01, 0x2c}},
		{"iinc", &insn.IncVar{Index: 1, Delta: -1}, []byte{0x84, 1, 0xff}},
		{"wide iinc", &insn.IncVar{Index: 1, Delta: 1000}, []byte{0xc4, 0x84, 0, 1, 0x03, 0xe8}},
		{"ldc", &insn.Ldc{Index: 7}, []byte{0x12, 7}},
		{"ldc_w", &insn.Ldc{Index: 300}, []byte{0x13, 0x01, 0x2c}},
		{"ldc2_w", &insn.Ldc{Index: 7, Wide: true}, []byte{0x14, 0, 7}},
		{"sipush", &insn.Int{Op: insn.Sipush, Value: -2}, []byte{0x11, 0xff, 0xfe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := insn.NewList()
			l.Append(tt.in)
			a, err := EncodeCode(NewPool(), &Code{Insns: l})
			require.NoError(t, err)
			// max_stack, max_locals, code_length precede the body.
			require.Equal(t, tt.want, a.Data[8:8+len(tt.want)])

			back, err := decodeCode(NewPool(), a.Data)
			require.NoError(t, err)
			require.Equal(t, insn.Format(tt.in), insn.Format(back.Insns.At(back.Insns.First())))
		})
	}
}

func TestEncode_SwitchPadding(t *testing.T) {
	for _, lead := range []int{0, 1, 2, 3} {
		data := buildClass(t, "sw", "(I)V", func(code *Code) {
			l := code.Insns
			a, b, def := l.NewLabel(), l.NewLabel(), l.NewLabel()
			for k := 0; k < lead; k++ {
				l.Append(&insn.Simple{Op: insn.Nop})
			}
			l.Append(
				&insn.Var{Op: insn.Iload, Index: 0},
				&insn.Switch{Op: insn.Tableswitch, Default: def.ID, Low: 3, Targets: []insn.LabelID{a.ID, b.ID}},
				a, &insn.Simple{Op: insn.Return},
				b, &insn.Simple{Op: insn.Return},
				def, &insn.Var{Op: insn.Iload, Index: 0},
				&insn.Switch{Op: insn.Lookupswitch, Default: a.ID, Keys: []int32{-5, 90}, Targets: []insn.LabelID{b.ID, def.ID}},
			)
		})
		_, code := decodeMethod(t, data, "sw", "(I)V")
		var switches []*insn.Switch
		for _, i := range code.Insns.All() {
			if s, ok := i.(*insn.Switch); ok {
				switches = append(switches, s)
			}
		}
		require.Len(t, switches, 2)
		require.Equal(t, int32(3), switches[0].Low)
		require.Len(t, switches[0].Targets, 2)
		require.Equal(t, []int32{-5, 90}, switches[1].Keys)
		_, ok := code.Insns.LabelAt(switches[1].Default)
		require.True(t, ok)
	}
}

func TestEncode_WidensLongGoto(t *testing.T) {
	l := insn.NewList()
	end := l.NewLabel()
	l.Append(&insn.Jump{Op: insn.Goto, Target: end.ID})
	for k := 0; k < 40000; k++ {
		l.Append(&insn.Simple{Op: insn.Nop})
	}
	l.Append(end, &insn.Simple{Op: insn.Return})

	a, err := EncodeCode(NewPool(), &Code{Insns: l})
	require.NoError(t, err)
	require.Equal(t, byte(insn.GotoW), a.Data[8])

	back, err := decodeCode(NewPool(), a.Data)
	require.NoError(t, err)
	require.Equal(t, insn.Goto, back.Insns.At(back.Insns.First()).Opcode())
}

func TestEncode_LongConditionalFails(t *testing.T) {
	l := insn.NewList()
	end := l.NewLabel()
	l.Append(&insn.Simple{Op: insn.Iconst0}, &insn.Jump{Op: insn.Ifeq, Target: end.ID})
	for k := 0; k < 40000; k++ {
		l.Append(&insn.Simple{Op: insn.Nop})
	}
	l.Append(end, &insn.Simple{Op: insn.Return})

	_, err := EncodeCode(NewPool(), &Code{Insns: l})
	require.True(t, errors.Is(err, ErrBranchOutOfRange))
}

func TestEncode_UnboundLabel(t *testing.T) {
	l := insn.NewList()
	l.Append(&insn.Jump{Op: insn.Goto, Target: l.NewLabel().ID})
	_, err := EncodeCode(NewPool(), &Code{Insns: l})
	require.True(t, errors.Is(err, ErrUnboundLabel))
}

func TestDecode_HandlersAndLines(t *testing.T) {
	data := buildClass(t, "guarded", "()V", func(code *Code) {
		l := code.Insns
		start, end, handler := l.NewLabel(), l.NewLabel(), l.NewLabel()
		l.Append(
			start,
			&insn.Line{Line: 10, Start: start.ID},
			&insn.Invoke{Op: insn.Invokestatic, Owner: "game/IO", Name: "write", Desc: "()V"},
			end,
			&insn.Simple{Op: insn.Return},
			handler,
			&insn.Line{Line: 12, Start: handler.ID},
			&insn.Simple{Op: insn.Pop},
			&insn.Simple{Op: insn.Return},
		)
		code.Handlers = []Handler{{Start: start.ID, End: end.ID, Handler: handler.ID, Catch: "java/io/IOException"}}
		code.Locals = []LocalVar{{Start: start.ID, End: end.ID, Name: "x", Desc: "I", Index: 0}}
	})

	_, code := decodeMethod(t, data, "guarded", "()V")
	require.Len(t, code.Handlers, 1)
	require.Equal(t, "java/io/IOException", code.Handlers[0].Catch)
	require.Len(t, code.Locals, 1)
	require.Equal(t, "x", code.Locals[0].Name)

	var lines []uint16
	for _, i := range code.Insns.All() {
		if ln, ok := i.(*insn.Line); ok {
			lines = append(lines, ln.Line)
		}
	}
	require.Equal(t, []uint16{10, 12}, lines)

	h, ok := code.Insns.LabelAt(code.Handlers[0].Handler)
	require.True(t, ok)
	require.True(t, errors.Is(code.Insns.Remove(h), insn.ErrLabelInUse))

	code.ClearHandlers()
	code.ClearLocals()
	require.Empty(t, code.Handlers)
}

func TestSetCode_LowersVersion(t *testing.T) {
	data := buildClass(t, "f", "()V", func(code *Code) {
		code.Insns.Append(&insn.Simple{Op: insn.Return})
	})
	c, code := decodeMethod(t, data, "f", "()V")
	c.Major = 52
	code.Insns.Prepend(&insn.Simple{Op: insn.Nop})
	require.NoError(t, c.SetCode(c.Method("f", "()V"), code))
	require.Equal(t, Java6, c.Major)

	_, again := decodeMethod(t, mustBytes(t, c), "f", "()V")
	require.Equal(t, 2, again.Insns.Len())
}

func mustBytes(t *testing.T, c *Class) []byte {
	t.Helper()
	b, err := c.Bytes()
	require.NoError(t, err)
	return b
}

func TestClass_CloneIsolation(t *testing.T) {
	data := buildClass(t, "f", "()V", func(code *Code) {
		code.Insns.Append(&insn.Simple{Op: insn.Return})
	})
	c, err := Parse(data)
	require.NoError(t, err)
	before := c.Pool.Len()

	n := c.Clone()
	_, err = n.Pool.AddUtf8("only in clone")
	require.NoError(t, err)
	n.Methods[0].SetAttribute(Attribute{Name: "Code", Data: []byte{1}})

	require.Equal(t, before, c.Pool.Len())
	a, _ := c.Methods[0].Attribute("Code")
	require.NotEqual(t, []byte{1}, a.Data)
}

func TestNeedsFrames(t *testing.T) {
	c := New("test/A", "java/lang/Object")
	require.False(t, c.NeedsFrames())

	c.Pool.entries = append(c.Pool.entries, Constant{Tag: TagInvokeDynamic})
	require.True(t, c.NeedsFrames())

	i := New("test/I", "java/lang/Object")
	i.Access |= AccInterface
	i.Methods = append(i.Methods, &Member{Name: "m", Desc: "()V", Attributes: []Attribute{{Name: "Code"}}})
	require.True(t, i.NeedsFrames())
}

func TestPool_Dedupe(t *testing.T) {
	p := NewPool()
	a, err := p.AddMethodref("game/Hooks", "f", "()V", false)
	require.NoError(t, err)
	b, err := p.AddMethodref("game/Hooks", "f", "()V", false)
	require.NoError(t, err)
	require.Equal(t, a, b)

	i, err := p.AddMethodref("game/Hooks", "f", "()V", true)
	require.NoError(t, err)
	require.NotEqual(t, a, i)

	tag, owner, name, desc, err := p.MemberRef(i)
	require.NoError(t, err)
	require.Equal(t, TagInterfaceMethodref, tag)
	require.Equal(t, "game/Hooks.f()V", owner+"."+name+desc)

	_, err = p.Utf8(a)
	require.True(t, errors.Is(err, ErrBadPoolIndex))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"magic", []byte{0xca, 0xfe, 0xba, 0xbf, 0, 0, 0, 50}, ErrBadMagic},
		{"truncated pool", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 50, 0, 3, 1, 0}, ErrTruncated},
		{"bad tag", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 50, 0, 2, 99}, ErrBadPoolTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
