package instrument

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/insn"
)

const (
	spaceClass    = "snoddasmannen/galimulator/Space"
	empireClass   = "snoddasmannen/galimulator/Empire"
	listenerClass = "snoddasmannen/galimulator/GalimulatorGestureListener"
	hooksClass    = "starhook/bridge/Hooks"
)

type hostMethod struct {
	access    uint16
	name      string
	desc      string
	maxLocals uint16
	build     func(c *classfile.Code)
}

// hostClass encodes the given methods into a class and parses it back, so
// the result looks exactly like a class read from a jar.
func hostClass(t *testing.T, name string, methods ...hostMethod) *classfile.Class {
	t.Helper()
	c := classfile.New(name, "java/lang/Object")
	for _, m := range methods {
		code := &classfile.Code{MaxStack: 2, MaxLocals: m.maxLocals, Insns: insn.NewList()}
		m.build(code)
		a, err := classfile.EncodeCode(c.Pool, code)
		require.NoError(t, err)
		c.Methods = append(c.Methods, &classfile.Member{
			Access:     m.access,
			Name:       m.name,
			Desc:       m.desc,
			Attributes: []classfile.Attribute{a},
		})
	}
	data, err := c.Bytes()
	require.NoError(t, err)
	parsed, err := classfile.Parse(data)
	require.NoError(t, err)
	return parsed
}

func static(name, desc string, locals uint16, build func(c *classfile.Code)) hostMethod {
	return hostMethod{access: classfile.AccPublic | classfile.AccStatic, name: name, desc: desc, maxLocals: locals, build: build}
}

func virtual(name, desc string, locals uint16, build func(c *classfile.Code)) hostMethod {
	return hostMethod{access: classfile.AccPublic, name: name, desc: desc, maxLocals: locals, build: build}
}

func collapseMethod() hostMethod {
	return static("f", "(Lsnoddasmannen/galimulator/Empire;)V", 1, func(c *classfile.Code) {
		c.Insns.Append(
			&insn.Var{Op: insn.Aload, Index: 0},
			&insn.Invoke{Op: insn.Invokestatic, Owner: spaceClass, Name: "g", Desc: "(Lsnoddasmannen/galimulator/Empire;)V"},
			&insn.Simple{Op: insn.Return},
		)
	})
}

func graphicalTickMethod() hostMethod {
	return static("u", "()V", 0, func(c *classfile.Code) {
		l := c.Insns
		draw := l.NewLabel()
		l.Append(
			&insn.Field{Op: insn.Getstatic, Owner: spaceClass, Name: "z", Desc: "Z"},
			&insn.Jump{Op: insn.Ifeq, Target: draw.ID},
			&insn.Simple{Op: insn.Return},
			draw,
			&insn.Invoke{Op: insn.Invokestatic, Owner: spaceClass, Name: "render", Desc: "()V"},
			&insn.Simple{Op: insn.Return},
		)
	})
}

// logicalTickMethod builds the tick loop; copies > 1 repeats the window.
func logicalTickMethod(copies int) hostMethod {
	return static("B", "()V", 0, func(c *classfile.Code) {
		l := c.Insns
		for range copies {
			odd := l.NewLabel()
			l.Append(
				&insn.Field{Op: insn.Getstatic, Owner: spaceClass, Name: "y", Desc: "I"},
				&insn.Simple{Op: insn.Iconst2},
				&insn.Simple{Op: insn.Irem},
				&insn.Jump{Op: insn.Ifne, Target: odd.ID},
				&insn.Invoke{Op: insn.Invokestatic, Owner: spaceClass, Name: "C", Desc: "()V"},
				odd,
			)
		}
		l.Append(
			&insn.Field{Op: insn.Getstatic, Owner: spaceClass, Name: "y", Desc: "I"},
			&insn.Simple{Op: insn.Iconst1},
			&insn.Simple{Op: insn.Iadd},
			&insn.Field{Op: insn.Putstatic, Owner: spaceClass, Name: "y", Desc: "I"},
			&insn.Simple{Op: insn.Return},
		)
	})
}

func saveMethod() hostMethod {
	return static("b", "(Ljava/lang/String;Ljava/lang/String;)V", 3, func(c *classfile.Code) {
		l := c.Insns
		start, end, handler := l.NewLabel(), l.NewLabel(), l.NewLabel()
		l.Append(
			start,
			&insn.Var{Op: insn.Aload, Index: 0},
			&insn.Var{Op: insn.Aload, Index: 1},
			&insn.Invoke{Op: insn.Invokestatic, Owner: spaceClass, Name: "c", Desc: "(Ljava/lang/String;Ljava/lang/String;)V"},
			end,
			&insn.Simple{Op: insn.Return},
			handler,
			&insn.Var{Op: insn.Astore, Index: 2},
			&insn.Simple{Op: insn.Return},
		)
		c.Handlers = []classfile.Handler{{Start: start.ID, End: end.ID, Handler: handler.ID, Catch: "java/io/IOException"}}
	})
}

func spaceHost(t *testing.T) *classfile.Class {
	return hostClass(t, spaceClass, collapseMethod(), graphicalTickMethod(), logicalTickMethod(1), saveMethod())
}

func empireHost(t *testing.T) *classfile.Class {
	return hostClass(t, empireClass, virtual("b", "(I)V", 2, func(c *classfile.Code) {
		c.Insns.Append(
			&insn.Var{Op: insn.Aload, Index: 0},
			&insn.Var{Op: insn.Iload, Index: 1},
			&insn.Field{Op: insn.Putfield, Owner: empireClass, Name: "t", Desc: "I"},
			&insn.Simple{Op: insn.Return},
		)
	}))
}

func listenerHost(t *testing.T) *classfile.Class {
	return hostClass(t, listenerClass, virtual("keyTyped", "(C)Z", 2, func(c *classfile.Code) {
		l := c.Insns
		start, unhandled := l.NewLabel(), l.NewLabel()
		l.Append(
			start,
			&insn.Line{Line: 42, Start: start.ID},
			&insn.Var{Op: insn.Iload, Index: 1},
			&insn.Invoke{Op: insn.Invokestatic, Owner: "snoddasmannen/galimulator/ui/Widget", Name: "a", Desc: "(C)Z"},
			&insn.Jump{Op: insn.Ifeq, Target: unhandled.ID},
			&insn.Simple{Op: insn.Iconst1},
			&insn.Simple{Op: insn.Ireturn},
			unhandled,
			&insn.Simple{Op: insn.Iconst0},
			&insn.Simple{Op: insn.Ireturn},
		)
	}))
}

// body lists the real instructions of a method. Jumps are reduced to their
// mnemonic since label numbering is not stable across edits.
func body(t *testing.T, cls *classfile.Class, name, desc string) []string {
	t.Helper()
	m := cls.Method(name, desc)
	require.NotNil(t, m)
	code, err := cls.DecodeCode(m)
	require.NoError(t, err)
	var out []string
	for _, i := range code.Insns.All() {
		switch v := i.(type) {
		case *insn.Label, *insn.Line:
		case *insn.Jump:
			out = append(out, v.Op.String())
		default:
			out = append(out, insn.Format(i))
		}
	}
	return out
}

func hook(name string) string {
	return "invokestatic " + hooksClass + "." + name
}

func mustBytes(t *testing.T, cls *classfile.Class) []byte {
	t.Helper()
	data, err := cls.Bytes()
	require.NoError(t, err)
	return data
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	m, err := DefaultManifest()
	require.NoError(t, err)
	plans, err := m.Plans()
	require.NoError(t, err)
	e, err := NewEngine(plans)
	require.NoError(t, err)
	return e
}
