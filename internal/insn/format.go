package insn

import (
	"fmt"
	"strings"
)

// Format renders a single instruction in a javap-like syntax.
func Format(i Insn) string {
	switch v := i.(type) {
	case *Label:
		return fmt.Sprintf("L%d:", v.ID)
	case *Line:
		return fmt.Sprintf("  // line %d (L%d)", v.Line, v.Start)
	case *Simple:
		return v.Op.String()
	case *Int:
		return fmt.Sprintf("%s %d", v.Op, v.Value)
	case *Var:
		return fmt.Sprintf("%s %d", v.Op, v.Index)
	case *IncVar:
		return fmt.Sprintf("iinc %d %d", v.Index, v.Delta)
	case *Ldc:
		return fmt.Sprintf("%s #%d", v.Opcode(), v.Index)
	case *TypeInsn:
		return fmt.Sprintf("%s %s", v.Op, v.Class)
	case *Field:
		return fmt.Sprintf("%s %s.%s %s", v.Op, v.Owner, v.Name, v.Desc)
	case *Invoke:
		return fmt.Sprintf("%s %s.%s%s", v.Op, v.Owner, v.Name, v.Desc)
	case *Dynamic:
		return fmt.Sprintf("invokedynamic #%d %s%s", v.Index, v.Name, v.Desc)
	case *Jump:
		return fmt.Sprintf("%s L%d", v.Op, v.Target)
	case *Switch:
		var b strings.Builder
		b.WriteString(v.Op.String())
		b.WriteString(" {")
		for n, t := range v.Targets {
			key := v.Low + int32(n)
			if v.Op == Lookupswitch {
				key = v.Keys[n]
			}
			fmt.Fprintf(&b, " %d: L%d;", key, t)
		}
		fmt.Fprintf(&b, " default: L%d }", v.Default)
		return b.String()
	case *MultiArray:
		return fmt.Sprintf("multianewarray %s %d", v.Class, v.Dims)
	}
	return fmt.Sprintf("<%T>", i)
}

// Disassemble renders the whole list, one instruction per line.
func Disassemble(l *List) string {
	var b strings.Builder
	for _, i := range l.All() {
		if _, ok := i.(*Label); !ok {
			b.WriteString("    ")
		}
		b.WriteString(Format(i))
		b.WriteByte('\n')
	}
	return b.String()
}
