package verify

import (
	"fmt"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/insn"
	"github.com/dshills/starhook/internal/symbol"
)

// Stack computes the maximum operand stack depth of code, in slots.
//
// The analysis walks every reachable path from the method entry and from each
// exception handler (which starts with the thrown reference on the stack).
// Every instruction must be reached with the same depth on every path.
func Stack(code *classfile.Code) (int, error) {
	l := code.Insns
	depths := make(map[insn.Handle]int, l.Len())
	maxDepth := 0

	type item struct {
		at    insn.Handle
		depth int
	}
	work := []item{{l.First(), 0}}
	for _, h := range code.Handlers {
		at, ok := l.LabelAt(h.Handler)
		if !ok {
			return 0, fmt.Errorf("%w: handler L%d", ErrDanglingLabel, h.Handler)
		}
		work = append(work, item{at, 1})
	}

	jump := func(id insn.LabelID, depth int) error {
		at, ok := l.LabelAt(id)
		if !ok {
			return fmt.Errorf("%w: L%d", ErrDanglingLabel, id)
		}
		work = append(work, item{at, depth})
		return nil
	}

	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		for h, depth := it.at, it.depth; ; {
			if h == insn.NoHandle {
				return 0, ErrFallsOffEnd
			}
			if seen, ok := depths[h]; ok {
				if seen != depth {
					return 0, fmt.Errorf("%w: %s reached with %d and %d",
						ErrStackMismatch, insn.Format(l.At(h)), seen, depth)
				}
				break
			}
			depths[h] = depth

			i := l.At(h)
			if insn.IsPseudo(i) {
				h = l.Next(h)
				continue
			}
			pop, push, err := effect(i)
			if err != nil {
				return 0, err
			}
			if depth < pop {
				return 0, fmt.Errorf("%w: %s needs %d, stack holds %d",
					ErrStackUnderflow, insn.Format(i), pop, depth)
			}
			depth += push - pop
			if depth > maxDepth {
				maxDepth = depth
			}

			op := i.Opcode()
			switch v := i.(type) {
			case *insn.Jump:
				if op == insn.Jsr {
					// The subroutine sees the return address; the
					// instruction after jsr resumes at the original depth.
					if err := jump(v.Target, depth); err != nil {
						return 0, err
					}
					depth--
				} else if err := jump(v.Target, depth); err != nil {
					return 0, err
				}
			case *insn.Switch:
				for _, t := range append([]insn.LabelID{v.Default}, v.Targets...) {
					if err := jump(t, depth); err != nil {
						return 0, err
					}
				}
			}
			if insn.IsTerminal(op) || op == insn.Tableswitch || op == insn.Lookupswitch {
				break
			}
			h = l.Next(h)
		}
	}
	return maxDepth, nil
}

// simpleEffects holds (pop, push) slot counts of operand-free opcodes.
var simpleEffects = map[insn.Opcode][2]int{
	insn.Nop: {0, 0}, insn.AconstNull: {0, 1},
	insn.IconstM1: {0, 1}, insn.Iconst0: {0, 1}, insn.Iconst1: {0, 1}, insn.Iconst2: {0, 1},
	insn.Iconst3: {0, 1}, insn.Iconst4: {0, 1}, insn.Iconst5: {0, 1},
	insn.Lconst0: {0, 2}, insn.Lconst1: {0, 2},
	insn.Fconst0: {0, 1}, insn.Fconst1: {0, 1}, insn.Fconst2: {0, 1},
	insn.Dconst0: {0, 2}, insn.Dconst1: {0, 2},

	insn.Iaload: {2, 1}, insn.Laload: {2, 2}, insn.Faload: {2, 1}, insn.Daload: {2, 2},
	insn.Aaload: {2, 1}, insn.Baload: {2, 1}, insn.Caload: {2, 1}, insn.Saload: {2, 1},
	insn.Iastore: {3, 0}, insn.Lastore: {4, 0}, insn.Fastore: {3, 0}, insn.Dastore: {4, 0},
	insn.Aastore: {3, 0}, insn.Bastore: {3, 0}, insn.Castore: {3, 0}, insn.Sastore: {3, 0},

	insn.Pop: {1, 0}, insn.Pop2: {2, 0}, insn.Dup: {1, 2}, insn.DupX1: {2, 3}, insn.DupX2: {3, 4},
	insn.Dup2: {2, 4}, insn.Dup2X1: {3, 5}, insn.Dup2X2: {4, 6}, insn.Swap: {2, 2},

	insn.Ineg: {1, 1}, insn.Lneg: {2, 2}, insn.Fneg: {1, 1}, insn.Dneg: {2, 2},
	insn.Ishl: {2, 1}, insn.Lshl: {3, 2}, insn.Ishr: {2, 1}, insn.Lshr: {3, 2},
	insn.Iushr: {2, 1}, insn.Lushr: {3, 2},

	insn.I2l: {1, 2}, insn.I2f: {1, 1}, insn.I2d: {1, 2},
	insn.L2i: {2, 1}, insn.L2f: {2, 1}, insn.L2d: {2, 2},
	insn.F2i: {1, 1}, insn.F2l: {1, 2}, insn.F2d: {1, 2},
	insn.D2i: {2, 1}, insn.D2l: {2, 2}, insn.D2f: {2, 1},
	insn.I2b: {1, 1}, insn.I2c: {1, 1}, insn.I2s: {1, 1},

	insn.Lcmp: {4, 1}, insn.Fcmpl: {2, 1}, insn.Fcmpg: {2, 1}, insn.Dcmpl: {4, 1}, insn.Dcmpg: {4, 1},

	insn.Ireturn: {1, 0}, insn.Lreturn: {2, 0}, insn.Freturn: {1, 0}, insn.Dreturn: {2, 0},
	insn.Areturn: {1, 0}, insn.Return: {0, 0},

	insn.Arraylength: {1, 1}, insn.Athrow: {1, 0}, insn.Monitorenter: {1, 0}, insn.Monitorexit: {1, 0},
}

// binaryEffect covers the typed add/sub/mul/div/rem and and/or/xor families,
// whose opcodes cycle through int, long, float, double.
func binaryEffect(op insn.Opcode) ([2]int, bool) {
	var k insn.Opcode
	switch {
	case op >= insn.Iadd && op <= insn.Drem:
		k = (op - insn.Iadd) % 4
	case op >= insn.Iand && op <= insn.Lxor:
		k = (op - insn.Iand) % 2
	default:
		return [2]int{}, false
	}
	if k == 1 || k == 3 {
		return [2]int{4, 2}, true
	}
	return [2]int{2, 1}, true
}

func slots(desc string) (int, error) {
	t, err := symbol.ParseFieldDesc(desc)
	if err != nil {
		return 0, err
	}
	return t.Slots(), nil
}

// effect returns how many slots i pops and pushes.
func effect(i insn.Insn) (pop, push int, err error) {
	switch v := i.(type) {
	case *insn.Simple:
		if e, ok := simpleEffects[v.Op]; ok {
			return e[0], e[1], nil
		}
		if e, ok := binaryEffect(v.Op); ok {
			return e[0], e[1], nil
		}
	case *insn.Int:
		if v.Op == insn.Newarray {
			return 1, 1, nil
		}
		return 0, 1, nil
	case *insn.Ldc:
		if v.Wide {
			return 0, 2, nil
		}
		return 0, 1, nil
	case *insn.Var:
		n := 1
		if v.Op == insn.Lload || v.Op == insn.Dload || v.Op == insn.Lstore || v.Op == insn.Dstore {
			n = 2
		}
		switch {
		case v.Op == insn.Ret:
			return 0, 0, nil
		case insn.IsLoad(v.Op):
			return 0, n, nil
		default:
			return n, 0, nil
		}
	case *insn.IncVar:
		return 0, 0, nil
	case *insn.Jump:
		switch {
		case v.Op == insn.Goto:
			return 0, 0, nil
		case v.Op == insn.Jsr:
			return 0, 1, nil
		case v.Op >= insn.IfIcmpeq && v.Op <= insn.IfAcmpne:
			return 2, 0, nil
		}
		return 1, 0, nil
	case *insn.Switch:
		return 1, 0, nil
	case *insn.Field:
		n, err := slots(v.Desc)
		if err != nil {
			return 0, 0, err
		}
		switch v.Op {
		case insn.Getstatic:
			return 0, n, nil
		case insn.Putstatic:
			return n, 0, nil
		case insn.Getfield:
			return 1, n, nil
		}
		return 1 + n, 0, nil
	case *insn.Invoke:
		mt, err := symbol.ParseMethodDesc(v.Desc)
		if err != nil {
			return 0, 0, err
		}
		pop = mt.ArgSlots()
		if v.Op != insn.Invokestatic {
			pop++
		}
		return pop, mt.Return.Slots(), nil
	case *insn.Dynamic:
		mt, err := symbol.ParseMethodDesc(v.Desc)
		if err != nil {
			return 0, 0, err
		}
		return mt.ArgSlots(), mt.Return.Slots(), nil
	case *insn.TypeInsn:
		if v.Op == insn.New {
			return 0, 1, nil
		}
		return 1, 1, nil
	case *insn.MultiArray:
		return int(v.Dims), 1, nil
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnknownInstruction, insn.Format(i))
}
