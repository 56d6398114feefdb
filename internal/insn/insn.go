// Package insn models a method body as a mutable sequence of instructions.
//
// Instructions are small value types. Branches refer to labels by LabelID
// rather than by position, so inserting or removing code never requires
// patching branch operands. The sequence itself lives in a List, an arena of
// nodes addressed by stable handles.
package insn

import (
	"fmt"

	"github.com/dshills/starhook/internal/symbol"
)

// LabelID identifies a label within one List.
type LabelID int32

// NoLabel is the zero label, never allocated by a List.
const NoLabel LabelID = 0

// Insn is a single instruction or pseudo instruction.
type Insn interface {
	// Opcode returns the JVM opcode, or OpNone for pseudo instructions.
	Opcode() Opcode
}

// Simple is an instruction without operands: arithmetic, stack manipulation,
// array access, returns, athrow, monitors and the small constant pushes.
type Simple struct {
	Op Opcode
}

// Opcode implements Insn.
func (i *Simple) Opcode() Opcode { return i.Op }

// Int pushes a small integer (bipush, sipush) or creates a primitive array
// (newarray, where Value is the array type code).
type Int struct {
	Op    Opcode
	Value int32
}

// Opcode implements Insn.
func (i *Int) Opcode() Opcode { return i.Op }

// Var loads or stores a local variable, or is a ret.
type Var struct {
	Op    Opcode
	Index uint16
}

// Opcode implements Insn.
func (i *Var) Opcode() Opcode { return i.Op }

// IncVar increments a local int variable in place.
type IncVar struct {
	Index uint16
	Delta int16
}

// Opcode implements Insn.
func (i *IncVar) Opcode() Opcode { return Iinc }

// Ldc pushes a constant pool entry. Pool indices are never renumbered, so the
// index stays valid for the lifetime of the class.
type Ldc struct {
	Index uint16

	// Wide is set for long and double constants (ldc2_w).
	Wide bool
}

// Opcode implements Insn.
func (i *Ldc) Opcode() Opcode {
	if i.Wide {
		return Ldc2W
	}
	return LdcOp
}

// TypeInsn operates on a class: new, anewarray, checkcast, instanceof.
type TypeInsn struct {
	Op    Opcode
	Class string
}

// Opcode implements Insn.
func (i *TypeInsn) Opcode() Opcode { return i.Op }

// Field reads or writes a static or instance field.
type Field struct {
	Op    Opcode
	Owner string
	Name  string
	Desc  string
}

// Opcode implements Insn.
func (i *Field) Opcode() Opcode { return i.Op }

// Ref returns the symbolic reference of the accessed field.
func (i *Field) Ref() symbol.Ref {
	return symbol.Ref{Owner: i.Owner, Name: i.Name, Desc: i.Desc}
}

// Invoke calls a method with invokevirtual, invokespecial, invokestatic or
// invokeinterface.
type Invoke struct {
	Op    Opcode
	Owner string
	Name  string
	Desc  string

	// Interface is set when the owner is an interface. It selects the
	// InterfaceMethodref pool tag.
	Interface bool
}

// Opcode implements Insn.
func (i *Invoke) Opcode() Opcode { return i.Op }

// Ref returns the symbolic reference of the invoked method.
func (i *Invoke) Ref() symbol.Ref {
	return symbol.Ref{Owner: i.Owner, Name: i.Name, Desc: i.Desc}
}

// Dynamic is an invokedynamic call site. The pool entry is kept as is.
type Dynamic struct {
	Index uint16
	Name  string
	Desc  string
}

// Opcode implements Insn.
func (i *Dynamic) Opcode() Opcode { return Invokedynamic }

// Jump is a conditional or unconditional branch, or a jsr.
type Jump struct {
	Op     Opcode
	Target LabelID
}

// Opcode implements Insn.
func (i *Jump) Opcode() Opcode { return i.Op }

// Switch is a tableswitch or lookupswitch.
type Switch struct {
	Op      Opcode
	Default LabelID

	// Low is the first key of a tableswitch. Keys are consecutive from Low.
	Low int32

	// Keys holds the match values of a lookupswitch, sorted ascending.
	Keys []int32

	Targets []LabelID
}

// Opcode implements Insn.
func (i *Switch) Opcode() Opcode { return i.Op }

// MultiArray creates a multi-dimensional array.
type MultiArray struct {
	Class string
	Dims  uint8
}

// Opcode implements Insn.
func (i *MultiArray) Opcode() Opcode { return Multianewarray }

// Label marks a position that branches, exception ranges and line markers
// can refer to.
type Label struct {
	ID LabelID
}

// Opcode implements Insn.
func (i *Label) Opcode() Opcode { return OpNone }

// Line marks the start of a source line at the position of Start.
type Line struct {
	Line  uint16
	Start LabelID
}

// Opcode implements Insn.
func (i *Line) Opcode() Opcode { return OpNone }

// IsPseudo reports whether the instruction is a label or line marker.
func IsPseudo(i Insn) bool {
	return i.Opcode() == OpNone
}

// Targets returns every label the instruction refers to.
func Targets(i Insn) []LabelID {
	switch v := i.(type) {
	case *Jump:
		return []LabelID{v.Target}
	case *Switch:
		out := make([]LabelID, 0, len(v.Targets)+1)
		out = append(out, v.Default)
		return append(out, v.Targets...)
	case *Line:
		return []LabelID{v.Start}
	}
	return nil
}

// Clone returns a deep copy of the instruction.
func Clone(i Insn) Insn {
	switch v := i.(type) {
	case *Simple:
		c := *v
		return &c
	case *Int:
		c := *v
		return &c
	case *Var:
		c := *v
		return &c
	case *IncVar:
		c := *v
		return &c
	case *Ldc:
		c := *v
		return &c
	case *TypeInsn:
		c := *v
		return &c
	case *Field:
		c := *v
		return &c
	case *Invoke:
		c := *v
		return &c
	case *Dynamic:
		c := *v
		return &c
	case *Jump:
		c := *v
		return &c
	case *Switch:
		c := *v
		c.Keys = append([]int32(nil), v.Keys...)
		c.Targets = append([]LabelID(nil), v.Targets...)
		return &c
	case *MultiArray:
		c := *v
		return &c
	case *Label:
		c := *v
		return &c
	case *Line:
		c := *v
		return &c
	}
	panic(fmt.Sprintf("insn: cannot clone %T", i))
}

// IntValue reports the integer pushed by a constant instruction.
// Ldc constants are not resolved.
func IntValue(i Insn) (int32, bool) {
	switch v := i.(type) {
	case *Simple:
		if v.Op >= IconstM1 && v.Op <= Iconst5 {
			return int32(v.Op - Iconst0), true
		}
	case *Int:
		if v.Op == Bipush || v.Op == Sipush {
			return v.Value, true
		}
	}
	return 0, false
}

// PushInt returns the shortest instruction that pushes v.
func PushInt(v int32) Insn {
	switch {
	case v >= -1 && v <= 5:
		return &Simple{Op: Iconst0 + Opcode(v)}
	case v >= -128 && v <= 127:
		return &Int{Op: Bipush, Value: v}
	case v >= -32768 && v <= 32767:
		return &Int{Op: Sipush, Value: v}
	}
	return nil
}

// LoadOp returns the load opcode for values of type t.
func LoadOp(t symbol.Type) Opcode {
	switch {
	case t.IsIntLike():
		return Iload
	case t.Kind() == symbol.KindLong:
		return Lload
	case t.Kind() == symbol.KindFloat:
		return Fload
	case t.Kind() == symbol.KindDouble:
		return Dload
	}
	return Aload
}

// ReturnOp returns the return opcode for a method returning t.
func ReturnOp(t symbol.Type) Opcode {
	switch {
	case t.Kind() == symbol.KindVoid:
		return Return
	case t.IsIntLike():
		return Ireturn
	case t.Kind() == symbol.KindLong:
		return Lreturn
	case t.Kind() == symbol.KindFloat:
		return Freturn
	case t.Kind() == symbol.KindDouble:
		return Dreturn
	}
	return Areturn
}

// ZeroValue returns the instruction pushing the default value of t, or nil
// for void.
func ZeroValue(t symbol.Type) Insn {
	switch {
	case t.Kind() == symbol.KindVoid:
		return nil
	case t.IsIntLike():
		return &Simple{Op: Iconst0}
	case t.Kind() == symbol.KindLong:
		return &Simple{Op: Lconst0}
	case t.Kind() == symbol.KindFloat:
		return &Simple{Op: Fconst0}
	case t.Kind() == symbol.KindDouble:
		return &Simple{Op: Dconst0}
	}
	return &Simple{Op: AconstNull}
}
