package classfile

import (
	"fmt"
	"math"

	"github.com/dshills/starhook/internal/insn"
	"github.com/dshills/starhook/internal/symbol"
)

// Handler is an exception table entry.
type Handler struct {
	Start   insn.LabelID
	End     insn.LabelID
	Handler insn.LabelID

	// Catch is the internal name of the caught class, empty for finally.
	Catch string
}

// LocalVar is a LocalVariableTable or LocalVariableTypeTable entry.
type LocalVar struct {
	Start insn.LabelID
	End   insn.LabelID
	Name  string
	Desc  string
	Index uint16

	// Generic marks an entry of the LocalVariableTypeTable, whose Desc is a
	// generic signature.
	Generic bool
}

// Code is a decoded Code attribute.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Insns     *insn.List
	Handlers  []Handler
	Locals    []LocalVar

	// Attributes holds code attributes carried through unchanged.
	Attributes []Attribute

	// HadFrames is set when the decoded attribute carried a StackMapTable.
	// Frames are not re-encoded.
	HadFrames bool
}

// Clone returns a deep copy. Label IDs and handles stay the same.
func (c *Code) Clone() *Code {
	n := *c
	n.Insns = c.Insns.Clone()
	n.Handlers = append([]Handler(nil), c.Handlers...)
	n.Locals = append([]LocalVar(nil), c.Locals...)
	n.Attributes = append([]Attribute(nil), c.Attributes...)
	return &n
}

// ClearHandlers drops every exception handler and releases its labels.
func (c *Code) ClearHandlers() {
	for _, h := range c.Handlers {
		c.Insns.Unpin(h.Start)
		c.Insns.Unpin(h.End)
		c.Insns.Unpin(h.Handler)
	}
	c.Handlers = nil
}

// ClearLocals drops the local variable debug tables and releases their labels.
func (c *Code) ClearLocals() {
	for _, v := range c.Locals {
		c.Insns.Unpin(v.Start)
		c.Insns.Unpin(v.End)
	}
	c.Locals = nil
}

// DecodeCode decodes the Code attribute of m.
func (c *Class) DecodeCode(m *Member) (*Code, error) {
	a, ok := m.Attribute("Code")
	if !ok {
		return nil, fmt.Errorf("%w: %s%s", ErrNoCode, m.Name, m.Desc)
	}
	code, err := decodeCode(c.Pool, a.Data)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
	}
	return code, nil
}

// decoder turns bytecode offsets into labels as it goes.
type decoder struct {
	pool   *Pool
	list   *insn.List
	labels map[int]insn.LabelID
}

func (d *decoder) label(offset int) insn.LabelID {
	if id, ok := d.labels[offset]; ok {
		return id
	}
	id := d.list.NewLabel().ID
	d.labels[offset] = id
	return id
}

type located struct {
	offset int
	insn   insn.Insn
}

func decodeCode(pool *Pool, data []byte) (*Code, error) {
	r := newReader(data)
	code := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	length := int(r.u4())
	body := r.bytes(length)
	if r.err != nil {
		return nil, r.err
	}
	d := &decoder{pool: pool, list: insn.NewList(), labels: make(map[int]insn.LabelID)}
	code.Insns = d.list

	var decoded []located
	for pos := 0; pos < length; {
		i, size, err := d.decodeInsn(body, pos)
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", pos, err)
		}
		decoded = append(decoded, located{offset: pos, insn: i})
		pos += size
	}

	n := int(r.u2())
	for k := 0; k < n; k++ {
		start, end, handler, catch := int(r.u2()), int(r.u2()), int(r.u2()), r.u2()
		h := Handler{Start: d.label(start), End: d.label(end), Handler: d.label(handler)}
		if catch != 0 {
			name, err := pool.ClassName(catch)
			if err != nil {
				return nil, fmt.Errorf("exception table: %w", err)
			}
			h.Catch = name
		}
		code.Handlers = append(code.Handlers, h)
	}

	lines := make(map[int][]uint16)
	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		switch a.Name {
		case "StackMapTable":
			code.HadFrames = true
		case "LineNumberTable":
			ar := newReader(a.Data)
			for k, n := 0, int(ar.u2()); k < n; k++ {
				pc, line := int(ar.u2()), ar.u2()
				d.label(pc)
				lines[pc] = append(lines[pc], line)
			}
			if ar.err != nil {
				return nil, fmt.Errorf("line numbers: %w", ar.err)
			}
		case "LocalVariableTable", "LocalVariableTypeTable":
			ar := newReader(a.Data)
			for k, n := 0, int(ar.u2()); k < n; k++ {
				start, size := int(ar.u2()), int(ar.u2())
				name, err := pool.Utf8(ar.u2())
				if err != nil {
					return nil, fmt.Errorf("%s: %w", a.Name, err)
				}
				desc, err := pool.Utf8(ar.u2())
				if err != nil {
					return nil, fmt.Errorf("%s: %w", a.Name, err)
				}
				code.Locals = append(code.Locals, LocalVar{
					Start:   d.label(start),
					End:     d.label(start + size),
					Name:    name,
					Desc:    desc,
					Index:   ar.u2(),
					Generic: a.Name == "LocalVariableTypeTable",
				})
			}
			if ar.err != nil {
				return nil, fmt.Errorf("%s: %w", a.Name, ar.err)
			}
		default:
			code.Attributes = append(code.Attributes, a)
		}
	}
	boundaries := make(map[int]bool, len(decoded)+1)
	for _, l := range decoded {
		boundaries[l.offset] = true
	}
	boundaries[length] = true
	for off := range d.labels {
		if !boundaries[off] {
			return nil, fmt.Errorf("%w: offset %d is not an instruction boundary", ErrBadCode, off)
		}
	}

	place := func(off int) {
		if id, ok := d.labels[off]; ok {
			d.list.Append(&insn.Label{ID: id})
			for _, line := range lines[off] {
				d.list.Append(&insn.Line{Line: line, Start: id})
			}
		}
	}
	for _, l := range decoded {
		place(l.offset)
		d.list.Append(l.insn)
	}
	place(length)

	for _, h := range code.Handlers {
		d.list.Pin(h.Start)
		d.list.Pin(h.End)
		d.list.Pin(h.Handler)
	}
	for _, v := range code.Locals {
		d.list.Pin(v.Start)
		d.list.Pin(v.End)
	}
	return code, nil
}

func s2(b []byte, pos int) int {
	return int(int16(uint16(b[pos])<<8 | uint16(b[pos+1])))
}

func u2(b []byte, pos int) uint16 {
	return uint16(b[pos])<<8 | uint16(b[pos+1])
}

func s4(b []byte, pos int) int {
	return int(int32(uint32(b[pos])<<24 | uint32(b[pos+1])<<16 | uint32(b[pos+2])<<8 | uint32(b[pos+3])))
}

// operandSize is the fixed length of each opcode with a fixed-size encoding.
func operandSize(op insn.Opcode) int {
	switch {
	case op == insn.Bipush, op == insn.LdcOp, op == insn.Newarray, op == insn.Ret,
		op >= insn.Iload && op <= insn.Aload, op >= insn.Istore && op <= insn.Astore:
		return 2
	case op == insn.Sipush, op == insn.LdcW, op == insn.Ldc2W, op == insn.Iinc,
		insn.IsConditional(op), op == insn.Goto, op == insn.Jsr,
		op >= insn.Getstatic && op <= insn.Invokestatic,
		op == insn.New, op == insn.Anewarray, op == insn.Checkcast, op == insn.Instanceof:
		return 3
	case op == insn.Multianewarray:
		return 4
	case op == insn.Invokeinterface, op == insn.Invokedynamic, op == insn.GotoW, op == insn.JsrW:
		return 5
	}
	return 1
}

func (d *decoder) decodeInsn(b []byte, pos int) (insn.Insn, int, error) {
	op := insn.Opcode(b[pos])
	size := operandSize(op)
	switch op {
	case insn.Tableswitch, insn.Lookupswitch, insn.Wide:
	default:
		if pos+size > len(b) {
			return nil, 0, ErrTruncated
		}
	}

	switch {
	case op <= insn.Dconst1:
		return &insn.Simple{Op: op}, 1, nil
	case op == insn.Bipush:
		return &insn.Int{Op: op, Value: int32(int8(b[pos+1]))}, size, nil
	case op == insn.Sipush:
		return &insn.Int{Op: op, Value: int32(s2(b, pos+1))}, size, nil
	case op == insn.LdcOp:
		return &insn.Ldc{Index: uint16(b[pos+1])}, size, nil
	case op == insn.LdcW:
		return &insn.Ldc{Index: u2(b, pos+1)}, size, nil
	case op == insn.Ldc2W:
		return &insn.Ldc{Index: u2(b, pos+1), Wide: true}, size, nil
	case op >= insn.Iload && op <= insn.Aload, op >= insn.Istore && op <= insn.Astore, op == insn.Ret:
		return &insn.Var{Op: op, Index: uint16(b[pos+1])}, size, nil
	case op >= iloadN && op < iloadN+20:
		k := op - iloadN
		return &insn.Var{Op: insn.Iload + k/4, Index: uint16(k % 4)}, 1, nil
	case op >= istoreN && op < istoreN+20:
		k := op - istoreN
		return &insn.Var{Op: insn.Istore + k/4, Index: uint16(k % 4)}, 1, nil
	case op == insn.Iinc:
		return &insn.IncVar{Index: uint16(b[pos+1]), Delta: int16(int8(b[pos+2]))}, size, nil
	case insn.IsConditional(op), op == insn.Goto, op == insn.Jsr:
		return &insn.Jump{Op: op, Target: d.label(pos + s2(b, pos+1))}, size, nil
	case op == insn.GotoW:
		return &insn.Jump{Op: insn.Goto, Target: d.label(pos + s4(b, pos+1))}, size, nil
	case op == insn.JsrW:
		return &insn.Jump{Op: insn.Jsr, Target: d.label(pos + s4(b, pos+1))}, size, nil
	case op == insn.Tableswitch, op == insn.Lookupswitch:
		return d.decodeSwitch(b, pos, op)
	case op >= insn.Getstatic && op <= insn.Putfield:
		_, owner, name, desc, err := d.pool.MemberRef(u2(b, pos+1))
		if err != nil {
			return nil, 0, err
		}
		return &insn.Field{Op: op, Owner: owner, Name: name, Desc: desc}, size, nil
	case op >= insn.Invokevirtual && op <= insn.Invokeinterface:
		tag, owner, name, desc, err := d.pool.MemberRef(u2(b, pos+1))
		if err != nil {
			return nil, 0, err
		}
		return &insn.Invoke{Op: op, Owner: owner, Name: name, Desc: desc, Interface: tag == TagInterfaceMethodref}, size, nil
	case op == insn.Invokedynamic:
		idx := u2(b, pos+1)
		name, desc, err := d.pool.DynamicSite(idx)
		if err != nil {
			return nil, 0, err
		}
		return &insn.Dynamic{Index: idx, Name: name, Desc: desc}, size, nil
	case op == insn.New, op == insn.Anewarray, op == insn.Checkcast, op == insn.Instanceof:
		name, err := d.pool.ClassName(u2(b, pos+1))
		if err != nil {
			return nil, 0, err
		}
		return &insn.TypeInsn{Op: op, Class: name}, size, nil
	case op == insn.Newarray:
		return &insn.Int{Op: op, Value: int32(b[pos+1])}, size, nil
	case op == insn.Multianewarray:
		name, err := d.pool.ClassName(u2(b, pos+1))
		if err != nil {
			return nil, 0, err
		}
		return &insn.MultiArray{Class: name, Dims: b[pos+3]}, size, nil
	case op == insn.Wide:
		return d.decodeWide(b, pos)
	case op <= insn.Monitorexit:
		return &insn.Simple{Op: op}, 1, nil
	case op == insn.Ifnull, op == insn.Ifnonnull:
		return &insn.Jump{Op: op, Target: d.label(pos + s2(b, pos+1))}, size, nil
	}
	return nil, 0, fmt.Errorf("%w: unknown opcode 0x%02x", ErrBadCode, uint8(op))
}

// First opcodes of the iload_<n> and istore_<n> shorthand families.
const (
	iloadN  insn.Opcode = 0x1a
	istoreN insn.Opcode = 0x3b
)

func (d *decoder) decodeWide(b []byte, pos int) (insn.Insn, int, error) {
	if pos+4 > len(b) {
		return nil, 0, ErrTruncated
	}
	op := insn.Opcode(b[pos+1])
	switch {
	case op == insn.Iinc:
		if pos+6 > len(b) {
			return nil, 0, ErrTruncated
		}
		return &insn.IncVar{Index: u2(b, pos+2), Delta: int16(s2(b, pos+4))}, 6, nil
	case op >= insn.Iload && op <= insn.Aload, op >= insn.Istore && op <= insn.Astore, op == insn.Ret:
		return &insn.Var{Op: op, Index: u2(b, pos+2)}, 4, nil
	}
	return nil, 0, fmt.Errorf("%w: wide %s", ErrBadCode, op)
}

func (d *decoder) decodeSwitch(b []byte, pos int, op insn.Opcode) (insn.Insn, int, error) {
	p := pos + 1 + switchPad(pos)
	if p+12 > len(b) {
		return nil, 0, ErrTruncated
	}
	sw := &insn.Switch{Op: op, Default: d.label(pos + s4(b, p))}
	if op == insn.Tableswitch {
		low, high := s4(b, p+4), s4(b, p+8)
		n := high - low + 1
		p += 12
		if n < 0 || p+4*n > len(b) {
			return nil, 0, fmt.Errorf("%w: tableswitch bounds", ErrBadCode)
		}
		sw.Low = int32(low)
		for k := 0; k < n; k++ {
			sw.Targets = append(sw.Targets, d.label(pos+s4(b, p+4*k)))
		}
		return sw, p + 4*n - pos, nil
	}
	n := s4(b, p+4)
	p += 8
	if n < 0 || p+8*n > len(b) {
		return nil, 0, fmt.Errorf("%w: lookupswitch bounds", ErrBadCode)
	}
	for k := 0; k < n; k++ {
		sw.Keys = append(sw.Keys, int32(s4(b, p+8*k)))
		sw.Targets = append(sw.Targets, d.label(pos+s4(b, p+8*k+4)))
	}
	return sw, p + 8*n - pos, nil
}

// switchPad returns the padding after a switch opcode at pos.
func switchPad(pos int) int {
	return (4 - (pos+1)%4) % 4
}

// EncodeCode encodes code as a Code attribute, adding constants to pool as
// needed. Branch offsets are laid out until stable; an unconditional branch
// that does not fit in 16 bits is widened to goto_w.
func EncodeCode(pool *Pool, code *Code) (Attribute, error) {
	l := code.Insns
	var (
		wide    = make(map[insn.Handle]bool)
		offsets map[insn.Handle]int
		labels  map[insn.LabelID]int
		length  int
	)
	for {
		offsets, labels, length = layout(l, wide)
		changed := false
		for h, i := range l.All() {
			j, ok := i.(*insn.Jump)
			if !ok || wide[h] {
				continue
			}
			target, ok := labels[j.Target]
			if !ok {
				return Attribute{}, fmt.Errorf("%w: L%d", ErrUnboundLabel, j.Target)
			}
			if delta := target - offsets[h]; delta < math.MinInt16 || delta > math.MaxInt16 {
				if j.Op != insn.Goto && j.Op != insn.Jsr {
					return Attribute{}, fmt.Errorf("%w: %s at %d", ErrBranchOutOfRange, j.Op, offsets[h])
				}
				wide[h] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	if length > math.MaxUint16 {
		return Attribute{}, fmt.Errorf("%w: %d bytes", ErrCodeTooLarge, length)
	}

	at := func(id insn.LabelID) (int, error) {
		off, ok := labels[id]
		if !ok {
			return 0, fmt.Errorf("%w: L%d", ErrUnboundLabel, id)
		}
		return off, nil
	}

	body := NewByteWriter()
	for h, i := range l.All() {
		if err := encodeInsn(body, pool, i, offsets[h], wide[h], at); err != nil {
			return Attribute{}, fmt.Errorf("offset %d: %w", offsets[h], err)
		}
	}

	w := NewByteWriter()
	w.WriteU16(code.MaxStack)
	w.WriteU16(code.MaxLocals)
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())

	w.WriteU16(uint16(len(code.Handlers)))
	for _, h := range code.Handlers {
		var offs [3]int
		for k, id := range []insn.LabelID{h.Start, h.End, h.Handler} {
			off, err := at(id)
			if err != nil {
				return Attribute{}, fmt.Errorf("exception table: %w", err)
			}
			offs[k] = off
		}
		var catch uint16
		if h.Catch != "" {
			idx, err := pool.AddClass(h.Catch)
			if err != nil {
				return Attribute{}, err
			}
			catch = idx
		}
		w.WriteU16(uint16(offs[0]))
		w.WriteU16(uint16(offs[1]))
		w.WriteU16(uint16(offs[2]))
		w.WriteU16(catch)
	}

	attrs, err := codeAttributes(pool, code, at)
	if err != nil {
		return Attribute{}, err
	}
	if err := writeAttributes(w, pool, attrs); err != nil {
		return Attribute{}, err
	}
	return Attribute{Name: "Code", Data: w.Bytes()}, nil
}

func codeAttributes(pool *Pool, code *Code, at func(insn.LabelID) (int, error)) ([]Attribute, error) {
	var attrs []Attribute

	var lines [][2]uint16
	for _, i := range code.Insns.All() {
		if ln, ok := i.(*insn.Line); ok {
			off, err := at(ln.Start)
			if err != nil {
				return nil, fmt.Errorf("line numbers: %w", err)
			}
			lines = append(lines, [2]uint16{uint16(off), ln.Line})
		}
	}
	if len(lines) > 0 {
		w := NewByteWriter()
		w.WriteU16(uint16(len(lines)))
		for _, ln := range lines {
			w.WriteU16(ln[0])
			w.WriteU16(ln[1])
		}
		attrs = append(attrs, Attribute{Name: "LineNumberTable", Data: w.Bytes()})
	}

	for _, generic := range []bool{false, true} {
		w := NewByteWriter()
		n := 0
		for _, v := range code.Locals {
			if v.Generic != generic {
				continue
			}
			start, err := at(v.Start)
			if err != nil {
				return nil, fmt.Errorf("local %s: %w", v.Name, err)
			}
			end, err := at(v.End)
			if err != nil {
				return nil, fmt.Errorf("local %s: %w", v.Name, err)
			}
			name, err := pool.AddUtf8(v.Name)
			if err != nil {
				return nil, err
			}
			desc, err := pool.AddUtf8(v.Desc)
			if err != nil {
				return nil, err
			}
			w.WriteU16(uint16(start))
			w.WriteU16(uint16(end - start))
			w.WriteU16(name)
			w.WriteU16(desc)
			w.WriteU16(v.Index)
			n++
		}
		if n == 0 {
			continue
		}
		table := NewByteWriter()
		table.WriteU16(uint16(n))
		table.WriteBytes(w.Bytes())
		name := "LocalVariableTable"
		if generic {
			name = "LocalVariableTypeTable"
		}
		attrs = append(attrs, Attribute{Name: name, Data: table.Bytes()})
	}
	return append(attrs, code.Attributes...), nil
}

// layout assigns a bytecode offset to every node and label.
func layout(l *insn.List, wide map[insn.Handle]bool) (map[insn.Handle]int, map[insn.LabelID]int, int) {
	offsets := make(map[insn.Handle]int, l.Len())
	labels := make(map[insn.LabelID]int)
	off := 0
	for h, i := range l.All() {
		offsets[h] = off
		if lbl, ok := i.(*insn.Label); ok {
			if _, dup := labels[lbl.ID]; !dup {
				labels[lbl.ID] = off
			}
		}
		off += encodedSize(i, off, wide[h])
	}
	return offsets, labels, off
}

func varSize(v *insn.Var) int {
	switch {
	case v.Index <= 3 && v.Op != insn.Ret:
		return 1
	case v.Index <= math.MaxUint8:
		return 2
	}
	return 4
}

func encodedSize(i insn.Insn, off int, wide bool) int {
	switch v := i.(type) {
	case *insn.Label, *insn.Line:
		return 0
	case *insn.Var:
		return varSize(v)
	case *insn.IncVar:
		if v.Index <= math.MaxUint8 && v.Delta >= math.MinInt8 && v.Delta <= math.MaxInt8 {
			return 3
		}
		return 6
	case *insn.Ldc:
		if !v.Wide && v.Index <= math.MaxUint8 {
			return 2
		}
		return 3
	case *insn.Jump:
		if wide {
			return 5
		}
		return 3
	case *insn.Switch:
		pad := switchPad(off)
		if v.Op == insn.Tableswitch {
			return 1 + pad + 12 + 4*len(v.Targets)
		}
		return 1 + pad + 8 + 8*len(v.Targets)
	}
	return operandSize(i.Opcode())
}

func encodeInsn(w *ByteWriter, pool *Pool, i insn.Insn, off int, wide bool, at func(insn.LabelID) (int, error)) error {
	switch v := i.(type) {
	case *insn.Label, *insn.Line:
	case *insn.Simple:
		w.WriteU8(uint8(v.Op))
	case *insn.Int:
		w.WriteU8(uint8(v.Op))
		if v.Op == insn.Sipush {
			w.WriteU16(uint16(int16(v.Value)))
		} else {
			w.WriteU8(uint8(v.Value))
		}
	case *insn.Var:
		switch varSize(v) {
		case 1:
			if v.Op >= insn.Istore {
				w.WriteU8(uint8(istoreN + (v.Op-insn.Istore)*4 + insn.Opcode(v.Index)))
			} else {
				w.WriteU8(uint8(iloadN + (v.Op-insn.Iload)*4 + insn.Opcode(v.Index)))
			}
		case 2:
			w.WriteU8(uint8(v.Op))
			w.WriteU8(uint8(v.Index))
		default:
			w.WriteU8(uint8(insn.Wide))
			w.WriteU8(uint8(v.Op))
			w.WriteU16(v.Index)
		}
	case *insn.IncVar:
		if encodedSize(v, off, false) == 3 {
			w.WriteU8(uint8(insn.Iinc))
			w.WriteU8(uint8(v.Index))
			w.WriteU8(uint8(int8(v.Delta)))
		} else {
			w.WriteU8(uint8(insn.Wide))
			w.WriteU8(uint8(insn.Iinc))
			w.WriteU16(v.Index)
			w.WriteU16(uint16(v.Delta))
		}
	case *insn.Ldc:
		switch {
		case v.Wide:
			w.WriteU8(uint8(insn.Ldc2W))
			w.WriteU16(v.Index)
		case v.Index <= math.MaxUint8:
			w.WriteU8(uint8(insn.LdcOp))
			w.WriteU8(uint8(v.Index))
		default:
			w.WriteU8(uint8(insn.LdcW))
			w.WriteU16(v.Index)
		}
	case *insn.TypeInsn:
		idx, err := pool.AddClass(v.Class)
		if err != nil {
			return err
		}
		w.WriteU8(uint8(v.Op))
		w.WriteU16(idx)
	case *insn.Field:
		idx, err := pool.AddFieldref(v.Owner, v.Name, v.Desc)
		if err != nil {
			return err
		}
		w.WriteU8(uint8(v.Op))
		w.WriteU16(idx)
	case *insn.Invoke:
		idx, err := pool.AddMethodref(v.Owner, v.Name, v.Desc, v.Interface || v.Op == insn.Invokeinterface)
		if err != nil {
			return err
		}
		w.WriteU8(uint8(v.Op))
		w.WriteU16(idx)
		if v.Op == insn.Invokeinterface {
			mt, err := symbol.ParseMethodDesc(v.Desc)
			if err != nil {
				return err
			}
			w.WriteU8(uint8(mt.ArgSlots() + 1))
			w.WriteU8(0)
		}
	case *insn.Dynamic:
		w.WriteU8(uint8(insn.Invokedynamic))
		w.WriteU16(v.Index)
		w.WriteU16(0)
	case *insn.Jump:
		target, err := at(v.Target)
		if err != nil {
			return err
		}
		if wide {
			op := insn.GotoW
			if v.Op == insn.Jsr {
				op = insn.JsrW
			}
			w.WriteU8(uint8(op))
			w.WriteU32(uint32(int32(target - off)))
		} else {
			w.WriteU8(uint8(v.Op))
			w.WriteU16(uint16(int16(target - off)))
		}
	case *insn.Switch:
		w.WriteU8(uint8(v.Op))
		for k := 0; k < switchPad(off); k++ {
			w.WriteU8(0)
		}
		def, err := at(v.Default)
		if err != nil {
			return err
		}
		w.WriteU32(uint32(int32(def - off)))
		if v.Op == insn.Tableswitch {
			w.WriteU32(uint32(v.Low))
			w.WriteU32(uint32(v.Low + int32(len(v.Targets)) - 1))
		} else {
			w.WriteU32(uint32(len(v.Targets)))
		}
		for k, t := range v.Targets {
			target, err := at(t)
			if err != nil {
				return err
			}
			if v.Op == insn.Lookupswitch {
				w.WriteU32(uint32(v.Keys[k]))
			}
			w.WriteU32(uint32(int32(target - off)))
		}
	case *insn.MultiArray:
		idx, err := pool.AddClass(v.Class)
		if err != nil {
			return err
		}
		w.WriteU8(uint8(insn.Multianewarray))
		w.WriteU16(idx)
		w.WriteU8(v.Dims)
	default:
		return fmt.Errorf("%w: cannot encode %T", ErrBadCode, i)
	}
	return nil
}

// SetCode encodes code into m, replacing its Code attribute. When the class
// version requires stack map frames it is lowered to Java 6, where the
// verifier falls back to type inference.
func (c *Class) SetCode(m *Member, code *Code) error {
	a, err := EncodeCode(c.Pool, code)
	if err != nil {
		return fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
	}
	m.SetAttribute(a)
	if c.Major > Java6 {
		c.Major = Java6
		c.Minor = 0
	}
	return nil
}
