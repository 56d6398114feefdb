// Package classfile reads and writes JVM class files.
//
// Only the parts needed for method instrumentation are modelled: the
// constant pool, members with their attributes, and the Code attribute,
// which can be decoded into an insn.List and encoded back. Everything else
// is carried through as raw attribute bytes.
package classfile

import (
	"fmt"
)

const magic = 0xCAFEBABE

// Access flags used by the instrumentation engine.
const (
	AccPublic    uint16 = 0x0001
	AccStatic    uint16 = 0x0008
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccNative    uint16 = 0x0100
)

// Class file major versions.
const (
	Java6 uint16 = 50
	Java7 uint16 = 51
)

// Attribute is a named attribute kept as raw bytes.
type Attribute struct {
	Name string
	Data []byte
}

// Member is a field or method.
type Member struct {
	Access     uint16
	Name       string
	Desc       string
	Attributes []Attribute
}

// Method is a method of a class.
type Method = Member

// IsStatic reports whether the member is static.
func (m *Member) IsStatic() bool {
	return m.Access&AccStatic != 0
}

// Attribute returns the attribute with the given name.
func (m *Member) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// SetAttribute replaces the attribute with the same name in place, or appends
// it when the member has none.
func (m *Member) SetAttribute(a Attribute) {
	for i := range m.Attributes {
		if m.Attributes[i].Name == a.Name {
			m.Attributes[i] = a
			return
		}
	}
	m.Attributes = append(m.Attributes, a)
}

func (m *Member) clone() *Member {
	c := *m
	c.Attributes = append([]Attribute(nil), m.Attributes...)
	return &c
}

// Class is a parsed class file.
type Class struct {
	Minor, Major uint16
	Pool         *Pool
	Access       uint16
	Name         string
	Super        string
	Interfaces   []string
	Fields       []*Member
	Methods      []*Member
	Attributes   []Attribute
}

// New creates an empty public class with the given internal names.
func New(name, super string) *Class {
	return &Class{
		Major:  Java6,
		Pool:   NewPool(),
		Access: AccPublic,
		Name:   name,
		Super:  super,
	}
}

// Method returns the method with the given name and descriptor, or nil.
func (c *Class) Method(name, desc string) *Member {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Access&AccInterface != 0
}

// NeedsFrames reports whether the class cannot be loaded without stack map
// frames, which the encoder does not produce. This is the case when it uses
// constant kinds introduced after Java 6 or when it is an interface declaring
// method bodies.
func (c *Class) NeedsFrames() bool {
	if c.Pool.Has(TagMethodHandle, TagMethodType, TagDynamic, TagInvokeDynamic, TagModule, TagPackage) {
		return true
	}
	if c.IsInterface() {
		for _, m := range c.Methods {
			if _, ok := m.Attribute("Code"); ok && m.Name != "<clinit>" {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy that shares no mutable state with c.
func (c *Class) Clone() *Class {
	n := *c
	n.Pool = c.Pool.Clone()
	n.Interfaces = append([]string(nil), c.Interfaces...)
	n.Fields = make([]*Member, len(c.Fields))
	for i, f := range c.Fields {
		n.Fields[i] = f.clone()
	}
	n.Methods = make([]*Member, len(c.Methods))
	for i, m := range c.Methods {
		n.Methods[i] = m.clone()
	}
	n.Attributes = append([]Attribute(nil), c.Attributes...)
	return &n
}

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	r := newReader(data)
	if r.u4() != magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrBadMagic
	}
	c := &Class{Minor: r.u2(), Major: r.u2()}
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	c.Pool = pool
	c.Access = r.u2()
	if c.Name, err = pool.ClassName(r.u2()); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if idx := r.u2(); idx != 0 {
		if c.Super, err = pool.ClassName(idx); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}
	n := int(r.u2())
	for i := 0; i < n; i++ {
		name, err := pool.ClassName(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}
	if c.Fields, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if c.Methods, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	if c.Attributes, err = readAttributes(r, pool); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

func readMembers(r *reader, pool *Pool) ([]*Member, error) {
	n := int(r.u2())
	out := make([]*Member, 0, n)
	for i := 0; i < n; i++ {
		m := &Member{Access: r.u2()}
		var err error
		if m.Name, err = pool.Utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Desc, err = pool.Utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Attributes, err = readAttributes(r, pool); err != nil {
			return nil, fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
		}
		out = append(out, m)
	}
	return out, r.err
}

func readAttributes(r *reader, pool *Pool) ([]Attribute, error) {
	n := int(r.u2())
	out := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		name, err := pool.Utf8(r.u2())
		if err != nil {
			return nil, err
		}
		size := r.u4()
		data := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, Attribute{Name: name, Data: data})
	}
	return out, nil
}

// Bytes encodes the class. Names are resolved against the pool, adding
// entries when a name is not present yet.
func (c *Class) Bytes() ([]byte, error) {
	body := NewByteWriter()
	body.WriteU16(c.Access)
	this, err := c.Pool.AddClass(c.Name)
	if err != nil {
		return nil, err
	}
	body.WriteU16(this)
	var super uint16
	if c.Super != "" {
		if super, err = c.Pool.AddClass(c.Super); err != nil {
			return nil, err
		}
	}
	body.WriteU16(super)
	body.WriteU16(uint16(len(c.Interfaces)))
	for _, name := range c.Interfaces {
		idx, err := c.Pool.AddClass(name)
		if err != nil {
			return nil, err
		}
		body.WriteU16(idx)
	}
	for _, members := range [][]*Member{c.Fields, c.Methods} {
		body.WriteU16(uint16(len(members)))
		for _, m := range members {
			if err := writeMember(body, c.Pool, m); err != nil {
				return nil, err
			}
		}
	}
	if err := writeAttributes(body, c.Pool, c.Attributes); err != nil {
		return nil, err
	}

	// The pool is written last because encoding the body may extend it.
	w := NewByteWriter()
	w.WriteU32(magic)
	w.WriteU16(c.Minor)
	w.WriteU16(c.Major)
	c.Pool.write(w)
	w.WriteBytes(body.Bytes())
	return w.Bytes(), nil
}

func writeMember(w *ByteWriter, pool *Pool, m *Member) error {
	name, err := pool.AddUtf8(m.Name)
	if err != nil {
		return err
	}
	desc, err := pool.AddUtf8(m.Desc)
	if err != nil {
		return err
	}
	w.WriteU16(m.Access)
	w.WriteU16(name)
	w.WriteU16(desc)
	return writeAttributes(w, pool, m.Attributes)
}

func writeAttributes(w *ByteWriter, pool *Pool, attrs []Attribute) error {
	w.WriteU16(uint16(len(attrs)))
	for _, a := range attrs {
		name, err := pool.AddUtf8(a.Name)
		if err != nil {
			return err
		}
		w.WriteU16(name)
		w.WriteU32(uint32(len(a.Data)))
		w.WriteBytes(a.Data)
	}
	return nil
}
