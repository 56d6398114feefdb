package classfile

import (
	"fmt"
	"math"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags.
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// Constant is one constant pool entry. Which fields are meaningful depends
// on Tag.
type Constant struct {
	Tag Tag

	// Utf8 holds the raw (modified UTF-8) bytes of a Utf8 entry.
	Utf8 string

	// Bits holds the raw value of Integer, Float, Long and Double entries.
	Bits uint64

	// A and B are the index operands: class/name_and_type for member refs,
	// name/descriptor for NameAndType, bootstrap/name_and_type for dynamic
	// entries, the referenced entry for Class, String, MethodType, Module and
	// Package.
	A, B uint16

	// RefKind is the reference kind of a MethodHandle.
	RefKind uint8
}

// Pool is a class file constant pool. Index 0 is unused and the slot after a
// Long or Double entry is a placeholder with Tag 0.
type Pool struct {
	entries []Constant
	index   map[string]uint16
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{entries: make([]Constant, 1)}
}

// Len returns the constant_pool_count value (one more than the last index).
func (p *Pool) Len() int {
	return len(p.entries)
}

// Get returns the entry at index i.
func (p *Pool) Get(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return Constant{}, fmt.Errorf("%w: index %d", ErrBadPoolIndex, i)
	}
	return p.entries[i], nil
}

// Has reports whether any entry carries one of the given tags.
func (p *Pool) Has(tags ...Tag) bool {
	for _, e := range p.entries {
		for _, t := range tags {
			if e.Tag == t {
				return true
			}
		}
	}
	return false
}

func (p *Pool) expect(i uint16, tag Tag) (Constant, error) {
	c, err := p.Get(i)
	if err != nil {
		return c, err
	}
	if c.Tag != tag {
		return c, fmt.Errorf("%w: index %d has tag %d, want %d", ErrBadPoolIndex, i, c.Tag, tag)
	}
	return c, nil
}

// Utf8 returns the string stored at index i.
func (p *Pool) Utf8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

// ClassName returns the internal name of the Class entry at index i.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

// NameAndType returns the name and descriptor of the NameAndType entry at i.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.A); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(c.B); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref entry.
func (p *Pool) MemberRef(i uint16) (tag Tag, owner, name, desc string, err error) {
	c, err := p.Get(i)
	if err != nil {
		return 0, "", "", "", err
	}
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return 0, "", "", "", fmt.Errorf("%w: index %d is not a member reference", ErrBadPoolIndex, i)
	}
	if owner, err = p.ClassName(c.A); err != nil {
		return 0, "", "", "", err
	}
	if name, desc, err = p.NameAndType(c.B); err != nil {
		return 0, "", "", "", err
	}
	return c.Tag, owner, name, desc, nil
}

// DynamicSite resolves the name and descriptor of an InvokeDynamic entry.
func (p *Pool) DynamicSite(i uint16) (name, desc string, err error) {
	c, err := p.expect(i, TagInvokeDynamic)
	if err != nil {
		return "", "", err
	}
	return p.NameAndType(c.B)
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	c := &Pool{entries: make([]Constant, len(p.entries))}
	copy(c.entries, p.entries)
	return c
}

// buildIndex indexes existing entries so additions reuse them.
func (p *Pool) buildIndex() {
	if p.index != nil {
		return
	}
	p.index = make(map[string]uint16, len(p.entries))
	for i := len(p.entries) - 1; i > 0; i-- {
		if key, ok := p.keyOf(uint16(i)); ok {
			p.index[key] = uint16(i)
		}
	}
}

func (p *Pool) keyOf(i uint16) (string, bool) {
	c := p.entries[i]
	switch c.Tag {
	case TagUtf8:
		return "utf8:" + c.Utf8, true
	case TagClass:
		name, err := p.Utf8(c.A)
		return "class:" + name, err == nil
	case TagNameAndType:
		name, desc, err := p.NameAndType(i)
		return "nat:" + name + ":" + desc, err == nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		_, owner, name, desc, err := p.MemberRef(i)
		return fmt.Sprintf("ref%d:%s.%s:%s", c.Tag, owner, name, desc), err == nil
	}
	return "", false
}

func (p *Pool) add(key string, c Constant) (uint16, error) {
	p.buildIndex()
	if i, ok := p.index[key]; ok {
		return i, nil
	}
	if len(p.entries) >= math.MaxUint16 {
		return 0, ErrPoolFull
	}
	i := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	p.index[key] = i
	return i, nil
}

// AddUtf8 returns the index of a Utf8 entry, adding it if needed.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	return p.add("utf8:"+s, Constant{Tag: TagUtf8, Utf8: s})
}

// AddClass returns the index of a Class entry, adding it if needed.
func (p *Pool) AddClass(name string) (uint16, error) {
	p.buildIndex()
	if i, ok := p.index["class:"+name]; ok {
		return i, nil
	}
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	return p.add("class:"+name, Constant{Tag: TagClass, A: n})
}

// AddNameAndType returns the index of a NameAndType entry, adding it if needed.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	key := "nat:" + name + ":" + desc
	p.buildIndex()
	if i, ok := p.index[key]; ok {
		return i, nil
	}
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(key, Constant{Tag: TagNameAndType, A: n, B: d})
}

func (p *Pool) addMember(tag Tag, owner, name, desc string) (uint16, error) {
	key := fmt.Sprintf("ref%d:%s.%s:%s", tag, owner, name, desc)
	p.buildIndex()
	if i, ok := p.index[key]; ok {
		return i, nil
	}
	cls, err := p.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(key, Constant{Tag: tag, A: cls, B: nat})
}

// AddFieldref returns the index of a Fieldref entry, adding it if needed.
func (p *Pool) AddFieldref(owner, name, desc string) (uint16, error) {
	return p.addMember(TagFieldref, owner, name, desc)
}

// AddMethodref returns the index of a Methodref or InterfaceMethodref entry.
func (p *Pool) AddMethodref(owner, name, desc string, iface bool) (uint16, error) {
	if iface {
		return p.addMember(TagInterfaceMethodref, owner, name, desc)
	}
	return p.addMember(TagMethodref, owner, name, desc)
}

// AddInteger appends an Integer entry and returns its index.
func (p *Pool) AddInteger(v int32) (uint16, error) {
	return p.add(fmt.Sprintf("int:%d", v), Constant{Tag: TagInteger, Bits: uint64(uint32(v))})
}

// AddString appends a String entry and returns its index.
func (p *Pool) AddString(s string) (uint16, error) {
	u, err := p.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	return p.add("string:"+s, Constant{Tag: TagString, A: u})
}

func readPool(r *reader) (*Pool, error) {
	count := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	p := &Pool{entries: make([]Constant, 1, count)}
	for i := 1; i < int(count); i++ {
		tag := Tag(r.u1())
		c := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			n := r.u2()
			c.Utf8 = string(r.bytes(int(n)))
		case TagInteger, TagFloat:
			c.Bits = uint64(r.u4())
		case TagLong, TagDouble:
			hi := uint64(r.u4())
			lo := uint64(r.u4())
			c.Bits = hi<<32 | lo
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.RefKind = r.u1()
			c.A = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: tag %d at index %d", ErrBadPoolTag, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
		p.entries = append(p.entries, c)
		if tag == TagLong || tag == TagDouble {
			p.entries = append(p.entries, Constant{})
			i++
		}
	}
	return p, nil
}

func (p *Pool) write(w *ByteWriter) {
	w.WriteU16(uint16(len(p.entries)))
	for _, c := range p.entries[1:] {
		if c.Tag == 0 {
			continue
		}
		w.WriteU8(uint8(c.Tag))
		switch c.Tag {
		case TagUtf8:
			w.WriteU16(uint16(len(c.Utf8)))
			w.WriteBytes([]byte(c.Utf8))
		case TagInteger, TagFloat:
			w.WriteU32(uint32(c.Bits))
		case TagLong, TagDouble:
			w.WriteU32(uint32(c.Bits >> 32))
			w.WriteU32(uint32(c.Bits))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.WriteU16(c.A)
		case TagMethodHandle:
			w.WriteU8(c.RefKind)
			w.WriteU16(c.A)
		default:
			w.WriteU16(c.A)
			w.WriteU16(c.B)
		}
	}
}
