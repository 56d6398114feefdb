package symbol

import (
	"fmt"
	"strings"
)

// Kind is the leading character of a field descriptor.
type Kind byte

// Descriptor kinds.
const (
	KindVoid    Kind = 'V'
	KindBoolean Kind = 'Z'
	KindByte    Kind = 'B'
	KindChar    Kind = 'C'
	KindShort   Kind = 'S'
	KindInt     Kind = 'I'
	KindLong    Kind = 'J'
	KindFloat   Kind = 'F'
	KindDouble  Kind = 'D'
	KindObject  Kind = 'L'
	KindArray   Kind = '['
)

// Type is a single parsed type descriptor.
type Type struct {
	Desc string
}

// Kind returns the descriptor kind.
func (t Type) Kind() Kind {
	if t.Desc == "" {
		return 0
	}
	return Kind(t.Desc[0])
}

// Slots returns the number of local variable or operand stack slots the type occupies.
func (t Type) Slots() int {
	switch t.Kind() {
	case KindVoid:
		return 0
	case KindLong, KindDouble:
		return 2
	default:
		return 1
	}
}

// IsReference reports whether values of the type are object references.
func (t Type) IsReference() bool {
	k := t.Kind()
	return k == KindObject || k == KindArray
}

// IsIntLike reports whether the JVM represents the type as an int on the stack.
func (t Type) IsIntLike() bool {
	switch t.Kind() {
	case KindBoolean, KindByte, KindChar, KindShort, KindInt:
		return true
	}
	return false
}

// ClassName returns the internal class name of an object type, or the
// descriptor itself for arrays, which is what checkcast expects.
func (t Type) ClassName() string {
	switch t.Kind() {
	case KindObject:
		return t.Desc[1 : len(t.Desc)-1]
	case KindArray:
		return t.Desc
	}
	return ""
}

func (t Type) String() string {
	return t.Desc
}

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []Type
	Return Type
}

// ArgSlots returns the number of slots taken by the parameters, excluding any receiver.
func (m MethodType) ArgSlots() int {
	n := 0
	for _, p := range m.Params {
		n += p.Slots()
	}
	return n
}

// Desc renders the descriptor.
func (m MethodType) Desc() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range m.Params {
		b.WriteString(p.Desc)
	}
	b.WriteByte(')')
	b.WriteString(m.Return.Desc)
	return b.String()
}

// ParseFieldDesc parses a single non-void type descriptor.
func ParseFieldDesc(s string) (Type, error) {
	t, n, err := parseType(s, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(s) {
		return Type{}, fmt.Errorf("%w: trailing data in %q", ErrInvalidDescriptor, s)
	}
	if t.Kind() == KindVoid {
		return Type{}, fmt.Errorf("%w: void is not a field type", ErrInvalidDescriptor)
	}
	return t, nil
}

// ParseMethodDesc parses a method descriptor such as "(ILjava/lang/String;)Z".
func ParseMethodDesc(s string) (MethodType, error) {
	if !strings.HasPrefix(s, "(") {
		return MethodType{}, fmt.Errorf("%w: %q does not start with '('", ErrInvalidDescriptor, s)
	}
	var mt MethodType
	i := 1
	for {
		if i >= len(s) {
			return MethodType{}, fmt.Errorf("%w: unterminated parameter list in %q", ErrInvalidDescriptor, s)
		}
		if s[i] == ')' {
			i++
			break
		}
		t, n, err := parseType(s, i)
		if err != nil {
			return MethodType{}, err
		}
		if t.Kind() == KindVoid {
			return MethodType{}, fmt.Errorf("%w: void parameter in %q", ErrInvalidDescriptor, s)
		}
		mt.Params = append(mt.Params, t)
		i = n
	}
	ret, n, err := parseType(s, i)
	if err != nil {
		return MethodType{}, err
	}
	if n != len(s) {
		return MethodType{}, fmt.Errorf("%w: trailing data in %q", ErrInvalidDescriptor, s)
	}
	mt.Return = ret
	return mt, nil
}

// parseType parses one type starting at s[i] and returns the index after it.
func parseType(s string, i int) (Type, int, error) {
	start := i
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return Type{}, 0, fmt.Errorf("%w: truncated type in %q", ErrInvalidDescriptor, s)
	}
	switch Kind(s[i]) {
	case KindBoolean, KindByte, KindChar, KindShort, KindInt, KindLong, KindFloat, KindDouble:
		i++
	case KindVoid:
		if i != start {
			return Type{}, 0, fmt.Errorf("%w: array of void in %q", ErrInvalidDescriptor, s)
		}
		i++
	case KindObject:
		end := strings.IndexByte(s[i:], ';')
		if end <= 1 {
			return Type{}, 0, fmt.Errorf("%w: bad class type in %q", ErrInvalidDescriptor, s)
		}
		i += end + 1
	default:
		return Type{}, 0, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidDescriptor, s[i], s)
	}
	return Type{Desc: s[start:i]}, i, nil
}
