// Package symbol parses the textual references used to name methods and
// fields inside compiled host classes.
//
// A method reference has the form
//
//	owner/path/ClassName.methodName(paramDescriptors)returnDescriptor
//
// and a field reference the form
//
//	owner/path/ClassName.fieldName TypeDescriptor
//
// Keeping references textual lets a manifest absorb renames between host
// builds as long as the descriptors keep their shape.
package symbol

import (
	"fmt"
	"strings"
)

// Ref is a parsed symbolic reference split into its components.
type Ref struct {
	// Owner is the internal (slash separated) name of the declaring class.
	Owner string

	// Name is the simple member name.
	Name string

	// Desc is the method descriptor or the field type descriptor.
	Desc string
}

// IsMethod reports whether the reference names a method.
func (r Ref) IsMethod() bool {
	return strings.HasPrefix(r.Desc, "(")
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Owner == "" && r.Name == "" && r.Desc == ""
}

// String renders the reference back into its textual form.
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	if r.IsMethod() {
		return r.Owner + "." + r.Name + r.Desc
	}
	return r.Owner + "." + r.Name + " " + r.Desc
}

// Member returns the name and descriptor without the owner.
func (r Ref) Member() string {
	if r.IsMethod() {
		return r.Name + r.Desc
	}
	return r.Name + " " + r.Desc
}

// MethodType parses the descriptor of a method reference.
func (r Ref) MethodType() (MethodType, error) {
	if !r.IsMethod() {
		return MethodType{}, fmt.Errorf("%w: %s is not a method reference", ErrInvalidRef, r)
	}
	return ParseMethodDesc(r.Desc)
}

// FieldType parses the descriptor of a field reference.
func (r Ref) FieldType() (Type, error) {
	if r.IsMethod() {
		return Type{}, fmt.Errorf("%w: %s is not a field reference", ErrInvalidRef, r)
	}
	return ParseFieldDesc(r.Desc)
}

// ParseRef splits a textual reference into owner, name and descriptor.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}

	if paren := strings.IndexByte(s, '('); paren >= 0 {
		head, desc := s[:paren], s[paren:]
		owner, name, err := splitOwner(head)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
		}
		if _, err := ParseMethodDesc(desc); err != nil {
			return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
		}
		return Ref{Owner: owner, Name: name, Desc: desc}, nil
	}

	sp := strings.IndexAny(s, " \t")
	if sp < 0 {
		return Ref{}, fmt.Errorf("%w: %q: missing descriptor", ErrInvalidRef, s)
	}
	head, desc := s[:sp], strings.TrimSpace(s[sp+1:])
	owner, name, err := splitOwner(head)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if _, err := ParseFieldDesc(desc); err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	return Ref{Owner: owner, Name: name, Desc: desc}, nil
}

// MustParse is like ParseRef but panics on error.
// It is intended for references that are compiled into the binary.
func MustParse(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

func splitOwner(head string) (owner, name string, err error) {
	dot := strings.LastIndexByte(head, '.')
	if dot <= 0 || dot == len(head)-1 {
		return "", "", fmt.Errorf("expected Owner.name")
	}
	owner, name = head[:dot], head[dot+1:]
	if strings.ContainsAny(owner, ". ;[") {
		return "", "", fmt.Errorf("owner %q is not an internal class name", owner)
	}
	return owner, name, nil
}

// InternalName converts a binary class name (dots) to an internal name (slashes).
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// BinaryName converts an internal class name (slashes) to a binary name (dots).
func BinaryName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}
