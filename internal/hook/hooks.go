package hook

import (
	"fmt"

	"github.com/dshills/starhook/internal/event/events"
	"github.com/dshills/starhook/internal/symbol"
)

// Names used by the default manifest.
const (
	// Owner is the internal name of the class the splices call.
	Owner = "starhook/bridge/Hooks"

	// EmpireType is the internal name of the host empire capability.
	EmpireType = "starhook/api/ActiveEmpire"
)

type binding struct {
	member string
	fn     func(b *Bridge, args []any) (any, error)
}

var bindings = []binding{
	{"emitCollapse(L" + EmpireType + ";)Z", func(b *Bridge, args []any) (any, error) {
		e, err := argEmpire(args, 0)
		if err != nil {
			return nil, err
		}
		return b.EmitCollapse(e), nil
	}},
	{"setTechLevel(L" + EmpireType + ";I)Z", func(b *Bridge, args []any) (any, error) {
		e, err := argEmpire(args, 0)
		if err != nil {
			return nil, err
		}
		level, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		return b.SetTechLevel(e, level), nil
	}},
	{"graphicalTickPre()V", void((*Bridge).GraphicalTickPre)},
	{"graphicalTickPost()V", void((*Bridge).GraphicalTickPost)},
	{"logicalTickEarly()V", void((*Bridge).LogicalTickEarly)},
	{"logicalTickPre()V", void((*Bridge).LogicalTickPre)},
	{"logicalTickPost()V", void((*Bridge).LogicalTickPost)},
	{"save(Ljava/lang/String;Ljava/lang/String;)V", func(b *Bridge, args []any) (any, error) {
		cause, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		location, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		return nil, b.Save(cause, location)
	}},
	{"keyTyped(C)Z", func(b *Bridge, args []any) (any, error) {
		key, err := argRune(args, 0)
		if err != nil {
			return nil, err
		}
		return b.KeyTyped(key), nil
	}},
}

func void(fn func(*Bridge)) func(*Bridge, []any) (any, error) {
	return func(b *Bridge, _ []any) (any, error) {
		fn(b)
		return nil, nil
	}
}

// Ref returns the reference of a hook method declared on Owner.
func Ref(member string) symbol.Ref {
	return symbol.MustParse(Owner + "." + member)
}

// Register binds every bridge function to its reference in r.
func (b *Bridge) Register(r *Registry) error {
	for _, bd := range bindings {
		fn := bd.fn
		if err := r.Register(Ref(bd.member), func(args []any) (any, error) {
			return fn(b, args)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns a new registry holding the bridge functions.
func (b *Bridge) Registry() *Registry {
	r := NewRegistry()
	if err := b.Register(r); err != nil {
		// bindings are static; a failure is a programming error.
		panic(err)
	}
	return r
}

func argEmpire(args []any, i int) (events.Empire, error) {
	e, ok := args[i].(events.Empire)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: argument %d is %T, want an empire", ErrArgType, i, args[i])
	}
	return e, nil
}

func argString(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d is %T, want string", ErrArgType, i, args[i])
	}
	return s, nil
}

func argInt(args []any, i int) (int, error) {
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%w: argument %d is %T, want int", ErrArgType, i, args[i])
}

// argRune accepts the forms a JVM char arrives in.
func argRune(args []any, i int) (rune, error) {
	switch v := args[i].(type) {
	case rune:
		return v, nil
	case uint16:
		return rune(v), nil
	case int:
		return rune(v), nil
	}
	return 0, fmt.Errorf("%w: argument %d is %T, want char", ErrArgType, i, args[i])
}
