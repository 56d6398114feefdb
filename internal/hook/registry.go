package hook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/starhook/internal/symbol"
)

// Func implements one hook. Arguments arrive in descriptor order; the
// result is nil for void hooks.
type Func func(args []any) (any, error)

type registered struct {
	fn     Func
	params int
}

// Registry maps hook references to their implementations.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[symbol.Ref]registered
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[symbol.Ref]registered)}
}

// Register binds fn to ref.
func (r *Registry) Register(ref symbol.Ref, fn Func) error {
	if !ref.IsMethod() {
		return fmt.Errorf("%w: %s", ErrNotMethod, ref)
	}
	mt, err := ref.MethodType()
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("hook %s has no function", ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[ref]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHook, ref)
	}
	r.funcs[ref] = registered{fn: fn, params: len(mt.Params)}
	return nil
}

// Has reports whether ref has an implementation.
func (r *Registry) Has(ref symbol.Ref) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[ref]
	return ok
}

// Call invokes the hook bound to ref.
func (r *Registry) Call(ref symbol.Ref, args ...any) (any, error) {
	r.mu.RLock()
	h, ok := r.funcs[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHook, ref)
	}
	if len(args) != h.params {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, ref, h.params, len(args))
	}
	return h.fn(args)
}

// Lookup parses a textual reference and calls the hook bound to it.
func (r *Registry) Lookup(ref string, args ...any) (any, error) {
	parsed, err := symbol.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	return r.Call(parsed, args...)
}

// Refs returns every registered reference, sorted.
func (r *Registry) Refs() []symbol.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]symbol.Ref, 0, len(r.funcs))
	for ref := range r.funcs {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
