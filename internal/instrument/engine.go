// Package instrument rewrites compiled host methods so they call hook
// functions at anchor points found by structural pattern matching.
//
// An Engine holds one ClassPlan per target class. Transforming a class either
// applies every planned splice and verifies the result, or leaves the class
// untouched and reports every unmet assumption as an IntegrityError.
package instrument

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/symbol"
	"github.com/dshills/starhook/internal/verify"
)

// MethodPlan lists the splices applied to one method.
type MethodPlan struct {
	Target  symbol.Ref
	Splices []Splice
}

// ClassPlan lists the methods rewritten in one class.
type ClassPlan struct {
	// Class is the internal name of the class.
	Class   string
	Methods []MethodPlan
}

func (p *ClassPlan) anchors() []string {
	var out []string
	for _, m := range p.Methods {
		for _, s := range m.Splices {
			out = append(out, s.Anchor())
		}
	}
	return out
}

// Transformer is implemented by anything that can patch host classes.
type Transformer interface {
	IsValidTarget(className string) bool
	Transform(cls *classfile.Class) (*Result, error)
}

// HookResolver reports whether a hook reference has an implementation.
type HookResolver interface {
	Has(ref symbol.Ref) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for progress and diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine applies class plans. A class is transformed at most once.
type Engine struct {
	mu    sync.Mutex
	plans map[string]*ClassPlan
	done  map[string]bool
	log   zerolog.Logger
}

var _ Transformer = (*Engine)(nil)

// NewEngine creates an engine for the given plans.
func NewEngine(plans []ClassPlan, opts ...Option) (*Engine, error) {
	e := &Engine{
		plans: make(map[string]*ClassPlan, len(plans)),
		done:  make(map[string]bool),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for i := range plans {
		p := &plans[i]
		if _, dup := e.plans[p.Class]; dup {
			return nil, fmt.Errorf("%w: class %s planned twice", ErrInvalidManifest, p.Class)
		}
		seen := make(map[string]bool)
		for _, a := range p.anchors() {
			if a == "" || seen[a] {
				return nil, fmt.Errorf("%w: class %s has an empty or repeated anchor %q", ErrInvalidManifest, p.Class, a)
			}
			seen[a] = true
		}
		e.plans[p.Class] = p
	}
	return e, nil
}

// IsValidTarget reports whether the engine has a plan for the class. Both
// binary (dotted) and internal (slashed) names are accepted.
func (e *Engine) IsValidTarget(className string) bool {
	_, ok := e.plans[symbol.InternalName(className)]
	return ok
}

// Targets returns the internal names of all planned classes, sorted.
func (e *Engine) Targets() []string {
	out := make([]string, 0, len(e.plans))
	for name := range e.plans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HookRefs returns every hook referenced by the plans, sorted and without
// duplicates.
func (e *Engine) HookRefs() []symbol.Ref {
	seen := make(map[symbol.Ref]bool)
	var out []symbol.Ref
	for _, name := range e.Targets() {
		for _, m := range e.plans[name].Methods {
			for _, s := range m.Splices {
				for _, h := range s.Hooks() {
					if !seen[h] {
						seen[h] = true
						out = append(out, h)
					}
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// CheckHooks confirms that every hook the plans call has an implementation.
func (e *Engine) CheckHooks(r HookResolver) error {
	var errs *multierror.Error
	for _, h := range e.HookRefs() {
		if !r.Has(h) {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrMissingHook, h))
		}
	}
	return errs.ErrorOrNil()
}

// Transformed reports whether the class was already patched by this engine.
func (e *Engine) Transformed(className string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done[symbol.InternalName(className)]
}

// Transform applies the plan for cls. On success cls is replaced by the
// patched class. On any failure cls is left exactly as it was and the
// returned error aggregates every integrity error found.
func (e *Engine) Transform(cls *classfile.Class) (*Result, error) {
	plan, ok := e.plans[cls.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTarget, cls.Name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done[cls.Name] {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTransformed, cls.Name)
	}

	log := e.log.With().Str("class", cls.Name).Logger()
	result := newResult(cls.Name, plan.anchors())
	if cls.NeedsFrames() {
		return result, &IntegrityError{
			Class:  cls.Name,
			Kind:   KindClassFormat,
			Detail: "class uses features that require stack map frames",
		}
	}

	work := cls.Clone()
	var errs *multierror.Error
	for _, mp := range plan.Methods {
		if err := e.transformMethod(work, mp, result, log); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		log.Error().Err(err).Strs("missing", result.Missing()).Msg("class rejected")
		return result, err
	}
	if err := result.Err(); err != nil {
		return result, err
	}

	*cls = *work
	e.done[cls.Name] = true
	log.Info().Int("anchors", len(result.anchors)).Msg("class patched")
	return result, nil
}

func (e *Engine) transformMethod(cls *classfile.Class, mp MethodPlan, result *Result, log zerolog.Logger) error {
	ref := mp.Target.String()
	annotate := func(err error, anchor string) error {
		var found *IntegrityError
		ie := &IntegrityError{Kind: KindClassFormat, Err: err}
		if errors.As(err, &found) {
			c := *found
			ie = &c
		}
		ie.Class = cls.Name
		ie.Method = ref
		if ie.Anchor == "" {
			ie.Anchor = anchor
		}
		return ie
	}
	// A method that cannot be opened leaves every one of its anchors unmet.
	unmet := func(err error) error {
		if len(mp.Splices) == 0 {
			return annotate(err, "")
		}
		var errs *multierror.Error
		for _, s := range mp.Splices {
			errs = multierror.Append(errs, annotate(err, s.Anchor()))
		}
		return errs
	}

	m := cls.Method(mp.Target.Name, mp.Target.Desc)
	if m == nil {
		return unmet(fail(KindMethodMissing, "no method "+mp.Target.Member()))
	}
	mt, err := mp.Target.MethodType()
	if err != nil {
		return unmet(fail(KindShapeMismatch, err.Error()))
	}
	code, err := cls.DecodeCode(m)
	if err != nil {
		return unmet(err)
	}

	t := &Target{
		Class:  cls,
		Method: m,
		Type:   mt,
		Code:   code,
		Log:    log.With().Str("method", mp.Target.Member()).Logger(),
	}
	var errs *multierror.Error
	var applied []string
	for _, s := range mp.Splices {
		if err := s.Apply(t); err != nil {
			errs = multierror.Append(errs, annotate(err, s.Anchor()))
			continue
		}
		applied = append(applied, s.Anchor())
	}
	if errs != nil {
		return errs
	}

	if err := verify.Labels(code); err != nil {
		return annotate(&IntegrityError{Kind: KindVerification, Err: err}, "")
	}
	depth, err := verify.Stack(code)
	if err != nil {
		return annotate(&IntegrityError{Kind: KindVerification, Err: err}, "")
	}
	if depth > int(code.MaxStack) {
		code.MaxStack = uint16(depth)
	}
	if err := cls.SetCode(m, code); err != nil {
		return annotate(err, "")
	}
	for _, a := range applied {
		result.set(a)
	}
	t.Log.Debug().Strs("anchors", applied).Int("max_stack", int(code.MaxStack)).Msg("method spliced")
	return nil
}

// TransformBytes parses a class file, transforms it and encodes the result.
func (e *Engine) TransformBytes(data []byte) ([]byte, *Result, error) {
	cls, err := classfile.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	result, err := e.Transform(cls)
	if err != nil {
		return nil, result, err
	}
	out, err := cls.Bytes()
	if err != nil {
		return nil, result, err
	}
	return out, result, nil
}
