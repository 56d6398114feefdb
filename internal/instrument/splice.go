package instrument

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/insn"
	"github.com/dshills/starhook/internal/symbol"
)

// Target is a method being rewritten. Splices edit Code in place; the engine
// only commits the result once every splice of the class succeeded.
type Target struct {
	Class  *classfile.Class
	Method *classfile.Member
	Type   symbol.MethodType
	Code   *classfile.Code
	Log    zerolog.Logger
}

// Static reports whether the target is a static method.
func (t *Target) Static() bool {
	return t.Method.IsStatic()
}

// paramSlot returns the local variable slot of parameter n.
func (t *Target) paramSlot(n int) uint16 {
	slot := 0
	if !t.Static() {
		slot = 1
	}
	for _, p := range t.Type.Params[:n] {
		slot += p.Slots()
	}
	return uint16(slot)
}

// Splice is one edit applied at an anchor of a target method.
type Splice interface {
	// Anchor names the anchor in results and diagnostics.
	Anchor() string

	// Hooks returns the hook methods the splice calls.
	Hooks() []symbol.Ref

	// Apply edits t. Errors are integrity errors.
	Apply(t *Target) error
}

func invokeStatic(ref symbol.Ref) *insn.Invoke {
	return &insn.Invoke{Op: insn.Invokestatic, Owner: ref.Owner, Name: ref.Name, Desc: ref.Desc}
}

func nonZero(refs ...symbol.Ref) []symbol.Ref {
	var out []symbol.Ref
	for _, r := range refs {
		if !r.IsZero() {
			out = append(out, r)
		}
	}
	return out
}

// hookType parses the descriptor of a hook and checks it against want, a
// descriptor such as "()V". An empty want accepts any descriptor.
func hookType(ref symbol.Ref, want string) (symbol.MethodType, error) {
	mt, err := ref.MethodType()
	if err != nil {
		return mt, fail(KindShapeMismatch, fmt.Sprintf("hook %s: %v", ref, err))
	}
	if want != "" && ref.Desc != want {
		return mt, fail(KindShapeMismatch, fmt.Sprintf("hook %s must have descriptor %s", ref, want))
	}
	return mt, nil
}

// Overwrite replaces the whole method body with a call that forwards every
// argument to Hook and returns its result. Exception handlers and local
// variable tables are dropped.
type Overwrite struct {
	Name string
	Hook symbol.Ref
}

// Anchor implements Splice.
func (s *Overwrite) Anchor() string { return s.Name }

// Hooks implements Splice.
func (s *Overwrite) Hooks() []symbol.Ref { return nonZero(s.Hook) }

// Apply implements Splice.
func (s *Overwrite) Apply(t *Target) error {
	if _, err := hookType(s.Hook, t.Type.Desc()); err != nil {
		return err
	}
	c := t.Code
	c.ClearHandlers()
	c.ClearLocals()
	c.Insns.Clear()
	for n, p := range t.Type.Params {
		c.Insns.Append(&insn.Var{Op: insn.LoadOp(p), Index: t.paramSlot(n)})
	}
	c.Insns.Append(invokeStatic(s.Hook), &insn.Simple{Op: insn.ReturnOp(t.Type.Return)})
	return nil
}

// Wrap calls Entry first thing and Exit before every return instruction.
// Either hook may be left zero.
type Wrap struct {
	Name  string
	Entry symbol.Ref
	Exit  symbol.Ref
}

// Anchor implements Splice.
func (s *Wrap) Anchor() string { return s.Name }

// Hooks implements Splice.
func (s *Wrap) Hooks() []symbol.Ref { return nonZero(s.Entry, s.Exit) }

// Apply implements Splice.
func (s *Wrap) Apply(t *Target) error {
	for _, h := range s.Hooks() {
		if _, err := hookType(h, "()V"); err != nil {
			return err
		}
	}
	l := t.Code.Insns
	var returns []insn.Handle
	for h, i := range l.All() {
		if insn.IsReturn(i.Opcode()) {
			returns = append(returns, h)
		}
	}
	if len(returns) == 0 {
		return fail(KindAnchorMissing, "method has no return instruction")
	}
	if !s.Exit.IsZero() {
		for _, h := range returns {
			l.InsertBefore(h, invokeStatic(s.Exit))
		}
	}
	if !s.Entry.IsZero() {
		l.Prepend(invokeStatic(s.Entry))
	}
	t.Log.Debug().Int("returns", len(returns)).Msg("wrapped method")
	return nil
}

// Window locates a unique instruction window ending in a branch. Pre is
// called at the branch target, Post before the last return of the method
// and Early, if set, first thing in the method.
type Window struct {
	Name    string
	Pattern Pattern
	Early   symbol.Ref
	Pre     symbol.Ref
	Post    symbol.Ref
}

// Anchor implements Splice.
func (s *Window) Anchor() string { return s.Name }

// Hooks implements Splice.
func (s *Window) Hooks() []symbol.Ref { return nonZero(s.Early, s.Pre, s.Post) }

// Apply implements Splice.
func (s *Window) Apply(t *Target) error {
	for _, h := range s.Hooks() {
		if _, err := hookType(h, "()V"); err != nil {
			return err
		}
	}
	l := t.Code.Insns
	matches := Find(l, s.Pattern)
	switch len(matches) {
	case 0:
		return fail(KindAnchorMissing, fmt.Sprintf("window %q not found", s.Pattern.Name))
	case 1:
	default:
		return fail(KindAnchorDuplicated, fmt.Sprintf("window %q found %d times", s.Pattern.Name, len(matches)))
	}

	jump, ok := l.At(matches[0].Last()).(*insn.Jump)
	if !ok {
		return fail(KindShapeMismatch, fmt.Sprintf("window %q does not end in a branch", s.Pattern.Name))
	}
	target, ok := l.LabelAt(jump.Target)
	if !ok {
		return fail(KindShapeMismatch, fmt.Sprintf("branch target L%d is not attached", jump.Target))
	}
	last := insn.NoHandle
	for h, i := range l.Backward() {
		if insn.IsReturn(i.Opcode()) {
			last = h
			break
		}
	}
	if last == insn.NoHandle {
		return fail(KindAnchorMissing, "method has no return instruction")
	}

	if !s.Pre.IsZero() {
		l.InsertAfter(target, invokeStatic(s.Pre))
	}
	if !s.Post.IsZero() {
		l.InsertBefore(last, invokeStatic(s.Post))
	}
	if !s.Early.IsZero() {
		l.Prepend(invokeStatic(s.Early))
	}
	return nil
}

// CancelableHead lets a boolean hook veto the method. At the start of the
// method it passes the selected arguments to Hook and returns immediately,
// with the default value of the return type, when the hook returns true.
//
// Reference arguments whose declared type differs from the hook parameter are
// checkcast to the hook's type, so a wrong assumption about the host fails at
// the splice point instead of deeper inside a listener.
type CancelableHead struct {
	Name string
	Hook symbol.Ref

	// This passes the receiver as the first hook argument.
	This bool

	// Params lists the method parameters passed to the hook, by position.
	Params []int
}

// Anchor implements Splice.
func (s *CancelableHead) Anchor() string { return s.Name }

// Hooks implements Splice.
func (s *CancelableHead) Hooks() []symbol.Ref { return nonZero(s.Hook) }

// Apply implements Splice.
func (s *CancelableHead) Apply(t *Target) error {
	hook, err := hookType(s.Hook, "")
	if err != nil {
		return err
	}
	if hook.Return.Kind() != symbol.KindBoolean {
		return fail(KindShapeMismatch, fmt.Sprintf("hook %s must return boolean", s.Hook))
	}
	if t.Method.Name == "<init>" {
		return fail(KindShapeMismatch, "cannot return from a constructor before it initializes the object")
	}

	type arg struct {
		typ  symbol.Type
		slot uint16
	}
	var args []arg
	if s.This {
		if t.Static() {
			return fail(KindShapeMismatch, "static method has no receiver")
		}
		args = append(args, arg{symbol.Type{Desc: "L" + t.Class.Name + ";"}, 0})
	}
	for _, n := range s.Params {
		if n < 0 || n >= len(t.Type.Params) {
			return fail(KindShapeMismatch, fmt.Sprintf("method has no parameter %d", n))
		}
		args = append(args, arg{t.Type.Params[n], t.paramSlot(n)})
	}
	if len(args) != len(hook.Params) {
		return fail(KindShapeMismatch, fmt.Sprintf("hook %s takes %d arguments, %d selected", s.Hook, len(hook.Params), len(args)))
	}

	l := t.Code.Insns
	var seq []insn.Insn
	for k, a := range args {
		want := hook.Params[k]
		seq = append(seq, &insn.Var{Op: insn.LoadOp(a.typ), Index: a.slot})
		switch {
		case want.IsReference() != a.typ.IsReference(), insn.LoadOp(want) != insn.LoadOp(a.typ):
			return fail(KindShapeMismatch, fmt.Sprintf("argument %d is %s, hook expects %s", k, a.typ, want))
		case want.IsReference() && want.Desc != a.typ.Desc && want.Desc != "Ljava/lang/Object;":
			seq = append(seq, &insn.TypeInsn{Op: insn.Checkcast, Class: want.ClassName()})
		}
	}
	skip := l.NewLabel()
	seq = append(seq, invokeStatic(s.Hook), &insn.Jump{Op: insn.Ifeq, Target: skip.ID})
	if zero := insn.ZeroValue(t.Type.Return); zero != nil {
		seq = append(seq, zero)
	}
	seq = append(seq, &insn.Simple{Op: insn.ReturnOp(t.Type.Return)}, skip)
	l.Prepend(seq...)
	return nil
}

// CallSite intercepts the result of a unique static call. Right after the
// call it passes the most recently loaded local variable to a boolean hook
// and returns Sentinel when the hook reports the input handled.
type CallSite struct {
	Name string
	Call symbol.Ref
	Hook symbol.Ref

	// Sentinel is returned by int-like methods when the hook returns true.
	// Other return types use their default value.
	Sentinel int32
}

// Anchor implements Splice.
func (s *CallSite) Anchor() string { return s.Name }

// Hooks implements Splice.
func (s *CallSite) Hooks() []symbol.Ref { return nonZero(s.Hook) }

// Apply implements Splice.
func (s *CallSite) Apply(t *Target) error {
	hook, err := hookType(s.Hook, "")
	if err != nil {
		return err
	}
	if len(hook.Params) != 1 || hook.Return.Kind() != symbol.KindBoolean {
		return fail(KindShapeMismatch, fmt.Sprintf("hook %s must take one argument and return boolean", s.Hook))
	}

	type site struct {
		at   insn.Handle
		load *insn.Var
		line uint16
	}
	var (
		sites    []site
		lastLoad *insn.Var
		lastLine uint16
	)
	match := Invokes(insn.Invokestatic, s.Call)
	l := t.Code.Insns
	for h, i := range l.All() {
		switch v := i.(type) {
		case *insn.Line:
			lastLine = v.Line
		case *insn.Var:
			if insn.IsLoad(v.Op) {
				lastLoad = v
			}
		default:
			if match(i) {
				sites = append(sites, site{at: h, load: lastLoad, line: lastLine})
			}
		}
	}
	switch len(sites) {
	case 0:
		return fail(KindAnchorMissing, fmt.Sprintf("no call to %s", s.Call))
	case 1:
	default:
		return fail(KindAnchorDuplicated, fmt.Sprintf("%s is called %d times", s.Call, len(sites)))
	}
	st := sites[0]
	if st.load == nil {
		return fail(KindShapeMismatch, fmt.Sprintf("no local variable is loaded before the call to %s", s.Call))
	}
	if insn.LoadOp(hook.Params[0]) != st.load.Op {
		return fail(KindShapeMismatch, fmt.Sprintf("local %d is loaded with %s, hook expects %s", st.load.Index, st.load.Op, hook.Params[0]))
	}

	cont := l.NewLabel()
	seq := []insn.Insn{
		&insn.Var{Op: st.load.Op, Index: st.load.Index},
		invokeStatic(s.Hook),
		&insn.Jump{Op: insn.Ifeq, Target: cont.ID},
	}
	ret := t.Type.Return
	switch {
	case ret.IsIntLike():
		push := insn.PushInt(s.Sentinel)
		if push == nil {
			return fail(KindShapeMismatch, fmt.Sprintf("sentinel %d does not fit a short", s.Sentinel))
		}
		seq = append(seq, push)
	case ret.Kind() != symbol.KindVoid:
		seq = append(seq, insn.ZeroValue(ret))
	}
	seq = append(seq, &insn.Simple{Op: insn.ReturnOp(ret)}, cont)
	l.InsertAfter(st.at, seq...)
	t.Log.Debug().Uint16("line", st.line).Uint16("local", st.load.Index).Msg("intercepted call site")
	return nil
}
