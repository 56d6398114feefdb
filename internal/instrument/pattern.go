package instrument

import (
	"github.com/dshills/starhook/internal/insn"
	"github.com/dshills/starhook/internal/symbol"
)

// Matcher is a predicate over a single real instruction.
type Matcher func(insn.Insn) bool

// Pattern is an ordered window of matchers. A pattern matches where each
// matcher accepts consecutive real instructions; labels and line markers
// between them are skipped.
type Pattern struct {
	Name  string
	Steps []Matcher
}

// Match is one occurrence of a pattern.
type Match struct {
	// Handles holds the matched node of every step, in order.
	Handles []insn.Handle
}

// Last returns the node matched by the final step.
func (m Match) Last() insn.Handle {
	return m.Handles[len(m.Handles)-1]
}

// Find scans l forward and returns every occurrence of p, in stream order.
// Occurrences do not overlap: scanning resumes after the last matched node.
func Find(l *insn.List, p Pattern) []Match {
	var out []Match
	if len(p.Steps) == 0 {
		return nil
	}
	for h := l.FirstReal(); h != insn.NoHandle; {
		m, ok := matchAt(l, h, p.Steps)
		if !ok {
			h = l.NextReal(h)
			continue
		}
		out = append(out, m)
		h = l.NextReal(m.Last())
	}
	return out
}

func matchAt(l *insn.List, h insn.Handle, steps []Matcher) (Match, bool) {
	handles := make([]insn.Handle, 0, len(steps))
	for k, step := range steps {
		if k > 0 {
			h = l.NextReal(h)
		}
		if h == insn.NoHandle || !step(l.At(h)) {
			return Match{}, false
		}
		handles = append(handles, h)
	}
	return Match{Handles: handles}, true
}

// Op matches any instruction with one of the given opcodes.
func Op(ops ...insn.Opcode) Matcher {
	return func(i insn.Insn) bool {
		op := i.Opcode()
		for _, o := range ops {
			if o == op {
				return true
			}
		}
		return false
	}
}

// FieldAccess matches a field instruction on ref. An empty descriptor in
// ref matches any field type.
func FieldAccess(ref symbol.Ref) Matcher {
	return func(i insn.Insn) bool {
		f, ok := i.(*insn.Field)
		return ok && f.Owner == ref.Owner && f.Name == ref.Name && (ref.Desc == "" || f.Desc == ref.Desc)
	}
}

// Invokes matches a call to exactly ref with the given opcode.
func Invokes(op insn.Opcode, ref symbol.Ref) Matcher {
	return func(i insn.Insn) bool {
		v, ok := i.(*insn.Invoke)
		return ok && v.Op == op && v.Ref() == ref
	}
}

// PushesInt matches an instruction pushing the integer constant v.
func PushesInt(v int32) Matcher {
	return func(i insn.Insn) bool {
		got, ok := insn.IntValue(i)
		return ok && got == v
	}
}

// Branch matches any conditional or unconditional jump.
func Branch() Matcher {
	return func(i insn.Insn) bool {
		_, ok := i.(*insn.Jump)
		return ok && i.Opcode() != insn.Jsr
	}
}

// ConditionalBranch matches a conditional jump.
func ConditionalBranch() Matcher {
	return func(i insn.Insn) bool {
		return insn.IsConditional(i.Opcode())
	}
}
