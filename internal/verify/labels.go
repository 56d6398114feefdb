// Package verify checks the structural integrity of an edited method body.
//
// It is not a bytecode verifier. Labels checks that every branch, line marker
// and table entry refers to a label present exactly once, and Stack runs a
// depth-only data flow analysis that proves the operand stack is consistent
// at every merge point and computes max_stack.
package verify

import (
	"fmt"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/insn"
)

// Labels checks label integrity of code.
func Labels(code *classfile.Code) error {
	l := code.Insns
	seen := make(map[insn.LabelID]int)
	for _, i := range l.All() {
		if lbl, ok := i.(*insn.Label); ok {
			seen[lbl.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			return fmt.Errorf("%w: L%d", ErrDuplicateLabel, id)
		}
	}

	check := func(id insn.LabelID, what string) error {
		if seen[id] == 0 {
			return fmt.Errorf("%w: L%d referenced by %s", ErrDanglingLabel, id, what)
		}
		return nil
	}
	for _, i := range l.All() {
		for _, id := range insn.Targets(i) {
			if err := check(id, insn.Format(i)); err != nil {
				return err
			}
		}
	}
	for _, h := range code.Handlers {
		for _, id := range []insn.LabelID{h.Start, h.End, h.Handler} {
			if err := check(id, "exception table"); err != nil {
				return err
			}
		}
	}
	for _, v := range code.Locals {
		if err := check(v.Start, "local "+v.Name); err != nil {
			return err
		}
		if err := check(v.End, "local "+v.Name); err != nil {
			return err
		}
	}
	return nil
}
