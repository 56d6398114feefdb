package insn

import "errors"

var (
	// ErrDeadHandle is returned when a handle does not address a live node.
	ErrDeadHandle = errors.New("handle is not live")

	// ErrLabelInUse is returned when removing a label something still refers to.
	ErrLabelInUse = errors.New("label is still referenced")
)
