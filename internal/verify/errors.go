package verify

import "errors"

var (
	// ErrDanglingLabel is returned when something refers to a label that is
	// not attached to the instruction list.
	ErrDanglingLabel = errors.New("dangling label")

	// ErrDuplicateLabel is returned when a label is attached more than once.
	ErrDuplicateLabel = errors.New("label attached twice")

	// ErrStackUnderflow is returned when an instruction pops more values than
	// the operand stack holds.
	ErrStackUnderflow = errors.New("operand stack underflow")

	// ErrStackMismatch is returned when two paths reach an instruction with
	// different stack depths.
	ErrStackMismatch = errors.New("inconsistent operand stack depth")

	// ErrFallsOffEnd is returned when execution can run past the last
	// instruction.
	ErrFallsOffEnd = errors.New("execution falls off the end of the method")

	// ErrUnknownInstruction is returned for an instruction without a known
	// stack effect.
	ErrUnknownInstruction = errors.New("unknown instruction")
)
