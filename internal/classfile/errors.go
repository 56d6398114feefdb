package classfile

import "errors"

var (
	// ErrTruncated is returned when the input ends in the middle of a structure.
	ErrTruncated = errors.New("class file truncated")

	// ErrBadMagic is returned when the input does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("not a class file")

	// ErrBadPoolIndex is returned for an out of range or mistyped pool index.
	ErrBadPoolIndex = errors.New("bad constant pool index")

	// ErrBadPoolTag is returned for an unknown constant pool tag.
	ErrBadPoolTag = errors.New("unknown constant pool tag")

	// ErrPoolFull is returned when a constant would not fit in the pool.
	ErrPoolFull = errors.New("constant pool full")

	// ErrBadCode is returned for a malformed Code attribute.
	ErrBadCode = errors.New("malformed code attribute")

	// ErrNoCode is returned when a method has no Code attribute.
	ErrNoCode = errors.New("method has no code")

	// ErrBranchOutOfRange is returned when a conditional branch offset does
	// not fit in 16 bits.
	ErrBranchOutOfRange = errors.New("branch offset out of range")

	// ErrCodeTooLarge is returned when an encoded method exceeds 65535 bytes.
	ErrCodeTooLarge = errors.New("method code too large")

	// ErrUnboundLabel is returned when an instruction or table refers to a
	// label that is not attached to the list.
	ErrUnboundLabel = errors.New("label not attached")
)
