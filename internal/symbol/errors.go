package symbol

import "errors"

var (
	// ErrInvalidRef is returned when a textual reference cannot be split.
	ErrInvalidRef = errors.New("invalid symbolic reference")

	// ErrInvalidDescriptor is returned for malformed type or method descriptors.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)
