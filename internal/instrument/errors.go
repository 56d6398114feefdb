package instrument

import (
	"errors"
	"strings"
)

// Sentinel errors for the instrumentation engine.
var (
	// ErrIntegrity matches every *IntegrityError.
	ErrIntegrity = errors.New("instrumentation integrity error")

	// ErrAlreadyTransformed is returned when a class is transformed twice.
	ErrAlreadyTransformed = errors.New("class already transformed")

	// ErrNotTarget is returned when the engine has no plan for a class.
	ErrNotTarget = errors.New("class is not a transformation target")

	// ErrInvalidManifest is returned for a manifest that cannot be turned
	// into class plans.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrMissingHook is returned by CheckHooks for a hook reference with no
	// bridge implementation.
	ErrMissingHook = errors.New("hook has no bridge implementation")
)

// Kind classifies an integrity error.
type Kind int

// Integrity error kinds.
const (
	KindMethodMissing Kind = iota + 1
	KindAnchorMissing
	KindAnchorDuplicated
	KindShapeMismatch
	KindVerification
	KindClassFormat
)

func (k Kind) String() string {
	switch k {
	case KindMethodMissing:
		return "method missing"
	case KindAnchorMissing:
		return "anchor missing"
	case KindAnchorDuplicated:
		return "anchor duplicated"
	case KindShapeMismatch:
		return "shape mismatch"
	case KindVerification:
		return "verification failed"
	case KindClassFormat:
		return "class format"
	}
	return "unknown"
}

// IntegrityError reports that a host class no longer matches what a plan
// assumes about it. It is always fatal for the class.
type IntegrityError struct {
	// Class is the internal name of the class being transformed.
	Class string

	// Method is the symbolic reference of the target method, if any.
	Method string

	// Anchor is the name of the anchor that failed, if any.
	Anchor string

	Kind   Kind
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Method != "" {
		b.WriteString(" in ")
		b.WriteString(e.Method)
	} else if e.Class != "" {
		b.WriteString(" in ")
		b.WriteString(e.Class)
	}
	if e.Anchor != "" {
		b.WriteString(" [")
		b.WriteString(e.Anchor)
		b.WriteString("]")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match IntegrityError with ErrIntegrity.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// fail builds an integrity error for the splice being applied. The engine
// fills in the class, method and anchor.
func fail(kind Kind, detail string) *IntegrityError {
	return &IntegrityError{Kind: kind, Detail: detail}
}
