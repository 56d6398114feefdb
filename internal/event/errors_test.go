package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerError(t *testing.T) {
	inner := errors.New("boom")
	err := &HandlerError{Binding: "l#0", Topic: topicPing, Err: inner}

	require.ErrorIs(t, err, inner)
	for _, want := range []string{"l#0", "test.ping", "boom"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Binding: "l#1", Topic: topicCollapse, Value: "oops"}

	require.ErrorIs(t, err, ErrHandlerPanic)
	require.NoError(t, errors.Unwrap(err), "non-error panic value should not unwrap")
	require.Contains(t, err.Error(), "oops")
}

func TestPanicError_ErrorValue(t *testing.T) {
	inner := errors.New("bad state")
	err := &PanicError{Binding: "l#1", Topic: topicCollapse, Value: inner}

	require.ErrorIs(t, err, inner)
	require.ErrorIs(t, err, ErrHandlerPanic)
}
