package dispatch

import "errors"

// ErrNilHandler is reported in the Result of dispatching a nil handler.
var ErrNilHandler = errors.New("handler cannot be nil")
