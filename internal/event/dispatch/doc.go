// Package dispatch runs event handlers for the event bus.
//
// Handlers run synchronously on the caller's goroutine, because hooks are
// called from patched host code that expects plain call/return semantics.
// A panicking handler is recovered and reported as a Result, so a broken
// listener never takes the host down with it.
//
//	d := dispatch.New()
//	results := d.Dispatch(event, handlers, dispatch.Continue)
//
// With Stop, dispatch ends at the first handler that fails or panics and
// the last Result describes the failure.
package dispatch
