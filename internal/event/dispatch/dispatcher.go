package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Mode selects what Dispatch does after a handler fails.
type Mode uint8

const (
	// Continue runs every handler regardless of failures.
	Continue Mode = iota

	// Stop returns after the first handler that fails or panics.
	Stop
)

// Dispatcher runs handler lists and keeps execution statistics. It is safe
// for concurrent use.
type Dispatcher struct {
	runs     atomic.Uint64
	failures atomic.Uint64
	panics   atomic.Uint64
	busyNs   atomic.Int64
}

// New creates a dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch runs handlers in order with event and returns one Result per
// handler that ran.
func (d *Dispatcher) Dispatch(event any, handlers []Handler, mode Mode) []Result {
	results := make([]Result, 0, len(handlers))
	for _, h := range handlers {
		res := d.run(event, h)
		results = append(results, res)
		if mode == Stop && !res.OK() {
			break
		}
	}
	return results
}

func (d *Dispatcher) run(event any, h Handler) Result {
	res := execute(event, h)
	d.runs.Add(1)
	d.busyNs.Add(res.Duration.Nanoseconds())
	switch res.Outcome {
	case Failed:
		d.failures.Add(1)
	case Panicked:
		d.panics.Add(1)
	}
	return res
}

// execute runs one handler, recovering a panic into the Result.
func execute(event any, h Handler) (res Result) {
	if h == nil {
		return Result{Outcome: Failed, Err: ErrNilHandler}
	}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Outcome = Panicked
			res.Recovered = r
			res.Stack = debug.Stack()
		}
	}()
	if err := h.Handle(event); err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: Succeeded}
}

// Stats contains dispatcher statistics.
type Stats struct {
	// Runs is the number of handlers run.
	Runs uint64

	// Failures and Panics count the runs that did not succeed.
	Failures uint64
	Panics   uint64

	// HandlerTime is the cumulative time spent in handlers.
	HandlerTime time.Duration
}

// Stats returns the statistics. Counters are read independently, so a
// snapshot taken during dispatch may be slightly inconsistent.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Runs:        d.runs.Load(),
		Failures:    d.failures.Load(),
		Panics:      d.panics.Load(),
		HandlerTime: time.Duration(d.busyNs.Load()),
	}
}
