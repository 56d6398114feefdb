package event

import "github.com/rs/zerolog"

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// log receives handler failures and table rebuilds.
	log zerolog.Logger

	// panicHandler is called when a handler panics.
	panicHandler PanicHandler
}

// PanicHandler is called when a handler panics.
type PanicHandler func(ev Event, binding string, recovered any)

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		log: zerolog.Nop(),
	}
}

// WithLogger sets the logger used by the bus.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.log = l
	}
}

// WithBusPanicHandler sets a callback invoked after a handler panics.
func WithBusPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}
