package router

import "github.com/decred/slog"

// config holds the router configuration.
type config struct {
	log       slog.Logger
	observers []OnDeviceChanged

	// fallback is the device used when no peripheral is present. When
	// empty, the sink's speakerphone state at start decides it.
	fallback Device
}

func fillConfig(opts ...Option) config {
	cfg := config{
		log: slog.Disabled,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option is a functional router config option.
type Option func(c *config)

// WithLogger sets the logger used by the router.
func WithLogger(log slog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithObserver registers an observer when the router is created.
func WithObserver(h OnDeviceChanged) Option {
	return func(c *config) {
		c.observers = append(c.observers, h)
	}
}

// WithFallbackDevice sets the initial device used when no peripheral is
// connected. Only Speaker and Earpiece are accepted; other values are
// ignored.
func WithFallbackDevice(d Device) Option {
	return func(c *config) {
		if d == Speaker || d == Earpiece {
			c.fallback = d
		}
	}
}
